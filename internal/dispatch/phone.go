package dispatch

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var (
	standardPhoneRegex = regexp.MustCompile(`^(?:\+?1[\s.-]?)?\(?\d{3}\)?[\s.-]?\d{3}[\s.-]?\d{4}$`)
	labeledPhoneRegex  = regexp.MustCompile(`(?i)^(?:p|m|c|h|w|t|ph|tel|cell|mobile|phone|office|home|work)\s*[:.#]\s*[\d\s().+-]{10,}`)
	phoneLabelRegex    = regexp.MustCompile(`^([A-Za-z])\s*:\s*(.+)$`)
	phoneExtRegex      = regexp.MustCompile(`(?i)^(.*?\d)\s*(?:ext\.?|extension|x)\s*(\d{1,6})$`)
)

// IsPhoneNumber reports whether text looks like a phone number: a standard
// North American shape, a labeled number ("P: ...", "phone: ..."), or any
// text carrying at least ten digits.
func IsPhoneNumber(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	if standardPhoneRegex.MatchString(text) || labeledPhoneRegex.MatchString(text) {
		return true
	}
	return countDigits(text) >= 10
}

// CleanPhone normalizes a phone cell. When several numbers are separated by
// "/", only the first is kept and collapsed is true. A single-letter label
// ("P:", "M:") and an extension are preserved. Ten digits, or eleven with a
// leading 1, are formatted as (NNN) NNN-NNNN; anything else is returned in a
// best-effort cleaned form.
func CleanPhone(raw string) (phone string, collapsed bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}

	if i := strings.Index(s, "/"); i >= 0 {
		s = strings.TrimSpace(s[:i])
		collapsed = true
	}

	label := ""
	if m := phoneLabelRegex.FindStringSubmatch(s); m != nil {
		label = strings.ToUpper(m[1]) + ": "
		s = m[2]
	}

	ext := ""
	if m := phoneExtRegex.FindStringSubmatch(s); m != nil {
		s, ext = m[1], m[2]
	}

	number := formatPhoneDigits(s)
	if number == "" {
		number = keepPhoneChars(s)
	}
	if number == "" {
		return "", collapsed
	}
	if ext != "" {
		number += " x" + ext
	}
	return label + number, collapsed
}

// formatPhoneDigits returns (NNN) NNN-NNNN when s holds exactly ten digits,
// or eleven with a leading country code 1. Otherwise it returns "".
func formatPhoneDigits(s string) string {
	digits := onlyDigits(s)
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) != 10 {
		return ""
	}
	return fmt.Sprintf("(%s) %s-%s", digits[:3], digits[3:6], digits[6:])
}

// keepPhoneChars drops everything but digits, '+', parentheses, extension
// markers and spaces.
func keepPhoneChars(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsDigit(r), r == '+', r == '(', r == ')', r == 'x', r == 'X', r == ' ':
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
