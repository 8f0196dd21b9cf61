package dispatch

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// datePattern is one numeric date shape and the submatch positions of its
// year, month and day.
type datePattern struct {
	re                    *regexp.Regexp
	yearIdx, monIdx, dIdx int
}

// Tried in order; the first valid calendar date wins.
var numericDatePatterns = []datePattern{
	{regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})`), 3, 1, 2}, // MM/DD/YYYY
	{regexp.MustCompile(`(\d{1,2})-(\d{1,2})-(\d{4})`), 3, 1, 2}, // MM-DD-YYYY
	{regexp.MustCompile(`(\d{4})-(\d{1,2})-(\d{1,2})`), 1, 2, 3}, // YYYY-MM-DD
}

var monthNameRegex = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sept|sep|oct|nov|dec)\.?[\s,/]+(\d{1,2})(?:st|nd|rd|th)?[\s,/]+(\d{4})\b`)

var monthNumbers = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

// ExtractReportDate finds the report date in the first line of a report.
// The first cell is searched first, then the remaining cells, then the raw
// line (an unquoted "April 15, 2025" is split across two cells). The second
// return value is false when no date was found.
func ExtractReportDate(headerLine string, delim rune) (string, bool) {
	cells := TokenizeLine(headerLine, delim)
	for _, c := range cells {
		if d, ok := FindDate(c); ok {
			return d, true
		}
	}
	return FindDate(headerLine)
}

// FindDate returns the first recognizable date in text as YYYY-MM-DD.
func FindDate(text string) (string, bool) {
	for _, p := range numericDatePatterns {
		for _, m := range p.re.FindAllStringSubmatch(text, -1) {
			y, _ := strconv.Atoi(m[p.yearIdx])
			mon, _ := strconv.Atoi(m[p.monIdx])
			d, _ := strconv.Atoi(m[p.dIdx])
			if s, ok := formatDate(y, mon, d); ok {
				return s, true
			}
		}
	}

	for _, m := range monthNameRegex.FindAllStringSubmatch(text, -1) {
		name := strings.ToLower(m[1])
		if len(name) > 3 {
			name = name[:3]
		}
		d, _ := strconv.Atoi(m[2])
		y, _ := strconv.Atoi(m[3])
		if s, ok := formatDate(y, monthNumbers[name], d); ok {
			return s, true
		}
	}

	return "", false
}

// formatDate validates the calendar date and renders it zero-padded.
func formatDate(y, mon, d int) (string, bool) {
	if mon < 1 || mon > 12 || d < 1 || d > 31 {
		return "", false
	}
	t := time.Date(y, time.Month(mon), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d || int(t.Month()) != mon {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d", y, mon, d), true
}
