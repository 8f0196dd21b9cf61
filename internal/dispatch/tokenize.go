package dispatch

import (
	"encoding/csv"
	"strings"
)

// candidateDelimiters are the separators a report may use, in tie-break order.
var candidateDelimiters = []rune{',', '\t', ';'}

// SplitLines splits text on any line-ending convention. Trailing lines that
// are empty or whitespace-only are dropped, so they never count as rows.
func SplitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	lines := strings.Split(text, "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// DetectDelimiter picks the separator that occurs most often outside quotes
// across the sample lines. Comma wins ties and empty samples.
func DetectDelimiter(sample []string) rune {
	best, bestCount := ',', 0
	for _, d := range candidateDelimiters {
		count := 0
		for _, line := range sample {
			count += countUnquoted(line, d)
		}
		if count > bestCount {
			best, bestCount = d, count
		}
	}
	return best
}

func countUnquoted(line string, d rune) int {
	inQuotes := false
	n := 0
	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == d && !inQuotes:
			n++
		}
	}
	return n
}

// TokenizeLine splits one physical line into cells. Quoted cells may contain
// the delimiter, and a doubled quote inside a quoted cell is a literal quote.
// Malformed quoting never fails: the line is split by hand instead.
func TokenizeLine(line string, delim rune) []string {
	if line == "" {
		return []string{""}
	}

	r := csv.NewReader(strings.NewReader(line))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	record, err := r.Read()
	if err == nil {
		return record
	}
	return splitManually(line, delim)
}

// splitManually is the fallback splitter for lines encoding/csv rejects.
func splitManually(line string, delim rune) []string {
	var (
		cells    []string
		cur      strings.Builder
		inQuotes bool
	)
	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case c == '"' && inQuotes && i+1 < len(runes) && runes[i+1] == '"':
			cur.WriteRune('"')
			i++
		case c == '"':
			inQuotes = !inQuotes
		case c == delim && !inQuotes:
			cells = append(cells, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(c)
		}
	}
	return append(cells, cur.String())
}

// CleanField trims whitespace and stray quoting, strips an Excel ="..."
// wrapper, and collapses runs of whitespace to a single space.
func CleanField(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) && len(s) >= 3 {
		s = s[2 : len(s)-1]
	}
	s = strings.Trim(s, `"`)
	return strings.Join(strings.Fields(s), " ")
}

// cell returns the cleaned cell at idx, or "" when idx is out of range.
func cell(cells []string, idx int) string {
	if idx < 0 || idx >= len(cells) {
		return ""
	}
	return CleanField(cells[idx])
}
