package dispatch

import (
	"fmt"
	"regexp"
	"slices"
)

var clockShapeRegex = regexp.MustCompile(`(?i)\d:\d{2}|\d\s*[ap]\.?m\b`)

// fieldExtractor tries one strategy for recovering a field from a row.
// It returns the value, a warning message when the strategy is a fallback,
// and whether it produced anything.
type fieldExtractor func(cells []string, cols ColumnMap) (value, note string, ok bool)

// extractField runs extractors in order and stops at the first success.
func extractField(cells []string, cols ColumnMap, chain ...fieldExtractor) (string, string) {
	for _, extract := range chain {
		if v, note, ok := extract(cells, cols); ok {
			return v, note
		}
	}
	return "", ""
}

func positional(idx func(ColumnMap) int) fieldExtractor {
	return func(cells []string, cols ColumnMap) (string, string, bool) {
		v := cell(cells, idx(cols))
		return v, "", v != ""
	}
}

// sniffed scans cells not claimed by any mapped field for one matching
// looksLike.
func sniffed(field string, looksLike func(string) bool) fieldExtractor {
	return func(cells []string, cols ColumnMap) (string, string, bool) {
		claimed := cols.indices()
		for i := range cells {
			if slices.Contains(claimed, i) {
				continue
			}
			v := CleanField(cells[i])
			if v != "" && looksLike(v) {
				return v, fmt.Sprintf("%s recovered from column %d by content match", field, i+1), true
			}
		}
		return "", "", false
	}
}

// looksLikeClock accepts values that read as a time of day. Bare numbers are
// excluded because order numbers and quantities share that shape.
func looksLikeClock(v string) bool {
	if !clockShapeRegex.MatchString(v) {
		return false
	}
	_, ok := NormalizeTime(v)
	return ok
}

func addressCol(c ColumnMap) int { return c.Address }
func timeCol(c ColumnMap) int    { return c.DeliveryTime }
