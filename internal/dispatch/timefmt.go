package dispatch

// timefmt.go converts the time notations seen in dispatch reports to the
// canonical zero-padded 24-hour HH:MM form.
//
// Recognition order (first match wins):
//  1. 24-hour H:MM / HH:MM (optional :SS)
//  2. 12-hour H:MM with AM/PM marker
//  3. hour-only with AM/PM marker ("1PM", "2 am")
//  4. military HMM / HHMM below 2400, overflow minutes carried into hours
//  5. seconds or milliseconds since midnight, and spreadsheet day fractions
//
// Anything else yields DefaultDeliveryTime.

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	time24Regex       = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::\d{2})?$`)
	time12Regex       = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::\d{2})?\s*([AaPp])\.?\s*[Mm]?\.?$`)
	hourMeridiemRegex = regexp.MustCompile(`^(\d{1,2})\s*([AaPp])\.?\s*[Mm]?\.?$`)
	militaryRegex     = regexp.MustCompile(`^\d{3,4}$`)
	integerRegex      = regexp.MustCompile(`^\d+$`)
	dayFractionRegex  = regexp.MustCompile(`^0?\.\d+$`)
	timeRangeSplit    = regexp.MustCompile(`\s*(?:-|–|\bto\b)\s*`)
)

const (
	secondsPerDay = 24 * 60 * 60
	millisPerDay  = secondsPerDay * 1000

	// Smaller integers are order numbers or typos, not clock offsets.
	minEpochValue = 10000
)

// ConvertTimeFormat returns the canonical HH:MM form of raw, or
// DefaultDeliveryTime when raw is empty or unrecognized.
func ConvertTimeFormat(raw string) string {
	if t, ok := NormalizeTime(raw); ok {
		return t
	}
	return DefaultDeliveryTime
}

// NormalizeTime is ConvertTimeFormat with an explicit recognition flag.
// A delivery window such as "1:30 PM - 3:00 PM" resolves to its start.
func NormalizeTime(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	if t, ok := normalizeSingleTime(s); ok {
		return t, true
	}
	if parts := timeRangeSplit.Split(s, 2); len(parts) == 2 && parts[0] != "" {
		return normalizeSingleTime(parts[0])
	}
	return "", false
}

func normalizeSingleTime(s string) (string, bool) {
	if m := time24Regex.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		min, _ := strconv.Atoi(m[2])
		return formatClock(h, min)
	}

	if m := time12Regex.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		min, _ := strconv.Atoi(m[2])
		return formatClock(to24Hour(h, m[3]), min)
	}

	if m := hourMeridiemRegex.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		return formatClock(to24Hour(h, m[2]), 0)
	}

	if militaryRegex.MatchString(s) {
		v, _ := strconv.Atoi(s)
		if v < 2400 {
			h, min := v/100, v%100
			h += min / 60
			min %= 60
			return formatClock(h, min)
		}
	}

	if integerRegex.MatchString(s) {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return "", false
		}
		switch {
		case v < minEpochValue:
			return "", false
		case v < secondsPerDay:
			return formatClock(int(v/3600), int(v%3600)/60)
		case v < millisPerDay:
			secs := v / 1000
			return formatClock(int(secs/3600), int(secs%3600)/60)
		}
		return "", false
	}

	if dayFractionRegex.MatchString(s) {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return "", false
		}
		total := int(math.Round(f*24*60)) % (24 * 60)
		return formatClock(total/60, total%60)
	}

	return "", false
}

// to24Hour applies an AM/PM marker: 12 AM is 00, 12 PM stays 12, and PM adds
// 12 unless the hour is already 12 or more.
func to24Hour(h int, marker string) int {
	pm := strings.EqualFold(marker, "p")
	switch {
	case pm && h < 12:
		return h + 12
	case !pm && h == 12:
		return 0
	}
	return h
}

func formatClock(h, min int) (string, bool) {
	if h < 0 || h > 23 || min < 0 || min > 59 {
		return "", false
	}
	return fmt.Sprintf("%02d:%02d", h, min), true
}
