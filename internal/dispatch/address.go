package dispatch

import (
	"regexp"
	"sort"
	"strings"
)

var (
	postalCodeRegex     = regexp.MustCompile(`(?i)\b([a-z]\d[a-z])\s*-?\s*(\d[a-z]\d)\b`)
	unitMarkerRegex     = regexp.MustCompile(`\s*#\s*`)
	commaRunRegex       = regexp.MustCompile(`\s*,[\s,]*`)
	provinceCodeRegex   = regexp.MustCompile(`\b(AB|BC|MB|NB|NL|NS|NT|NU|ON|PE|QC|SK|YT)\b`)
	provinceNameRegex   = regexp.MustCompile(`(?i)\b(alberta|british columbia|manitoba|new brunswick|newfoundland|nova scotia|ontario|prince edward island|quebec|québec|saskatchewan|yukon)\b`)
	trailingPostalRegex = regexp.MustCompile(`\s*\b[A-Z]\d[A-Z] \d[A-Z]\d$`)
	trailingPhoneRegex  = regexp.MustCompile(`(?i)(?:^|[\s,;:])((?:(?:tel|ph|phone|cell|p|m)\s*[:.]?\s*)?(?:\+?1[\s.-]?)?\(?\d{3}\)?[\s.-]?\d{3}[\s.-]?\d{4})\s*$`)
	addressShapeRegex   = regexp.MustCompile(`(?i)^#?\s*\d+[a-z]?(?:\s*-\s*\d+)?\s+[a-z0-9 .'#-]*\b(st|street|ave|avenue|rd|road|blvd|boulevard|dr|drive|ln|lane|way|cres|crescent|ct|court|pl|place|hwy|highway|pkwy|parkway|terr|terrace|trail|trl|cir|circle|sq|square|line|sideroad)\b`)
)

// canadianCities maps lower-case city names to their province code.
var canadianCities = map[string]string{
	"toronto": "ON", "north york": "ON", "scarborough": "ON", "etobicoke": "ON",
	"mississauga": "ON", "brampton": "ON", "markham": "ON", "vaughan": "ON",
	"richmond hill": "ON", "oakville": "ON", "burlington": "ON", "hamilton": "ON",
	"ottawa": "ON", "london": "ON", "kitchener": "ON", "waterloo": "ON",
	"guelph": "ON", "pickering": "ON", "ajax": "ON", "whitby": "ON",
	"oshawa": "ON", "newmarket": "ON", "aurora": "ON", "concord": "ON",
	"woodbridge": "ON", "thornhill": "ON", "milton": "ON", "barrie": "ON",
	"montreal": "QC", "montréal": "QC", "laval": "QC", "gatineau": "QC",
	"quebec city": "QC", "longueuil": "QC",
	"vancouver": "BC", "burnaby": "BC", "surrey": "BC", "richmond": "BC",
	"victoria": "BC", "coquitlam": "BC",
	"calgary": "AB", "edmonton": "AB",
	"winnipeg": "MB",
	"regina": "SK", "saskatoon": "SK",
	"halifax": "NS", "dartmouth": "NS",
	"fredericton": "NB", "moncton": "NB",
	"st. john's": "NL", "charlottetown": "PE",
}

type cityPattern struct {
	re       *regexp.Regexp
	province string
}

// cityPatterns match a city name only at the end of the text, ordered
// longest name first.
var cityPatterns = buildCityPatterns()

func buildCityPatterns() []cityPattern {
	names := make([]string, 0, len(canadianCities))
	for name := range canadianCities {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})

	patterns := make([]cityPattern, len(names))
	for i, name := range names {
		patterns[i] = cityPattern{
			re:       regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(name) + `$`),
			province: canadianCities[name],
		}
	}
	return patterns
}

// CleanAddress normalizes spacing around unit markers and commas, formats
// Canadian postal codes as "A1A 1A1", appends the province code when a known
// city appears without one, and strips trailing punctuation.
func CleanAddress(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return ""
	}

	s = unitMarkerRegex.ReplaceAllString(s, " #")
	s = commaRunRegex.ReplaceAllString(s, ", ")
	s = postalCodeRegex.ReplaceAllStringFunc(s, func(m string) string {
		parts := postalCodeRegex.FindStringSubmatch(m)
		return strings.ToUpper(parts[1] + " " + parts[2])
	})
	s = appendProvince(s)

	s = strings.TrimLeft(s, " ,")
	return strings.TrimRight(s, " ,;:.-/")
}

// appendProvince adds ", XX" after a known city that ends the address, or
// that sits just before a trailing postal code, when the address names no
// province. A city name elsewhere, such as a street named after a city, is
// left alone.
func appendProvince(s string) string {
	if provinceCodeRegex.MatchString(s) || provinceNameRegex.MatchString(s) {
		return s
	}

	body := strings.TrimRight(s, " ,;:.-/")
	suffix := s[len(body):]
	if loc := trailingPostalRegex.FindStringIndex(body); loc != nil {
		body, suffix = body[:loc[0]], body[loc[0]:]+suffix
	}
	head := strings.TrimRight(body, " ,")

	// Every candidate ends where head ends; the earliest start is the
	// longest name, so "Richmond Hill" beats "Richmond".
	start, province := -1, ""
	for _, cp := range cityPatterns {
		if loc := cp.re.FindStringIndex(head); loc != nil && (start < 0 || loc[0] < start) {
			start, province = loc[0], cp.province
		}
	}
	if start < 0 {
		return s
	}
	return head + ", " + province + body[len(head):] + suffix
}

// splitTrailingPhone detects a phone number at the end of an address and
// returns the address without it plus the raw phone text.
func splitTrailingPhone(address string) (rest, phone string, ok bool) {
	loc := trailingPhoneRegex.FindStringSubmatchIndex(address)
	if loc == nil {
		return address, "", false
	}
	phone = strings.TrimSpace(address[loc[2]:loc[3]])
	rest = strings.TrimRight(address[:loc[2]], " ,;:-/")
	if rest == "" {
		return address, "", false
	}
	return rest, phone, true
}

// looksLikeAddress reports whether text starts like a street address.
func looksLikeAddress(text string) bool {
	return addressShapeRegex.MatchString(strings.TrimSpace(text))
}
