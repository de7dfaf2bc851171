package core

// convert.go decides whether a raw cell is well-formed for a field type.
//
// The rules are deliberately permissive:
//   - Numbers follow JavaScript-style Number() coercion (no currency symbols)
//   - Dates must match one of a pinned list of layouts (ISO, US, textual months)
//   - Emails only need a single "@" with a dotted domain and no whitespace
//   - Booleans accept true/false, yes/no, 1/0 in any case
//
// An empty or whitespace-only value is always valid. Missing values are the
// required-field check's concern, not the type check's.

import (
	"regexp"
	"strings"
	"time"
)

var (
	// numericRegex matches decimal literals with optional sign, fraction and exponent.
	numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

	// radixRegex matches unsigned hex, octal and binary integer literals.
	radixRegex = regexp.MustCompile(`^0([xX][0-9a-fA-F]+|[oO][0-7]+|[bB][01]+)$`)

	// emailRegex rejects any whitespace, including \v, NBSP and other
	// Unicode spaces, which RE2's \s does not cover.
	emailRegex = regexp.MustCompile(`^[^\s\v\p{Z}\x{FEFF}\x{85}@]+@[^\s\v\p{Z}\x{FEFF}\x{85}@]+\.[^\s\v\p{Z}\x{FEFF}\x{85}@]+$`)
)

// DateLayouts is the allow-list of accepted date and date-time layouts.
// Month and weekday names match case-insensitively.
var DateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-1-2",
	"2006/1/2",
	"2006-01",
	"2006",
	"1/2/2006",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 3:04 PM",
	"1-2-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"January 2 2006",
	"2 Jan 2006",
	"2 January 2006",
	"Mon Jan 2 2006",
	"Mon, Jan 2, 2006",
	time.RFC1123,
	time.RFC1123Z,
	time.RFC822,
	time.RFC822Z,
	time.RFC850,
	time.ANSIC,
	time.UnixDate,
}

// booleanValues are the accepted boolean spellings (lower case).
var booleanValues = map[string]bool{
	"true": true, "false": true,
	"1": true, "0": true,
	"yes": true, "no": true,
}

// IsValid reports whether value is well-formed for the field type.
// Pure and total: unknown types are treated as text.
func IsValid(value string, ft FieldType) bool {
	if strings.TrimSpace(value) == "" {
		return true
	}

	switch ft {
	case FieldNumber:
		return IsNumber(value)
	case FieldDate:
		_, ok := ParseDate(value)
		return ok
	case FieldEmail:
		return emailRegex.MatchString(value)
	case FieldBoolean:
		return booleanValues[strings.ToLower(value)]
	default:
		return true
	}
}

// IsNumber reports whether s coerces to a finite or infinite number.
// NaN-producing strings are rejected.
func IsNumber(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}

	switch s {
	case "Infinity", "+Infinity", "-Infinity":
		return true
	}

	return numericRegex.MatchString(s) || radixRegex.MatchString(s)
}

// ParseDate parses s against DateLayouts and returns the first match.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
