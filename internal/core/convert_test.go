package core

import (
	"testing"
)

// ----------------------------------------------------------------------------
// IsValid Tests
// ----------------------------------------------------------------------------

func TestIsValid_Number(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		// Valid: decimal literals
		{name: "integer", input: "123", want: true},
		{name: "negative decimal", input: "-3.14", want: true},
		{name: "explicit plus", input: "+7", want: true},
		{name: "leading decimal point", input: ".5", want: true},
		{name: "trailing decimal point", input: "5.", want: true},
		{name: "exponent", input: "1e5", want: true},
		{name: "negative exponent", input: "2.5E-3", want: true},
		{name: "surrounding whitespace", input: "  42  ", want: true},

		// Valid: radix literals and infinities
		{name: "hex", input: "0x1F", want: true},
		{name: "octal", input: "0o17", want: true},
		{name: "binary", input: "0b101", want: true},
		{name: "infinity", input: "Infinity", want: true},
		{name: "negative infinity", input: "-Infinity", want: true},

		// Invalid
		{name: "NaN", input: "NaN", want: false},
		{name: "currency symbol", input: "$100", want: false},
		{name: "thousands separator", input: "1,000", want: false},
		{name: "text", input: "abc", want: false},
		{name: "bare hex prefix", input: "0x", want: false},
		{name: "dangling exponent", input: "1e", want: false},
		{name: "double sign", input: "--1", want: false},
		{name: "signed hex", input: "-0x10", want: false},
		{name: "lowercase infinity", input: "infinity", want: false},
		{name: "lone dot", input: ".", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValid(tt.input, FieldNumber); got != tt.want {
				t.Errorf("IsValid(%q, number) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsValid_Date(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "ISO date", input: "2024-01-15", want: true},
		{name: "ISO single digit parts", input: "2024-1-5", want: true},
		{name: "RFC3339", input: "2024-01-15T10:30:00Z", want: true},
		{name: "RFC3339 with offset", input: "2024-01-15T10:30:00+02:00", want: true},
		{name: "ISO without zone", input: "2024-01-15T10:30:00", want: true},
		{name: "ISO with space", input: "2024-01-15 10:30:00", want: true},
		{name: "slashed ISO", input: "2024/01/15", want: true},
		{name: "US date", input: "01/15/2024", want: true},
		{name: "US short date", input: "1/5/2024", want: true},
		{name: "US with time", input: "1/15/2024 3:04 PM", want: true},
		{name: "US dashed", input: "01-15-2024", want: true},
		{name: "textual month", input: "Jan 15, 2024", want: true},
		{name: "long textual month", input: "January 15, 2024", want: true},
		{name: "day first textual", input: "15 Jan 2024", want: true},
		{name: "lowercase month", input: "jan 15, 2024", want: true},
		{name: "RFC1123", input: "Mon, 15 Jan 2024 10:30:00 GMT", want: true},
		{name: "year month", input: "2024-01", want: true},
		{name: "year only", input: "2024", want: true},

		{name: "month out of range", input: "2024-13-01", want: false},
		{name: "day out of range", input: "2024-02-30", want: false},
		{name: "text", input: "not a date", want: false},
		{name: "number", input: "20240115", want: false},
		{name: "two digit year", input: "1/15/24", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValid(tt.input, FieldDate); got != tt.want {
				t.Errorf("IsValid(%q, date) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsValid_Email(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"a@b.co", true},
		{"first.last+tag@example.co.uk", true},
		{"a@b", false},
		{"a b@c.com", false},
		{"a@@b.com", false},
		{"@b.com", false},
		{"plain", false},
		{"a\u00a0b@c.com", false},
		{"a\vb@c.com", false},
		{"a@b\u2003c.com", false},
		{"a@b.c\ufeffom", false},
		{"a\u2028b@c.com", false},
		{"jos\u00e9@example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := IsValid(tt.input, FieldEmail); got != tt.want {
				t.Errorf("IsValid(%q, email) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsValid_Boolean(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"true", true},
		{"FALSE", true},
		{"Yes", true},
		{"no", true},
		{"1", true},
		{"0", true},
		{"y", false},
		{"on", false},
		{"2", false},
		{" true", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := IsValid(tt.input, FieldBoolean); got != tt.want {
				t.Errorf("IsValid(%q, boolean) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsValid_BlankAlwaysValid(t *testing.T) {
	for _, ft := range FieldTypes {
		for _, v := range []string{"", "   ", "\t"} {
			if !IsValid(v, ft) {
				t.Errorf("IsValid(%q, %s) = false, want true", v, ft)
			}
		}
	}
}

func TestIsValid_TextAndUnknownType(t *testing.T) {
	for _, v := range []string{"anything", "$1,000", "NaN", "💥"} {
		if !IsValid(v, FieldText) {
			t.Errorf("IsValid(%q, text) = false, want true", v)
		}
		if !IsValid(v, FieldType("currency")) {
			t.Errorf("IsValid(%q, currency) = false, want true", v)
		}
	}
}

func TestParseFieldType(t *testing.T) {
	for _, ft := range FieldTypes {
		got, err := ParseFieldType(string(ft))
		if err != nil || got != ft {
			t.Errorf("ParseFieldType(%q) = %q, %v", ft, got, err)
		}
	}
	if _, err := ParseFieldType("currency"); err == nil {
		t.Error("ParseFieldType(currency) should fail")
	}
}
