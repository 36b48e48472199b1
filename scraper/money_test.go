package scraper

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseMoney(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
		ok       bool
	}{
		{"Pound price", "£12.50", "12.5", true},
		{"Thousands separator", "£1,079.00", "1079", true},
		{"Integer price", "99", "99", true},
		{"Surrounding text", "Now only £7.25 inc VAT", "7.25", true},
		{"First amount wins", "£10.00 was £12.00", "10", true},
		{"Empty string", "", "0", false},
		{"No digits", "Call for price", "0", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			value, ok := ParseMoney(tc.input)
			if ok != tc.ok {
				t.Fatalf("ParseMoney(%q) ok = %v; want %v", tc.input, ok, tc.ok)
			}
			if !value.Equal(decimal.RequireFromString(tc.expected)) {
				t.Errorf("ParseMoney(%q) = %s; want %s", tc.input, value, tc.expected)
			}
		})
	}
}

func TestParseAmount(t *testing.T) {
	if value, ok := ParseAmount(" 23.5 "); !ok || !value.Equal(decimal.RequireFromString("23.5")) {
		t.Errorf("expected 23.5, got %s (%v)", value, ok)
	}
	if _, ok := ParseAmount(""); ok {
		t.Error("expected empty amount to be rejected")
	}
}

func TestPositive(t *testing.T) {
	if _, ok := positive(decimal.Zero, true); ok {
		t.Error("zero must be rejected")
	}
	if _, ok := positive(decimal.NewFromInt(-3), true); ok {
		t.Error("negative must be rejected")
	}
	if value, ok := positive(decimal.NewFromInt(3), true); !ok || !value.Equal(decimal.NewFromInt(3)) {
		t.Error("positive value must pass through")
	}
}
