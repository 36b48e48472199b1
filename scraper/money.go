package scraper

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// moneyPattern finds the first amount in a string: digits, optional
// thousands separators and an optional decimal part. Currency symbols
// never match.
var moneyPattern = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)

// ParseMoney extracts the first amount from text such as "£1,079.00 inc VAT"
func ParseMoney(text string) (decimal.Decimal, bool) {
	found := moneyPattern.FindString(text)
	if found == "" {
		return decimal.Zero, false
	}

	value, err := decimal.NewFromString(strings.ReplaceAll(found, ",", ""))
	if err != nil {
		return decimal.Zero, false
	}
	return value, true
}

// ParseAmount reads a pre-parsed numeric attribute such as data-price-amount
func ParseAmount(raw string) (decimal.Decimal, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, false
	}

	value, err := decimal.NewFromString(raw)
	if err != nil {
		return ParseMoney(raw)
	}
	return value, true
}

// positive returns the value only when it is usable as a price
func positive(value decimal.Decimal, ok bool) (decimal.Decimal, bool) {
	if !ok || !value.IsPositive() {
		return decimal.Zero, false
	}
	return value, true
}
