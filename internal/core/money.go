// Package core provides the tariff domain types and money handling.
//
// Prices are held as integer cents end to end: parsed from the provider's
// decimal representation on fetch, stored as cents, and rendered back to a
// decimal string for publishing. Calculations never touch floating point.
package core

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ParsePriceToCents converts a decimal price string to cents.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and
// performs half-up rounding on the third decimal place. Zero is a valid
// price; negative values and malformed input return ErrInvalidPrice.
//
// Examples:
//
//	ParsePriceToCents("12.5")    -> 1250, nil
//	ParsePriceToCents("12,34")   -> 1234, nil
//	ParsePriceToCents("12.346")  -> 1235, nil (rounds up)
//	ParsePriceToCents("-1")      -> 0, ErrInvalidPrice
func ParsePriceToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidPrice
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		// Signs are rejected: prices are non-negative by contract
		return 0, ErrInvalidPrice
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidPrice
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidPrice
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidPrice
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidPrice
	}
	// Prevent overflow when multiplying by 100
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return 0, ErrInvalidPrice
	}
	// Take first two fractional digits; half-up rounding on the third
	var fracCents int64
	if len(fracPart) > 0 {
		d1 := int64(fracPart[0] - '0')
		fracCents = d1 * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	return iv*100 + fracCents, nil
}

// String renders the amount as a decimal string with two fractional digits,
// e.g. 1250 cents -> "12.50". This is the representation published to
// spreadsheet cells.
func (m Money) String() string {
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
