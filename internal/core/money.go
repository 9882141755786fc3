// Package core provides the domain types shared by every layer: expenses,
// budget lines, calendar dates, and the parsing helpers for monetary input.
//
// Amounts are exact decimals. Splitting an expense halves the amount with no
// rounding; rounding is a display concern that never happens here.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a decimal string to an exact decimal amount.
//
// It accepts both dot (12.34) and comma (12,34) separators. Negative values
// and explicit signs are rejected; zero is allowed so the same parser serves
// budget limits (>= 0) and expense amounts (> 0, enforced by Validate).
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, part := range parts {
		for _, r := range part {
			if !unicode.IsDigit(r) {
				return decimal.Zero, ErrInvalidAmount
			}
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// MustAmount parses a decimal string and panics on failure. For fixtures and
// package-level constants only.
func MustAmount(s string) decimal.Decimal {
	d, err := ParseAmount(s)
	if err != nil {
		panic("core: bad amount literal " + s)
	}
	return d
}
