// Package core provides the transaction form domain.
//
// This file holds the numeric-input rules applied to amount and fuel cost,
// and display formatting of amounts.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CheckNumberInput applies the constraint of a numeric input: the value is
// empty or a decimal number. A decimal comma is accepted, as browsers in a
// French locale allow it.
func CheckNumberInput(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if _, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ".")); err != nil {
		return ErrInvalidNumber
	}
	return nil
}

// NormalizeNumberInput trims the value and replaces a decimal comma by a dot.
// The digits are otherwise kept as typed ("12.50" stays "12.50").
func NormalizeNumberInput(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
}

// FormatEuros renders an amount for display ("12,50 €"). Values that are not
// numbers are returned unchanged.
func FormatEuros(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil {
		return s
	}
	return strings.Replace(d.StringFixed(2), ".", ",", 1) + " €"
}
