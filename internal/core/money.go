// Package core holds the domain model shared by storage, the HTTP API
// and the threshold evaluator.
//
// This file contains money validation and conversion helpers. Amounts
// are decimal in the domain and exact integer hundredths in storage so
// that SQL aggregation never loses precision.
package core

import "github.com/shopspring/decimal"

// ValidateAmount checks that an amount is positive and carries at most
// two decimal places, the precision the stored hundredths can hold.
// Anything finer would be silently truncated by Cents.
func ValidateAmount(d decimal.Decimal) error {
	if !d.IsPositive() {
		return ErrInvalidAmount
	}
	if d.Exponent() < -2 {
		return ErrInvalidAmount
	}
	return nil
}

// Cents returns the amount in integer hundredths for storage.
// The caller must have validated the amount to at most two decimals.
func Cents(d decimal.Decimal) int64 {
	return d.Shift(2).IntPart()
}

// FromCents rebuilds a decimal amount from stored integer hundredths.
func FromCents(c int64) decimal.Decimal {
	return decimal.New(c, -2)
}

// FormatAmount renders an amount with exactly two decimals, the form
// used in notification messages ("1500.00").
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
