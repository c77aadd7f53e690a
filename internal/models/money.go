package models

import "github.com/shopspring/decimal"

// Amounts are stored as integer minor units (cents).

// ToMinor converts d to cents. Callers check FitsMinor first.
func ToMinor(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

func FromMinor(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// HasCents reports whether d fits in two fraction digits.
func HasCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}

// FitsMinor reports whether d, in cents, fits the int64 amount column.
func FitsMinor(d decimal.Decimal) bool {
	return d.Shift(2).Round(0).BigInt().IsInt64()
}
