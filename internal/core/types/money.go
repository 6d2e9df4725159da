// Package types provides common value types.
package types

import (
	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fractional digits money is rounded to.
const MoneyScale int32 = 2

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// NewMoney creates a Money value from a float.
// WARNING: Use NewMoneyFromString for precise values.
func NewMoney(f float64) Money {
	return decimal.NewFromFloat(f)
}

// NewMoneyFromInt creates a whole-unit Money value.
func NewMoneyFromInt(v int64) Money {
	return decimal.NewFromInt(v)
}

// NewMoneyFromString creates a Money value from a string.
// This is the preferred method for monetary values.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// LineTotal returns price × quantity.
func LineTotal(price Money, quantity int) Money {
	return price.Mul(decimal.NewFromInt(int64(quantity)))
}

// Round rounds m half away from zero to MoneyScale digits.
func Round(m Money) Money {
	return m.Round(MoneyScale)
}

// IsNegative reports m < 0.
func IsNegative(m Money) bool {
	return m.Sign() < 0
}

// HasMoneyScale reports whether m has at most MoneyScale fractional digits.
func HasMoneyScale(m Money) bool {
	return m.Equal(m.Truncate(MoneyScale))
}
