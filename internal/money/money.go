package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money represents a non-negative monetary amount with arbitrary precision.
// Amounts are only rounded when a price or fee is finalized.
type Money = decimal.Decimal

// Zero is the zero amount.
var Zero = decimal.Zero

// Round2 rounds m to 2 fractional digits using round-half-up. Money is never
// negative, so decimal's half-away-from-zero rounding is equivalent.
func Round2(m Money) Money {
	return m.Round(2)
}

// FromFloat converts a float amount (e.g. a multiplier or a distance) to Money.
func FromFloat(v float64) Money {
	return decimal.NewFromFloat(v)
}

// FromInt converts an integer amount to Money.
func FromInt(v int64) Money {
	return decimal.NewFromInt(v)
}

// Parse parses a decimal string such as "12.50".
func Parse(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, fmt.Errorf("parse money %q: %w", s, err)
	}
	return d, nil
}

// MustParse behaves like Parse but panics on malformed input. Intended for
// constants and tests.
func MustParse(s string) Money {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Times multiplies m by an integer quantity without rounding.
func Times(m Money, qty int) Money {
	return m.Mul(decimal.NewFromInt(int64(qty)))
}

// Sum adds all amounts without intermediate rounding.
func Sum(amounts ...Money) Money {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// Format renders m with exactly two decimals.
func Format(m Money) string {
	return m.StringFixed(2)
}
