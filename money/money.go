// Package money holds the decimal arithmetic used for every monetary field in
// the engine. All amounts are decimals rounded half-up to two places; binary
// floats never enter a price or a ledger entry.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Amount is a decimal monetary value. The alias keeps shopspring's database
// and JSON support while letting models read as money rather than decimals.
type Amount = decimal.Decimal

var Zero = decimal.Zero

// Parse reads a decimal string such as "2000" or "149.90".
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return d, nil
}

func FromInt(n int64) Amount {
	return decimal.NewFromInt(n)
}

// Round2 rounds to two decimal places, half away from zero. For the positive
// amounts the engine deals in this is round-half-up.
func Round2(a Amount) Amount {
	return a.Round(2)
}

// Percent returns pct% of a, rounded to two places.
func Percent(a Amount, pct Amount) Amount {
	return Round2(a.Mul(pct).Div(decimal.NewFromInt(100)))
}

// PercentInt is Percent with an integer percentage, the shape cancellation
// policies store.
func PercentInt(a Amount, pct int) Amount {
	return Percent(a, decimal.NewFromInt(int64(pct)))
}

// Min returns the smaller of a and b.
func Min(a, b Amount) Amount {
	if a.LessThan(b) {
		return a
	}
	return b
}
