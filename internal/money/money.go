// Package money performs currency arithmetic over decimal amounts by
// round-tripping through integer cents, so results never carry binary
// floating-point residue. Every monetary figure the billing flow displays
// or stores passes through this package.
package money

import "math"

// ToCents converts a decimal currency amount to integer cents, rounding
// half away from zero at the cent boundary.
func ToCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// FromCents converts integer cents back to a decimal amount.
func FromCents(cents int64) float64 {
	return float64(cents) / 100
}

// Add returns a+b computed in cents.
func Add(a, b float64) float64 {
	return FromCents(ToCents(a) + ToCents(b))
}

// Subtract returns a-b computed in cents.
func Subtract(a, b float64) float64 {
	return FromCents(ToCents(a) - ToCents(b))
}

// Multiply scales an amount by a possibly fractional factor (hours, a
// quantity), rounding to the nearest cent once.
func Multiply(amount float64, factor float64) float64 {
	return FromCents(int64(math.Round(float64(ToCents(amount)) * factor)))
}

// PercentageOf returns pct percent of amount, rounded to the nearest cent.
func PercentageOf(amount float64, pct float64) float64 {
	return FromCents(int64(math.Round(float64(ToCents(amount)) * pct / 100)))
}

// Sum totals the amounts in cents, converting back exactly once.
func Sum(amounts []float64) float64 {
	total := int64(0)
	for _, amount := range amounts {
		total += ToCents(amount)
	}
	return FromCents(total)
}

// Round normalizes an amount to exactly two decimal places.
func Round(amount float64) float64 {
	return FromCents(ToCents(amount))
}

// Equals reports whether two amounts agree within tolerance. The default
// tolerance is a full cent, deliberately looser than half a cent so
// operator-entered values that rounded differently still match.
const DefaultTolerance = 0.01

func Equals(a, b float64) bool {
	return EqualsWithin(a, b, DefaultTolerance)
}

func EqualsWithin(a, b, tolerance float64) bool {
	return math.Abs(a-b) < tolerance
}
