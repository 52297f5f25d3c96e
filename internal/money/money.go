// Package money centralizes the rounding rules for every monetary value in
// the backend. Currency amounts are stored with two decimal places, rates and
// ratios with four; all rounding is half-up and happens once, at the point a
// derived value is produced. Intermediate arithmetic stays exact.
package money

import "github.com/shopspring/decimal"

const (
	// AmountScale is the storage scale for currency amounts.
	AmountScale = 2
	// RateScale is the storage scale for percentages and ratios.
	RateScale = 4
)

var hundred = decimal.NewFromInt(100)

// Amount rounds a currency value to its storage scale.
func Amount(d decimal.Decimal) decimal.Decimal {
	return d.Round(AmountScale)
}

// Rate rounds a percentage or ratio to its storage scale.
func Rate(d decimal.Decimal) decimal.Decimal {
	return d.Round(RateScale)
}

// PercentOf returns base * pct/100 rounded to the amount scale.
func PercentOf(base, pct decimal.Decimal) decimal.Decimal {
	return Amount(base.Mul(pct).Div(hundred))
}

// RatioPercent returns part/whole * 100 rounded to the rate scale. A zero
// whole yields zero rather than an error: percentages against a zero base
// are defined as zero throughout the engine.
func RatioPercent(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return Rate(part.Div(whole).Mul(hundred))
}

// NonNegative clamps a computed amount at zero. Refunds and order totals are
// never allowed to go negative.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
