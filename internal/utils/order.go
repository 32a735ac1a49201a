package utils

import (
	"math"

	"github.com/shopspring/decimal"
)

// CalculateMaxQuantity returns the largest base size affordable with balance at price,
// truncated to the symbol's base increment.
func CalculateMaxQuantity(balance float64, price float64, increment float64) float64 {
	if price <= 0 || balance <= 0 {
		return 0
	}

	return RoundToIncrement(balance/price, increment)
}

// RoundToDecimalPrecision rounds the quantity down to the specified decimal precision.
func RoundToDecimalPrecision(quantity float64, decimalPrecision int) float64 {
	multiplier := math.Pow10(decimalPrecision)

	return math.Floor(quantity*multiplier) / multiplier
}

// RoundToIncrement truncates quantity to a whole multiple of increment.
// A non-positive increment leaves the quantity unchanged.
func RoundToIncrement(quantity float64, increment float64) float64 {
	if increment <= 0 {
		return quantity
	}

	inc := decimal.NewFromFloat(increment)
	steps := decimal.NewFromFloat(quantity).Div(inc).Floor()
	rounded, _ := steps.Mul(inc).Float64()

	return rounded
}

// DecimalPlaces returns the number of decimals needed to represent increment, e.g. 0.001 -> 3.
func DecimalPlaces(increment float64) int {
	if increment <= 0 {
		return 0
	}

	exp := decimal.NewFromFloat(increment).Exponent()
	if exp >= 0 {
		return 0
	}

	return int(-exp)
}
