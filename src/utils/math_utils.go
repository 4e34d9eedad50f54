package utils

import (
	"math"

	"github.com/shopspring/decimal"
)

// MinInt returns the smaller of two integers.
func MinInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// RoundFloat rounds a float64 to a specified number of decimal places.
func RoundFloat(val float64, precision uint) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}

// RoundMoney rounds half away from zero to 2 decimals and converts to float64 for JSON output.
func RoundMoney(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
