package calc

import "github.com/shopspring/decimal"

// Round rounds v to precision digits after the decimal point, half away from
// zero, applied to the shortest decimal representation of v. Rounding the
// decimal form rather than the binary one means 2.675 rounds to 2.68 even
// though its float64 value is slightly below 2.675.
func Round(v float64, precision int) float64 {
	rounded, _ := decimal.NewFromFloat(v).Round(int32(precision)).Float64()
	return rounded
}
