package util

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// MustParseUint returns 0 when s is not a valid unsigned integer.
func MustParseUint(s string) uint {
	id, _ := strconv.ParseUint(s, 10, 32)
	return uint(id)
}

// Percentage returns part/whole*100 rounded to two decimals, clamped to
// [0, 100]. A non-positive whole yields 0.
func Percentage(part, whole float64) float64 {
	if whole <= 0 || part <= 0 {
		return 0
	}
	p := decimal.NewFromFloat(part).
		Div(decimal.NewFromFloat(whole)).
		Mul(decimal.NewFromInt(100)).
		Round(2)
	if p.GreaterThan(decimal.NewFromInt(100)) {
		return 100
	}
	f, _ := p.Float64()
	return f
}

// ReachesPercentage reports whether part/whole*100 >= threshold. The
// comparison is exact, so 2 of 3 does not reach 66.67.
func ReachesPercentage(part, whole, threshold float64) bool {
	if whole <= 0 || part <= 0 {
		return threshold <= 0
	}
	lhs := decimal.NewFromFloat(part).Mul(decimal.NewFromInt(100))
	rhs := decimal.NewFromFloat(threshold).Mul(decimal.NewFromFloat(whole))
	return lhs.GreaterThanOrEqual(rhs)
}

// Mean returns the average of values rounded to two decimals.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(decimal.NewFromFloat(v))
	}
	f, _ := sum.Div(decimal.NewFromInt(int64(len(values)))).Round(2).Float64()
	return f
}
