package table

import (
	"gonum.org/v1/gonum/stat"
)

// Reduction folds a column of observations into one value. The boolean is
// false when the result is undefined for the input, and the value must
// then be treated as missing.
type Reduction struct {
	Name  string
	apply func(xs []float64) (float64, bool)
}

// Apply runs the reduction over xs.
func (r Reduction) Apply(xs []float64) (float64, bool) {
	if r.apply == nil {
		return 0, false
	}
	return r.apply(xs)
}

var (
	// Mean is the arithmetic mean. Undefined for no observations.
	Mean = Reduction{Name: "mean", apply: mean}

	// StdDev is the sample standard deviation (n-1 denominator).
	// Undefined for fewer than two observations.
	StdDev = Reduction{Name: "std", apply: stdDev}

	// Count is the number of observations.
	Count = Reduction{Name: "count", apply: count}
)

func mean(xs []float64) (float64, bool) {
	if len(xs) == 0 {
		return 0, false
	}
	return stat.Mean(xs, nil), true
}

func stdDev(xs []float64) (float64, bool) {
	if len(xs) < 2 {
		return 0, false
	}
	return stat.StdDev(xs, nil), true
}

func count(xs []float64) (float64, bool) {
	return float64(len(xs)), true
}
