// Package stats provides the descriptive statistics shared by the anomaly
// scorer, the integrity comparator and the summary tables.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Mean returns the arithmetic mean, or 0 for an empty slice
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// MeanStdDev returns the mean and the population standard deviation, both 0
// for an empty slice
func MeanStdDev(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, 0
	}
	return stat.PopMeanStdDev(values, nil)
}

// Median computes the median without modifying values
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}

// Quantile returns the q-th quantile (0..1) of values using linear
// interpolation between closest ranks, the default of numpy and pandas.
// gonum's stat.Quantile only offers empirical and LinearInterp estimates,
// which differ from it.
func Quantile(values []float64, q float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return QuantileSorted(sorted, q)
}

// QuantileSorted is Quantile for input already sorted ascending
func QuantileSorted(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}

	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[n-1]
	}

	index := q * float64(n-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))

	if lower == upper {
		return sorted[lower]
	}

	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// Regression holds an ordinary least squares fit of y on x
type Regression struct {
	Slope     float64
	Intercept float64
	R2        float64
}

// LinearRegression fits y = Slope*x + Intercept. Fewer than two points, or
// constant x, yield a zero fit. R2 is 0 when y is constant.
func LinearRegression(x, y []float64) Regression {
	if len(x) != len(y) || len(x) < 2 {
		return Regression{}
	}
	if _, sx := stat.PopMeanStdDev(x, nil); sx == 0 {
		return Regression{Intercept: stat.Mean(y, nil)}
	}

	alpha, beta := stat.LinearRegression(x, y, nil, false)
	reg := Regression{Slope: beta, Intercept: alpha}
	if _, sy := stat.PopMeanStdDev(y, nil); sy > 0 {
		reg.R2 = stat.RSquared(x, y, nil, alpha, beta)
	}
	return reg
}

// Index returns 0..n-1 as floats, the x axis of a time series regression
func Index(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i)
	}
	return out
}

// PctChange returns the percentage change from prev to cur, or 0 when prev is zero
func PctChange(prev, cur float64) float64 {
	if prev == 0 {
		return 0
	}
	return (cur - prev) / prev * 100
}
