// Package numeric holds the small series helpers shared by the analysis stages.
package numeric

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ScanForward walks right from start while samples stay within ratio of
// a[start] and returns the first index that leaves the band, or the last index.
func ScanForward(a []float64, start int, ratio float64) int {
	value := a[start]
	diff := value * ratio
	i := start
	for i < len(a)-1 && math.Abs(a[i]-value) < diff {
		i++
	}
	return i
}

// ScanBackward is the mirror of ScanForward; it stops at index 0.
func ScanBackward(a []float64, start int, ratio float64) int {
	value := a[start]
	diff := value * ratio
	i := start
	for i > 0 && math.Abs(a[i]-value) < diff {
		i--
	}
	return i
}

// SearchAscending returns the first index i with a[i] >= x in an ascending
// series, or len(a) when every sample is below x.
func SearchAscending(a []float64, x float64) int {
	return sort.SearchFloat64s(a, x)
}

// ArgMax returns the index of the first maximum. a must not be empty.
func ArgMax(a []float64) int {
	return floats.MaxIdx(a)
}

// SumSquaredDeviation returns the sum of squared deviations from the mean.
func SumSquaredDeviation(a []float64) float64 {
	if len(a) < 2 {
		return 0
	}
	mean := stat.Mean(a, nil)
	var s float64
	for _, x := range a {
		d := x - mean
		s += d * d
	}
	return s
}

// SumSquaredResidual returns sum((a-b)^2) over the common length.
func SumSquaredResidual(a, b []float64) float64 {
	n := min(len(a), len(b))
	var s float64
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}

// MeanSquaredResidual returns SumSquaredResidual divided by the common length.
func MeanSquaredResidual(a, b []float64) float64 {
	n := min(len(a), len(b))
	if n == 0 {
		return 0
	}
	return SumSquaredResidual(a, b) / float64(n)
}

// LinearFit returns the ordinary least-squares intercept and slope of y on x.
func LinearFit(x, y []float64) (intercept, slope float64) {
	return stat.LinearRegression(x, y, nil, false)
}

// Grid returns the samples start, start+step, ... strictly below stop.
func Grid(start, stop, step float64) []float64 {
	n := int(math.Ceil((stop - start) / step))
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}
