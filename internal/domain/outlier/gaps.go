package outlier

import "math"

// AbsoluteGaps returns |v - ref| over the common length.
func AbsoluteGaps(v, ref []float64) []float64 {
	n := min(len(v), len(ref))
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = math.Abs(v[i] - ref[i])
	}
	return out
}

// WeightedGaps returns |v - m| scaled by 1/sqrt of the model slope dm/dt.
// The first sample has no slope and always gets a zero gap, so it is never
// removed by this pass. Where the model does not increase the gap is zero.
func WeightedGaps(t, v, m []float64) []float64 {
	n := min(len(t), len(v), len(m))
	out := make([]float64, n)
	for i := 1; i < n; i++ {
		dm := m[i] - m[i-1]
		dt := t[i] - t[i-1]
		if dm <= 0 || dt <= 0 {
			continue
		}
		out[i] = math.Abs(v[i]-m[i]) * math.Sqrt(dt/dm)
	}
	return out
}

// Select returns the indices whose gap reaches limit, in ascending order.
// Index 0 is the first sample of the sprint window and is never selected.
func Select(gaps []float64, limit float64) []int {
	var idx []int
	for i := 1; i < len(gaps); i++ {
		if gaps[i] >= limit {
			idx = append(idx, i)
		}
	}
	return idx
}

// farthest returns the index of the largest gap, skipping index 0.
func farthest(gaps []float64) (int, bool) {
	best, found := 0, false
	for i := 1; i < len(gaps); i++ {
		if !found || gaps[i] > gaps[best] {
			best, found = i, true
		}
	}
	return best, found
}
