// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"math"
)

// Trace is a raw radar recording: velocities in m/s sampled at strictly
// increasing times in seconds.
type Trace struct {
	Time     []float64 `json:"time"`
	Velocity []float64 `json:"velocity"`
}

// NewTrace copies t and v into a new trace and validates it.
func NewTrace(t, v []float64) (Trace, error) {
	tr := Trace{
		Time:     append([]float64(nil), t...),
		Velocity: append([]float64(nil), v...),
	}
	if err := tr.Validate(); err != nil {
		return Trace{}, err
	}
	return tr, nil
}

// Validate checks the trace invariants.
func (tr Trace) Validate() error {
	if len(tr.Time) == 0 {
		return fmt.Errorf("empty trace: %w", ErrInvalidTrace)
	}
	if len(tr.Time) != len(tr.Velocity) {
		return fmt.Errorf("time has %d samples, velocity has %d: %w",
			len(tr.Time), len(tr.Velocity), ErrInvalidTrace)
	}
	for i := range tr.Time {
		if math.IsNaN(tr.Time[i]) || math.IsInf(tr.Time[i], 0) ||
			math.IsNaN(tr.Velocity[i]) || math.IsInf(tr.Velocity[i], 0) {
			return fmt.Errorf("non-finite sample at index %d: %w", i, ErrInvalidTrace)
		}
		if i > 0 && tr.Time[i] <= tr.Time[i-1] {
			return fmt.Errorf("time not increasing at index %d: %w", i, ErrInvalidTrace)
		}
	}
	return nil
}

// Len returns the number of samples.
func (tr Trace) Len() int { return len(tr.Time) }

// Slice returns a copy of samples [from, to] inclusive.
func (tr Trace) Slice(from, to int) Trace {
	return Trace{
		Time:     append([]float64(nil), tr.Time[from:to+1]...),
		Velocity: append([]float64(nil), tr.Velocity[from:to+1]...),
	}
}

// Clone returns a deep copy.
func (tr Trace) Clone() Trace {
	return tr.Slice(0, tr.Len()-1)
}

// Without returns a copy of the trace with the samples at the given indices
// dropped. Indices may be in any order; duplicates are ignored.
func (tr Trace) Without(indices []int) Trace {
	if len(indices) == 0 {
		return tr.Clone()
	}
	drop := make(map[int]struct{}, len(indices))
	for _, i := range indices {
		drop[i] = struct{}{}
	}
	out := Trace{
		Time:     make([]float64, 0, tr.Len()-len(drop)),
		Velocity: make([]float64, 0, tr.Len()-len(drop)),
	}
	for i := range tr.Time {
		if _, ok := drop[i]; ok {
			continue
		}
		out.Time = append(out.Time, tr.Time[i])
		out.Velocity = append(out.Velocity, tr.Velocity[i])
	}
	return out
}
