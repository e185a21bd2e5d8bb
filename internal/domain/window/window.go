// Package window locates the sprint inside a raw radar trace.
package window

import (
	"fmt"
	"math"

	"github.com/okian/sprof/internal/domain/model"
	"github.com/okian/sprof/internal/domain/numeric"
	"github.com/okian/sprof/internal/domain/smoothing"
	"gonum.org/v1/gonum/floats"
)

// Config holds the detection thresholds. Velocities are in m/s, times in s.
type Config struct {
	VMin        float64 `json:"v_min"`         // lowest plausible smoothed peak
	VMax        float64 `json:"v_max"`         // highest plausible smoothed peak
	MinPeakTime float64 `json:"min_peak_time"` // earliest plausible peak, from the trace start

	EndRatio     float64 `json:"end_ratio"`     // band around the peak that still belongs to the sprint
	PlateauRatio float64 `json:"plateau_ratio"` // band around the peak that defines the plateau

	StartSearchRatio float64 `json:"start_search_ratio"` // drop below the peak ending the start search
	LookBack         float64 `json:"look_back"`          // length of the start search
	StartTau         float64 `json:"start_tau"`          // time constant of the start template
	StartDelta       float64 `json:"start_delta"`        // increase that counts as moving
	StartMaxSteps    int     `json:"start_max_steps"`
}

// DefaultConfig returns the thresholds tuned for STALKER radar traces.
func DefaultConfig() Config {
	return Config{
		VMin:             6,
		VMax:             11,
		MinPeakTime:      2,
		EndRatio:         0.2,
		PlateauRatio:     0.02,
		StartSearchRatio: 0.5,
		LookBack:         2,
		StartTau:         0.8,
		StartDelta:       0.1,
		StartMaxSteps:    20,
	}
}

// Window is the sprint located inside a trace. Indices refer to the trace.
type Window struct {
	Start            int     `json:"start"`
	End              int     `json:"end"`
	Peak             int     `json:"peak"`
	StartPlateau     int     `json:"start_plateau"`
	EndPlateau       int     `json:"end_plateau"`
	TheoreticalStart int     `json:"theoretical_start"`
	PeakVelocity     float64 `json:"peak_velocity"` // smoothed

	// Smoothed is the peak-smoothed velocity of the whole trace.
	Smoothed []float64 `json:"-"`
}

// Extract copies the sprint samples out of tr. The last velocity is replaced
// by the smoothed value at End so that the fit is not pulled by a noisy
// final sample.
func (w Window) Extract(tr model.Trace) model.Trace {
	out := tr.Slice(w.Start, w.End)
	if len(w.Smoothed) > w.End {
		out.Velocity[len(out.Velocity)-1] = w.Smoothed[w.End]
	}
	return out
}

// Detector finds sprint windows. It is immutable after construction.
type Detector struct {
	cfg      Config
	smoother *smoothing.Smoother
}

// NewDetector creates a Detector with default thresholds and the peak smoother.
func NewDetector(opts ...Option) *Detector {
	d := &Detector{
		cfg:      DefaultConfig(),
		smoother: smoothing.Peak(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Config returns the thresholds in use.
func (d *Detector) Config() Config { return d.cfg }

// Detect locates the sprint automatically.
func (d *Detector) Detect(tr model.Trace) (Window, error) {
	if err := tr.Validate(); err != nil {
		return Window{}, err
	}
	smooth, err := d.smoother.Apply(tr.Velocity)
	if err != nil {
		return Window{}, fmt.Errorf("peak smoothing: %w", err)
	}

	peak := numeric.ArgMax(smooth)
	w := Window{Peak: peak, PeakVelocity: smooth[peak], Smoothed: smooth}

	if w.PeakVelocity < d.cfg.VMin || w.PeakVelocity > d.cfg.VMax {
		return Window{}, fmt.Errorf("peak velocity %.2f m/s outside [%g, %g]: %w",
			w.PeakVelocity, d.cfg.VMin, d.cfg.VMax, model.ErrNotASprint)
	}
	if at := tr.Time[peak] - tr.Time[0]; at < d.cfg.MinPeakTime {
		return Window{}, fmt.Errorf("peak reached after %.2f s, expected at least %g s: %w",
			at, d.cfg.MinPeakTime, model.ErrNotASprint)
	}

	w.End = numeric.ScanForward(smooth, peak, d.cfg.EndRatio)
	w.StartPlateau = numeric.ScanBackward(smooth, peak, d.cfg.PlateauRatio)
	w.EndPlateau = numeric.ScanForward(smooth, peak, d.cfg.PlateauRatio)
	w.TheoreticalStart = d.theoreticalStart(tr, smooth, peak)
	w.Start = d.correctStart(tr.Velocity, w.TheoreticalStart)

	if w.Start >= w.End {
		return Window{}, fmt.Errorf("start index %d not before end index %d: %w",
			w.Start, w.End, model.ErrNotASprint)
	}
	return w, nil
}

// theoreticalStart splits the samples before the peak into a resting phase
// (constant velocity) and a rising phase following a mono-exponential
// template, and returns the split with the smallest total squared error.
func (d *Detector) theoreticalStart(tr model.Trace, smooth []float64, peak int) int {
	n := tr.Len()
	last := numeric.ScanBackward(smooth, peak, d.cfg.StartSearchRatio)
	step := (tr.Time[n-1] - tr.Time[0]) / float64(n)
	first := last - int(d.cfg.LookBack/step)
	if first < 0 {
		first = 0
	}
	if first >= last {
		return first
	}

	best, bestCost := first, math.Inf(1)
	for i := first; i < last; i++ {
		cost := numeric.SumSquaredDeviation(tr.Velocity[:i+1]) +
			templateResidual(tr.Time[i:peak+1], tr.Velocity[i:peak+1], d.cfg.StartTau)
		if cost < bestCost {
			best, bestCost = i, cost
		}
	}
	return best
}

// templateResidual projects v onto 1 - exp((t[0] - t)/tau) and returns the
// squared error of the projection.
func templateResidual(t, v []float64, tau float64) float64 {
	f := make([]float64, len(t))
	for k := range t {
		f[k] = 1 - math.Exp((t[0]-t[k])/tau)
	}
	gain := 0.0
	if ff := floats.Dot(f, f); ff > 0 {
		gain = floats.Dot(f, v) / ff
	}
	var s float64
	for k := range v {
		r := v[k] - gain*f[k]
		s += r * r
	}
	return s
}

// correctStart moves the start forward past samples that do not yet increase
// by more than StartDelta.
func (d *Detector) correctStart(v []float64, start int) int {
	steps := 0
	for steps < d.cfg.StartMaxSteps && start+steps+1 < len(v) &&
		v[start+steps+1]-v[start+steps] <= d.cfg.StartDelta {
		steps++
	}
	return start + steps
}

// Whole treats the entire trace as the sprint.
func (d *Detector) Whole(tr model.Trace) (Window, error) {
	return d.manual(tr, 0, tr.Len()-1)
}

// Bounds uses the samples with tStart <= t <= tEnd as the sprint.
func (d *Detector) Bounds(tr model.Trace, tStart, tEnd float64) (Window, error) {
	if err := tr.Validate(); err != nil {
		return Window{}, err
	}
	start := numeric.SearchAscending(tr.Time, tStart)
	end := numeric.SearchAscending(tr.Time, tEnd)
	if end == tr.Len() || tr.Time[end] > tEnd {
		end--
	}
	return d.manual(tr, start, end)
}

func (d *Detector) manual(tr model.Trace, start, end int) (Window, error) {
	if err := tr.Validate(); err != nil {
		return Window{}, err
	}
	if start < 0 || end >= tr.Len() || end <= start {
		return Window{}, fmt.Errorf("indices [%d, %d] in a %d sample trace: %w",
			start, end, tr.Len(), ErrInvalidBounds)
	}
	smooth, err := d.smoother.Apply(tr.Velocity)
	if err != nil {
		return Window{}, fmt.Errorf("peak smoothing: %w", err)
	}
	peak := start + numeric.ArgMax(smooth[start:end+1])
	w := Window{
		Start:            start,
		End:              end,
		Peak:             peak,
		TheoreticalStart: start,
		PeakVelocity:     smooth[peak],
		Smoothed:         smooth,
	}
	w.StartPlateau = max(start, numeric.ScanBackward(smooth, peak, d.cfg.PlateauRatio))
	w.EndPlateau = min(end, numeric.ScanForward(smooth, peak, d.cfg.PlateauRatio))
	return w, nil
}
