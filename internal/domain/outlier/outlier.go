// Package outlier removes radar samples that disagree with the smoothed
// curve or with the fitted sprint model.
package outlier

import (
	"context"
	"fmt"
	"math"

	"github.com/okian/sprof/internal/domain/fitting"
	"github.com/okian/sprof/internal/domain/model"
)

// Config holds the removal thresholds.
type Config struct {
	// Disabled skips every pass; the trace is only smoothed and fitted.
	Disabled bool `json:"disabled"`

	SmoothedLimit float64 `json:"smoothed_limit"` // m/s from the smoothed curve
	ModelLimit    float64 `json:"model_limit"`    // m/s from the model
	WeightedLimit float64 `json:"weighted_limit"` // slope-weighted distance from the model

	// Impact enables the impact strategy after the standard passes.
	Impact          bool    `json:"impact"`
	ImpactVMaxRatio float64 `json:"impact_vmax_ratio"` // relative vmax change that marks an impacting point
	ImpactTauRatio  float64 `json:"impact_tau_ratio"`  // relative tau change that marks an impacting point
	ImpactMaxPoints int     `json:"impact_max_points"`
}

// DefaultConfig returns the standard thresholds with the impact strategy off.
func DefaultConfig() Config {
	return Config{
		SmoothedLimit:   3,
		ModelLimit:      3,
		WeightedLimit:   3,
		ImpactVMaxRatio: 0.005,
		ImpactTauRatio:  0.025,
		ImpactMaxPoints: 10,
	}
}

// Snapshot is the sprint state a pass is evaluated against. A new Snapshot
// is built after every removal; existing ones are never modified.
type Snapshot struct {
	Trace        model.Trace
	Smoothed     []float64
	StartPlateau int
	EndPlateau   int
	EndAcc       int // last index of the acceleration portion, inclusive
	Fit          fitting.Fit
}

// Acc returns the acceleration portion of the trace, shared with s.
func (s Snapshot) Acc() model.Trace {
	return model.Trace{
		Time:     s.Trace.Time[:s.EndAcc+1],
		Velocity: s.Trace.Velocity[:s.EndAcc+1],
	}
}

// Model evaluates the fit over the acceleration portion.
func (s Snapshot) Model() []float64 {
	return s.Fit.Evaluate(s.Acc().Time)
}

// Stages recomputes the derived curves of a trace.
type Stages interface {
	// Smooth returns a Snapshot with the smoothed curve and the plateau and
	// end-of-acceleration indices set. Fit is left zero.
	Smooth(tr model.Trace) (Snapshot, error)
	// Fit fits the sprint model to the given samples.
	Fit(t, v []float64) (fitting.Fit, error)
}

// Stats counts the samples removed by each pass.
type Stats struct {
	Smoothed int `json:"smoothed"`
	Model    int `json:"model"`
	Weighted int `json:"weighted"`
	Impact   int `json:"impact"`
}

// Total returns the number of samples removed by all passes.
func (s Stats) Total() int { return s.Smoothed + s.Model + s.Weighted + s.Impact }

// Result is the cleaned sprint.
type Result struct {
	Snapshot
	Removed int   `json:"removed"`
	Stats   Stats `json:"stats"`
}

// Filter runs the removal passes in a fixed order, recomputing the smoothed
// curve and the fit after each pass that removed something.
type Filter struct {
	cfg    Config
	stages Stages
}

// Option configures a Filter.
type Option func(*Filter)

// WithConfig replaces the thresholds.
func WithConfig(cfg Config) Option {
	return func(f *Filter) { f.cfg = cfg }
}

// NewFilter creates a Filter driving the given stages.
func NewFilter(stages Stages, opts ...Option) *Filter {
	f := &Filter{cfg: DefaultConfig(), stages: stages}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Run cleans tr and returns the final snapshot with the removal counts.
func (f *Filter) Run(ctx context.Context, tr model.Trace) (Result, error) {
	snap, err := f.stages.Smooth(tr)
	if err != nil {
		return Result{}, err
	}
	res := Result{Snapshot: snap}

	if !f.cfg.Disabled {
		// The smoothed curve is checked twice: a large spike also drags the
		// curve, hiding its neighbours until it is gone.
		for round := 0; round < 2; round++ {
			idx := Select(AbsoluteGaps(res.Trace.Velocity, res.Smoothed), f.cfg.SmoothedLimit)
			if len(idx) == 0 {
				break
			}
			if err := f.remove(&res, idx, false); err != nil {
				return Result{}, err
			}
			res.Stats.Smoothed += len(idx)
		}
	}

	if res.Snapshot, err = f.refit(res.Snapshot); err != nil {
		return Result{}, err
	}
	if f.cfg.Disabled {
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	acc := res.Acc()
	idx := Select(AbsoluteGaps(acc.Velocity, res.Model()), f.cfg.ModelLimit)
	if len(idx) > 0 {
		if err := f.remove(&res, idx, true); err != nil {
			return Result{}, err
		}
		res.Stats.Model += len(idx)
	}

	acc = res.Acc()
	idx = Select(WeightedGaps(acc.Time, acc.Velocity, res.Model()), f.cfg.WeightedLimit)
	if len(idx) > 0 {
		if err := f.remove(&res, idx, true); err != nil {
			return Result{}, err
		}
		res.Stats.Weighted += len(idx)
	}

	if f.cfg.Impact {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if err := f.impact(&res); err != nil {
			return Result{}, err
		}
	}
	return res, nil
}

// remove drops idx from the working trace and recomputes the snapshot.
func (f *Filter) remove(res *Result, idx []int, fit bool) error {
	snap, err := f.stages.Smooth(res.Trace.Without(idx))
	if err != nil {
		return fmt.Errorf("after removing %d samples: %w", len(idx), err)
	}
	if fit {
		if snap, err = f.refit(snap); err != nil {
			return fmt.Errorf("after removing %d samples: %w", len(idx), err)
		}
	}
	res.Snapshot = snap
	res.Removed += len(idx)
	return nil
}

func (f *Filter) refit(s Snapshot) (Snapshot, error) {
	acc := s.Acc()
	fit, err := f.stages.Fit(acc.Time, acc.Velocity)
	if err != nil {
		return Snapshot{}, err
	}
	s.Fit = fit
	return s, nil
}

// impact removes the farthest point of the acceleration portion while
// dropping it moves vmax or tau by more than the configured ratios. It runs
// on absolute gaps first, then on slope-weighted gaps.
func (f *Filter) impact(res *Result) error {
	gapsOf := []func(Snapshot) []float64{
		func(s Snapshot) []float64 { return AbsoluteGaps(s.Acc().Velocity, s.Model()) },
		func(s Snapshot) []float64 {
			acc := s.Acc()
			return WeightedGaps(acc.Time, acc.Velocity, s.Model())
		},
	}
	for _, gaps := range gapsOf {
		for n := 0; n < f.cfg.ImpactMaxPoints; n++ {
			i, ok := farthest(gaps(res.Snapshot))
			if !ok {
				break
			}
			alt, err := f.stages.Fit(dropAt(res.Acc().Time, i), dropAt(res.Acc().Velocity, i))
			if err != nil {
				break
			}
			if !Impacting(res.Fit, alt, f.cfg.ImpactVMaxRatio, f.cfg.ImpactTauRatio) {
				break
			}
			if err := f.remove(res, []int{i}, true); err != nil {
				return err
			}
			res.Stats.Impact++
		}
	}
	return nil
}

// Impacting reports whether alt differs from ref by more than the given
// relative ratios on vmax or tau.
func Impacting(ref, alt fitting.Fit, vmaxRatio, tauRatio float64) bool {
	return math.Abs(ref.VMax-alt.VMax)/ref.VMax > vmaxRatio ||
		math.Abs(ref.Tau-alt.Tau)/ref.Tau > tauRatio
}

func dropAt(a []float64, i int) []float64 {
	out := make([]float64, 0, len(a)-1)
	out = append(out, a[:i]...)
	return append(out, a[i+1:]...)
}
