// Package sprint turns an extracted sprint sub-trace into a cleaned and
// fitted sprint: smoothing, plateau and end of acceleration, model fit and
// outlier removal.
package sprint

import (
	"context"
	"fmt"

	"github.com/okian/sprof/internal/domain/fitting"
	"github.com/okian/sprof/internal/domain/model"
	"github.com/okian/sprof/internal/domain/numeric"
	"github.com/okian/sprof/internal/domain/outlier"
	"github.com/okian/sprof/internal/domain/smoothing"
)

// DefaultPlateauRatio is the band around the smoothed peak, as a fraction of
// the peak, that still counts as the plateau.
const DefaultPlateauRatio = 0.02

// Sprint is a cleaned and fitted sprint. Values are immutable; methods that
// change the analysis return a new Sprint.
type Sprint struct {
	outlier.Result
}

// Peak returns the index of the smoothed maximum.
func (s Sprint) Peak() int { return numeric.ArgMax(s.Smoothed) }

// SmoothedPeak returns the maximum of the smoothed curve.
func (s Sprint) SmoothedPeak() float64 { return s.Smoothed[s.Peak()] }

// Duration returns the time from the model start to the end of acceleration.
func (s Sprint) Duration() float64 {
	return s.Trace.Time[s.EndAcc] - s.Fit.Start()
}

// PlateauDuration returns the time spent within the plateau band.
func (s Sprint) PlateauDuration() float64 {
	return s.Trace.Time[s.EndPlateau] - s.Trace.Time[s.StartPlateau]
}

// VMaxDiff returns the model vmax minus the smoothed peak.
func (s Sprint) VMaxDiff() float64 { return s.Fit.VMax - s.SmoothedPeak() }

// CurveGap returns the mean squared difference between the model and the
// smoothed curve over the acceleration portion.
func (s Sprint) CurveGap() float64 {
	return numeric.MeanSquaredResidual(s.Model(), s.Smoothed[:s.EndAcc+1])
}

// Builder builds sprints. It is immutable and safe for concurrent use.
type Builder struct {
	smoother     *smoothing.Smoother
	fitter       *fitting.Fitter
	plateauRatio float64
	outliers     outlier.Config
}

// NewBuilder creates a Builder with the sprint smoother, default fitter,
// default plateau ratio and default outlier thresholds.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		smoother:     smoothing.Sprint(),
		fitter:       fitting.New(),
		plateauRatio: DefaultPlateauRatio,
		outliers:     outlier.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Smooth implements outlier.Stages.
func (b *Builder) Smooth(tr model.Trace) (outlier.Snapshot, error) {
	smooth, err := b.smoother.Apply(tr.Velocity)
	if err != nil {
		return outlier.Snapshot{}, err
	}
	peak := numeric.ArgMax(smooth)
	s := outlier.Snapshot{
		Trace:        tr,
		Smoothed:     smooth,
		StartPlateau: numeric.ScanBackward(smooth, peak, b.plateauRatio),
		EndPlateau:   numeric.ScanForward(smooth, peak, b.plateauRatio),
	}
	s.EndAcc = s.EndPlateau
	return s, nil
}

// Fit implements outlier.Stages.
func (b *Builder) Fit(t, v []float64) (fitting.Fit, error) {
	return b.fitter.Fit(t, v)
}

// Build cleans and fits the sprint sub-trace tr.
func (b *Builder) Build(ctx context.Context, tr model.Trace) (Sprint, error) {
	if err := tr.Validate(); err != nil {
		return Sprint{}, err
	}
	res, err := outlier.NewFilter(b, outlier.WithConfig(b.outliers)).Run(ctx, tr.Clone())
	if err != nil {
		return Sprint{}, fmt.Errorf("sprint: %w", err)
	}
	return Sprint{Result: res}, nil
}

// WithEndOfAcceleration refits s up to the first sample at or after t.
// Outliers are not searched again.
func (b *Builder) WithEndOfAcceleration(s Sprint, t float64) (Sprint, error) {
	i := numeric.SearchAscending(s.Trace.Time, t)
	if i >= s.Trace.Len() || i < 2 {
		return Sprint{}, fmt.Errorf("end of acceleration at %.2f s: %w", t, ErrInvalidEnd)
	}
	return b.refitTo(s, i)
}

// ResetEndOfAcceleration restores the end of acceleration to the plateau end.
func (b *Builder) ResetEndOfAcceleration(s Sprint) (Sprint, error) {
	return b.refitTo(s, s.EndPlateau)
}

func (b *Builder) refitTo(s Sprint, endAcc int) (Sprint, error) {
	out := s
	out.EndAcc = endAcc
	acc := out.Acc()
	fit, err := b.fitter.Fit(acc.Time, acc.Velocity)
	if err != nil {
		return Sprint{}, err
	}
	out.Fit = fit
	return out, nil
}

// Impacts reports the effect of leaving out each sample of the acceleration
// portion on the fit.
func (b *Builder) Impacts(s Sprint) []outlier.Impact {
	return outlier.Impacts(s.Snapshot, b)
}
