package sprint

import (
	"github.com/okian/sprof/internal/domain/fitting"
	"github.com/okian/sprof/internal/domain/outlier"
	"github.com/okian/sprof/internal/domain/smoothing"
)

// Option applies a configuration option to the Builder.
type Option func(*Builder)

// WithSmoother sets the sprint smoother.
func WithSmoother(s *smoothing.Smoother) Option {
	return func(b *Builder) {
		if s != nil {
			b.smoother = s
		}
	}
}

// WithFitter sets the curve fitter.
func WithFitter(f *fitting.Fitter) Option {
	return func(b *Builder) {
		if f != nil {
			b.fitter = f
		}
	}
}

// WithPlateauRatio sets the band around the smoothed peak that defines the plateau.
func WithPlateauRatio(r float64) Option {
	return func(b *Builder) {
		if r > 0 {
			b.plateauRatio = r
		}
	}
}

// WithOutliers sets the outlier thresholds.
func WithOutliers(cfg outlier.Config) Option {
	return func(b *Builder) {
		b.outliers = cfg
	}
}
