package window

import "github.com/okian/sprof/internal/domain/smoothing"

// Option applies a configuration option to the Detector.
type Option func(*Detector)

// WithConfig replaces the detection thresholds.
func WithConfig(cfg Config) Option {
	return func(d *Detector) {
		d.cfg = cfg
	}
}

// WithSmoother sets the smoother used to locate the peak.
func WithSmoother(s *smoothing.Smoother) Option {
	return func(d *Detector) {
		if s != nil {
			d.smoother = s
		}
	}
}
