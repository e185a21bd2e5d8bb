package analysis

import "github.com/okian/sprof/pkg/logger"

// Option applies a configuration option to the Analyzer.
type Option func(*Analyzer)

// WithConfig replaces the analysis configuration.
func WithConfig(cfg Config) Option {
	return func(a *Analyzer) {
		a.cfg = cfg
	}
}

// WithLogger sets the logger used for stage diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.log = l
		}
	}
}
