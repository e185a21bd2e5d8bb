package pfv

// Option applies a configuration option to a profile build.
type Option func(*config)

type config struct {
	timeStep float64
	rfOffset float64
}

// WithTimeStep sets the grid spacing in seconds.
func WithTimeStep(dt float64) Option {
	return func(c *config) {
		if dt > 0 {
			c.timeStep = dt
		}
	}
}

// WithRFOffset sets the time from which the ratio of forces is computed.
func WithRFOffset(t float64) Option {
	return func(c *config) {
		if t >= 0 {
			c.rfOffset = t
		}
	}
}
