// Package pfv derives the horizontal Power-Force-Velocity profile of a
// sprint from its fitted vmax and tau.
package pfv

import (
	"fmt"
	"math"

	"github.com/okian/sprof/internal/domain/model"
	"github.com/okian/sprof/internal/domain/numeric"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Defaults used when an input is zero.
const (
	DefaultTimeStep    = 0.01 // s
	DefaultRFOffset    = 0.3  // s
	DefaultPressure    = 760  // mmHg
	DefaultTemperature = 20   // °C
	DefaultStature     = 1.90 // m
	DefaultMass        = 100  // kg
	DefaultDuration    = 5    // s

	Gravity    = 9.81  // m/s²
	airDensity = 1.293 // kg/m³ at 760 mmHg and 0 °C
)

// Input are the model parameters of one sprint.
type Input struct {
	VMax       float64
	Tau        float64
	Duration   float64 // grid length; DefaultDuration when zero
	Athlete    model.Athlete
	Conditions model.Conditions
}

// Profile is a PFV profile. Scalars are exported; the dense series are
// exposed through copying accessors so a built profile cannot change.
type Profile struct {
	VMax        float64 `json:"v_max"`
	Tau         float64 `json:"tau"`
	Duration    float64 `json:"duration"`
	Mass        float64 `json:"mass"`
	Stature     float64 `json:"stature"`
	Pressure    float64 `json:"pressure"`
	Temperature float64 `json:"temperature"`
	DragCoef    float64 `json:"drag_coef"`

	V0       float64 `json:"v0"`
	F0       float64 `json:"f0"`
	F0Kg     float64 `json:"f0_kg"`
	Sfv      float64 `json:"sfv"`
	Pmax     float64 `json:"pmax"`
	PmaxKg   float64 `json:"pmax_kg"`
	RFPeak   float64 `json:"rf_peak"`
	DRF      float64 `json:"drf"`
	TopSpeed float64 `json:"top_speed"`

	rfStart    int
	times      []float64
	velocities []float64
	distances  []float64
	forces     []float64
	forcesKg   []float64
	powers     []float64
	powersKg   []float64
	rfs        []float64
}

// DragCoefficient returns the air resistance coefficient k of F = k·v² for
// an athlete of the given stature (m) and mass (kg) in the given conditions.
func DragCoefficient(pressure, temperature, stature, mass float64) float64 {
	density := airDensity * (pressure / 760) * (273 / (273 + temperature))
	frontalArea := 0.2025 * math.Pow(stature, 0.725) * math.Pow(mass, 0.425) * 0.266
	const dragFactor = 0.9
	return 0.5 * density * frontalArea * dragFactor
}

// Build computes the profile on a regular time grid.
func Build(in Input, opts ...Option) (*Profile, error) {
	cfg := config{timeStep: DefaultTimeStep, rfOffset: DefaultRFOffset}
	for _, opt := range opts {
		opt(&cfg)
	}

	if !(in.VMax > 0) || !(in.Tau > 0) {
		return nil, fmt.Errorf("vmax=%g tau=%g: %w", in.VMax, in.Tau, ErrInvalidInput)
	}
	p := &Profile{
		VMax:        in.VMax,
		Tau:         in.Tau,
		Duration:    orDefault(in.Duration, DefaultDuration),
		Mass:        orDefault(in.Athlete.Mass, DefaultMass),
		Stature:     orDefault(in.Athlete.Stature, DefaultStature),
		Pressure:    orDefault(in.Conditions.Pressure, DefaultPressure),
		Temperature: orDefault(in.Conditions.Temperature, DefaultTemperature),
	}
	if p.Mass < 0 || p.Stature < 0 || p.Duration < 0 || p.Pressure < 0 {
		return nil, fmt.Errorf("negative mass, stature, duration or pressure: %w", ErrInvalidInput)
	}
	p.DragCoef = DragCoefficient(p.Pressure, p.Temperature, p.Stature, p.Mass)

	p.times = numeric.Grid(0, p.Duration, cfg.timeStep)
	p.rfStart = int(math.Round(cfg.rfOffset / cfg.timeStep))
	if len(p.times) < 2 || p.rfStart >= len(p.times)-1 {
		return nil, fmt.Errorf("grid of %d samples for an RF offset at %d: %w",
			len(p.times), p.rfStart, ErrInvalidInput)
	}

	n := len(p.times)
	p.velocities = make([]float64, n)
	p.distances = make([]float64, n)
	p.forces = make([]float64, n)
	p.forcesKg = make([]float64, n)
	p.powers = make([]float64, n)
	p.powersKg = make([]float64, n)
	weight := p.Mass * Gravity
	for i, t := range p.times {
		v := p.velocity(t)
		drag := p.DragCoef * v * v
		p.velocities[i] = v
		p.distances[i] = p.distance(t)
		p.forces[i] = drag + p.Mass*(p.VMax-v)/p.Tau
		p.forcesKg[i] = p.acceleration(t) + drag/p.Mass
		p.powers[i] = v * p.forces[i]
		p.powersKg[i] = v * p.forcesKg[i]
	}
	p.rfs = make([]float64, n-p.rfStart)
	for i := range p.rfs {
		f := p.forces[p.rfStart+i]
		p.rfs[i] = f / math.Sqrt(f*f+weight*weight)
	}

	p.F0, p.Sfv = numeric.LinearFit(p.velocities, p.forces)
	p.V0 = -p.F0 / p.Sfv
	p.F0Kg = p.F0 / p.Mass
	p.Pmax = floats.Max(p.powers)
	p.PmaxKg = floats.Max(p.powersKg)
	p.RFPeak = floats.Max(p.rfs)
	_, drf := numeric.LinearFit(p.velocities[p.rfStart:], p.rfs)
	p.DRF = drf * 100
	p.TopSpeed = p.velocities[n-1]
	return p, nil
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

func (p *Profile) velocity(t float64) float64 {
	return p.VMax * (1 - math.Exp(-t/p.Tau))
}

func (p *Profile) distance(t float64) float64 {
	return p.VMax*(t+p.Tau*math.Exp(-t/p.Tau)) - p.VMax*p.Tau
}

func (p *Profile) acceleration(t float64) float64 {
	return p.VMax / p.Tau * math.Exp(-t/p.Tau)
}

// TimeAtVelocity returns the first grid time at which the velocity reaches v.
func (p *Profile) TimeAtVelocity(v float64) (float64, bool) {
	return p.firstReach(p.velocities, v)
}

// TimeAtDistance returns the first grid time at which the distance reaches d.
func (p *Profile) TimeAtDistance(d float64) (float64, bool) {
	return p.firstReach(p.distances, d)
}

func (p *Profile) firstReach(series []float64, target float64) (float64, bool) {
	i := numeric.SearchAscending(series, target)
	if i >= len(series) {
		return 0, false
	}
	return p.times[i], true
}

// DistanceAtTime returns the distance covered at time t, for 0 <= t < Duration.
func (p *Profile) DistanceAtTime(t float64) (float64, bool) {
	if t < 0 || t >= p.Duration {
		return 0, false
	}
	return p.distance(t), true
}

// MeanRF returns the mean ratio of forces from the RF offset until the
// distance d is reached.
func (p *Profile) MeanRF(d float64) (float64, bool) {
	i := numeric.SearchAscending(p.distances, d)
	if i >= len(p.distances) || i <= p.rfStart {
		return 0, false
	}
	return stat.Mean(p.rfs[:i-p.rfStart], nil), true
}

// RFStart returns the grid index of the first RF sample.
func (p *Profile) RFStart() int { return p.rfStart }

// Times returns a copy of the time grid.
func (p *Profile) Times() []float64 { return clone(p.times) }

// Velocities returns a copy of the velocity series.
func (p *Profile) Velocities() []float64 { return clone(p.velocities) }

// Distances returns a copy of the distance series.
func (p *Profile) Distances() []float64 { return clone(p.distances) }

// Forces returns a copy of the horizontal force series in N.
func (p *Profile) Forces() []float64 { return clone(p.forces) }

// ForcesKg returns a copy of the force series per kg.
func (p *Profile) ForcesKg() []float64 { return clone(p.forcesKg) }

// Powers returns a copy of the power series in W.
func (p *Profile) Powers() []float64 { return clone(p.powers) }

// PowersKg returns a copy of the power series per kg.
func (p *Profile) PowersKg() []float64 { return clone(p.powersKg) }

// RFs returns a copy of the ratio of forces series, starting at RFStart.
func (p *Profile) RFs() []float64 { return clone(p.rfs) }

func clone(a []float64) []float64 { return append([]float64(nil), a...) }
