// Package fitting fits the mono-exponential sprint model
//
//	v(t) = vmax * (1 - exp((t0 + delay - t) / tau))
//
// to a velocity series with a Levenberg-Marquardt least-squares solver.
package fitting

import (
	"fmt"
	"math"

	"github.com/okian/sprof/internal/domain/model"
	"gonum.org/v1/gonum/mat"
)

// Defaults of the solver.
const (
	DefaultVMax          = 8.0
	DefaultTau           = 1.0
	DefaultDelay         = 0.0
	DefaultMaxIterations = 200
	DefaultTolerance     = 1.49012e-08

	minSamples   = 3
	maxLambda    = 1e12
	initLambda   = 1e-3
	lambdaFactor = 10
)

// Fit is the result of a successful fit. T0 is the first time of the fitted
// series; the model starts rising at T0 + Delay.
type Fit struct {
	VMax       float64 `json:"v_max"`
	Tau        float64 `json:"tau"`
	Delay      float64 `json:"delay"`
	T0         float64 `json:"t0"`
	Iterations int     `json:"iterations"`
	Cost       float64 `json:"cost"` // residual sum of squares
}

// At returns the modelled velocity at time t.
func (f Fit) At(t float64) float64 {
	return f.VMax * (1 - math.Exp((f.T0+f.Delay-t)/f.Tau))
}

// Evaluate regenerates the model curve over exactly the supplied times.
func (f Fit) Evaluate(t []float64) []float64 {
	out := make([]float64, len(t))
	for i, ti := range t {
		out[i] = f.At(ti)
	}
	return out
}

// Start returns the time at which the model velocity is zero.
func (f Fit) Start() float64 { return f.T0 + f.Delay }

// Fitter holds the solver settings. The zero value is not usable; use New.
type Fitter struct {
	initial [3]float64
	maxIter int
	tol     float64
}

// Option configures a Fitter.
type Option func(*Fitter)

// WithInitialGuess sets the starting parameters.
func WithInitialGuess(vmax, tau, delay float64) Option {
	return func(f *Fitter) { f.initial = [3]float64{vmax, tau, delay} }
}

// WithMaxIterations bounds the number of accepted or rejected steps.
func WithMaxIterations(n int) Option {
	return func(f *Fitter) {
		if n > 0 {
			f.maxIter = n
		}
	}
}

// WithTolerance sets the relative cost and step tolerance.
func WithTolerance(tol float64) Option {
	return func(f *Fitter) {
		if tol > 0 {
			f.tol = tol
		}
	}
}

// New returns a Fitter with default settings overridden by opts.
func New(opts ...Option) *Fitter {
	f := &Fitter{
		initial: [3]float64{DefaultVMax, DefaultTau, DefaultDelay},
		maxIter: DefaultMaxIterations,
		tol:     DefaultTolerance,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fit estimates vmax, tau and delay from times t and velocities v.
// It never returns the initial guess on failure: a non-converged or
// non-physical solution yields model.ErrFitDidNotConverge.
func (f *Fitter) Fit(t, v []float64) (Fit, error) {
	if len(t) != len(v) {
		return Fit{}, fmt.Errorf("fit on %d times and %d velocities: %w", len(t), len(v), model.ErrInvalidTrace)
	}
	if len(t) < minSamples {
		return Fit{}, fmt.Errorf("fit on %d samples: %w", len(t), model.ErrInsufficientData)
	}

	p := mat.NewVecDense(3, []float64{f.initial[0], f.initial[1], f.initial[2]})
	t0 := t[0]
	r := mat.NewVecDense(len(t), nil)
	cost := residuals(p, t0, t, v, r)
	if !finite(cost) {
		return Fit{}, fmt.Errorf("initial guess gives non-finite cost: %w", model.ErrFitDidNotConverge)
	}

	jac := mat.NewDense(len(t), 3, nil)
	trial := mat.NewVecDense(3, nil)
	trialR := mat.NewVecDense(len(t), nil)
	var hess, aug mat.Dense
	var grad, step mat.VecDense

	lambda := initLambda
	for iter := 1; iter <= f.maxIter; iter++ {
		jacobian(p, t0, t, jac)
		hess.Mul(jac.T(), jac)
		grad.MulVec(jac.T(), r)
		grad.ScaleVec(-1, &grad)

		aug.CloneFrom(&hess)
		for i := 0; i < 3; i++ {
			d := hess.At(i, i)
			if d == 0 {
				d = 1
			}
			aug.Set(i, i, d*(1+lambda))
		}
		if err := step.SolveVec(&aug, &grad); err != nil {
			return Fit{}, fmt.Errorf("singular normal equations at iteration %d: %w", iter, model.ErrFitDidNotConverge)
		}

		trial.AddVec(p, &step)
		trialCost := residuals(trial, t0, t, v, trialR)
		if !finite(trialCost) || trialCost >= cost {
			lambda *= lambdaFactor
			if lambda > maxLambda {
				// No descent direction left: p is a stationary point.
				return f.result(p, t0, iter, cost)
			}
			continue
		}

		reduction := cost - trialCost
		small := stepIsSmall(&step, trial, f.tol)
		p.CopyVec(trial)
		r.CopyVec(trialR)
		cost = trialCost
		lambda = math.Max(lambda/lambdaFactor, 1e-15)

		if reduction <= f.tol*cost || small || cost == 0 {
			return f.result(p, t0, iter, cost)
		}
	}
	return Fit{}, fmt.Errorf("no convergence after %d iterations: %w", f.maxIter, model.ErrFitDidNotConverge)
}

func (f *Fitter) result(p *mat.VecDense, t0 float64, iter int, cost float64) (Fit, error) {
	out := Fit{
		VMax:       p.AtVec(0),
		Tau:        p.AtVec(1),
		Delay:      p.AtVec(2),
		T0:         t0,
		Iterations: iter,
		Cost:       cost,
	}
	if !finite(out.VMax) || !finite(out.Tau) || !finite(out.Delay) {
		return Fit{}, fmt.Errorf("non-finite parameters: %w", model.ErrFitDidNotConverge)
	}
	if out.VMax <= 0 || out.Tau <= 0 {
		return Fit{}, fmt.Errorf("non-physical parameters vmax=%g tau=%g: %w", out.VMax, out.Tau, model.ErrFitDidNotConverge)
	}
	return out, nil
}

// residuals fills r with model(t) - v and returns the sum of squares.
func residuals(p *mat.VecDense, t0 float64, t, v []float64, r *mat.VecDense) float64 {
	vmax, tau, delay := p.AtVec(0), p.AtVec(1), p.AtVec(2)
	var s float64
	for i := range t {
		d := vmax*(1-math.Exp((t0+delay-t[i])/tau)) - v[i]
		r.SetVec(i, d)
		s += d * d
	}
	return s
}

func jacobian(p *mat.VecDense, t0 float64, t []float64, jac *mat.Dense) {
	vmax, tau, delay := p.AtVec(0), p.AtVec(1), p.AtVec(2)
	for i, ti := range t {
		u := (t0 + delay - ti) / tau
		e := math.Exp(u)
		jac.Set(i, 0, 1-e)
		jac.Set(i, 1, vmax*e*u/tau)
		jac.Set(i, 2, -vmax*e/tau)
	}
}

func stepIsSmall(step, p *mat.VecDense, tol float64) bool {
	var ns, np float64
	for i := 0; i < step.Len(); i++ {
		ns += step.AtVec(i) * step.AtVec(i)
		np += p.AtVec(i) * p.AtVec(i)
	}
	return math.Sqrt(ns) <= tol*(math.Sqrt(np)+tol)
}

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }
