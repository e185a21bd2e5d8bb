package fitting_test

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/okian/sprof/internal/domain/fitting"
	"github.com/okian/sprof/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func synthetic(n int, dt, vmax, tau, delay, noise float64, seed int64) ([]float64, []float64) {
	rng := rand.New(rand.NewSource(seed))
	t := make([]float64, n)
	v := make([]float64, n)
	for i := range t {
		t[i] = float64(i) * dt
		v[i] = vmax * (1 - math.Exp((delay-t[i])/tau))
		if noise > 0 {
			v[i] += noise * rng.NormFloat64()
		}
	}
	return t, v
}

func TestFitter(t *testing.T) {
	Convey("Given a default fitter", t, func() {
		f := fitting.New()

		Convey("When fitting a noise-free exponential rise", func() {
			tt, v := synthetic(200, 0.025, 8.0, 1.0, 0, 0, 1)
			fit, err := f.Fit(tt, v)

			Convey("Then it recovers the generating parameters", func() {
				So(err, ShouldBeNil)
				So(fit.VMax, ShouldAlmostEqual, 8.0, 1e-4)
				So(fit.Tau, ShouldAlmostEqual, 1.0, 1e-4)
				So(fit.Delay, ShouldAlmostEqual, 0, 1e-4)
				So(fit.Iterations, ShouldBeGreaterThan, 0)
			})

			Convey("Then Evaluate reproduces the series over the same times", func() {
				m := fit.Evaluate(tt)
				So(m, ShouldHaveLength, len(tt))
				for i := range m {
					So(m[i], ShouldAlmostEqual, v[i], 1e-3)
				}
			})
		})

		Convey("When the sprint starts after the first sample", func() {
			tt, v := synthetic(240, 0.02, 9.3, 1.25, 0.4, 0, 1)
			for i := range v {
				if v[i] < 0 {
					v[i] = 0
				}
			}
			fit, err := f.Fit(tt[20:], v[20:])

			Convey("Then delay is relative to the first fitted time", func() {
				So(err, ShouldBeNil)
				So(fit.T0, ShouldAlmostEqual, tt[20], 1e-12)
				So(fit.Start(), ShouldAlmostEqual, 0.4, 1e-3)
				So(fit.VMax, ShouldAlmostEqual, 9.3, 1e-3)
				So(fit.Tau, ShouldAlmostEqual, 1.25, 1e-3)
			})
		})

		Convey("When fitting a noisy exponential rise", func() {
			tt, v := synthetic(250, 0.02, 8.5, 1.1, 0, 0.1, 42)
			fit, err := f.Fit(tt, v)

			Convey("Then parameters are within one percent", func() {
				So(err, ShouldBeNil)
				So(math.Abs(fit.VMax-8.5)/8.5, ShouldBeLessThan, 0.01)
				So(math.Abs(fit.Tau-1.1)/1.1, ShouldBeLessThan, 0.03)
				So(fit.Cost, ShouldBeGreaterThan, 0)
			})
		})

		Convey("When there are fewer than three samples", func() {
			_, err := f.Fit([]float64{0, 1}, []float64{0, 5})
			So(errors.Is(err, model.ErrInsufficientData), ShouldBeTrue)
		})

		Convey("When lengths differ", func() {
			_, err := f.Fit([]float64{0, 1, 2}, []float64{0, 5})
			So(errors.Is(err, model.ErrInvalidTrace), ShouldBeTrue)
		})
	})

	Convey("Given a fitter with a single iteration budget", t, func() {
		f := fitting.New(fitting.WithMaxIterations(1))
		tt, v := synthetic(200, 0.025, 10.2, 1.6, 0.3, 0.05, 7)
		for i := range v {
			v[i] = math.Max(v[i], 0)
		}

		Convey("Then it reports non-convergence instead of the initial guess", func() {
			fit, err := f.Fit(tt, v)
			So(errors.Is(err, model.ErrFitDidNotConverge), ShouldBeTrue)
			So(fit, ShouldResemble, fitting.Fit{})
		})
	})

	Convey("Given a custom initial guess", t, func() {
		f := fitting.New(fitting.WithInitialGuess(10, 1.5, 0), fitting.WithTolerance(1e-10))
		tt, v := synthetic(200, 0.025, 8.0, 1.0, 0, 0, 1)

		Convey("Then it converges to the same solution", func() {
			fit, err := f.Fit(tt, v)
			So(err, ShouldBeNil)
			So(fit.VMax, ShouldAlmostEqual, 8.0, 1e-4)
			So(fit.Tau, ShouldAlmostEqual, 1.0, 1e-4)
		})
	})
}
