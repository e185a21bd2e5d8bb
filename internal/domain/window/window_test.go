package window_test

import (
	"errors"
	"math"
	"testing"

	"github.com/okian/sprof/internal/domain/model"
	"github.com/okian/sprof/internal/domain/window"
	. "github.com/smartystreets/goconvey/convey"
)

const sampleRate = 46.875

// radarTrace simulates a standing start at t0, an exponential rise to vmax
// and a linear deceleration after tdec, with a small periodic ripple.
func radarTrace(n int, t0, vmax, tau, tdec, decel float64) model.Trace {
	tr := model.Trace{Time: make([]float64, n), Velocity: make([]float64, n)}
	for i := range tr.Time {
		t := float64(i) / sampleRate
		var v float64
		switch {
		case t < t0:
			v = 0
		case t < tdec:
			v = vmax * (1 - math.Exp((t0-t)/tau))
		default:
			v = vmax*(1-math.Exp((t0-tdec)/tau)) - decel*(t-tdec)
		}
		tr.Time[i] = t
		tr.Velocity[i] = v + 0.05*math.Sin(37*t)
	}
	return tr
}

func TestDetect(t *testing.T) {
	Convey("Given a detector with default thresholds", t, func() {
		d := window.NewDetector()

		Convey("When the trace holds a standing start sprint", func() {
			tr := radarTrace(480, 1.5, 9.0, 1.2, 7.0, 2.0)
			w, err := d.Detect(tr)

			Convey("Then the window brackets the acceleration", func() {
				So(err, ShouldBeNil)
				So(tr.Time[w.Start], ShouldBeBetween, 1.5, 1.8)
				So(tr.Time[w.End], ShouldBeBetween, 7.7, 8.2)
				So(w.PeakVelocity, ShouldBeBetween, 8.7, 9.0)
				So(w.TheoreticalStart, ShouldBeLessThanOrEqualTo, w.Start)
			})

			Convey("Then the indices are ordered", func() {
				So(w.Start, ShouldBeGreaterThanOrEqualTo, 0)
				So(w.Start, ShouldBeLessThan, w.End)
				So(w.End, ShouldBeLessThanOrEqualTo, tr.Len()-1)
				So(w.StartPlateau, ShouldBeLessThanOrEqualTo, w.Peak)
				So(w.Peak, ShouldBeLessThanOrEqualTo, w.EndPlateau)
				So(w.Peak, ShouldBeLessThanOrEqualTo, w.End)
				So(w.Smoothed, ShouldHaveLength, tr.Len())
			})

			Convey("Then Extract copies the sprint and smooths its last sample", func() {
				sp := w.Extract(tr)
				So(sp.Len(), ShouldEqual, w.End-w.Start+1)
				So(sp.Time[0], ShouldEqual, tr.Time[w.Start])
				So(sp.Velocity[0], ShouldEqual, tr.Velocity[w.Start])
				So(sp.Velocity[sp.Len()-1], ShouldEqual, w.Smoothed[w.End])

				sp.Velocity[0] = -1
				So(tr.Velocity[w.Start], ShouldNotEqual, -1)
			})
		})

		Convey("When the smoothed peak is below the plausible band", func() {
			tr := radarTrace(480, 1.5, 9.0, 1.2, 7.0, 2.0)
			for i := range tr.Velocity {
				tr.Velocity[i] *= 5.5 / 8.89
			}
			_, err := d.Detect(tr)

			Convey("Then it is rejected as not a sprint", func() {
				So(errors.Is(err, model.ErrNotASprint), ShouldBeTrue)
			})
		})

		Convey("When the smoothed peak is above the plausible band", func() {
			tr := radarTrace(480, 1.5, 13.0, 1.2, 7.0, 2.0)
			_, err := d.Detect(tr)
			So(errors.Is(err, model.ErrNotASprint), ShouldBeTrue)
		})

		Convey("When the peak comes too early", func() {
			tr := radarTrace(384, 0, 8.0, 0.3, 1.5, 3.0)
			_, err := d.Detect(tr)
			So(errors.Is(err, model.ErrNotASprint), ShouldBeTrue)
		})

		Convey("When the trace is too short to smooth", func() {
			tr := radarTrace(8, 0, 8.0, 1, 5, 0)
			_, err := d.Detect(tr)
			So(errors.Is(err, model.ErrInsufficientData), ShouldBeTrue)
		})

		Convey("When the trace is invalid", func() {
			_, err := d.Detect(model.Trace{Time: []float64{0, 1}, Velocity: []float64{1}})
			So(errors.Is(err, model.ErrInvalidTrace), ShouldBeTrue)
		})
	})

	Convey("Given a detector with a relaxed peak band", t, func() {
		cfg := window.DefaultConfig()
		cfg.VMin = 4
		d := window.NewDetector(window.WithConfig(cfg))
		tr := radarTrace(480, 1.5, 9.0, 1.2, 7.0, 2.0)
		for i := range tr.Velocity {
			tr.Velocity[i] *= 5.5 / 8.89
		}

		Convey("Then the slow sprint is accepted", func() {
			_, err := d.Detect(tr)
			So(err, ShouldBeNil)
		})
	})
}

func TestManualBounds(t *testing.T) {
	Convey("Given a detector and a sprint trace", t, func() {
		d := window.NewDetector()
		tr := radarTrace(480, 1.5, 9.0, 1.2, 7.0, 2.0)

		Convey("Whole uses every sample", func() {
			w, err := d.Whole(tr)
			So(err, ShouldBeNil)
			So(w.Start, ShouldEqual, 0)
			So(w.End, ShouldEqual, tr.Len()-1)
			So(w.StartPlateau, ShouldBeLessThanOrEqualTo, w.Peak)
			So(w.EndPlateau, ShouldBeGreaterThanOrEqualTo, w.Peak)
		})

		Convey("Bounds selects samples inside the time range", func() {
			w, err := d.Bounds(tr, 1.5, 7.0)
			So(err, ShouldBeNil)
			So(tr.Time[w.Start], ShouldBeGreaterThanOrEqualTo, 1.5)
			So(tr.Time[w.Start-1], ShouldBeLessThan, 1.5)
			So(tr.Time[w.End], ShouldBeLessThanOrEqualTo, 7.0)
			So(tr.Time[w.End+1], ShouldBeGreaterThan, 7.0)
			So(w.Peak, ShouldBeBetween, w.Start-1, w.End+1)
		})

		Convey("Bounds with an empty range fail", func() {
			_, err := d.Bounds(tr, 5, 4)
			So(errors.Is(err, window.ErrInvalidBounds), ShouldBeTrue)
			_, err = d.Bounds(tr, 20, 30)
			So(errors.Is(err, window.ErrInvalidBounds), ShouldBeTrue)
		})
	})
}
