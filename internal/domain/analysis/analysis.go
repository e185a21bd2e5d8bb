// Package analysis runs the full sprint analysis of one radar trace: window
// detection, sprint cleaning and fitting, PFV profile and quality report.
package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/okian/sprof/internal/domain/fitting"
	"github.com/okian/sprof/internal/domain/model"
	"github.com/okian/sprof/internal/domain/outlier"
	"github.com/okian/sprof/internal/domain/pfv"
	"github.com/okian/sprof/internal/domain/sprint"
	"github.com/okian/sprof/internal/domain/window"
	"github.com/okian/sprof/pkg/logger"
)

// Mode selects how the sprint is located in the trace.
type Mode string

// Window modes.
const (
	ModeAuto  Mode = "auto"  // automatic detection
	ModeWhole Mode = "whole" // the whole trace is the sprint
)

// Config gathers every policy knob of the analysis.
type Config struct {
	Mode         Mode           `json:"mode"`
	Window       window.Config  `json:"window"`
	PlateauRatio float64        `json:"plateau_ratio"`
	Outliers     outlier.Config `json:"outliers"`

	TimeStep float64 `json:"time_step"` // PFV grid spacing
	RFOffset float64 `json:"rf_offset"` // start of the RF series
	Duration float64 `json:"duration"`  // PFV grid length; the sprint duration when zero

	MaxVMaxDiff float64 `json:"max_vmax_diff"` // quality: model vmax above measured peak
	MinPlateau  float64 `json:"min_plateau"`   // quality: shortest acceptable plateau
}

// DefaultConfig returns the standard analysis settings.
func DefaultConfig() Config {
	return Config{
		Mode:         ModeAuto,
		Window:       window.DefaultConfig(),
		PlateauRatio: sprint.DefaultPlateauRatio,
		Outliers:     outlier.DefaultConfig(),
		TimeStep:     pfv.DefaultTimeStep,
		RFOffset:     pfv.DefaultRFOffset,
		MaxVMaxDiff:  0.5,
		MinPlateau:   0.9,
	}
}

// Bounds are manual sprint bounds in seconds.
type Bounds struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Request is one trace to analyse.
type Request struct {
	ID         string
	Title      string
	Trace      model.Trace
	Athlete    model.Athlete
	Conditions model.Conditions
	// Bounds, when set, replaces automatic detection.
	Bounds *Bounds
	// EndOfAcceleration, when positive, refits up to that time.
	EndOfAcceleration float64
}

// Summary are the fitted sprint values.
type Summary struct {
	VMax            float64       `json:"v_max"`
	Tau             float64       `json:"tau"`
	Delay           float64       `json:"delay"`
	Start           float64       `json:"start"` // model start time in trace time
	Duration        float64       `json:"duration"`
	SmoothedPeak    float64       `json:"vs_max"`
	PlateauDuration float64       `json:"plateau_duration"`
	Samples         int           `json:"samples"`
	PointsOut       int           `json:"points_out"`
	Outliers        outlier.Stats `json:"outliers"`
	Iterations      int           `json:"iterations"`
}

// Result is a complete analysis.
type Result struct {
	ID      string        `json:"id"`
	Title   string        `json:"title"`
	Athlete model.Athlete `json:"athlete"`
	Window  window.Window `json:"window"`
	Summary Summary       `json:"summary"`
	Profile *pfv.Profile  `json:"profile"`
	Quality Quality       `json:"quality"`

	// Stages holds the time spent in each stage.
	Stages map[string]time.Duration `json:"-"`
	// Sprint is the cleaned sprint, kept for plotting and impact reports.
	Sprint sprint.Sprint `json:"-"`
}

// Analyzer runs analyses. It is immutable and safe for concurrent use;
// each call works on its own copies of the input.
type Analyzer struct {
	cfg      Config
	log      logger.Logger
	detector *window.Detector
	builder  *sprint.Builder
}

// New creates an Analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{cfg: DefaultConfig(), log: logger.Nop()}
	for _, opt := range opts {
		opt(a)
	}
	a.detector = window.NewDetector(window.WithConfig(a.cfg.Window))
	a.builder = sprint.NewBuilder(
		sprint.WithPlateauRatio(a.cfg.PlateauRatio),
		sprint.WithOutliers(a.cfg.Outliers),
		sprint.WithFitter(fitting.New()),
	)
	return a
}

// Config returns the configuration in use.
func (a *Analyzer) Config() Config { return a.cfg }

// Builder exposes the sprint builder, e.g. for impact reports.
func (a *Analyzer) Builder() *sprint.Builder { return a.builder }

// Analyze runs every stage on req. Any stage error aborts the analysis.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*Result, error) {
	if err := req.Trace.Validate(); err != nil {
		return nil, err
	}
	res := &Result{
		ID:      req.ID,
		Title:   req.Title,
		Athlete: req.Athlete,
		Stages:  make(map[string]time.Duration, 3),
	}
	if res.ID == "" {
		res.ID = uuid.New().String()
	}
	log := a.log.Named("analysis")

	start := time.Now()
	w, err := a.locate(req)
	if err != nil {
		return nil, fmt.Errorf("window: %w", err)
	}
	res.Window = w
	res.Stages["window"] = time.Since(start)
	log.Debug(ctx, "sprint window located",
		logger.String("id", res.ID),
		logger.Int("start", w.Start),
		logger.Int("end", w.End),
		logger.Float64("peak_velocity", w.PeakVelocity))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start = time.Now()
	s, err := a.builder.Build(ctx, w.Extract(req.Trace))
	if err != nil {
		return nil, err
	}
	if req.EndOfAcceleration > 0 {
		if s, err = a.builder.WithEndOfAcceleration(s, req.EndOfAcceleration); err != nil {
			return nil, err
		}
	}
	res.Sprint = s
	res.Stages["sprint"] = time.Since(start)
	log.Debug(ctx, "sprint fitted",
		logger.String("id", res.ID),
		logger.Float64("v_max", s.Fit.VMax),
		logger.Float64("tau", s.Fit.Tau),
		logger.Int("points_out", s.Removed))

	start = time.Now()
	duration := a.cfg.Duration
	if duration <= 0 {
		duration = s.Duration()
	}
	profile, err := pfv.Build(pfv.Input{
		VMax:       s.Fit.VMax,
		Tau:        s.Fit.Tau,
		Duration:   duration,
		Athlete:    req.Athlete,
		Conditions: req.Conditions,
	}, pfv.WithTimeStep(a.cfg.TimeStep), pfv.WithRFOffset(a.cfg.RFOffset))
	if err != nil {
		return nil, fmt.Errorf("profile: %w", err)
	}
	res.Profile = profile
	res.Stages["profile"] = time.Since(start)

	res.Summary = Summary{
		VMax:            s.Fit.VMax,
		Tau:             s.Fit.Tau,
		Delay:           s.Fit.Delay,
		Start:           s.Fit.Start(),
		Duration:        s.Duration(),
		SmoothedPeak:    s.SmoothedPeak(),
		PlateauDuration: s.PlateauDuration(),
		Samples:         s.Trace.Len(),
		PointsOut:       s.Removed,
		Outliers:        s.Stats,
		Iterations:      s.Fit.Iterations,
	}
	res.Quality = assess(s.Removed, s.PlateauDuration(), s.VMaxDiff(), s.CurveGap(), a.cfg)
	return res, nil
}

func (a *Analyzer) locate(req Request) (window.Window, error) {
	switch {
	case req.Bounds != nil:
		return a.detector.Bounds(req.Trace, req.Bounds.Start, req.Bounds.End)
	case a.cfg.Mode == ModeWhole:
		return a.detector.Whole(req.Trace)
	default:
		return a.detector.Detect(req.Trace)
	}
}
