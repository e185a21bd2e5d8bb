// Package config defines the sprof configuration and its loading hooks.
//
// Keys are flat and shared by the YAML file and the environment, e.g.
// worker_count in YAML is SPROF_WORKER_COUNT in the environment.
package config

import (
	"fmt"
	"runtime"
	"time"

	"github.com/okian/sprof/internal/domain/analysis"
	"github.com/okian/sprof/internal/domain/model"
	"github.com/okian/sprof/internal/domain/pfv"
	"github.com/okian/sprof/internal/domain/sprint"
	"github.com/okian/sprof/pkg/metrics"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory analysis queue.
	QueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of analysis workers.
	WorkerCount int `koanf:"worker_count"`
	// DedupeSize sets how many request ids are remembered for idempotency.
	DedupeSize int `koanf:"dedupe_size"`
	// MaxRankingLimit caps GET /ranking?limit.
	MaxRankingLimit int `koanf:"max_ranking_limit"`

	// WatchDir enables the radar directory watcher when set.
	WatchDir string `koanf:"watch_dir"`
	// WatchExt is the radar file extension picked up by the watcher.
	WatchExt string `koanf:"watch_ext"`
	// WatchDedupe ignores repeated events for the same path within this window.
	WatchDedupe time.Duration `koanf:"watch_dedupe"`
	// WatchSettle is how long a file size must stay unchanged before reading.
	WatchSettle time.Duration `koanf:"watch_settle"`

	// RosterFile is the athletes CSV used to resolve masses and statures.
	RosterFile string `koanf:"roster_file"`
	// ExportDir receives the daily dataset CSV. Defaults to WatchDir.
	ExportDir string `koanf:"export_dir"`

	// MetricsNamespace and MetricsSubsystem prefix every metric name.
	MetricsNamespace string `koanf:"metrics_namespace"`
	MetricsSubsystem string `koanf:"metrics_subsystem"`
	// MetricsLatencyBuckets are the latency histogram buckets in milliseconds.
	// Empty keeps metrics.DefaultLatencyBuckets.
	MetricsLatencyBuckets []float64 `koanf:"metrics_latency_buckets"`
	// MetricsLabels are constant labels (e.g. site) attached to every metric.
	MetricsLabels map[string]string `koanf:"metrics_labels"`

	// Analysis policy.
	WindowMode             string  `koanf:"window_mode"`
	WindowVMin             float64 `koanf:"window_v_min"`
	WindowVMax             float64 `koanf:"window_v_max"`
	WindowMinPeakTime      float64 `koanf:"window_min_peak_time"`
	WindowEndRatio         float64 `koanf:"window_end_ratio"`
	WindowPlateauRatio     float64 `koanf:"window_plateau_ratio"`
	WindowStartSearchRatio float64 `koanf:"window_start_search_ratio"`
	WindowLookBack         float64 `koanf:"window_look_back"`
	WindowStartTau         float64 `koanf:"window_start_tau"`
	WindowStartDelta       float64 `koanf:"window_start_delta"`
	WindowStartMaxSteps    int     `koanf:"window_start_max_steps"`
	// PlateauRatio is the band used by the sprint fit to locate the plateau.
	PlateauRatio         float64 `koanf:"plateau_ratio"`
	OutliersDisabled     bool    `koanf:"outliers_disabled"`
	OutlierImpact        bool    `koanf:"outlier_impact"`
	OutlierSmoothedLimit float64 `koanf:"outlier_smoothed_limit"`
	OutlierModelLimit    float64 `koanf:"outlier_model_limit"`
	OutlierWeightedLimit float64 `koanf:"outlier_weighted_limit"`
	PFVTimeStep          float64 `koanf:"pfv_time_step"`
	PFVRFOffset          float64 `koanf:"pfv_rf_offset"`
	QualityMaxVMaxDiff   float64 `koanf:"quality_max_vmax_diff"`
	QualityMinPlateau    float64 `koanf:"quality_min_plateau"`
	DefaultPressure      float64 `koanf:"pressure"`
	DefaultTemperature   float64 `koanf:"temperature"`
}

// New creates a Config holding the defaults.
func New() *Config {
	a := analysis.DefaultConfig()
	return &Config{
		LogLevel:        "info",
		LogFormat:       "text",
		Addr:            ":9080",
		QueueSize:       1_000,
		WorkerCount:     runtime.NumCPU(),
		DedupeSize:      10_000,
		MaxRankingLimit: 100,
		WatchExt:        ".rda",
		WatchDedupe:     10 * time.Second,
		WatchSettle:     500 * time.Millisecond,

		MetricsNamespace: metrics.DefaultNamespace,
		MetricsSubsystem: metrics.DefaultSubsystem,

		WindowMode:             string(a.Mode),
		WindowVMin:             a.Window.VMin,
		WindowVMax:             a.Window.VMax,
		WindowMinPeakTime:      a.Window.MinPeakTime,
		WindowEndRatio:         a.Window.EndRatio,
		WindowPlateauRatio:     a.Window.PlateauRatio,
		WindowStartSearchRatio: a.Window.StartSearchRatio,
		WindowLookBack:         a.Window.LookBack,
		WindowStartTau:         a.Window.StartTau,
		WindowStartDelta:       a.Window.StartDelta,
		WindowStartMaxSteps:    a.Window.StartMaxSteps,
		PlateauRatio:           sprint.DefaultPlateauRatio,
		OutlierSmoothedLimit:   a.Outliers.SmoothedLimit,
		OutlierModelLimit:      a.Outliers.ModelLimit,
		OutlierWeightedLimit:   a.Outliers.WeightedLimit,
		PFVTimeStep:            pfv.DefaultTimeStep,
		PFVRFOffset:            pfv.DefaultRFOffset,
		QualityMaxVMaxDiff:     a.MaxVMaxDiff,
		QualityMinPlateau:      a.MinPlateau,
		DefaultPressure:        pfv.DefaultPressure,
		DefaultTemperature:     pfv.DefaultTemperature,
	}
}

// Validate reports the first inconsistent setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("addr must not be empty: %w", ErrInvalidConfig)
	case c.QueueSize < 1:
		return fmt.Errorf("queue_size %d: %w", c.QueueSize, ErrInvalidConfig)
	case c.WorkerCount < 1:
		return fmt.Errorf("worker_count %d: %w", c.WorkerCount, ErrInvalidConfig)
	case c.MaxRankingLimit < 1:
		return fmt.Errorf("max_ranking_limit %d: %w", c.MaxRankingLimit, ErrInvalidConfig)
	case c.WindowMode != string(analysis.ModeAuto) && c.WindowMode != string(analysis.ModeWhole):
		return fmt.Errorf("window_mode %q: %w", c.WindowMode, ErrInvalidConfig)
	case c.WindowVMin >= c.WindowVMax:
		return fmt.Errorf("window_v_min %.2f not below window_v_max %.2f: %w", c.WindowVMin, c.WindowVMax, ErrInvalidConfig)
	case !isRatio(c.WindowEndRatio):
		return fmt.Errorf("window_end_ratio %.3f: %w", c.WindowEndRatio, ErrInvalidConfig)
	case !isRatio(c.WindowPlateauRatio):
		return fmt.Errorf("window_plateau_ratio %.3f: %w", c.WindowPlateauRatio, ErrInvalidConfig)
	case !isRatio(c.WindowStartSearchRatio):
		return fmt.Errorf("window_start_search_ratio %.3f: %w", c.WindowStartSearchRatio, ErrInvalidConfig)
	case c.WindowLookBack <= 0:
		return fmt.Errorf("window_look_back %.3f: %w", c.WindowLookBack, ErrInvalidConfig)
	case c.WindowStartTau <= 0:
		return fmt.Errorf("window_start_tau %.3f: %w", c.WindowStartTau, ErrInvalidConfig)
	case c.WindowStartDelta < 0:
		return fmt.Errorf("window_start_delta %.3f: %w", c.WindowStartDelta, ErrInvalidConfig)
	case c.WindowStartMaxSteps < 0:
		return fmt.Errorf("window_start_max_steps %d: %w", c.WindowStartMaxSteps, ErrInvalidConfig)
	case !isRatio(c.PlateauRatio):
		return fmt.Errorf("plateau_ratio %.3f: %w", c.PlateauRatio, ErrInvalidConfig)
	case c.PFVTimeStep <= 0:
		return fmt.Errorf("pfv_time_step %.3f: %w", c.PFVTimeStep, ErrInvalidConfig)
	case !increasing(c.MetricsLatencyBuckets):
		return fmt.Errorf("metrics_latency_buckets %v not increasing: %w", c.MetricsLatencyBuckets, ErrInvalidConfig)
	}
	return nil
}

func isRatio(r float64) bool { return r > 0 && r < 1 }

func increasing(v []float64) bool {
	for i := 1; i < len(v); i++ {
		if v[i] <= v[i-1] {
			return false
		}
	}
	return true
}

// Analysis builds the analysis policy from the configuration.
func (c *Config) Analysis() analysis.Config {
	a := analysis.DefaultConfig()
	a.Mode = analysis.Mode(c.WindowMode)
	a.Window.VMin = c.WindowVMin
	a.Window.VMax = c.WindowVMax
	a.Window.MinPeakTime = c.WindowMinPeakTime
	a.Window.EndRatio = c.WindowEndRatio
	a.Window.PlateauRatio = c.WindowPlateauRatio
	a.Window.StartSearchRatio = c.WindowStartSearchRatio
	a.Window.LookBack = c.WindowLookBack
	a.Window.StartTau = c.WindowStartTau
	a.Window.StartDelta = c.WindowStartDelta
	a.Window.StartMaxSteps = c.WindowStartMaxSteps
	a.PlateauRatio = c.PlateauRatio
	a.Outliers.Disabled = c.OutliersDisabled
	a.Outliers.Impact = c.OutlierImpact
	a.Outliers.SmoothedLimit = c.OutlierSmoothedLimit
	a.Outliers.ModelLimit = c.OutlierModelLimit
	a.Outliers.WeightedLimit = c.OutlierWeightedLimit
	a.TimeStep = c.PFVTimeStep
	a.RFOffset = c.PFVRFOffset
	a.MaxVMaxDiff = c.QualityMaxVMaxDiff
	a.MinPlateau = c.QualityMinPlateau
	return a
}

// Conditions returns the default measurement conditions.
func (c *Config) Conditions() model.Conditions {
	return model.Conditions{Pressure: c.DefaultPressure, Temperature: c.DefaultTemperature}
}

// Metrics returns the metric naming options.
func (c *Config) Metrics() []metrics.Option {
	return []metrics.Option{
		metrics.WithNamespace(c.MetricsNamespace),
		metrics.WithSubsystem(c.MetricsSubsystem),
		metrics.WithHistogramBuckets(c.MetricsLatencyBuckets),
		metrics.WithConstLabels(c.MetricsLabels),
	}
}
