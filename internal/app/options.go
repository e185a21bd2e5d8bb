package service

import (
	"time"

	"github.com/okian/sprof/internal/config"
	"github.com/okian/sprof/internal/domain/analysis"
	"github.com/okian/sprof/internal/domain/model"
	"github.com/okian/sprof/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of analysis workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of queued traces.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the number of request ids remembered for idempotency.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithAnalysisConfig sets the analysis policy.
func WithAnalysisConfig(cfg analysis.Config) Option {
	return func(s *Service) {
		s.analysisCfg = cfg
	}
}

// WithConditions sets the ambient conditions used by the directory watcher.
func WithConditions(c model.Conditions) Option {
	return func(s *Service) {
		s.conditions = c
	}
}

// WithWatchDir enables the directory watcher on dir.
func WithWatchDir(dir string) Option {
	return func(s *Service) {
		s.watchDir = dir
	}
}

// WithWatchExt sets the radar file extension the watcher reacts to.
func WithWatchExt(ext string) Option {
	return func(s *Service) {
		if ext != "" {
			s.watchExt = ext
		}
	}
}

// WithWatchTimings sets the per-path dedupe window and the settle delay of
// the watcher.
func WithWatchTimings(dedupeWindow, settle time.Duration) Option {
	return func(s *Service) {
		if dedupeWindow > 0 {
			s.watchDedupe = dedupeWindow
		}
		if settle > 0 {
			s.watchSettle = settle
		}
	}
}

// WithExportDir sets where the watcher writes the daily dataset.
func WithExportDir(dir string) Option {
	return func(s *Service) {
		s.exportDir = dir
	}
}

// WithRosterFile sets the athlete roster used by the watcher.
func WithRosterFile(path string) Option {
	return func(s *Service) {
		s.rosterFile = path
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// FromConfig returns the options matching a loaded configuration.
func FromConfig(cfg *config.Config) []Option {
	return []Option{
		WithWorkerCount(cfg.WorkerCount),
		WithQueueSize(cfg.QueueSize),
		WithDedupeSize(cfg.DedupeSize),
		WithAnalysisConfig(cfg.Analysis()),
		WithConditions(cfg.Conditions()),
		WithWatchDir(cfg.WatchDir),
		WithWatchExt(cfg.WatchExt),
		WithWatchTimings(cfg.WatchDedupe, cfg.WatchSettle),
		WithExportDir(cfg.ExportDir),
		WithRosterFile(cfg.RosterFile),
	}
}
