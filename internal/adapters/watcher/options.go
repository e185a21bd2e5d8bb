package watcher

import (
	"time"

	"github.com/okian/sprof/internal/domain/dedupe"
	"github.com/okian/sprof/internal/domain/model"
	"github.com/okian/sprof/pkg/logger"
)

// Option applies a configuration option to the Watcher.
type Option func(*Watcher)

// WithExtension sets the radar file extension to react to.
func WithExtension(ext string) Option {
	return func(w *Watcher) {
		if ext != "" {
			w.ext = ext
		}
	}
}

// WithExportDir sets the directory of the daily CSV dataset. Defaults to the
// watched directory.
func WithExportDir(dir string) Option {
	return func(w *Watcher) {
		if dir != "" {
			w.exportDir = dir
		}
	}
}

// WithDedupeWindow ignores repeated events for a path within d. Radar
// software writes a file in several steps. A window shorter than the longest
// settle wait is raised to it.
func WithDedupeWindow(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.dedupeWindow = d
		}
	}
}

// WithSettle sets how long a file size must stay unchanged before the file
// is read.
func WithSettle(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.settle = d
		}
	}
}

// WithRoster sets the athlete lookup used for body mass and stature.
func WithRoster(r AthleteFinder) Option {
	return func(w *Watcher) {
		w.roster = r
	}
}

// WithRecorder stores every outcome, e.g. in the repository.
func WithRecorder(r Recorder) Option {
	return func(w *Watcher) {
		w.recorder = r
	}
}

// WithConditions sets the ambient conditions used for every file.
func WithConditions(c model.Conditions) Option {
	return func(w *Watcher) {
		w.conditions = c
	}
}

// WithDeduper replaces the per-path deduper.
func WithDeduper(d dedupe.Deduper) Option {
	return func(w *Watcher) {
		if d != nil {
			w.deduper = d
		}
	}
}

// WithClock replaces time.Now, which picks the dataset file of the day.
func WithClock(now func() time.Time) Option {
	return func(w *Watcher) {
		if now != nil {
			w.now = now
		}
	}
}

// WithLogger sets a custom logger for the watcher.
func WithLogger(l logger.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}
