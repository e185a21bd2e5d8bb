// Package watcher analyses radar files as they appear in a directory and
// appends the profiles to the CSV dataset of the day.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/okian/sprof/internal/adapters/export"
	"github.com/okian/sprof/internal/adapters/radar"
	"github.com/okian/sprof/internal/domain/analysis"
	"github.com/okian/sprof/internal/domain/dedupe"
	"github.com/okian/sprof/internal/domain/model"
	"github.com/okian/sprof/pkg/logger"
	"github.com/okian/sprof/pkg/metrics"
)

// Results counted on the watched files metric.
const (
	ResultAnalysed   = "analysed"
	ResultFailed     = "failed"
	ResultDuplicate  = "duplicate"
	ResultUnreadable = "unreadable"
)

const maxSettleChecks = 20

// Analyzer analyses one trace.
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (*analysis.Result, error)
}

// Recorder stores the outcome of an analysis.
type Recorder interface {
	Complete(ctx context.Context, res *analysis.Result) error
	Fail(ctx context.Context, id string, cause error) error
}

// AthleteFinder finds the athlete of a recording from its file name.
type AthleteFinder interface {
	Find(pattern string) (model.Athlete, error)
}

// Watcher reacts to new radar files in a directory.
type Watcher struct {
	dir          string
	ext          string
	exportDir    string
	dedupeWindow time.Duration
	settle       time.Duration
	analyzer     Analyzer
	recorder     Recorder
	roster       AthleteFinder
	conditions   model.Conditions
	deduper      dedupe.Deduper
	now          func() time.Time
	logger       logger.Logger

	mu      sync.Mutex // guards dataset and current
	dataset *export.Dataset
	current string

	wg sync.WaitGroup
}

// New creates a watcher on dir.
func New(dir string, a Analyzer, opts ...Option) (*Watcher, error) {
	if a == nil {
		return nil, ErrNoAnalyzer
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", dir, ErrNotADirectory)
	}
	w := &Watcher{
		dir:          dir,
		ext:          radar.ExtRDA,
		exportDir:    dir,
		dedupeWindow: 10 * time.Second,
		settle:       500 * time.Millisecond,
		analyzer:     a,
		now:          time.Now,
		logger:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.ext = radar.NormalizeExt(w.ext)
	// Events for a file still settling must not be accepted again.
	if limit := maxSettleChecks * w.settle; w.dedupeWindow < limit {
		w.dedupeWindow = limit
	}
	if w.deduper == nil {
		w.deduper = dedupe.NewInMemoryDeduper(dedupe.WithTTL(w.dedupeWindow), dedupe.WithMaxSize(0))
	}
	w.logger = w.logger.Named("watcher")
	return w, nil
}

// DedupeWindow returns the window within which repeated events for a path
// are ignored. It is never shorter than the longest settle wait.
func (w *Watcher) DedupeWindow() time.Duration { return w.dedupeWindow }

// Run watches the directory until ctx is done. Files being analysed when ctx
// ends are finished before Run returns.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	if _, err := w.Dataset(); err != nil {
		w.logger.Warn(ctx, "dataset of the day unreadable", logger.Error(err))
	}
	w.logger.Info(ctx, "watching radar files",
		logger.String("dir", w.dir),
		logger.String("ext", w.ext),
		logger.String("export_dir", w.exportDir))

	defer w.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			metrics.RecordErrorByComponent("watcher", "fsnotify")
			w.logger.Error(ctx, "watch error", logger.Error(err))
		}
	}
}

func (w *Watcher) handle(ctx context.Context, ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}
	if !w.matches(ev.Name) {
		return
	}
	if w.deduper.SeenAndRecord(ctx, ev.Name) {
		metrics.RecordWatchedFile(ResultDuplicate)
		return
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := w.waitStable(ctx, ev.Name); err != nil {
			w.logger.Warn(ctx, "file not ready", logger.String("path", ev.Name), logger.Error(err))
			w.deduper.Unrecord(ctx, ev.Name)
			return
		}
		if _, err := w.Process(ctx, ev.Name); err != nil {
			w.logger.Warn(ctx, "radar file not analysed", logger.String("path", ev.Name), logger.Error(err))
		}
	}()
}

func (w *Watcher) matches(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return strings.EqualFold(filepath.Ext(base), w.ext)
}

// waitStable returns once the size of path stayed the same for one settle
// period, or after maxSettleChecks periods.
func (w *Watcher) waitStable(ctx context.Context, path string) error {
	last := int64(-1)
	for range maxSettleChecks {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if info.Size() > 0 && info.Size() == last {
			return nil
		}
		last = info.Size()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.settle):
		}
	}
	return nil
}

// Process reads, analyses and exports one radar file.
func (w *Watcher) Process(ctx context.Context, path string) (*analysis.Result, error) {
	rec, err := radar.Read(path)
	if err != nil {
		metrics.RecordWatchedFile(ResultUnreadable)
		return nil, err
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	var athlete model.Athlete
	if w.roster != nil {
		if athlete, err = w.roster.Find(name); err != nil {
			w.logger.Warn(ctx, "athlete not in roster, using default mass and stature",
				logger.String("file", name),
				logger.Error(err))
		}
	}

	id := uuid.NewString()
	res, err := w.analyzer.Analyze(ctx, analysis.Request{
		ID:         id,
		Title:      rec.Title,
		Trace:      rec.Trace,
		Athlete:    athlete,
		Conditions: w.conditions,
	})
	if err != nil {
		metrics.RecordWatchedFile(ResultFailed)
		_ = metrics.RecordAnalysis(metrics.OutcomeFailed, model.Kind(err))
		if w.recorder != nil {
			if rerr := w.recorder.Fail(ctx, id, err); rerr != nil {
				w.logger.Error(ctx, "failure not recorded", logger.Error(rerr))
			}
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	_ = metrics.RecordAnalysis(metrics.OutcomeSuccess, model.Kind(nil))
	metrics.RecordSprint(res.Summary.PointsOut, res.Summary.Iterations)
	if w.recorder != nil {
		if err := w.recorder.Complete(ctx, res); err != nil {
			w.logger.Error(ctx, "result not recorded", logger.Error(err))
		}
	}

	file, err := w.export(res)
	if err != nil {
		metrics.RecordErrorByComponent("watcher", "export")
		return res, err
	}
	metrics.RecordWatchedFile(ResultAnalysed)
	w.logger.Info(ctx, "radar file analysed",
		logger.String("title", res.Title),
		logger.Float64("v_max", res.Summary.VMax),
		logger.Float64("tau", res.Summary.Tau),
		logger.Float64("pmax_kg", res.Profile.PmaxKg),
		logger.String("signal", string(res.Quality.Signal)),
		logger.String("dataset", file))
	return res, nil
}

func (w *Watcher) export(res *analysis.Result) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	ds, err := w.datasetFor(w.now())
	if err != nil {
		return "", err
	}
	ds.Add(export.RowFrom(res))
	if err := ds.Export(w.current); err != nil {
		return "", err
	}
	return w.current, nil
}

// datasetFor returns the dataset of day, loading the file already written
// that day. A file that cannot be read is left untouched and retried on the
// next call. Must be called with w.mu held.
func (w *Watcher) datasetFor(day time.Time) (*export.Dataset, error) {
	file := export.FileName(w.exportDir, day)
	if file == w.current && w.dataset != nil {
		return w.dataset, nil
	}
	ds := export.NewDataset()
	if err := ds.Load(file); err != nil {
		w.current, w.dataset = "", nil
		return nil, fmt.Errorf("load %s: %w", file, err)
	}
	w.current, w.dataset = file, ds
	return ds, nil
}

// Dataset returns the rows exported today.
func (w *Watcher) Dataset() ([]export.Row, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	ds, err := w.datasetFor(w.now())
	if err != nil {
		return nil, err
	}
	return ds.Rows(), nil
}
