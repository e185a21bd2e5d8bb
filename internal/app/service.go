// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/okian/sprof/internal/adapters/mq/queue"
	"github.com/okian/sprof/internal/adapters/mq/worker"
	"github.com/okian/sprof/internal/adapters/radar"
	"github.com/okian/sprof/internal/adapters/repository"
	"github.com/okian/sprof/internal/adapters/roster"
	"github.com/okian/sprof/internal/adapters/watcher"
	"github.com/okian/sprof/internal/domain/analysis"
	"github.com/okian/sprof/internal/domain/dedupe"
	"github.com/okian/sprof/internal/domain/model"
	"github.com/okian/sprof/internal/domain/types"
	"github.com/okian/sprof/pkg/logger"
	"github.com/okian/sprof/pkg/metrics"
)

// Service owns the analysis pipeline: queue, worker pool, repository and the
// optional directory watcher.
type Service struct {
	mu sync.RWMutex

	// Core components
	store    *repository.MemoryStore
	deduper  dedupe.Deduper
	queue    *queue.InMemoryQueue
	analyzer *analysis.Analyzer
	pool     *worker.Pool
	watcher  *watcher.Watcher

	// Configuration
	workerCount int
	queueSize   int
	dedupeSize  int
	analysisCfg analysis.Config
	conditions  model.Conditions
	watchDir    string
	watchExt    string
	watchDedupe time.Duration
	watchSettle time.Duration
	exportDir   string
	rosterFile  string

	// State
	started     bool
	stopWatcher context.CancelFunc
	watchDone   chan error

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU(),
		queueSize:   1_000,
		dedupeSize:  10_000,
		analysisCfg: analysis.DefaultConfig(),
		watchExt:    radar.ExtRDA,
		watchDedupe: 10 * time.Second,
		watchSettle: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components. Workers and the
// watcher run until Stop; ctx only bounds the start itself and carries
// request-scoped values to the logs.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.logger.Info(ctx, "starting analysis service...")

	runCtx := context.WithoutCancel(ctx)
	s.analyzer = analysis.New(
		analysis.WithConfig(s.analysisCfg),
		analysis.WithLogger(s.logger),
	)
	s.store = repository.NewMemoryStore(runCtx)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, s.analyzer, s.store, s.logger)

	if s.watchDir != "" {
		if err := s.startWatcher(runCtx); err != nil {
			_ = s.store.Close()
			return err
		}
	}
	s.pool.Start(runCtx)

	s.started = true
	s.logger.Info(ctx, "analysis service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queue_size", s.queueSize),
		logger.Int("dedupe_size", s.dedupeSize),
		logger.String("watch_dir", s.watchDir),
	)
	return nil
}

func (s *Service) startWatcher(ctx context.Context) error {
	opts := []watcher.Option{
		watcher.WithExtension(s.watchExt),
		watcher.WithExportDir(s.exportDir),
		watcher.WithDedupeWindow(s.watchDedupe),
		watcher.WithSettle(s.watchSettle),
		watcher.WithConditions(s.conditions),
		watcher.WithRecorder(s.store),
		watcher.WithLogger(s.logger),
	}
	if s.rosterFile != "" {
		r, err := roster.Load(s.rosterFile)
		if err != nil {
			return fmt.Errorf("load roster: %w", err)
		}
		s.logger.Info(ctx, "roster loaded", logger.String("file", s.rosterFile), logger.Int("athletes", r.Len()))
		opts = append(opts, watcher.WithRoster(r))
	}
	w, err := watcher.New(s.watchDir, s.analyzer, opts...)
	if err != nil {
		return err
	}
	s.watcher = w

	wctx, cancel := context.WithCancel(ctx)
	s.stopWatcher = cancel
	s.watchDone = make(chan error, 1)
	go func() {
		s.watchDone <- w.Run(wctx)
	}()
	return nil
}

// Stop gracefully shuts down the service: the watcher first, then the queue,
// whose waiting traces are analysed until ctx expires.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping analysis service...")

	var errs []error
	if s.stopWatcher != nil {
		s.stopWatcher()
		if err := <-s.watchDone; err != nil {
			errs = append(errs, fmt.Errorf("watcher: %w", err))
		}
		s.stopWatcher = nil
	}
	if err := s.pool.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, err)
	}

	s.started = false
	s.logger.Info(ctx, "analysis service stopped")
	return errors.Join(errs...)
}

// SeenAndRecord atomically checks if a request id was seen and records it if not.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.deduper == nil {
		return false
	}
	return s.deduper.SeenAndRecord(ctx, id)
}

// Unrecord removes a request id from the seen list, allowing it to be retried.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.deduper != nil {
		s.deduper.Unrecord(ctx, id)
	}
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}

// Submit registers a pending analysis and queues its trace. The pending
// record is dropped again when the queue rejects the job.
func (s *Service) Submit(ctx context.Context, job model.Job) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	if err := s.store.Put(ctx, job.ID, job.Title); err != nil {
		return err
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		_ = s.store.Delete(ctx, job.ID)
		s.logger.Warn(ctx, "analysis not queued",
			logger.String("id", job.ID),
			logger.Error(err))
		return err
	}
	s.logger.Debug(ctx, "analysis queued",
		logger.String("id", job.ID),
		logger.Int("samples", job.Trace.Len()))
	return nil
}

// Get returns the record of an analysis.
func (s *Service) Get(ctx context.Context, id string) (repository.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return repository.Record{}, ErrNotStarted
	}
	return s.store.Get(ctx, id)
}

// TopN returns the top N ranking entries.
func (s *Service) TopN(ctx context.Context, n int) ([]types.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store.TopN(ctx, n)
}

// Rank returns the ranking entry of an analysis.
func (s *Service) Rank(ctx context.Context, id string) (types.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return types.Entry{}, ErrNotStarted
	}
	return s.store.Rank(ctx, id)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":      s.started,
		"worker_count": s.workerCount,
		"queue_size":   s.queueSize,
		"dedupe_size":  s.dedupeSize,
		"watch_dir":    s.watchDir,
	}
	if s.started {
		queueLen := s.queue.Len()
		counts := s.store.Counts(ctx)
		stats["queue_length"] = queueLen
		stats["analyses"] = s.store.Count(ctx)
		stats["pending"] = counts[repository.StatusPending]
		stats["done"] = counts[repository.StatusDone]
		stats["failed"] = counts[repository.StatusFailed]

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateStoredAnalyses(s.store.Count(ctx))
	}
	return stats
}
