package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/sprof/internal/domain/analysis"
	"github.com/okian/sprof/internal/domain/model"
	"github.com/okian/sprof/pkg/logger"
	"github.com/okian/sprof/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Analyzer analyses one trace.
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (*analysis.Result, error)
}

// Recorder stores the outcome of a job.
type Recorder interface {
	Complete(ctx context.Context, res *analysis.Result) error
	Fail(ctx context.Context, id string, cause error) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Job
}

// InMemoryWorker takes jobs off the queue, analyses them and records the
// outcome. A failing trace is recorded as failed and the loop goes on.
type InMemoryWorker struct {
	queue    Queue
	analyzer Analyzer
	recorder Recorder
	name     string
	logger   logger.Logger
	active   *atomic.Int64 // shared with the pool
}

// NewInMemoryWorker creates a worker.
func NewInMemoryWorker(q Queue, a Analyzer, r Recorder, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		analyzer: a,
		recorder: r,
		name:     "worker",
		logger:   logger.Nop(),
		active:   new(atomic.Int64),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run processes jobs until the queue is drained and closed, or ctx is done.
func (w *InMemoryWorker) Run(ctx context.Context) {
	for job := range w.queue.Dequeue(ctx) {
		if err := w.process(ctx, job); err != nil {
			w.logger.Error(ctx, "job not recorded", logger.String("id", job.ID), logger.Error(err))
		}
	}
}

func (w *InMemoryWorker) process(ctx context.Context, job model.Job) error { //nolint:gocritic // hugeParam: jobs travel by value
	metrics.UpdateWorkerActiveCount(int(w.active.Add(1)))
	start := time.Now()
	defer func() {
		metrics.UpdateWorkerActiveCount(int(w.active.Add(-1)))
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	res, err := w.analyzer.Analyze(ctx, analysis.Request{
		ID:                job.ID,
		Title:             job.Title,
		Trace:             job.Trace,
		Athlete:           job.Athlete,
		Conditions:        job.Conditions,
		EndOfAcceleration: job.EndOfAcceleration,
	})
	if err != nil {
		kind := model.Kind(err)
		metrics.RecordWorkerError()
		_ = metrics.RecordAnalysis(metrics.OutcomeFailed, kind)
		w.logger.Warn(ctx, "analysis failed",
			logger.String("id", job.ID),
			logger.String("kind", kind),
			logger.Error(err))
		if rerr := w.recorder.Fail(ctx, job.ID, err); rerr != nil {
			return fmt.Errorf("record failure of %s: %w", job.ID, rerr)
		}
		return nil
	}

	_ = metrics.RecordAnalysis(metrics.OutcomeSuccess, model.Kind(nil))
	metrics.RecordSprint(res.Summary.PointsOut, res.Summary.Iterations)
	for stage, d := range res.Stages {
		metrics.RecordStageLatency(stage, float64(d.Microseconds())/1000)
	}
	if err := w.recorder.Complete(ctx, res); err != nil {
		metrics.RecordErrorByComponent("worker", "record")
		return fmt.Errorf("record result of %s: %w", job.ID, err)
	}
	w.logger.Debug(ctx, "analysis done",
		logger.String("id", res.ID),
		logger.Float64("pmax_kg", res.Profile.PmaxKg),
		logger.String("signal", string(res.Quality.Signal)))
	return nil
}

// Pool runs several workers on the same queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPool creates a pool of workerCount workers, one per CPU when
// workerCount is not positive.
func NewPool(workerCount int, q Queue, a Analyzer, r Recorder, l logger.Logger) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	if l == nil {
		l = logger.Nop()
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  l.Named("worker-pool"),
	}
	active := new(atomic.Int64)
	for i := range p.workers {
		p.workers[i] = NewInMemoryWorker(q, a, r, WithName("worker-"+strconv.Itoa(i)), WithLogger(l))
		p.workers[i].active = active
	}
	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts every worker.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for _, w := range p.workers {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			w.Run(ctx)
		}()
	}
}

// Shutdown closes the queue and waits for the workers to drain it. When ctx
// expires first, the workers are cancelled and the remaining jobs dropped.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	ctx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		if p.cancel != nil {
			p.cancel()
		}
		<-done
		p.logger.Warn(ctx, "worker pool shutdown timed out")
		return fmt.Errorf("worker pool shutdown: %w", ctx.Err())
	}
}
