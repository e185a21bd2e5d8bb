package repository

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/okian/sprof/internal/domain/analysis"
	"github.com/okian/sprof/internal/domain/model"
	"github.com/okian/sprof/internal/domain/types"
	"github.com/okian/sprof/pkg/metrics"
)

// MemoryStore is an in-memory Store. Done analyses are also kept in a slice
// sorted by types.Less so TopN is a prefix copy.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]*Record
	ranking []types.Entry
	now     func() time.Time

	metricsUpdateInterval time.Duration
	wg                    sync.WaitGroup
	stopChan              chan struct{}
	stopOnce              sync.Once
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs a store and starts its metrics updater, which
// stops with ctx or Close.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		byID:                  make(map[string]*Record),
		now:                   time.Now,
		metricsUpdateInterval: 5 * time.Second,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startMetricsUpdater(ctx)
	return s
}

// Close stops the metrics updater.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

// Put registers a pending analysis.
func (s *MemoryStore) Put(_ context.Context, id, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; ok {
		return fmt.Errorf("%s: %w", id, ErrAlreadyExists)
	}
	now := s.now()
	s.byID[id] = &Record{
		ID:        id,
		Title:     title,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

// Complete stores a successful result. Analyses that never went through Put,
// like the ones started by the directory watcher, are created on the fly.
func (s *MemoryStore) Complete(_ context.Context, res *analysis.Result) error {
	if res == nil || res.ID == "" || res.Profile == nil {
		return ErrInvalidResult
	}
	if math.IsNaN(res.Profile.PmaxKg) {
		return fmt.Errorf("%s: pmax is NaN: %w", res.ID, ErrInvalidResult)
	}

	s.mu.Lock()
	rec := s.recordLocked(res.ID, res.Title)
	rec.Status = StatusDone
	rec.Kind = ""
	rec.Error = ""
	rec.Result = res
	rec.UpdatedAt = s.now()
	s.unrankLocked(res.ID)
	entry := types.Entry{
		ID:     res.ID,
		Title:  rec.Title,
		PmaxKg: res.Profile.PmaxKg,
		F0Kg:   res.Profile.F0Kg,
		V0:     res.Profile.V0,
		VMax:   res.Summary.VMax,
		Signal: string(res.Quality.Signal),
	}
	i, _ := slices.BinarySearchFunc(s.ranking, entry, compare)
	s.ranking = slices.Insert(s.ranking, i, entry)
	count := len(s.byID)
	s.mu.Unlock()

	metrics.UpdateStoredAnalyses(count)
	return nil
}

// Fail marks an analysis as failed.
func (s *MemoryStore) Fail(_ context.Context, id string, cause error) error {
	if id == "" {
		return fmt.Errorf("empty id: %w", ErrInvalidResult)
	}
	s.mu.Lock()
	rec := s.recordLocked(id, "")
	rec.Status = StatusFailed
	rec.Kind = model.Kind(cause)
	rec.Result = nil
	if cause != nil {
		rec.Error = cause.Error()
	}
	rec.UpdatedAt = s.now()
	s.unrankLocked(id)
	count := len(s.byID)
	s.mu.Unlock()

	metrics.UpdateStoredAnalyses(count)
	return nil
}

// Delete forgets an analysis.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	delete(s.byID, id)
	s.unrankLocked(id)
	return nil
}

// Get returns a copy of the record of id.
func (s *MemoryStore) Get(_ context.Context, id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byID[id]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return Record{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return *rec, nil
}

// Rank returns the ranking entry of id.
func (s *MemoryStore) Rank(_ context.Context, id string) (types.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byID[id]
	if !ok {
		return types.Entry{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if rec.Status != StatusDone {
		return types.Entry{}, fmt.Errorf("%s is %s: %w", id, rec.Status, ErrNotRanked)
	}
	i := slices.IndexFunc(s.ranking, func(e types.Entry) bool { return e.ID == id })
	if i < 0 {
		return types.Entry{}, fmt.Errorf("%s: %w", id, ErrNotRanked)
	}
	ranked := slices.Clone(s.ranking[:i+1])
	assignRanksWithTies(ranked)
	return ranked[i], nil
}

// TopN returns the top n entries.
func (s *MemoryStore) TopN(_ context.Context, n int) ([]types.Entry, error) {
	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, fmt.Errorf("%d: %w", n, ErrInvalidLimit)
	}
	s.mu.RLock()
	out := slices.Clone(s.ranking[:min(n, len(s.ranking))])
	s.mu.RUnlock()
	assignRanksWithTies(out)
	return out, nil
}

// Count returns the number of analyses.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Counts returns the number of analyses per state.
func (s *MemoryStore) Counts(_ context.Context) map[Status]int {
	out := map[Status]int{StatusPending: 0, StatusDone: 0, StatusFailed: 0}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.byID {
		out[rec.Status]++
	}
	return out
}

// recordLocked returns the record of id, creating it when missing. Must be
// called with s.mu held.
func (s *MemoryStore) recordLocked(id, title string) *Record {
	rec, ok := s.byID[id]
	if !ok {
		now := s.now()
		rec = &Record{ID: id, Title: title, CreatedAt: now}
		s.byID[id] = rec
	}
	if rec.Title == "" {
		rec.Title = title
	}
	return rec
}

func (s *MemoryStore) unrankLocked(id string) {
	s.ranking = slices.DeleteFunc(s.ranking, func(e types.Entry) bool { return e.ID == id })
}

func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				metrics.UpdateStoredAnalyses(s.Count(ctx))
			}
		}
	}()
}

func compare(a, b types.Entry) int {
	switch {
	case types.Less(a, b):
		return -1
	case types.Less(b, a):
		return 1
	default:
		return 0
	}
}

// assignRanksWithTies assigns consecutive ranks; sprints with the same
// relative power share a rank. entries must be sorted.
func assignRanksWithTies(entries []types.Entry) {
	rank := 0
	for i := range entries {
		if i == 0 || entries[i].PmaxKg != entries[i-1].PmaxKg {
			rank++
		}
		entries[i].Rank = rank
	}
}
