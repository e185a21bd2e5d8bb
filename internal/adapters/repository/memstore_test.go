package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/sprof/internal/domain/analysis"
	"github.com/okian/sprof/internal/domain/model"
	"github.com/okian/sprof/internal/domain/pfv"
)

func result(id, title string, pmaxKg float64) *analysis.Result {
	return &analysis.Result{
		ID:      id,
		Title:   title,
		Profile: &pfv.Profile{PmaxKg: pmaxKg, F0Kg: 8, V0: 9},
		Summary: analysis.Summary{VMax: 8.5},
		Quality: analysis.Quality{Signal: analysis.SignalGood},
	}
}

func newStore(t *testing.T) *MemoryStore {
	t.Helper()
	s := NewMemoryStore(context.Background())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestMemoryStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 2, 9, 30, 0, 0, time.UTC)
	s := NewMemoryStore(ctx, WithClock(func() time.Time { return now }))
	defer s.Close()

	if err := s.Put(ctx, "a1", "Alex 1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Put(ctx, "a1", "Alex 1"); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	rec, err := s.Get(ctx, "a1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Status != StatusPending || !rec.CreatedAt.Equal(now) {
		t.Errorf("unexpected pending record %+v", rec)
	}
	if _, err := s.Rank(ctx, "a1"); !errors.Is(err, ErrNotRanked) {
		t.Errorf("expected ErrNotRanked for pending analysis, got %v", err)
	}

	now = now.Add(time.Second)
	if err := s.Complete(ctx, result("a1", "", 17.5)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec, _ = s.Get(ctx, "a1")
	if rec.Status != StatusDone || rec.Result == nil {
		t.Fatalf("expected done record with result, got %+v", rec)
	}
	if rec.Title != "Alex 1" {
		t.Errorf("expected title kept from Put, got %q", rec.Title)
	}
	if !rec.UpdatedAt.After(rec.CreatedAt) {
		t.Errorf("expected UpdatedAt after CreatedAt")
	}

	entry, err := s.Rank(ctx, "a1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Rank != 1 || entry.PmaxKg != 17.5 || entry.VMax != 8.5 || entry.Signal != "good" {
		t.Errorf("unexpected entry %+v", entry)
	}
}

func TestMemoryStore_Fail(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	_ = s.Put(ctx, "b1", "Bea 1")
	cause := fmt.Errorf("window: peak 4.1 m/s: %w", model.ErrNotASprint)
	if err := s.Fail(ctx, "b1", cause); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec, _ := s.Get(ctx, "b1")
	if rec.Status != StatusFailed || rec.Kind != "not_a_sprint" || rec.Error != cause.Error() {
		t.Errorf("unexpected failed record %+v", rec)
	}

	// a failure after a success removes the sprint from the ranking
	_ = s.Complete(ctx, result("c1", "Cleo 1", 15))
	_ = s.Fail(ctx, "c1", model.ErrFitDidNotConverge)
	top, _ := s.TopN(ctx, 10)
	if len(top) != 0 {
		t.Errorf("expected empty ranking, got %+v", top)
	}
	if err := s.Fail(ctx, "", cause); !errors.Is(err, ErrInvalidResult) {
		t.Errorf("expected ErrInvalidResult for empty id, got %v", err)
	}
}

func TestMemoryStore_Ranking(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	for _, r := range []*analysis.Result{
		result("1", "Dan 1", 14.2),
		result("2", "Alex 2", 17.1),
		result("3", "Bea 1", 17.1),
		result("4", "Cleo 3", 19.8),
		result("5", "Eve 1", 11.0),
	} {
		if err := s.Complete(ctx, r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	top, err := s.TopN(ctx, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantIDs := []string{"4", "2", "3", "1"}
	wantRanks := []int{1, 2, 2, 3}
	if len(top) != len(wantIDs) {
		t.Fatalf("expected %d entries, got %d", len(wantIDs), len(top))
	}
	for i := range top {
		if top[i].ID != wantIDs[i] || top[i].Rank != wantRanks[i] {
			t.Errorf("entry %d: expected id %s rank %d, got %+v", i, wantIDs[i], wantRanks[i], top[i])
		}
	}

	entry, _ := s.Rank(ctx, "5")
	if entry.Rank != 4 {
		t.Errorf("expected rank 4, got %d", entry.Rank)
	}

	// a new result for the same id replaces the ranked one
	_ = s.Complete(ctx, result("5", "Eve 1", 25))
	top, _ = s.TopN(ctx, 100)
	if len(top) != 5 || top[0].ID != "5" {
		t.Errorf("expected Eve first after update, got %+v", top)
	}

	if _, err := s.TopN(ctx, 0); !errors.Is(err, ErrInvalidLimit) {
		t.Errorf("expected ErrInvalidLimit, got %v", err)
	}
}

func TestMemoryStore_CountsAndDelete(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	_ = s.Put(ctx, "p", "Pending")
	_ = s.Complete(ctx, result("d", "Done", 12))
	_ = s.Fail(ctx, "f", model.ErrInvalidTrace)

	counts := s.Counts(ctx)
	if counts[StatusPending] != 1 || counts[StatusDone] != 1 || counts[StatusFailed] != 1 {
		t.Errorf("unexpected counts %v", counts)
	}
	if s.Count(ctx) != 3 {
		t.Errorf("expected 3 analyses, got %d", s.Count(ctx))
	}

	if err := s.Delete(ctx, "d"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.Get(ctx, "d"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if top, _ := s.TopN(ctx, 10); len(top) != 0 {
		t.Errorf("expected deleted sprint unranked, got %+v", top)
	}
	if err := s.Delete(ctx, "d"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestMemoryStore_InvalidResult(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	cases := []*analysis.Result{
		nil,
		{ID: "x"},
		{Profile: &pfv.Profile{}},
	}
	for i, c := range cases {
		if err := s.Complete(ctx, c); !errors.Is(err, ErrInvalidResult) {
			t.Errorf("case %d: expected ErrInvalidResult, got %v", i, err)
		}
	}
}

func TestMemoryStore_Concurrency(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	const goroutines = 8
	const perGoroutine = 50
	var wg sync.WaitGroup
	for g := range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perGoroutine {
				id := fmt.Sprintf("%d-%d", g, i)
				_ = s.Put(ctx, id, id)
				_ = s.Complete(ctx, result(id, id, float64(i)))
				_, _ = s.TopN(ctx, 10)
			}
		}()
	}
	wg.Wait()

	if s.Count(ctx) != goroutines*perGoroutine {
		t.Errorf("expected %d analyses, got %d", goroutines*perGoroutine, s.Count(ctx))
	}
	top, _ := s.TopN(ctx, goroutines*perGoroutine)
	for i := 1; i < len(top); i++ {
		if top[i].PmaxKg > top[i-1].PmaxKg {
			t.Fatalf("ranking not sorted at %d", i)
		}
	}
}

func TestMemoryStore_Close(t *testing.T) {
	s := NewMemoryStore(context.Background(), WithMetricsUpdateInterval(time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	if err := s.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
