// Package repository stores analyses and serves the power ranking.
package repository

import (
	"context"
	"time"

	"github.com/okian/sprof/internal/domain/analysis"
	"github.com/okian/sprof/internal/domain/types"
)

// Status is the lifecycle state of an analysis.
type Status string

// Analysis states.
const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Record is one submitted analysis with its outcome.
type Record struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Status    Status           `json:"status"`
	Kind      string           `json:"error_kind,omitempty"`
	Error     string           `json:"error,omitempty"`
	Result    *analysis.Result `json:"result,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Store provides read/write access to analyses and the ranking.
type Store interface {
	// Put registers a pending analysis. Returns ErrAlreadyExists when id is known.
	Put(ctx context.Context, id, title string) error
	// Complete stores a successful result and ranks it.
	Complete(ctx context.Context, res *analysis.Result) error
	// Fail marks an analysis as failed with the kind of cause.
	Fail(ctx context.Context, id string, cause error) error
	// Delete forgets an analysis, e.g. when it could not be queued.
	Delete(ctx context.Context, id string) error

	// Get returns an analysis. Returns ErrNotFound if id is unknown.
	Get(ctx context.Context, id string) (Record, error)
	// Rank returns the ranking entry of a done analysis.
	Rank(ctx context.Context, id string) (types.Entry, error)
	// TopN returns the top-n analyses ordered by PmaxKg desc, title asc.
	TopN(ctx context.Context, n int) ([]types.Entry, error)

	// Count returns the number of analyses in any state.
	Count(ctx context.Context) int
	// Counts returns the number of analyses per state.
	Counts(ctx context.Context) map[Status]int
}
