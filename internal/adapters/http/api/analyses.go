package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/okian/sprof/internal/adapters/mq/queue"
	"github.com/okian/sprof/internal/adapters/repository"
	"github.com/okian/sprof/internal/domain/dedupe"
	"github.com/okian/sprof/internal/domain/model"
	"github.com/okian/sprof/pkg/metrics"
)

const maxRequestBytes = 8 << 20

// AnalysisDependencies defines the interface for analysis submission and lookup.
type AnalysisDependencies interface {
	dedupe.Deduper
	Submit(ctx context.Context, job model.Job) error
	Get(ctx context.Context, id string) (repository.Record, error)
}

// AnalysesHandler handles analysis requests.
type AnalysesHandler struct {
	deps AnalysisDependencies
}

// NewAnalysesHandler creates a new analyses handler.
func NewAnalysesHandler(deps AnalysisDependencies) *AnalysesHandler {
	return &AnalysesHandler{deps: deps}
}

// analysisRequest is the body of POST /analyses. RequestID, when set, is the
// analysis id and makes the call idempotent.
type analysisRequest struct {
	RequestID         string           `json:"request_id"`
	Title             string           `json:"title"`
	Trace             model.Trace      `json:"trace"`
	Athlete           model.Athlete    `json:"athlete"`
	Conditions        model.Conditions `json:"conditions"`
	EndOfAcceleration float64          `json:"end_of_acceleration"`
}

func (a analysisRequest) validate() error {
	if len(a.RequestID) > 128 {
		return errors.New("request_id longer than 128 characters")
	}
	if a.Athlete.Mass < 0 || a.Athlete.Stature < 0 {
		return errors.New("athlete mass and stature must not be negative")
	}
	if a.Conditions.Pressure < 0 {
		return errors.New("pressure must not be negative")
	}
	if a.EndOfAcceleration < 0 {
		return errors.New("end_of_acceleration must not be negative")
	}
	return a.Trace.Validate()
}

type ackResponse struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// HandlePostAnalysis handles POST /analyses requests.
func (h *AnalysesHandler) HandlePostAnalysis(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_analysis"
	var req analysisRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		code := "bad_request"
		if errors.Is(err, model.ErrInvalidTrace) {
			code = model.Kind(err)
		}
		writeError(w, http.StatusBadRequest, code, WrapKind(op, ErrBadRequest, err))
		return
	}

	id := strings.TrimSpace(req.RequestID)
	if id == "" {
		id = uuid.NewString()
	}

	// Idempotency check - mark as seen first
	if h.deps.SeenAndRecord(r.Context(), id) {
		_ = metrics.RecordAnalysis(metrics.OutcomeDuplicate, model.Kind(nil))
		writeJSON(w, http.StatusOK, ackResponse{ID: id, Status: "duplicate", Duplicate: true})
		return
	}

	err := h.deps.Submit(r.Context(), model.Job{
		ID:                id,
		Title:             req.Title,
		Trace:             req.Trace,
		Athlete:           req.Athlete,
		Conditions:        req.Conditions,
		EndOfAcceleration: req.EndOfAcceleration,
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, ackResponse{ID: id, Status: "accepted"})
	case errors.Is(err, repository.ErrAlreadyExists):
		// evicted from the deduper but still stored
		_ = metrics.RecordAnalysis(metrics.OutcomeDuplicate, model.Kind(nil))
		writeJSON(w, http.StatusOK, ackResponse{ID: id, Status: "duplicate", Duplicate: true})
	case errors.Is(err, queue.ErrQueueFull):
		// Rollback the "seen" status since enqueue failed
		h.deps.Unrecord(r.Context(), id)
		writeError(w, http.StatusTooManyRequests, "backpressure", WrapKind(op, ErrBackpressure, err))
	case errors.Is(err, queue.ErrQueueClosed):
		h.deps.Unrecord(r.Context(), id)
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
	default:
		h.deps.Unrecord(r.Context(), id)
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}

// HandleGetAnalysis handles GET /analyses/{id} requests.
func (h *AnalysesHandler) HandleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_analysis"
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	rec, err := h.deps.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
