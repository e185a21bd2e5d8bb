package api

import (
	"context"
	"net/http"
	"strconv"
)

const defaultRankingLimit = 10

// RankingDependencies defines the interface for ranking operations.
type RankingDependencies interface {
	TopN(ctx context.Context, n int) ([]Entry, error)
}

// RankingHandler handles ranking requests.
type RankingHandler struct {
	deps     RankingDependencies
	maxLimit int
}

// NewRankingHandler creates a new ranking handler.
func NewRankingHandler(deps RankingDependencies, maxLimit int) *RankingHandler {
	if maxLimit < 1 {
		maxLimit = defaultRankingLimit
	}
	return &RankingHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleGetRanking handles GET /ranking?limit=N requests. limit defaults to
// 10 and may not exceed the configured maximum.
func (h *RankingHandler) HandleGetRanking(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_ranking"
	n := min(defaultRankingLimit, h.maxLimit)
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		var err error
		n, err = strconv.Atoi(limitStr)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
	}
	if n > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
		return
	}
	entries, err := h.deps.TopN(r.Context(), n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
