// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/sprof/internal/adapters/repository"
	"github.com/okian/sprof/internal/domain/dedupe"
	"github.com/okian/sprof/internal/domain/model"
	"github.com/okian/sprof/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	dedupe.Deduper

	// Submit registers a pending analysis and queues it.
	Submit(ctx context.Context, job model.Job) error

	// Read operations expose analyses and the ranking.
	Get(ctx context.Context, id string) (repository.Record, error)
	TopN(ctx context.Context, n int) ([]Entry, error)
	Rank(ctx context.Context, id string) (Entry, error)
}

// Entry mirrors the read shape returned by ranking queries.
type Entry = types.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	analysesHandler *AnalysesHandler
	rankingHandler  *RankingHandler
	rankHandler     *RankHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxRankingLimit int) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		analysesHandler: NewAnalysesHandler(deps),
		rankingHandler:  NewRankingHandler(deps, maxRankingLimit),
		rankHandler:     NewRankHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /analyses", MetricsMiddleware(s.analysesHandler.HandlePostAnalysis, "analyses"))
	mux.HandleFunc("GET /analyses/{id}", MetricsMiddleware(s.analysesHandler.HandleGetAnalysis, "analysis"))
	mux.HandleFunc("GET /ranking", MetricsMiddleware(s.rankingHandler.HandleGetRanking, "ranking"))
	mux.HandleFunc("GET /ranking/{id}", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
