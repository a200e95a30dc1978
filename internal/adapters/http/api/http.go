// Package api is the thin HTTP boundary of the badge service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/birdie/internal/adapters/repository"
	service "github.com/okian/birdie/internal/app"
	"github.com/okian/birdie/internal/domain/badge"
	"github.com/okian/birdie/internal/domain/model"
)

const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	RoundDependencies
	PlayerDependencies
	BadgeDependencies
	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	roundsHandler *RoundsHandler
	playerHandler *PlayersHandler
	badgesHandler *BadgesHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(deps),
		roundsHandler: NewRoundsHandler(deps),
		playerHandler: NewPlayersHandler(deps),
		badgesHandler: NewBadgesHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/rounds", MetricsMiddleware(s.roundsHandler.HandleSubmit, "rounds"))
	mux.HandleFunc("/rounds/evaluate", MetricsMiddleware(s.roundsHandler.HandleEvaluate, "rounds_evaluate"))
	mux.HandleFunc("/players/", MetricsMiddleware(s.playerHandler.HandlePlayer, "players"))
	mux.HandleFunc("/friendships", MetricsMiddleware(s.playerHandler.HandleAddFriendship, "friendships"))
	mux.HandleFunc("/badges", MetricsMiddleware(s.badgesHandler.HandleList, "badges"))
	mux.HandleFunc("/badges/", MetricsMiddleware(s.badgesHandler.HandleGet, "badge"))
	mux.HandleFunc("/badges/reload", MetricsMiddleware(s.badgesHandler.HandleReload, "badges_reload"))
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

// writeFailure maps domain and service errors onto HTTP statuses.
func writeFailure(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidRound),
		errors.Is(err, service.ErrInvalidPlayer),
		errors.Is(err, repository.ErrInvalidInput),
		errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, service.ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", WrapKind(op, ErrBackpressure, err))
	case errors.Is(err, badge.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
	case errors.Is(err, badge.ErrInvalidDefinition),
		errors.Is(err, badge.ErrDuplicateID),
		errors.Is(err, badge.ErrEmptyCatalog),
		errors.Is(err, badge.ErrLoadCatalog):
		writeError(w, http.StatusUnprocessableEntity, "invalid_catalog", err)
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timeout", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// decode reads a JSON body of at most maxBodyBytes into v.
func decode(w http.ResponseWriter, r *http.Request, op string, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return WrapKind(op, ErrBadRequest, err)
	}
	return nil
}

func decodeRound(w http.ResponseWriter, r *http.Request, op string) (model.CompletedRoundEvent, error) {
	var ev model.CompletedRoundEvent
	if err := decode(w, r, op, &ev); err != nil {
		return ev, err
	}
	return ev, nil
}
