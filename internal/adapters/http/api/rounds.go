package api

import (
	"context"
	"errors"
	"net/http"

	service "github.com/okian/birdie/internal/app"
	"github.com/okian/birdie/internal/domain/model"
)

// RoundDependencies defines the round submission operations.
type RoundDependencies interface {
	SubmitRound(ctx context.Context, ev model.CompletedRoundEvent) (model.NormalizedRound, error)
	EvaluateRound(ctx context.Context, ev model.CompletedRoundEvent) (model.EarnedBadgesReport, error)
}

// RoundsHandler handles round requests.
type RoundsHandler struct {
	deps RoundDependencies
}

// NewRoundsHandler creates a new rounds handler.
func NewRoundsHandler(deps RoundDependencies) *RoundsHandler {
	return &RoundsHandler{deps: deps}
}

type ackResponse struct {
	Status    string `json:"status"`
	RoundID   string `json:"roundId"`
	Players   int    `json:"players"`
	Duplicate bool   `json:"duplicate"`
}

type evaluateResponse struct {
	RoundID string                   `json:"roundId"`
	Earned  model.EarnedBadgesReport `json:"earned"`
}

// HandleSubmit handles POST /rounds. The round is queued and evaluated
// asynchronously.
func (h *RoundsHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_round"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	ev, err := decodeRound(w, r, op)
	if err != nil {
		writeFailure(w, op, err)
		return
	}

	round, err := h.deps.SubmitRound(r.Context(), ev)
	switch {
	case errors.Is(err, service.ErrDuplicateRound):
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", RoundID: round.RoundID, Duplicate: true})
	case err != nil:
		writeFailure(w, op, err)
	default:
		writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", RoundID: round.RoundID, Players: len(round.PerPlayerResults)})
	}
}

// HandleEvaluate handles POST /rounds/evaluate and returns the badges the
// round earned.
func (h *RoundsHandler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	const op = "api.evaluate_round"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	ev, err := decodeRound(w, r, op)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	report, err := h.deps.EvaluateRound(r.Context(), ev)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, evaluateResponse{RoundID: ev.RoundID, Earned: report})
}
