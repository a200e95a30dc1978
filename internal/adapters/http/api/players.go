package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/birdie/internal/domain/model"
)

// PlayerDependencies defines the player read models and social graph writes.
type PlayerDependencies interface {
	PlayerAwards(ctx context.Context, playerID string) ([]model.AwardRecord, error)
	PlayerProgress(ctx context.Context, playerID string) ([]model.BadgeProgress, error)
	AddFriendship(ctx context.Context, a, b string) error
}

// PlayersHandler handles player requests.
type PlayersHandler struct {
	deps PlayerDependencies
}

// NewPlayersHandler creates a new players handler.
func NewPlayersHandler(deps PlayerDependencies) *PlayersHandler {
	return &PlayersHandler{deps: deps}
}

type awardsResponse struct {
	PlayerID string              `json:"playerId"`
	Awards   []model.AwardRecord `json:"awards"`
}

type progressResponse struct {
	PlayerID string                `json:"playerId"`
	Progress []model.BadgeProgress `json:"progress"`
}

type friendshipRequest struct {
	PlayerID string `json:"playerId"`
	FriendID string `json:"friendId"`
}

// HandlePlayer handles GET /players/{id}/badges and GET /players/{id}/progress.
func (h *PlayersHandler) HandlePlayer(w http.ResponseWriter, r *http.Request) {
	const op = "api.player"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id, view, ok := strings.Cut(strings.TrimPrefix(r.URL.Path, "/players/"), "/")
	if !ok || id == "" || strings.Contains(view, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	switch view {
	case "badges":
		awards, err := h.deps.PlayerAwards(r.Context(), id)
		if err != nil {
			writeFailure(w, op, err)
			return
		}
		if awards == nil {
			awards = []model.AwardRecord{}
		}
		writeJSON(w, http.StatusOK, awardsResponse{PlayerID: id, Awards: awards})
	case "progress":
		progress, err := h.deps.PlayerProgress(r.Context(), id)
		if err != nil {
			writeFailure(w, op, err)
			return
		}
		if progress == nil {
			progress = []model.BadgeProgress{}
		}
		writeJSON(w, http.StatusOK, progressResponse{PlayerID: id, Progress: progress})
	default:
		writeError(w, http.StatusNotFound, "not_found", NewKind(op, ErrNotFound))
	}
}

// HandleAddFriendship handles POST /friendships.
func (h *PlayersHandler) HandleAddFriendship(w http.ResponseWriter, r *http.Request) {
	const op = "api.add_friendship"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req friendshipRequest
	if err := decode(w, r, op, &req); err != nil {
		writeFailure(w, op, err)
		return
	}
	if err := h.deps.AddFriendship(r.Context(), req.PlayerID, req.FriendID); err != nil {
		writeFailure(w, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
