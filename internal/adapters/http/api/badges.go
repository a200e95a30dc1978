package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/birdie/internal/domain/badge"
)

// BadgeDependencies defines catalog reads and the reload signal.
type BadgeDependencies interface {
	Badges() []badge.Definition
	Badge(id string) (badge.Definition, error)
	ReloadCatalog(ctx context.Context) (int, error)
}

// BadgesHandler handles catalog requests.
type BadgesHandler struct {
	deps BadgeDependencies
}

// NewBadgesHandler creates a new badges handler.
func NewBadgesHandler(deps BadgeDependencies) *BadgesHandler {
	return &BadgesHandler{deps: deps}
}

type reloadResponse struct {
	Status string `json:"status"`
	Badges int    `json:"badges"`
}

// HandleList handles GET /badges.
func (h *BadgesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	defs := h.deps.Badges()
	if defs == nil {
		defs = []badge.Definition{}
	}
	writeJSON(w, http.StatusOK, defs)
}

// HandleGet handles GET /badges/{id}.
func (h *BadgesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_badge"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/badges/"), "/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	def, err := h.deps.Badge(id)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, def)
}

// HandleReload handles POST /badges/reload. A catalog that fails validation
// is rejected and the current one keeps serving.
func (h *BadgesHandler) HandleReload(w http.ResponseWriter, r *http.Request) {
	const op = "api.reload_badges"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	n, err := h.deps.ReloadCatalog(r.Context())
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, reloadResponse{Status: "reloaded", Badges: n})
}
