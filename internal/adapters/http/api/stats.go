package api

import (
	"fmt"
	"net/http"
)

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats() map[string]any
}

// StatsHandler handles stats requests.
type StatsHandler struct {
	statsProvider StatsProvider
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(statsProvider StatsProvider) *StatsHandler {
	return &StatsHandler{statsProvider: statsProvider}
}

// HandleStats handles GET /stats and GET /stats?key=<name>, which returns
// a single entry such as the engine counters.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	stats := h.statsProvider.GetStats()
	key := r.URL.Query().Get("key")
	if key == "" {
		writeJSON(w, http.StatusOK, stats)
		return
	}
	v, ok := stats[key]
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", fmt.Errorf("unknown stats key %q", key))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{key: v})
}
