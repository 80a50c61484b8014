// Package api declares HTTP contracts and route registration helpers.
package api

import "net/http"

// StatsProvider exposes the monitor's runtime counters: queue depth, live
// session count, worker configuration, and the hysteresis band in effect.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StatsHandler renders operational statistics for the monitor.
type StatsHandler struct {
	source StatsProvider
}

// NewStatsHandler creates a stats handler backed by source.
func NewStatsHandler(source StatsProvider) *StatsHandler {
	return &StatsHandler{source: source}
}

// HandleStats serves GET /stats as a flat JSON object. Figures are computed
// on demand, so responses are marked uncacheable.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, h.source.GetStats())
}
