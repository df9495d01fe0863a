package api

import "net/http"

// StatsProvider reports service statistics, e.g. cache backend and warm
// queue depth.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// handleStats serves GET /stats.
func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	if s.stats == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{})
		return
	}
	writeJSON(w, http.StatusOK, s.stats.GetStats())
}
