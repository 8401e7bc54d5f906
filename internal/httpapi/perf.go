package httpapi

import (
	"net/http"

	"github.com/ent0n29/meetingbot/internal/session"
)

func (s *Server) handlePerfLatency(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.metrics.LatencySnapshot())
}

func (s *Server) handlePerfReset(w http.ResponseWriter, _ *http.Request) {
	s.metrics.ResetLatency()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	byStatus := map[session.Status]int{}
	messages := 0
	for _, sess := range s.sessions.All() {
		byStatus[sess.Status]++
		messages += sess.MessageCount
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"active_sessions": s.sessions.ActiveCount(),
		"total_sessions":  s.sessions.TotalCount(),
		"by_status":       byStatus,
		"total_messages":  messages,
	})
}
