package server

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/warepick/warepick/internal/apperr"
)

// handleCleanupRun triggers one maintenance pass on demand
func (s *Server) handleCleanupRun(w http.ResponseWriter, r *http.Request) {
	if s.reaper == nil {
		s.writeError(w, apperr.Internal("Cleanup is not configured"))
		return
	}
	released, purged, err := s.reaper.RunOnce(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.log.Info("manual cleanup pass",
		zap.String("by", currentUser(r).Username),
		zap.Int("released", released),
		zap.Int("purged", purged))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"released": released,
		"purged":   purged,
	})
}

func (s *Server) handleCleanupStatus(w http.ResponseWriter, r *http.Request) {
	if s.reaper == nil {
		s.writeError(w, apperr.Internal("Cleanup is not configured"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"status":  s.reaper.GetStatus(),
	})
}
