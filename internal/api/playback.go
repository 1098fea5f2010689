package api

import "net/http"

// handlePlaybackStatus reports whether a run is active and its execution ID.
func (s *Server) handlePlaybackStatus(w http.ResponseWriter, _ *http.Request) {
	if s.engine == nil {
		writeJSON(w, http.StatusOK, map[string]any{"running": false})
		return
	}

	running := s.engine.IsRunning()
	resp := map[string]any{"running": running}
	if running {
		resp["execution_id"] = s.engine.CurrentExecution()
	}
	writeJSON(w, http.StatusOK, resp)
}

// handlePlaybackStop requests cancellation of the active run.
//
// Always returns 202: stop is a cancellation request, not a guarantee.
// The worker observes it at its next suspension point; the terminal
// status arrives via WebSocket and the execution record.
func (s *Server) handlePlaybackStop(w http.ResponseWriter, _ *http.Request) {
	if s.engine == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "playback engine not available")
		return
	}

	s.engine.Stop()
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":  "accepted",
		"message": "stop requested",
	})
}
