package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestID)
	r.Use(s.requestLogging)
	r.Use(s.recovery)
	r.Use(s.cors)
	r.Use(s.bodySizeLimit)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check
		r.Get("/health", s.handleHealth)

		// Macro endpoints
		r.Route("/macros", func(r chi.Router) {
			r.Get("/", s.handleListMacros)
			r.Post("/", s.handleCreateMacro)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetMacro)
				r.Put("/", s.handleUpdateMacro)
				r.Delete("/", s.handleDeleteMacro)
				r.Post("/run", s.handleRunMacro)
				r.Get("/executions", s.handleListExecutions)
			})
		})

		// Playback endpoints
		r.Route("/playback", func(r chi.Router) {
			r.Get("/status", s.handlePlaybackStatus)
			r.Post("/stop", s.handlePlaybackStop)
		})

		// WebSocket
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
