package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/macrodeck-core/internal/macro"
)

// maxQueryParamLen limits path/query parameter length to prevent DoS via
// oversized URL params.
const maxQueryParamLen = 100

// handleListMacros returns all macros ordered by sort order then name.
func (s *Server) handleListMacros(w http.ResponseWriter, r *http.Request) {
	macros, err := s.registry.ListMacros(r.Context())
	if err != nil {
		writeInternalError(w, "failed to list macros")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"macros": macros, "count": len(macros)})
}

// handleGetMacro returns a single macro by ID or slug.
func (s *Server) handleGetMacro(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid macro ID")
		return
	}

	m, err := s.registry.GetMacro(r.Context(), id)
	if errors.Is(err, macro.ErrMacroNotFound) {
		// Fall back to slug lookup so UIs can link by either key.
		m, err = s.registry.GetMacroBySlug(r.Context(), id)
	}
	if err != nil {
		if errors.Is(err, macro.ErrMacroNotFound) {
			writeNotFound(w, "macro not found")
			return
		}
		writeInternalError(w, "failed to get macro")
		return
	}

	writeJSON(w, http.StatusOK, m)
}

// handleCreateMacro creates a new macro.
func (s *Server) handleCreateMacro(w http.ResponseWriter, r *http.Request) {
	var m macro.Macro
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.registry.CreateMacro(r.Context(), &m); err != nil {
		if isValidationError(err) {
			writeBadRequest(w, err.Error())
			return
		}
		if errors.Is(err, macro.ErrMacroExists) {
			writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
			return
		}
		writeInternalError(w, "failed to create macro")
		return
	}

	s.broadcastMacroChange("created", &m)
	writeJSON(w, http.StatusCreated, m)
}

// handleUpdateMacro replaces a macro's definition.
func (s *Server) handleUpdateMacro(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid macro ID")
		return
	}

	// Get existing macro
	existing, err := s.registry.GetMacro(r.Context(), id)
	if err != nil {
		if errors.Is(err, macro.ErrMacroNotFound) {
			writeNotFound(w, "macro not found")
			return
		}
		writeInternalError(w, "failed to get macro")
		return
	}

	// Decode update onto existing macro
	if err := json.NewDecoder(r.Body).Decode(existing); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	existing.ID = id // Ensure ID cannot be changed

	if err := s.registry.UpdateMacro(r.Context(), existing); err != nil {
		if isValidationError(err) {
			writeBadRequest(w, err.Error())
			return
		}
		if errors.Is(err, macro.ErrMacroExists) {
			writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
			return
		}
		writeInternalError(w, "failed to update macro")
		return
	}

	s.broadcastMacroChange("updated", existing)
	writeJSON(w, http.StatusOK, existing)
}

// handleDeleteMacro removes a macro by ID.
func (s *Server) handleDeleteMacro(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid macro ID")
		return
	}

	if err := s.registry.DeleteMacro(r.Context(), id); err != nil {
		if errors.Is(err, macro.ErrMacroNotFound) {
			writeNotFound(w, "macro not found")
			return
		}
		writeInternalError(w, "failed to delete macro")
		return
	}

	s.broadcastMacroChange("deleted", &macro.Macro{ID: id})
	w.WriteHeader(http.StatusNoContent)
}

// runRequest is the request body for POST /macros/{id}/run.
type runRequest struct {
	TriggerType string `json:"trigger_type"`
}

// handleRunMacro starts macro playback and returns the execution ID.
// This is an asynchronous operation — the response is 202 Accepted and
// run progress arrives via WebSocket.
func (s *Server) handleRunMacro(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid macro ID")
		return
	}

	if s.engine == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "playback engine not available")
		return
	}

	// Decode optional run parameters
	var req runRequest
	if r.Body != nil && r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeBadRequest(w, "invalid JSON body")
			return
		}
	}

	triggerType := req.TriggerType
	if triggerType == "" {
		triggerType = "api"
	}

	m, err := s.registry.GetMacro(r.Context(), id)
	if err != nil {
		if errors.Is(err, macro.ErrMacroNotFound) {
			writeNotFound(w, "macro not found")
			return
		}
		writeInternalError(w, "failed to get macro")
		return
	}

	executionID, err := s.engine.Run(m, triggerType)
	if err != nil {
		if errors.Is(err, macro.ErrMacroDisabled) {
			writeError(w, http.StatusConflict, ErrCodeConflict, "macro is disabled")
			return
		}
		// ErrAlreadyRunning: the active run is unaffected
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"execution_id": executionID,
		"status":       "accepted",
		"message":      "playback started, progress will follow via WebSocket",
	})
}

// handleListExecutions returns execution history for a macro.
//
// Query parameters:
//   - limit: maximum records to return (default 10, capped by the repository)
func (s *Server) handleListExecutions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid macro ID")
		return
	}

	// Verify macro exists
	if _, err := s.registry.GetMacro(r.Context(), id); err != nil {
		if errors.Is(err, macro.ErrMacroNotFound) {
			writeNotFound(w, "macro not found")
			return
		}
		writeInternalError(w, "failed to get macro")
		return
	}

	if s.repo == nil {
		writeJSON(w, http.StatusOK, map[string]any{"executions": []macro.Execution{}, "count": 0})
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeBadRequest(w, "invalid limit")
			return
		}
		limit = n
	}

	executions, err := s.repo.ListExecutions(r.Context(), id, limit)
	if err != nil {
		writeInternalError(w, "failed to list executions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"executions": executions, "count": len(executions)})
}

// broadcastMacroChange notifies WebSocket clients of a macro CRUD change.
func (s *Server) broadcastMacroChange(action string, m *macro.Macro) {
	if s.hub == nil {
		return
	}
	s.hub.Broadcast(ChannelMacros, map[string]any{
		"action":   action,
		"macro_id": m.ID,
		"slug":     m.Slug,
		"name":     m.Name,
	})
}

// isValidationError reports whether err is one of the macro validation
// sentinels that should map to a 400 response.
func isValidationError(err error) bool {
	return errors.Is(err, macro.ErrInvalidMacro) ||
		errors.Is(err, macro.ErrInvalidName) ||
		errors.Is(err, macro.ErrInvalidSlug) ||
		errors.Is(err, macro.ErrInvalidStep)
}
