package http

import (
	"log/slog"
	"net/http"
	"regexp"
)

// State keys are client-chosen; constrain them so the table cannot be
// polluted with arbitrary blobs of key material.
var stateKeyPattern = regexp.MustCompile(`^[a-zA-Z0-9_.:-]{1,128}$`)

const maxStateValueBytes = 4096

type setStateRequest struct {
	Value string `json:"value"`
}

func (s *Server) handleListState(w http.ResponseWriter, r *http.Request) {
	state, err := s.store.ListState(r.Context(), userKey(r))
	if err != nil {
		slog.ErrorContext(r.Context(), "State list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list state")
		return
	}
	if state == nil {
		state = map[string]string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"state": state})
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if !stateKeyPattern.MatchString(key) {
		writeError(w, http.StatusBadRequest, "invalid state key")
		return
	}

	value, err := s.store.GetState(r.Context(), userKey(r), key)
	if err != nil {
		slog.ErrorContext(r.Context(), "State read failed", "key", key, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read state")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key, "value": value})
}

func (s *Server) handleSetState(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if !stateKeyPattern.MatchString(key) {
		writeError(w, http.StatusBadRequest, "invalid state key")
		return
	}

	var req setStateRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Value) > maxStateValueBytes {
		writeError(w, http.StatusUnprocessableEntity, "state value too large")
		return
	}

	if err := s.store.SetState(r.Context(), userKey(r), key, req.Value); err != nil {
		slog.ErrorContext(r.Context(), "State write failed", "key", key, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to write state")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key, "value": req.Value})
}
