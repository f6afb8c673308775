package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"laksha/internal/core"
)

type notificationResponse struct {
	ID           string    `json:"id"`
	Kind         string    `json:"kind"`
	Message      string    `json:"message"`
	FiredAt      time.Time `json:"fired_at"`
	Acknowledged bool      `json:"acknowledged"`
}

// handleListNotifications returns the unacknowledged feed, newest
// first, capped at the configured feed limit.
func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", s.feedLimit)
	if limit <= 0 || limit > 100 {
		limit = s.feedLimit
	}

	records, err := s.store.ListUnacknowledged(r.Context(), userKey(r), limit)
	if err != nil {
		slog.ErrorContext(r.Context(), "Notification list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}

	resp := make([]notificationResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, notificationResponse{
			ID:           rec.ID,
			Kind:         string(rec.Kind),
			Message:      rec.Message,
			FiredAt:      rec.FiredAt,
			Acknowledged: rec.Acknowledged,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": resp})
}

func (s *Server) handleAcknowledgeNotification(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing notification id")
		return
	}

	err := s.store.Acknowledge(r.Context(), userKey(r), id)
	if errors.Is(err, core.ErrNotFound) {
		writeError(w, http.StatusNotFound, "notification not found")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Notification ack failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to acknowledge notification")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
