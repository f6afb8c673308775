package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"laksha/internal/missions"
)

type missionResponse struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Emoji        string          `json:"emoji"`
	TargetAmount decimal.Decimal `json:"target_amount"`
	Type         string          `json:"type"`
}

type missionStatusResponse struct {
	Mission   missionResponse `json:"mission"`
	Date      string          `json:"date"`
	Completed bool            `json:"completed"`
	Progress  int             `json:"progress"`
	Streak    int             `json:"streak"`
}

func toMissionStatusResponse(st missions.Status) missionStatusResponse {
	return missionStatusResponse{
		Mission: missionResponse{
			ID:           st.Mission.ID,
			Title:        st.Mission.Title,
			Description:  st.Mission.Description,
			Emoji:        st.Mission.Emoji,
			TargetAmount: st.Mission.TargetAmount,
			Type:         string(st.Mission.Type),
		},
		Date:      st.Date,
		Completed: st.Completed,
		Progress:  st.Progress,
		Streak:    st.Streak,
	}
}

func (s *Server) handleTodayMission(w http.ResponseWriter, r *http.Request) {
	status, err := s.missions.Today(r.Context(), userKey(r), time.Now())
	if err != nil {
		slog.ErrorContext(r.Context(), "Mission lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to resolve today's mission")
		return
	}
	writeJSON(w, http.StatusOK, toMissionStatusResponse(status))
}

// handleCompleteMission marks today's mission done. Completing an
// already-completed mission is a no-op and does not grow the streak.
func (s *Server) handleCompleteMission(w http.ResponseWriter, r *http.Request) {
	completed, err := s.missions.Complete(r.Context(), userKey(r), time.Now())
	if err != nil {
		slog.ErrorContext(r.Context(), "Mission complete failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to complete mission")
		return
	}

	status, err := s.missions.Today(r.Context(), userKey(r), time.Now())
	if err != nil {
		slog.ErrorContext(r.Context(), "Mission lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to resolve today's mission")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"newly_completed": completed,
		"status":          toMissionStatusResponse(status),
	})
}
