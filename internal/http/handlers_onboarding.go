package http

import (
	"log/slog"
	"net/http"
	"time"

	"laksha/internal/core"
)

type onboardingRequest struct {
	EmploymentStatus string   `json:"employment_status"`
	IncomeRange      string   `json:"income_range"`
	TopCategories    []string `json:"top_categories"`
	SavingGoal       string   `json:"saving_goal"`
	MoneyPersonality string   `json:"money_personality"`
	AgeGroup         string   `json:"age_group"`
}

type onboardingResponse struct {
	EmploymentStatus string    `json:"employment_status"`
	IncomeRange      string    `json:"income_range"`
	TopCategories    []string  `json:"top_categories"`
	SavingGoal       string    `json:"saving_goal"`
	MoneyPersonality string    `json:"money_personality"`
	AgeGroup         string    `json:"age_group"`
	Completed        bool      `json:"completed"`
	CompletedAt      time.Time `json:"completed_at"`
}

func toOnboardingResponse(p core.OnboardingProfile) onboardingResponse {
	if p.TopCategories == nil {
		p.TopCategories = []string{}
	}
	return onboardingResponse{
		EmploymentStatus: p.EmploymentStatus,
		IncomeRange:      p.IncomeRange,
		TopCategories:    p.TopCategories,
		SavingGoal:       p.SavingGoal,
		MoneyPersonality: p.MoneyPersonality,
		AgeGroup:         p.AgeGroup,
		Completed:        p.Completed,
		CompletedAt:      p.CompletedAt,
	}
}

func (s *Server) handleGetOnboarding(w http.ResponseWriter, r *http.Request) {
	profile, err := s.store.GetOnboarding(r.Context(), userKey(r))
	if err != nil {
		slog.ErrorContext(r.Context(), "Onboarding read failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read onboarding profile")
		return
	}
	if profile == nil {
		writeJSON(w, http.StatusOK, map[string]any{"completed": false})
		return
	}
	writeJSON(w, http.StatusOK, toOnboardingResponse(*profile))
}

// handleSaveOnboarding stores the answers and marks onboarding done.
// Re-submitting replaces the previous answers.
func (s *Server) handleSaveOnboarding(w http.ResponseWriter, r *http.Request) {
	var req onboardingRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	categories := make([]string, 0, len(req.TopCategories))
	for _, c := range req.TopCategories {
		if clean := sanitizeInput(c); clean != "" {
			categories = append(categories, clean)
		}
	}

	profile := core.OnboardingProfile{
		UserKey:          userKey(r),
		EmploymentStatus: sanitizeInput(req.EmploymentStatus),
		IncomeRange:      sanitizeInput(req.IncomeRange),
		TopCategories:    categories,
		SavingGoal:       sanitizeInput(req.SavingGoal),
		MoneyPersonality: sanitizeInput(req.MoneyPersonality),
		AgeGroup:         sanitizeInput(req.AgeGroup),
		Completed:        true,
	}

	saved, err := s.store.SaveOnboarding(r.Context(), profile)
	if err != nil {
		slog.ErrorContext(r.Context(), "Onboarding save failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save onboarding profile")
		return
	}
	writeJSON(w, http.StatusOK, toOnboardingResponse(saved))
}
