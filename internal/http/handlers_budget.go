package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"laksha/internal/core"
)

type saveBudgetRequest struct {
	Amount          decimal.Decimal            `json:"amount"`
	PeriodType      string                     `json:"period_type"`
	CategoryBudgets map[string]decimal.Decimal `json:"category_budgets"`
}

type budgetResponse struct {
	ID              string                     `json:"id"`
	PeriodType      string                     `json:"period_type"`
	Amount          decimal.Decimal            `json:"amount"`
	CategoryBudgets map[string]decimal.Decimal `json:"category_budgets,omitempty"`
	CreatedAt       time.Time                  `json:"created_at"`
	UpdatedAt       time.Time                  `json:"updated_at"`
}

func toBudgetResponse(b core.Budget) budgetResponse {
	return budgetResponse{
		ID:              b.ID,
		PeriodType:      b.PeriodType,
		Amount:          b.Amount,
		CategoryBudgets: b.CategoryBudgets,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	budget, err := s.store.ActiveBudget(r.Context(), userKey(r))
	if err != nil {
		slog.ErrorContext(r.Context(), "Budget read failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read budget")
		return
	}
	if budget == nil {
		writeError(w, http.StatusNotFound, "no budget configured")
		return
	}
	writeJSON(w, http.StatusOK, toBudgetResponse(*budget))
}

// handleSaveBudget upserts the user's single budget: saving when one
// exists replaces it.
func (s *Server) handleSaveBudget(w http.ResponseWriter, r *http.Request) {
	var req saveBudgetRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	periodType := req.PeriodType
	if periodType == "" {
		periodType = core.PeriodMonthly
	}

	budget := core.Budget{
		UserKey:         userKey(r),
		PeriodType:      periodType,
		Amount:          req.Amount,
		CategoryBudgets: req.CategoryBudgets,
	}
	if err := budget.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	saved, err := s.store.SaveBudget(r.Context(), budget)
	if err != nil {
		slog.ErrorContext(r.Context(), "Budget save failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save budget")
		return
	}

	// Thresholds depend on the budget amount; cached analytics are stale.
	s.invalidateAnalytics(saved.UserKey, time.Now())
	writeJSON(w, http.StatusOK, toBudgetResponse(saved))
}
