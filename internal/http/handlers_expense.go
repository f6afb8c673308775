package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"laksha/internal/core"
)

type createExpenseRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Method      string          `json:"method"`
	Date        *time.Time      `json:"date"`
}

type expenseResponse struct {
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description,omitempty"`
	Method      string          `json:"method"`
	Date        time.Time       `json:"date"`
	CreatedAt   time.Time       `json:"created_at"`
}

func toExpenseResponse(e core.Expense) expenseResponse {
	return expenseResponse{
		ID:          e.ID,
		Amount:      e.Amount,
		Category:    e.Category,
		Description: e.Description,
		Method:      string(e.Method),
		Date:        e.Date,
		CreatedAt:   e.CreatedAt,
	}
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req createExpenseRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	date := time.Now()
	if req.Date != nil {
		date = *req.Date
	}
	method := core.ExpenseMethod(req.Method)
	if req.Method == "" {
		method = core.MethodManual
	}

	expense := core.Expense{
		UserKey:     userKey(r),
		Amount:      req.Amount,
		Category:    sanitizeInput(req.Category),
		Description: sanitizeInput(req.Description),
		Method:      method,
		Date:        date,
	}
	if err := expense.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	saved, err := s.expenses.CreateExpense(r.Context(), expense)
	if err != nil {
		slog.ErrorContext(r.Context(), "Expense create failed",
			"user_key", expense.UserKey, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save expense")
		return
	}

	s.invalidateAnalytics(saved.UserKey, saved.Date)
	writeJSON(w, http.StatusCreated, toExpenseResponse(saved))
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	category := sanitizeInput(r.URL.Query().Get("category"))

	expenses, err := s.store.ListExpenses(r.Context(), userKey(r), limit, category)
	if err != nil {
		slog.ErrorContext(r.Context(), "Expense list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list expenses")
		return
	}

	out := make([]expenseResponse, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, toExpenseResponse(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{"expenses": out})
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	// Read the expense first so backdated deletes invalidate the
	// cached aggregates of the day they belong to, not today's.
	expense, err := s.store.GetExpense(r.Context(), userKey(r), id)
	if errors.Is(err, core.ErrNotFound) {
		writeError(w, http.StatusNotFound, "expense not found")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Expense read failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete expense")
		return
	}

	err = s.expenses.DeleteExpense(r.Context(), userKey(r), id)
	if errors.Is(err, core.ErrNotFound) {
		writeError(w, http.StatusNotFound, "expense not found")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Expense delete failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete expense")
		return
	}

	s.invalidateAnalytics(userKey(r), expense.Date)
	writeJSON(w, http.StatusNoContent, nil)
}
