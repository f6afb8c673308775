package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"laksha/internal/alerts"
	"laksha/internal/core"
)

type categoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
}

type spendingResponse struct {
	Period     string          `json:"period"`
	Date       string          `json:"date,omitempty"`
	Total      decimal.Decimal `json:"total"`
	ByCategory []categoryTotal `json:"by_category"`
}

type dailyLimitResponse struct {
	Date           string          `json:"date"`
	DailyLimit     decimal.Decimal `json:"daily_limit"`
	DaySpent       decimal.Decimal `json:"day_spent"`
	RemainingToday decimal.Decimal `json:"remaining_today"`
	MonthlyBudget  decimal.Decimal `json:"monthly_budget"`
	MonthlySpent   decimal.Decimal `json:"monthly_spent"`
}

type monthSummaryResponse struct {
	Month       string          `json:"month"`
	Total       decimal.Decimal `json:"total"`
	TrackedDays int             `json:"tracked_days"`
	Days        []string        `json:"days"`
}

// handleSpending aggregates spend for period=day|month|all, anchored
// at the optional date query parameter (YYYY-MM-DD, defaults to today).
func (s *Server) handleSpending(w http.ResponseWriter, r *http.Request) {
	key := userKey(r)
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "month"
	}

	anchor := time.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, core.ReferenceZone)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
		anchor = parsed
	}

	// Cache keys carry only as much of the anchor as the period
	// resolves, so one write invalidates every view of its period.
	var start, end time.Time
	var anchorKey string
	switch period {
	case "day":
		start, end = core.DayBounds(anchor)
		anchorKey = core.LocalDate(anchor)
	case "month":
		start, end = core.MonthBounds(anchor)
		anchorKey = core.LocalMonth(anchor)
	case "all":
		start, end = time.Unix(0, 0), time.Now().Add(time.Hour)
	default:
		writeError(w, http.StatusBadRequest, "invalid period, expected day, month or all")
		return
	}

	cacheKey := key + "|" + period + "|" + anchorKey
	if cached, ok := s.spendingCache.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	total, err := s.store.SumAmount(r.Context(), key, start, end)
	if err != nil {
		slog.ErrorContext(r.Context(), "Spending sum failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute spending")
		return
	}
	byCategory, err := s.store.CategoryTotals(r.Context(), key, start, end)
	if err != nil {
		slog.ErrorContext(r.Context(), "Category totals failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute spending")
		return
	}

	resp := spendingResponse{
		Period:     period,
		Total:      total,
		ByCategory: make([]categoryTotal, 0, len(byCategory)),
	}
	if period != "all" {
		resp.Date = core.LocalDate(anchor)
	}
	for _, ct := range byCategory {
		resp.ByCategory = append(resp.ByCategory, categoryTotal{Category: ct.Category, Total: ct.Total})
	}

	s.spendingCache.Set(cacheKey, resp)
	writeJSON(w, http.StatusOK, resp)
}

// handleDailyLimit reports the day's pace against the rolling daily
// allowance derived from the monthly budget. The optional date query
// parameter anchors the day; it defaults to today.
func (s *Server) handleDailyLimit(w http.ResponseWriter, r *http.Request) {
	key := userKey(r)

	now := time.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, core.ReferenceZone)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
		now = parsed.Add(12 * time.Hour)
	}
	localDate := core.LocalDate(now)

	cacheKey := key + "|" + localDate
	if cached, ok := s.dailyLimitCache.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	budget, err := s.store.ActiveBudget(r.Context(), key)
	if err != nil {
		slog.ErrorContext(r.Context(), "Budget read failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read budget")
		return
	}
	if budget == nil {
		writeError(w, http.StatusNotFound, "no budget configured")
		return
	}

	dayStart, dayEnd := core.DayBounds(now)
	daySpent, err := s.store.SumAmount(r.Context(), key, dayStart, dayEnd)
	if err != nil {
		slog.ErrorContext(r.Context(), "Day sum failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute daily limit")
		return
	}

	monthStart, monthEnd := core.MonthBounds(now)
	monthSpent, err := s.store.SumAmount(r.Context(), key, monthStart, monthEnd)
	if err != nil {
		slog.ErrorContext(r.Context(), "Month sum failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute daily limit")
		return
	}

	limit := alerts.DailyLimit(budget.Amount)
	remaining := limit.Sub(daySpent)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	resp := dailyLimitResponse{
		Date:           localDate,
		DailyLimit:     limit,
		DaySpent:       daySpent,
		RemainingToday: remaining,
		MonthlyBudget:  budget.Amount,
		MonthlySpent:   monthSpent,
	}
	s.dailyLimitCache.Set(cacheKey, resp)
	writeJSON(w, http.StatusOK, resp)
}

// handleMonthSummary lists the days of the month that have at least
// one expense, for streak and heatmap views.
func (s *Server) handleMonthSummary(w http.ResponseWriter, r *http.Request) {
	key := userKey(r)

	anchor := time.Now()
	if raw := r.URL.Query().Get("month"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01", raw, core.ReferenceZone)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid month, expected YYYY-MM")
			return
		}
		anchor = parsed
	}

	start, end := core.MonthBounds(anchor)
	days, err := s.store.ExpenseDays(r.Context(), key, core.LocalDate(start), core.LocalDate(end.Add(-time.Second)))
	if err != nil {
		slog.ErrorContext(r.Context(), "Expense days failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute month summary")
		return
	}
	total, err := s.store.SumAmount(r.Context(), key, start, end)
	if err != nil {
		slog.ErrorContext(r.Context(), "Month sum failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute month summary")
		return
	}
	if days == nil {
		days = []string{}
	}

	writeJSON(w, http.StatusOK, monthSummaryResponse{
		Month:       core.LocalMonth(start),
		Total:       total,
		TrackedDays: len(days),
		Days:        days,
	})
}

// invalidateAnalytics clears cached aggregates touched by an expense
// write on the given calendar day.
func (s *Server) invalidateAnalytics(userKey string, date time.Time) {
	localDate := core.LocalDate(date)
	s.dailyLimitCache.Delete(userKey + "|" + localDate)
	s.spendingCache.Delete(userKey + "|day|" + localDate)
	s.spendingCache.Delete(userKey + "|month|" + core.LocalMonth(date))
	s.spendingCache.Delete(userKey + "|all|")
}
