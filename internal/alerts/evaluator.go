// Package alerts implements the budget threshold evaluator: it compares
// a user's month-to-date and day spend against their budget and records
// at most one notification per threshold per period.
package alerts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"laksha/internal/core"
)

// dailyLimitDivisor is fixed regardless of actual month length. Upstream
// product decision, kept as-is.
const dailyLimitDivisor = 30

var hundred = decimal.NewFromInt(100)

// monthThresholds are checked in ascending order; each fires once per
// calendar month.
var monthThresholds = []struct {
	percent decimal.Decimal
	kind    core.NotificationKind
}{
	{decimal.NewFromInt(50), core.KindBudget50},
	{decimal.NewFromInt(80), core.KindBudget80},
	{decimal.NewFromInt(100), core.KindBudget100},
}

// ExpenseSummer sums expense amounts for a user in [start, end).
type ExpenseSummer interface {
	SumAmount(ctx context.Context, userKey string, start, end time.Time) (decimal.Decimal, error)
}

// BudgetSource resolves the user's active budget; (nil, nil) when none is set.
type BudgetSource interface {
	ActiveBudget(ctx context.Context, userKey string) (*core.Budget, error)
}

// NotificationLedger stores fired notifications and answers period
// deduplication queries. InsertNotification may return
// core.ErrDuplicateNotification when a concurrent invocation won the race.
type NotificationLedger interface {
	FindFired(ctx context.Context, userKey string, kind core.NotificationKind, periodStart time.Time) (*core.NotificationRecord, error)
	InsertNotification(ctx context.Context, rec core.NotificationRecord) (core.NotificationRecord, error)
}

// Evaluator computes spend-vs-budget thresholds for one user at a time.
// It is idempotent within a period and never retracts a fired alert.
type Evaluator struct {
	expenses ExpenseSummer
	budgets  BudgetSource
	ledger   NotificationLedger
}

func NewEvaluator(expenses ExpenseSummer, budgets BudgetSource, ledger NotificationLedger) *Evaluator {
	return &Evaluator{
		expenses: expenses,
		budgets:  budgets,
		ledger:   ledger,
	}
}

// Evaluate runs the threshold checks for userKey as of the given instant
// and returns the notifications that were newly recorded. With no active
// budget it is a no-op. Store failures propagate; callers treat the whole
// call as a best-effort side effect.
func (e *Evaluator) Evaluate(ctx context.Context, userKey string, asOf time.Time) ([]core.NotificationRecord, error) {
	budget, err := e.budgets.ActiveBudget(ctx, userKey)
	if err != nil {
		return nil, fmt.Errorf("resolve active budget: %w", err)
	}
	if budget == nil {
		return nil, nil
	}

	monthStart, monthEnd := core.MonthBounds(asOf)
	dayStart, dayEnd := core.DayBounds(asOf)

	monthSpent, err := e.expenses.SumAmount(ctx, userKey, monthStart, monthEnd)
	if err != nil {
		return nil, fmt.Errorf("sum month spend: %w", err)
	}
	daySpent, err := e.expenses.SumAmount(ctx, userKey, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("sum day spend: %w", err)
	}

	var fired []core.NotificationRecord

	for _, th := range monthThresholds {
		// monthSpent/amount*100 >= percent, cross-multiplied so the
		// comparison is exact at the boundary.
		if monthSpent.Mul(hundred).Cmp(budget.Amount.Mul(th.percent)) < 0 {
			continue
		}
		rec, err := e.fire(ctx, userKey, budget, th.kind, monthStart, asOf,
			monthMessage(th.kind, monthSpent, budget.Amount))
		if err != nil {
			return fired, err
		}
		if rec != nil {
			fired = append(fired, *rec)
		}
	}

	dailyLimit := budget.Amount.Div(decimal.NewFromInt(dailyLimitDivisor))
	if daySpent.Cmp(dailyLimit) > 0 && dailyLimit.IsPositive() {
		rec, err := e.fire(ctx, userKey, budget, core.KindDailyLimit, dayStart, asOf,
			dailyLimitMessage(daySpent, dailyLimit))
		if err != nil {
			return fired, err
		}
		if rec != nil {
			fired = append(fired, *rec)
		}
	}

	return fired, nil
}

// fire inserts a notification unless one already exists for the period.
// Returns nil without error when the alert was already fired.
func (e *Evaluator) fire(ctx context.Context, userKey string, budget *core.Budget, kind core.NotificationKind, periodStart, asOf time.Time, message string) (*core.NotificationRecord, error) {
	existing, err := e.ledger.FindFired(ctx, userKey, kind, periodStart)
	if err != nil {
		return nil, fmt.Errorf("find fired %s: %w", kind, err)
	}
	if existing != nil {
		return nil, nil
	}

	rec := core.NotificationRecord{
		ID:       uuid.New().String(),
		UserKey:  userKey,
		BudgetID: budget.ID,
		Kind:     kind,
		FiredAt:  asOf,
		Message:  message,
	}
	inserted, err := e.ledger.InsertNotification(ctx, rec)
	if err != nil {
		// A concurrent invocation beat us to the insert; the unique
		// index makes this a suppressed duplicate, not a failure.
		if errors.Is(err, core.ErrDuplicateNotification) {
			slog.DebugContext(ctx, "Duplicate notification suppressed",
				"user_key", userKey, "kind", kind)
			return nil, nil
		}
		return nil, fmt.Errorf("insert %s notification: %w", kind, err)
	}

	slog.InfoContext(ctx, "Threshold notification fired",
		"user_key", userKey,
		"kind", kind,
		"budget_id", budget.ID)
	return &inserted, nil
}

// DailyLimit returns the budget's daily limit (amount divided by the
// fixed 30-day divisor). Shared with the analytics endpoint.
func DailyLimit(amount decimal.Decimal) decimal.Decimal {
	return amount.Div(decimal.NewFromInt(dailyLimitDivisor))
}
