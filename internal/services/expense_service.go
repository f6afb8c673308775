// Package services provides business logic and orchestration on top of
// storage: expense creation with its threshold side effects, and the
// periodic alert sweep.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"laksha/internal/alerts"
	"laksha/internal/amqp"
	"laksha/internal/core"
	"laksha/internal/storage"
)

// ExpenseService orchestrates expense writes with the threshold
// evaluator and notification publishing.
type ExpenseService struct {
	store      *storage.Repository
	evaluator  *alerts.Evaluator
	amqpClient *amqp.Client
}

func NewExpenseService(store *storage.Repository, evaluator *alerts.Evaluator, amqpClient *amqp.Client) *ExpenseService {
	return &ExpenseService{
		store:      store,
		evaluator:  evaluator,
		amqpClient: amqpClient,
	}
}

// CreateExpense saves the expense, then runs the threshold evaluator as
// a best-effort side effect. Evaluation or publish failures never fail
// the create; the expense is already persisted.
func (s *ExpenseService) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	saved, err := s.store.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", saved.ID,
		"user_key", saved.UserKey,
		"category", saved.Category,
		"amount", saved.Amount.String())

	fired, err := s.evaluator.Evaluate(ctx, saved.UserKey, saved.Date)
	if err != nil {
		slog.ErrorContext(ctx, "Threshold evaluation failed after expense create",
			"user_key", saved.UserKey, "error", err)
		return saved, nil
	}
	s.publishFired(ctx, fired)

	return saved, nil
}

// DeleteExpense removes an expense. Fired notifications are never
// retracted when spend drops back below a threshold.
func (s *ExpenseService) DeleteExpense(ctx context.Context, userKey, id string) error {
	if err := s.store.DeleteExpense(ctx, userKey, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	slog.InfoContext(ctx, "Expense deleted", "id", id, "user_key", userKey)
	return nil
}

func (s *ExpenseService) publishFired(ctx context.Context, fired []core.NotificationRecord) {
	if s.amqpClient == nil || len(fired) == 0 {
		return
	}
	for _, rec := range fired {
		if err := s.amqpClient.PublishNotification(ctx, amqp.NewNotificationMessage(rec)); err != nil {
			slog.ErrorContext(ctx, "Failed to publish notification",
				"id", rec.ID, "kind", rec.Kind, "error", err)
			// The ledger row exists; the feed still shows the alert.
		}
	}
}
