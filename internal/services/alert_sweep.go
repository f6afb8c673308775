package services

import (
	"context"
	"log/slog"
	"time"

	"laksha/internal/alerts"
	"laksha/internal/amqp"
)

// UserLister enumerates the users the sweep should evaluate: everyone
// with an active budget.
type UserLister interface {
	ListBudgetUserKeys(ctx context.Context) ([]string, error)
}

// AlertSweep re-runs the threshold evaluator for every budgeted user.
// It backs the periodic worker tick; per-expense triggers cover the
// common case, the sweep catches users who spend elsewhere (imports)
// or whose day boundary passed without activity.
type AlertSweep struct {
	users      UserLister
	evaluator  *alerts.Evaluator
	amqpClient *amqp.Client
}

func NewAlertSweep(users UserLister, evaluator *alerts.Evaluator, amqpClient *amqp.Client) *AlertSweep {
	return &AlertSweep{
		users:      users,
		evaluator:  evaluator,
		amqpClient: amqpClient,
	}
}

// Run evaluates every budgeted user as of the given instant and returns
// the number of notifications fired. A failing user is logged and
// skipped; the sweep continues.
func (s *AlertSweep) Run(ctx context.Context, asOf time.Time) (int, error) {
	userKeys, err := s.users.ListBudgetUserKeys(ctx)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, userKey := range userKeys {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}

		fired, err := s.evaluator.Evaluate(ctx, userKey, asOf)
		if err != nil {
			slog.ErrorContext(ctx, "Sweep evaluation failed",
				"user_key", userKey, "error", err)
			continue
		}
		total += len(fired)

		if s.amqpClient == nil {
			continue
		}
		for _, rec := range fired {
			if err := s.amqpClient.PublishNotification(ctx, amqp.NewNotificationMessage(rec)); err != nil {
				slog.ErrorContext(ctx, "Failed to publish notification",
					"id", rec.ID, "kind", rec.Kind, "error", err)
			}
		}
	}

	return total, nil
}
