// Package worker contains the notification dispatch worker consumed by
// cmd/notify-worker.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"laksha/internal/amqp"
	"laksha/internal/core"
)

// Sender delivers a notification to the user through some transport
// (push, email). Transports live outside this repo; the default sender
// only logs.
type Sender interface {
	Send(ctx context.Context, userKey string, kind core.NotificationKind, message string) error
}

// DeliveryLogger records the outcome of each dispatch attempt.
type DeliveryLogger interface {
	AppendNotificationLog(ctx context.Context, userKey string, kind core.NotificationKind, message, status string, sentAt time.Time) error
}

// DispatchWorker consumes fired-notification messages and hands them to
// the sender, recording every attempt in the delivery log.
type DispatchWorker struct {
	sender Sender
	log    DeliveryLogger
}

func NewDispatchWorker(sender Sender, log DeliveryLogger) *DispatchWorker {
	return &DispatchWorker{sender: sender, log: log}
}

// HandleNotification dispatches one message. Send failures are recorded
// as failed and not returned, so the queue does not redeliver alerts
// whose transport rejected them; the user still sees the feed entry.
func (w *DispatchWorker) HandleNotification(ctx context.Context, msg *amqp.NotificationMessage) error {
	err := w.sender.Send(ctx, msg.UserKey, msg.Kind, msg.Message)
	status := "sent"
	sentAt := time.Now()
	if err != nil {
		slog.ErrorContext(ctx, "Notification send failed",
			"id", msg.ID, "user_key", msg.UserKey, "kind", msg.Kind, "error", err)
		status = "failed"
		sentAt = time.Time{}
	}

	if logErr := w.log.AppendNotificationLog(ctx, msg.UserKey, msg.Kind, msg.Message, status, sentAt); logErr != nil {
		return fmt.Errorf("record delivery log: %w", logErr)
	}

	if err == nil {
		slog.InfoContext(ctx, "Notification dispatched",
			"id", msg.ID, "user_key", msg.UserKey, "kind", msg.Kind)
	}
	return nil
}

// LogSender is the default Sender: it writes the notification to the
// application log instead of an external transport.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, userKey string, kind core.NotificationKind, message string) error {
	slog.InfoContext(ctx, "Notification delivery",
		"user_key", userKey,
		"kind", kind,
		"message", message)
	return nil
}
