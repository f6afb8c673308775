package amqp

import (
	"encoding/json"
	"time"

	"laksha/internal/core"
)

// NotificationMessage carries one fired threshold alert to the dispatch
// worker. The ledger row is the source of truth; the message is enough
// for the worker to deliver and log without a database round trip.
type NotificationMessage struct {
	ID      string                `json:"id"`
	UserKey string                `json:"user_key"`
	Kind    core.NotificationKind `json:"kind"`
	Message string                `json:"message"`
	FiredAt time.Time             `json:"fired_at"`
}

// NewNotificationMessage builds a dispatch message from a ledger record.
func NewNotificationMessage(rec core.NotificationRecord) *NotificationMessage {
	return &NotificationMessage{
		ID:      rec.ID,
		UserKey: rec.UserKey,
		Kind:    rec.Kind,
		Message: rec.Message,
		FiredAt: rec.FiredAt,
	}
}

// ToJSON converts the message to JSON bytes.
func (m *NotificationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// NotificationMessageFromJSON parses a message from JSON bytes.
func NotificationMessageFromJSON(data []byte) (*NotificationMessage, error) {
	var msg NotificationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
