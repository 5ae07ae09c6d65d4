package notify

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/OsatohanmwenT/expense-tracker-api/internal/metrics"
)

// envelope is the wire payload pushed to clients. Field names are part
// of the client contract and must not change.
type envelope struct {
	Type      string `json:"type"`
	UserID    string `json:"userId"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data"`
}

// Dispatcher serializes events and broadcasts them to the recipient's
// open channels.
type Dispatcher struct {
	registry *Registry
	now      func() time.Time
}

// NewDispatcher creates a dispatcher backed by the given registry.
func NewDispatcher(registry *Registry) *Dispatcher {
	return &Dispatcher{registry: registry, now: time.Now}
}

// Dispatch delivers the event to every open channel of its recipient.
//
// It never returns an error: an offline recipient drops the event, and a
// send failure on one channel is logged without affecting the others.
// The caller's mutation must never be blocked or rolled back by a
// notification problem.
func (d *Dispatcher) Dispatch(event Event) {
	payload, err := json.Marshal(envelope{
		Type:      event.EventType(),
		UserID:    event.Recipient(),
		Timestamp: d.now().Unix(),
		Data:      event.Data(),
	})
	if err != nil {
		slog.Error("Failed to serialize notification", "type", event.EventType(), "error", err)
		metrics.NotificationsDropped.Inc()
		return
	}

	channels := d.registry.ChannelsFor(event.Recipient())
	if len(channels) == 0 {
		slog.Debug("No open channels, dropping notification",
			"type", event.EventType(),
			"user_id", event.Recipient(),
		)
		metrics.NotificationsDropped.Inc()
		return
	}

	for _, ch := range channels {
		if err := ch.Send(payload); err != nil {
			slog.Warn("Notification send failed",
				"type", event.EventType(),
				"user_id", event.Recipient(),
				"error", err,
			)
			metrics.NotificationsDropped.Inc()
			continue
		}
		metrics.NotificationsDelivered.Inc()
	}
}
