// Package notify pushes fan-out events into the connection registry on
// behalf of the CRUD layer. Delivery is fire-and-forget: no retries, no
// persistence, no acknowledgment.
package notify

import (
	"github.com/rs/zerolog"

	"lovelink/ws"
)

type Notifier struct {
	registry ws.Registry
	logger   zerolog.Logger
}

func New(registry ws.Registry, logger zerolog.Logger) *Notifier {
	return &Notifier{
		registry: registry,
		logger:   logger.With().Str("component", "Notifier").Logger(),
	}
}

// Send broadcasts a typed event to every live connection in the group.
// If nobody is connected the event is silently dropped.
func (n *Notifier) Send(group, eventType string, content map[string]any) {
	n.logger.Debug().Str("group", group).Str("event", eventType).Msg("Sending socket message")
	n.registry.Broadcast(group, ws.Event{Type: eventType, Content: content})
}
