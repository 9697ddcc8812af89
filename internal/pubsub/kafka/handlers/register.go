// Package handlers translates back-office domain events into feed notifications.
package handlers

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"vn.io.arda/notifeed/internal/domain"
	"vn.io.arda/notifeed/internal/pubsub/kafka/registry"
)

// Register is a convenience alias so each domain file calls Register(...)
// instead of registry.Register(...), keeping imports minimal.
func Register(group, eventType string, h registry.EventHandler) {
	registry.Register(group, eventType, h)
}

// decode unmarshals the event payload into v and reports success.
func decode(env registry.Envelope, v any) bool {
	if err := json.Unmarshal(env.Payload, v); err != nil {
		log.Warn().Err(err).Str("event", env.EventType).Str("event_id", env.EventID).Msg("handlers: bad payload")
		return false
	}
	return true
}

func notification(cat domain.Category, title, body string, data map[string]any) *registry.Notification {
	return &registry.Notification{Title: title, Message: body, Type: cat, Data: data}
}
