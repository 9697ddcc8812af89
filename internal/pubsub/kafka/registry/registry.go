// Package registry translates back-office domain events read from Kafka into
// feed notification payloads. Each domain handler registers itself via
// init(), so the Kafka driver does not change when a new event is added.
package registry

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"vn.io.arda/notifeed/internal/channel"
	"vn.io.arda/notifeed/internal/domain"
)

// UserGroup is the registration key shared by every per-user channel.
const UserGroup = "user"

// Envelope is the common shape of back-office events.
type Envelope struct {
	EventType  string          `json:"eventType"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload"`
}

// Notification is the payload handed to the channel parser.
type Notification struct {
	ID        string          `json:"id,omitempty"`
	Title     string          `json:"title"`
	Message   string          `json:"message"`
	Type      domain.Category `json:"type"`
	Timestamp *time.Time      `json:"timestamp,omitempty"`
	Data      map[string]any  `json:"data,omitempty"`
}

// EventHandler maps an event envelope to a notification.
// Returning nil means "skip this event".
type EventHandler func(env Envelope) *Notification

var handlers = map[string]EventHandler{}

// Register binds a handler to a {channel}:{eventType} key. Per-user channels
// register under UserGroup.
// Should be called from each domain handler's init() function.
// Panics on duplicate registration to catch config mistakes early.
func Register(group, eventType string, h EventHandler) {
	key := group + ":" + eventType
	if _, exists := handlers[key]; exists {
		panic("registry: duplicate handler registered for key: " + key)
	}
	handlers[key] = h
}

// Dispatch returns the notification payload for a record read from ch.
//
// Records without an eventType are already notification payloads and pass
// through untouched, as do records that are not JSON objects so the parser
// can reject them. ok is false for events nobody translates.
func Dispatch(ch string, data []byte) (out []byte, ok bool) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil || env.EventType == "" {
		return data, true
	}

	group := ch
	if channel.IsUserChannel(ch) {
		group = UserGroup
	}
	key := group + ":" + env.EventType
	h, found := handlers[key]
	if !found {
		log.Debug().Str("key", key).Msg("registry: no handler registered")
		return nil, false
	}

	n := h(env)
	if n == nil {
		log.Debug().Str("key", key).Str("event_id", env.EventID).Msg("registry: handler skipped event")
		return nil, false
	}
	if n.ID == "" {
		n.ID = env.EventID
	}
	if n.Timestamp == nil && !env.OccurredAt.IsZero() {
		ts := env.OccurredAt
		n.Timestamp = &ts
	}

	b, err := json.Marshal(n)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("registry: encode notification")
		return nil, false
	}
	return b, true
}
