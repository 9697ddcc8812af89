package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Category is the structured tag a producer attaches to a notification.
type Category string

const (
	CategorySuccess        Category = "SUCCESS"
	CategoryError          Category = "ERROR"
	CategoryWarning        Category = "WARNING"
	CategoryInfo           Category = "INFO"
	CategoryBookingUpdate  Category = "BOOKING_UPDATE"
	CategoryPaymentUpdate  Category = "PAYMENT_UPDATE"
	CategoryDispatchUpdate Category = "DISPATCH_UPDATE"
	CategoryAlert          Category = "ALERT"
	CategoryApproval       Category = "APPROVAL_REQUEST"

	// Driver-addressed outcomes.
	CategoryTripAssigned  Category = "TRIP_ASSIGNED"
	CategoryExpenseStatus Category = "EXPENSE_STATUS"
	CategoryLeaveStatus   Category = "LEAVE_STATUS"

	// Consultant-addressed.
	CategoryDepositPending Category = "DEPOSIT_PENDING"
)

// ParseCategory normalises a producer-supplied type string.
// Unknown values are kept (upper-cased) so the role filter can still reject them.
func ParseCategory(s string) Category {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return Category(strings.ToUpper(strings.ReplaceAll(s, "-", "_")))
}

// Origin records how a notification entered the feed.
type Origin string

const (
	OriginPersisted Origin = "PERSISTED"
	OriginLive      Origin = "LIVE"
	OriginLocal     Origin = "LOCAL"
)

// Scope tells whether a record was addressed to the user or broadcast to a group.
type Scope string

const (
	ScopeUser      Scope = "USER"
	ScopeBroadcast Scope = "BROADCAST"
)

// Notification is one entry of a user's feed.
type Notification struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Category  Category       `json:"category,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Read      bool           `json:"read"`
	Origin    Origin         `json:"origin"`
	Scope     Scope          `json:"scope"`
	Channel   string         `json:"channel,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// Clone returns a copy of n that shares no Payload data with it.
func (n Notification) Clone() Notification {
	if n.Payload != nil {
		n.Payload = clonePayload(n.Payload)
	}
	return n
}

func clonePayload(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return clonePayload(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// Fingerprint is the (timestamp, message) pair two representations of one event share.
type Fingerprint struct {
	Millis  int64
	Message string
}

// Fingerprint returns the cross-origin dedup key of n.
func (n Notification) Fingerprint() Fingerprint {
	return Fingerprint{Millis: n.Timestamp.UnixMilli(), Message: n.Message}
}

// StoredNotification is a record as returned by the Notification Service history endpoint.
type StoredNotification struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
	IsRead    bool      `json:"isRead"`
}

const persistedPrefix = "db-"

// PersistedID tags a backend record id so it never collides with live ids.
func PersistedID(id string) string {
	return persistedPrefix + id
}

// BackendID strips the persisted tag. ok is false for non-persisted identities.
func BackendID(id string) (string, bool) {
	if !strings.HasPrefix(id, persistedPrefix) {
		return "", false
	}
	return strings.TrimPrefix(id, persistedPrefix), true
}

// FromStored converts a history record into a PERSISTED feed entry.
func FromStored(s StoredNotification) Notification {
	return Notification{
		ID:        PersistedID(s.ID),
		Title:     s.Title,
		Message:   s.Message,
		Category:  ParseCategory(s.Type),
		Timestamp: s.CreatedAt,
		Read:      s.IsRead,
		Origin:    OriginPersisted,
		Scope:     ScopeUser,
	}
}

var liveNamespace = uuid.MustParse("6f1c54a2-4a53-4b8e-9a0e-3f3c1d7b2e10")

// FallbackID derives a stable id for a live message that arrived without one.
// Two distinct events with the same message text in the same millisecond collide;
// the store then treats them as one.
func FallbackID(ts time.Time, message string) string {
	key := fmt.Sprintf("%d|%s", ts.UnixMilli(), message)
	return "live-" + uuid.NewSHA1(liveNamespace, []byte(key)).String()
}

// LocalID returns a fresh identity for a locally synthesised notification.
func LocalID() string {
	return "local-" + uuid.NewString()
}
