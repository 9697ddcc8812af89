package channel

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"vn.io.arda/notifeed/internal/domain"
)

// inbound is the wire shape of a pushed notification.
type inbound struct {
	ID        json.RawMessage `json:"id"`
	Title     string          `json:"title"`
	Message   string          `json:"message"`
	Type      string          `json:"type"`
	Timestamp json.RawMessage `json:"timestamp"`
	Data      map[string]any  `json:"data"`
}

// Parse turns a raw message received on channel into a LIVE, unread record.
// now is used when the producer sent no timestamp.
func Parse(channel string, data []byte, now time.Time) (domain.Notification, error) {
	var in inbound
	if err := json.Unmarshal(data, &in); err != nil {
		return domain.Notification{}, fmt.Errorf("%w: %v", domain.ErrMalformedMessage, err)
	}
	if strings.TrimSpace(in.Message) == "" {
		return domain.Notification{}, fmt.Errorf("%w: missing message", domain.ErrMalformedMessage)
	}

	ts, err := parseTimestamp(in.Timestamp, now)
	if err != nil {
		return domain.Notification{}, fmt.Errorf("%w: %v", domain.ErrMalformedMessage, err)
	}

	id := parseID(in.ID)
	if id == "" {
		id = domain.FallbackID(ts, in.Message)
	}

	return domain.Notification{
		ID:        id,
		Title:     in.Title,
		Message:   in.Message,
		Category:  domain.ParseCategory(in.Type),
		Timestamp: ts,
		Read:      false,
		Origin:    domain.OriginLive,
		Scope:     ScopeOf(channel),
		Channel:   channel,
		Payload:   in.Data,
	}, nil
}

// parseID accepts string or numeric ids.
func parseID(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var num json.Number
	if err := json.Unmarshal(raw, &num); err == nil {
		return num.String()
	}
	return ""
}

// parseTimestamp accepts RFC3339 text or unix milliseconds.
func parseTimestamp(raw json.RawMessage, now time.Time) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return now, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.UnixMilli(ms).UTC(), nil
		}
		ts, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("timestamp %q: %w", s, err)
		}
		return ts, nil
	}

	var ms int64
	if err := json.Unmarshal(raw, &ms); err != nil {
		return time.Time{}, fmt.Errorf("timestamp: %w", err)
	}
	return time.UnixMilli(ms).UTC(), nil
}
