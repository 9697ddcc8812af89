package registry_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vn.io.arda/notifeed/internal/channel"
	"vn.io.arda/notifeed/internal/domain"
	"vn.io.arda/notifeed/internal/pubsub/kafka/registry"
)

func makeJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}

func TestRegisterAndDispatch(t *testing.T) {
	called := false
	registry.Register("test-channel", "TEST_EVENT", func(env registry.Envelope) *registry.Notification {
		called = true
		return &registry.Notification{Title: "test", Message: "hello", Type: domain.CategoryInfo}
	})

	occurred := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	out, ok := registry.Dispatch("test-channel", makeJSON(map[string]any{
		"eventType":  "TEST_EVENT",
		"eventId":    "evt-1",
		"occurredAt": occurred,
	}))

	require.True(t, called)
	require.True(t, ok)
	n, err := channel.Parse("test-channel", out, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "evt-1", n.ID)
	assert.Equal(t, "hello", n.Message)
	assert.True(t, n.Timestamp.Equal(occurred))
}

func TestRegister_DuplicatePanics(t *testing.T) {
	h := func(registry.Envelope) *registry.Notification { return nil }
	registry.Register("dup-channel", "E", h)
	assert.Panics(t, func() { registry.Register("dup-channel", "E", h) })
}

func TestDispatch_UserChannelsShareHandlers(t *testing.T) {
	registry.Register(registry.UserGroup, "USER_TEST", func(env registry.Envelope) *registry.Notification {
		return &registry.Notification{Message: "for you"}
	})

	_, ok := registry.Dispatch(channel.UserChannel("d-1"), makeJSON(map[string]string{"eventType": "USER_TEST"}))
	assert.True(t, ok)
	_, ok = registry.Dispatch(channel.Bookings, makeJSON(map[string]string{"eventType": "USER_TEST"}))
	assert.False(t, ok)
}

func TestDispatch_UnknownEventIsSkipped(t *testing.T) {
	out, ok := registry.Dispatch("test-channel", makeJSON(map[string]string{"eventType": "UNKNOWN_EVENT_XYZ"}))
	assert.False(t, ok)
	assert.Nil(t, out)
}

func TestDispatch_PlainPayloadPassesThrough(t *testing.T) {
	in := []byte(`{"message":"Booking BK-1 confirmed","type":"BOOKING_UPDATE"}`)
	out, ok := registry.Dispatch(channel.Bookings, in)
	assert.True(t, ok)
	assert.Equal(t, in, out)

	out, ok = registry.Dispatch(channel.Bookings, []byte("not json"))
	assert.True(t, ok)
	assert.Equal(t, []byte("not json"), out)
}

func TestDispatch_HandlerSkip(t *testing.T) {
	registry.Register("test-channel", "SKIPPED", func(registry.Envelope) *registry.Notification { return nil })
	_, ok := registry.Dispatch("test-channel", makeJSON(map[string]string{"eventType": "SKIPPED"}))
	assert.False(t, ok)
}
