package channel_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vn.io.arda/notifeed/internal/channel"
	"vn.io.arda/notifeed/internal/domain"
)

var received = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func TestParse_FullPayload(t *testing.T) {
	n, err := channel.Parse("user.u-1", []byte(`{
		"id": "evt-1",
		"title": "Expense",
		"message": "Your expense was approved",
		"type": "expense_status",
		"timestamp": "2026-04-30T08:15:00.250Z",
		"data": {"expenseId": 12}
	}`), received)
	require.NoError(t, err)

	assert.Equal(t, "evt-1", n.ID)
	assert.Equal(t, domain.CategoryExpenseStatus, n.Category)
	assert.Equal(t, domain.OriginLive, n.Origin)
	assert.Equal(t, domain.ScopeUser, n.Scope)
	assert.False(t, n.Read)
	assert.Equal(t, int64(1777536900250), n.Timestamp.UnixMilli())
	assert.EqualValues(t, 12, n.Payload["expenseId"])
}

func TestParse_NumericIDAndMillis(t *testing.T) {
	n, err := channel.Parse("payments", []byte(`{"id": 99, "message": "Paid", "timestamp": 1700000000000}`), received)
	require.NoError(t, err)

	assert.Equal(t, "99", n.ID)
	assert.Equal(t, int64(1700000000000), n.Timestamp.UnixMilli())
	assert.Equal(t, domain.ScopeBroadcast, n.Scope)
}

func TestParse_FallbackIDIsStable(t *testing.T) {
	raw := []byte(`{"message": "Vehicle 12 checked in", "timestamp": "2026-04-30T08:15:00Z"}`)

	a, err := channel.Parse("notifications", raw, received)
	require.NoError(t, err)
	b, err := channel.Parse("notifications", raw, received.Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, domain.FallbackID(a.Timestamp, a.Message), a.ID)
}

func TestParse_MissingTimestampUsesReceiveTime(t *testing.T) {
	n, err := channel.Parse("notifications", []byte(`{"message": "hi"}`), received)
	require.NoError(t, err)
	assert.Equal(t, received, n.Timestamp)
}

func TestParse_Malformed(t *testing.T) {
	for name, raw := range map[string]string{
		"invalid json":    `{`,
		"missing message": `{"title": "t"}`,
		"blank message":   `{"message": "   "}`,
		"bad timestamp":   `{"message": "m", "timestamp": "yesterday"}`,
		"timestamp type":  `{"message": "m", "timestamp": true}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := channel.Parse("notifications", []byte(raw), received)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrMalformedMessage))
		})
	}
}
