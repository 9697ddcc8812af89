package application

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vn.io.arda/notifeed/internal/domain"
	"vn.io.arda/notifeed/internal/metrics"
	"vn.io.arda/notifeed/internal/pubsub/memory"
)

func newSessions(t *testing.T, ttl, cleanup time.Duration) (*Sessions, *memory.Broker, *metrics.Metrics) {
	t.Helper()
	b := memory.New()
	m := metrics.NewNop()
	r := NewSessions(func() *Feed {
		return NewFeed(Deps{Dialer: b, Metrics: m}, Options{ReconnectDelay: 10 * time.Millisecond})
	}, ttl, cleanup, m)
	t.Cleanup(r.Close)
	return r, b, m
}

func TestSessions_GetReusesFeed(t *testing.T) {
	r, b, m := newSessions(t, time.Minute, 0)

	f1, err := r.Get(driver)
	require.NoError(t, err)
	f2, err := r.Get(driver)
	require.NoError(t, err)

	assert.Same(t, f1, f2)
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Sessions))
	require.Eventually(t, func() bool { return b.Connections() == 1 }, waitFor, tick)
}

func TestSessions_RoleChangeRescopesFeed(t *testing.T) {
	r, _, _ := newSessions(t, time.Minute, 0)

	f, err := r.Get(coordinator)
	require.NoError(t, err)
	admin := coordinator
	admin.Role = domain.RoleAdmin
	_, err = r.Get(admin)
	require.NoError(t, err)

	s, ok := f.Current()
	require.True(t, ok)
	assert.Equal(t, domain.RoleAdmin, s.Role)
}

func TestSessions_InvalidSession(t *testing.T) {
	r, _, _ := newSessions(t, time.Minute, 0)
	_, err := r.Get(domain.Session{})
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestSessions_RemoveClosesFeed(t *testing.T) {
	r, b, m := newSessions(t, time.Minute, 0)
	f, err := r.Get(driver)
	require.NoError(t, err)
	require.Eventually(t, f.Connected, waitFor, tick)

	r.Remove(driver.UserID)

	_, found := r.Lookup(driver.UserID)
	assert.False(t, found)
	assert.Equal(t, 0, b.Connections())
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Sessions))
}

func TestSessions_IdleFeedIsEvicted(t *testing.T) {
	r, b, _ := newSessions(t, 30*time.Millisecond, 10*time.Millisecond)
	f, err := r.Get(driver)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, active := f.Current()
		return !active && b.Connections() == 0
	}, waitFor, tick)
	assert.Equal(t, 0, r.Len())
}
