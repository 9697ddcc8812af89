package tracker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vn.io.arda/notifeed/internal/domain"
	"vn.io.arda/notifeed/internal/store"
	"vn.io.arda/notifeed/internal/tracker"
)

type remote struct {
	mu      sync.Mutex
	deleted []string
	err     error
}

func (r *remote) History(context.Context, string, int, int) ([]domain.StoredNotification, error) {
	return nil, nil
}

func (r *remote) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, id)
	return r.err
}

func seed(s *store.Store) {
	now := time.Now()
	s.Insert(domain.Notification{ID: "db-10", Message: "persisted", Timestamp: now, Origin: domain.OriginPersisted})
	s.Insert(domain.Notification{ID: "live-1", Message: "live", Timestamp: now.Add(time.Second), Origin: domain.OriginLive})
	s.Insert(domain.Notification{ID: "local-1", Message: "local", Timestamp: now.Add(2 * time.Second), Origin: domain.OriginLocal, Read: true})
}

func TestMarkRead_DecrementsUnreadOnce(t *testing.T) {
	s := store.New()
	seed(s)
	tr := tracker.New(s, nil)

	before := tr.Unread(nil)
	changed, err := tr.MarkRead("live-1")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, before-1, tr.Unread(nil))

	changed, err = tr.MarkRead("live-1")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, before-1, tr.Unread(nil))

	_, err = tr.MarkRead("nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDismiss_PersistedDeletesRemotely(t *testing.T) {
	s := store.New()
	seed(s)
	r := &remote{}
	tr := tracker.New(s, r)

	require.NoError(t, tr.Dismiss("db-10"))
	require.NoError(t, tr.Dismiss("live-1"))
	tr.Wait()

	assert.Equal(t, []string{"10"}, r.deleted)
	assert.Equal(t, 1, s.Len())
}

func TestDismiss_RemoteFailureDoesNotRestore(t *testing.T) {
	s := store.New()
	seed(s)
	r := &remote{err: errors.New("500")}
	tr := tracker.New(s, r)

	var got error
	tr.OnDurabilityError = func(err error) { got = err }

	require.NoError(t, tr.Dismiss("db-10"))
	tr.Wait()

	_, ok := s.Get("db-10")
	assert.False(t, ok)
	assert.ErrorIs(t, got, domain.ErrDurability)
}

func TestDismiss_Unknown(t *testing.T) {
	tr := tracker.New(store.New(), nil)
	assert.ErrorIs(t, tr.Dismiss("x"), domain.ErrNotFound)
}

func TestUnread_WithFilterAndClearAll(t *testing.T) {
	s := store.New()
	seed(s)
	tr := tracker.New(s, nil)

	onlyLive := func(n domain.Notification) bool { return n.Origin == domain.OriginLive }
	assert.Equal(t, 1, tr.Unread(onlyLive))
	assert.Equal(t, 2, tr.Unread(nil))

	assert.Equal(t, 2, tr.MarkAllRead())
	assert.Equal(t, 0, tr.Unread(nil))

	assert.Equal(t, 3, tr.ClearAll())
	assert.Equal(t, 0, s.Len())
}
