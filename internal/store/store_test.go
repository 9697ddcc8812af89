package store_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vn.io.arda/notifeed/internal/domain"
	"vn.io.arda/notifeed/internal/store"
)

var base = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func note(id, msg string, at time.Duration, origin domain.Origin, read bool) domain.Notification {
	return domain.Notification{
		ID:        id,
		Title:     "t",
		Message:   msg,
		Timestamp: base.Add(at),
		Origin:    origin,
		Read:      read,
		Scope:     domain.ScopeUser,
	}
}

func TestInsert_SameIdentityKeepsExistingReadState(t *testing.T) {
	s := store.New()

	require.True(t, s.Insert(note("a", "m1", 0, domain.OriginLive, true)))
	assert.False(t, s.Insert(note("a", "m2", time.Second, domain.OriginLive, false)))

	got, ok := s.Get("a")
	require.True(t, ok)
	assert.True(t, got.Read)
	assert.Equal(t, "m1", got.Message)
	assert.Equal(t, 1, s.Len())
}

func TestInsert_PersistedThenLiveDuplicateIsDropped(t *testing.T) {
	s := store.New()

	require.True(t, s.Insert(note("db-1", "Trip #42 assigned", 0, domain.OriginPersisted, true)))
	assert.False(t, s.Insert(note("live-x", "Trip #42 assigned", 0, domain.OriginLive, false)))

	items := s.Snapshot()
	require.Len(t, items, 1)
	assert.Equal(t, "db-1", items[0].ID)
	assert.True(t, items[0].Read)
}

func TestInsert_LiveThenPersistedDuplicateCollapses(t *testing.T) {
	s := store.New()

	require.True(t, s.Insert(note("live-x", "Payment received", 0, domain.OriginLive, false)))
	assert.False(t, s.Insert(note("db-7", "Payment received", 0, domain.OriginPersisted, true)))

	items := s.Snapshot()
	require.Len(t, items, 1)
	assert.Equal(t, domain.OriginLive, items[0].Origin)
	assert.False(t, items[0].Read)
}

func TestInsert_SameMessageDifferentTimeIsKept(t *testing.T) {
	s := store.New()

	s.Insert(note("a", "same", 0, domain.OriginLive, false))
	s.Insert(note("b", "same", time.Millisecond, domain.OriginLive, false))

	assert.Equal(t, 2, s.Len())
}

func TestInsert_EmptyIdentityRejected(t *testing.T) {
	s := store.New()
	assert.False(t, s.Insert(note("", "m", 0, domain.OriginLive, false)))
	assert.Equal(t, 0, s.Len())
}

func TestInsertBatch_CountsAdded(t *testing.T) {
	s := store.New()
	added := s.InsertBatch([]domain.Notification{
		note("db-1", "a", 0, domain.OriginPersisted, false),
		note("db-2", "b", time.Second, domain.OriginPersisted, false),
		note("db-2", "b", time.Second, domain.OriginPersisted, false),
	})
	assert.Equal(t, 2, added)
}

func TestSnapshot_NewestFirstAndRepeatable(t *testing.T) {
	s := store.New()
	s.Insert(note("old", "1", 0, domain.OriginLive, false))
	s.Insert(note("new", "2", 2*time.Minute, domain.OriginLive, false))
	s.Insert(note("mid-b", "3", time.Minute, domain.OriginLive, false))
	s.Insert(note("mid-a", "4", time.Minute, domain.OriginLive, false))

	first := ids(s.Snapshot())
	assert.Equal(t, []string{"new", "mid-a", "mid-b", "old"}, first)
	assert.Equal(t, first, ids(s.Snapshot()))

	s.Insert(note("older", "5", -time.Hour, domain.OriginPersisted, false))
	assert.Equal(t, []string{"new", "mid-a", "mid-b", "old", "older"}, ids(s.Snapshot()))
}

func TestMarkRead_Idempotent(t *testing.T) {
	s := store.New()
	s.Insert(note("a", "m", 0, domain.OriginLive, false))

	changed, found := s.MarkRead("a")
	assert.True(t, changed)
	assert.True(t, found)

	changed, found = s.MarkRead("a")
	assert.False(t, changed)
	assert.True(t, found)

	_, found = s.MarkRead("missing")
	assert.False(t, found)
}

func TestRemove_ReleasesFingerprint(t *testing.T) {
	s := store.New()
	s.Insert(note("a", "m", 0, domain.OriginLive, false))

	removed, ok := s.Remove("a")
	require.True(t, ok)
	assert.Equal(t, "a", removed.ID)

	assert.True(t, s.Insert(note("b", "m", 0, domain.OriginLive, false)))
}

func TestCountAndMarkAllRead(t *testing.T) {
	s := store.New()
	s.Insert(note("a", "1", 0, domain.OriginLive, false))
	s.Insert(note("b", "2", time.Second, domain.OriginLive, true))
	s.Insert(note("c", "3", 2*time.Second, domain.OriginLocal, false))

	unread := func(n domain.Notification) bool { return !n.Read }
	assert.Equal(t, 2, s.Count(unread))
	assert.Equal(t, 3, s.Count(nil))

	assert.Equal(t, 2, s.MarkAllRead())
	assert.Equal(t, 0, s.Count(unread))

	assert.Equal(t, 3, s.Clear())
	assert.Equal(t, 0, s.Len())
}

func ids(ns []domain.Notification) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = n.ID
	}
	return out
}

func TestSnapshot_PayloadIsNotShared(t *testing.T) {
	s := store.New()
	n := note("1", "Dispatch D-1 assigned", 0, domain.OriginLive, false)
	n.Payload = map[string]any{"vehicle": "51A-123", "stops": []any{map[string]any{"name": "Depot"}}}
	require.True(t, s.Insert(n))

	n.Payload["vehicle"] = "changed by caller"

	snap := s.Snapshot()
	require.Len(t, snap, 1)
	snap[0].Payload["vehicle"] = "changed by reader"
	snap[0].Payload["stops"].([]any)[0].(map[string]any)["name"] = "Elsewhere"

	got, ok := s.Get("1")
	require.True(t, ok)
	assert.Equal(t, "51A-123", got.Payload["vehicle"])
	assert.Equal(t, "Depot", got.Payload["stops"].([]any)[0].(map[string]any)["name"])
}
