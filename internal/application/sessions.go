package application

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"vn.io.arda/notifeed/internal/domain"
	"vn.io.arda/notifeed/internal/metrics"
)

// Sessions holds one Feed per user. Feeds not touched for the idle TTL are
// closed by the cache janitor.
type Sessions struct {
	mu      sync.Mutex
	cache   *cache.Cache
	newFeed func() *Feed
	metrics *metrics.Metrics
}

// NewSessions creates the registry. newFeed builds an unstarted Feed.
func NewSessions(newFeed func() *Feed, idleTTL, cleanupInterval time.Duration, m *metrics.Metrics) *Sessions {
	if m == nil {
		m = metrics.NewNop()
	}
	r := &Sessions{
		cache:   cache.New(idleTTL, cleanupInterval),
		newFeed: newFeed,
		metrics: m,
	}
	r.cache.OnEvicted(r.evicted)
	return r
}

func (r *Sessions) evicted(userID string, v interface{}) {
	f, ok := v.(*Feed)
	if !ok {
		return
	}
	f.Close()
	r.metrics.Sessions.Dec()
	log.Info().Str("user", userID).Msg("feed session evicted")
}

// Get returns the user's Feed, creating it on first use, and logs it into s.
// A changed role or branch re-scopes the existing feed.
func (r *Sessions) Get(s domain.Session) (*Feed, error) {
	if !s.Valid() {
		return nil, ErrInvalidSession
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if v, found := r.cache.Get(s.UserID); found {
		f := v.(*Feed)
		if err := f.Login(s); err != nil {
			return nil, err
		}
		r.cache.SetDefault(s.UserID, f)
		return f, nil
	}

	// An expired entry may still sit in the cache until the janitor runs.
	r.cache.DeleteExpired()

	f := r.newFeed()
	if err := f.Login(s); err != nil {
		f.Close()
		return nil, err
	}
	r.cache.SetDefault(s.UserID, f)
	r.metrics.Sessions.Inc()
	return f, nil
}

// Lookup returns the user's Feed without creating one.
func (r *Sessions) Lookup(userID string) (*Feed, bool) {
	v, found := r.cache.Get(userID)
	if !found {
		return nil, false
	}
	return v.(*Feed), true
}

// Touch extends the idle deadline of the user's Feed.
func (r *Sessions) Touch(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, found := r.cache.Get(userID); found {
		r.cache.SetDefault(userID, v)
	}
}

// Remove closes and forgets the user's Feed.
func (r *Sessions) Remove(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Delete(userID)
}

// Len returns the number of held feeds, including expired ones not yet collected.
func (r *Sessions) Len() int {
	return r.cache.ItemCount()
}

// Close closes every feed.
func (r *Sessions) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for userID := range r.cache.Items() {
		r.cache.Delete(userID)
	}
	r.cache.DeleteExpired()
}
