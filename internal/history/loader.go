// Package history loads a user's persisted notifications once per session.
package history

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"vn.io.arda/notifeed/internal/domain"
)

const defaultLimit = 50

// Loader fetches the first page of history for the current user. A
// successful load is not repeated until Reset.
type Loader struct {
	source domain.NotificationService
	limit  int

	mu       sync.Mutex
	loadedBy string
	gen      uint64
	// running is gen+1 of the fetch in flight, 0 when idle. A fetch from
	// before a Reset no longer blocks a new one.
	running uint64
}

// NewLoader creates a Loader. limit <= 0 uses a page of 50.
func NewLoader(source domain.NotificationService, limit int) *Loader {
	if limit <= 0 {
		limit = defaultLimit
	}
	return &Loader{source: source, limit: limit}
}

// Load fetches history for s and returns it as PERSISTED records.
//
// It returns nil, nil when there is nothing to do: no user id yet, history
// already loaded for this user, a load already running, or Reset was called
// while the fetch was in flight. Errors wrap domain.ErrHistoryLoad and leave
// the guard open so the next call retries.
func (l *Loader) Load(ctx context.Context, s domain.Session) ([]domain.Notification, error) {
	if !s.Valid() || l.source == nil {
		return nil, nil
	}

	l.mu.Lock()
	if l.loadedBy == s.UserID || l.running == l.gen+1 {
		l.mu.Unlock()
		return nil, nil
	}
	gen := l.gen
	l.running = gen + 1
	l.mu.Unlock()

	records, err := l.source.History(ctx, s.UserID, 1, l.limit)

	l.mu.Lock()
	if l.running == gen+1 {
		l.running = 0
	}
	stale := l.gen != gen
	if err == nil && !stale {
		l.loadedBy = s.UserID
	}
	l.mu.Unlock()

	if err != nil {
		log.Error().Err(err).Str("user", s.UserID).Msg("notification history load failed")
		return nil, fmt.Errorf("%w: %v", domain.ErrHistoryLoad, err)
	}
	if stale {
		log.Debug().Str("user", s.UserID).Msg("discarding history fetched before reset")
		return nil, nil
	}

	batch := make([]domain.Notification, 0, len(records))
	for _, r := range records {
		if r.ID == "" {
			continue
		}
		batch = append(batch, domain.FromStored(r))
	}
	log.Debug().Str("user", s.UserID).Int("records", len(batch)).Msg("notification history loaded")
	return batch, nil
}

// Loaded reports whether history was loaded for userID.
func (l *Loader) Loaded(userID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return userID != "" && l.loadedBy == userID
}

// Reset reopens the guard and invalidates any fetch in flight.
func (l *Loader) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loadedBy = ""
	l.gen++
}
