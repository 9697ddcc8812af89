// Package tracker owns read state and dismissal of feed entries.
package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"vn.io.arda/notifeed/internal/domain"
	"vn.io.arda/notifeed/internal/store"
)

const deleteTimeout = 10 * time.Second

// Tracker mutates read state locally and issues best-effort remote deletes
// for dismissed records that came from the Notification Service.
type Tracker struct {
	store  *store.Store
	remote domain.NotificationService

	// OnDurabilityError is called after a remote delete failed.
	OnDurabilityError func(err error)

	wg sync.WaitGroup
}

// New creates a Tracker. remote may be nil, in which case dismissals stay local.
func New(s *store.Store, remote domain.NotificationService) *Tracker {
	return &Tracker{store: s, remote: remote}
}

// MarkRead marks one record read. Read state is not sent to the server.
// It returns true when the record was previously unread.
func (t *Tracker) MarkRead(id string) (bool, error) {
	changed, found := t.store.MarkRead(id)
	if !found {
		return false, domain.ErrNotFound
	}
	return changed, nil
}

// MarkAllRead marks every record read and returns how many changed.
func (t *Tracker) MarkAllRead() int {
	return t.store.MarkAllRead()
}

// Dismiss removes a record. For PERSISTED records a delete is sent to the
// Notification Service in the background; its failure is logged and does
// not restore the record.
func (t *Tracker) Dismiss(id string) error {
	n, ok := t.store.Remove(id)
	if !ok {
		return domain.ErrNotFound
	}
	if n.Origin != domain.OriginPersisted || t.remote == nil {
		return nil
	}
	backendID, ok := domain.BackendID(n.ID)
	if !ok {
		return nil
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), deleteTimeout)
		defer cancel()

		if err := t.remote.Delete(ctx, backendID); err != nil {
			err = fmt.Errorf("%w: delete %s: %v", domain.ErrDurability, backendID, err)
			log.Error().Err(err).Str("id", n.ID).Msg("remote notification delete failed")
			if t.OnDurabilityError != nil {
				t.OnDurabilityError(err)
			}
		}
	}()
	return nil
}

// ClearAll drops every record locally.
func (t *Tracker) ClearAll() int {
	return t.store.Clear()
}

// Unread counts unread records accepted by visible. A nil visible counts all.
func (t *Tracker) Unread(visible func(domain.Notification) bool) int {
	return t.store.Count(func(n domain.Notification) bool {
		return !n.Read && (visible == nil || visible(n))
	})
}

// Wait blocks until pending remote calls have finished.
func (t *Tracker) Wait() {
	t.wg.Wait()
}
