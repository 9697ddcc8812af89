// Package store holds the de-duplicated notification feed of one session.
package store

import (
	"sort"
	"sync"

	"vn.io.arda/notifeed/internal/domain"
)

// Store maps notification identity to record. It is the only shared mutable
// state of a feed; adapters read it through Snapshot and Count.
type Store struct {
	mu           sync.RWMutex
	items        map[string]domain.Notification
	fingerprints map[domain.Fingerprint]string
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		items:        make(map[string]domain.Notification),
		fingerprints: make(map[domain.Fingerprint]string),
	}
}

// Insert adds n unless its identity or its (timestamp, message) fingerprint
// is already present. The first-inserted record wins; nothing is merged.
func (s *Store) Insert(n domain.Notification) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(n)
}

// InsertBatch inserts each record in order and returns how many were added.
func (s *Store) InsertBatch(ns []domain.Notification) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, n := range ns {
		if s.insertLocked(n) {
			added++
		}
	}
	return added
}

func (s *Store) insertLocked(n domain.Notification) bool {
	if n.ID == "" {
		return false
	}
	if _, exists := s.items[n.ID]; exists {
		return false
	}
	fp := n.Fingerprint()
	if _, dup := s.fingerprints[fp]; dup {
		return false
	}
	s.items[n.ID] = n.Clone()
	s.fingerprints[fp] = n.ID
	return true
}

// Get returns the record with the given identity.
func (s *Store) Get(id string) (domain.Notification, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.items[id]
	return n.Clone(), ok
}

// Has reports whether a record with the given identity is held.
func (s *Store) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.items[id]
	return ok
}

// MarkRead sets read on a record. changed is false when it was already read.
func (s *Store) MarkRead(id string) (changed, found bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.items[id]
	if !ok {
		return false, false
	}
	if n.Read {
		return false, true
	}
	n.Read = true
	s.items[id] = n
	return true, true
}

// MarkAllRead marks every record read and returns how many changed.
func (s *Store) MarkAllRead() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := 0
	for id, n := range s.items {
		if n.Read {
			continue
		}
		n.Read = true
		s.items[id] = n
		changed++
	}
	return changed
}

// Remove deletes a record and returns it.
func (s *Store) Remove(id string) (domain.Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.items[id]
	if !ok {
		return domain.Notification{}, false
	}
	delete(s.items, id)
	if s.fingerprints[n.Fingerprint()] == id {
		delete(s.fingerprints, n.Fingerprint())
	}
	return n, true
}

// Clear empties the store and returns how many records were dropped.
func (s *Store) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := len(s.items)
	s.items = make(map[string]domain.Notification)
	s.fingerprints = make(map[domain.Fingerprint]string)
	return dropped
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Snapshot materialises the feed newest-first. Equal timestamps are ordered
// by identity so repeated reads agree. Records are copies: changing one,
// payload included, never reaches the store.
func (s *Store) Snapshot() []domain.Notification {
	s.mu.RLock()
	out := make([]domain.Notification, 0, len(s.items))
	for _, n := range s.items {
		out = append(out, n.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Count returns how many records satisfy pred. A nil pred counts everything.
func (s *Store) Count(pred func(domain.Notification) bool) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if pred == nil {
		return len(s.items)
	}
	count := 0
	for _, n := range s.items {
		if pred(n) {
			count++
		}
	}
	return count
}
