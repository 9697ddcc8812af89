package present

import (
	"sort"
	"sync"
	"time"

	"vn.io.arda/notifeed/internal/audience"
	"vn.io.arda/notifeed/internal/domain"
	"vn.io.arda/notifeed/internal/store"
)

const (
	DefaultMaxToasts = 3
	DefaultToastTTL  = 5 * time.Second
)

// Timer is the part of *time.Timer a toast needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// ToastOptions tune the toast stream.
type ToastOptions struct {
	Max       int
	TTL       time.Duration
	AfterFunc AfterFunc
	Now       func() time.Time
	// OnChange receives the visible toasts after every change. Called without locks held.
	OnChange func([]Toast)
}

// Toast is one visible toast.
type Toast struct {
	domain.Notification
	ShownAt   time.Time `json:"shownAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type toastEntry struct {
	toast Toast
	timer Timer
}

// MarkReader marks a record read.
type MarkReader interface {
	MarkRead(id string) (bool, error)
}

// Toasts shows unread, non-persisted, visible records a few at a time.
// Closing a toast, by timer or by hand, marks the record read.
type Toasts struct {
	store  *store.Store
	policy audience.Policy
	reader MarkReader
	opts   ToastOptions

	mu      sync.Mutex
	active  map[string]*toastEntry
	handled map[string]bool
	closed  bool
}

// NewToasts creates the toast adapter.
func NewToasts(s *store.Store, role domain.Role, reader MarkReader, opts ToastOptions) *Toasts {
	if opts.Max <= 0 {
		opts.Max = DefaultMaxToasts
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultToastTTL
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = realAfterFunc
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Toasts{
		store:   s,
		policy:  audience.PolicyFor(role),
		reader:  reader,
		opts:    opts,
		active:  make(map[string]*toastEntry),
		handled: make(map[string]bool),
	}
}

// Eligible reports whether n may be toasted at all.
func (t *Toasts) Eligible(n domain.Notification) bool {
	return n.Origin != domain.OriginPersisted && !n.Read && t.policy.Visible(n)
}

// Sync reconciles the visible toasts with the store: toasts whose record was
// read or removed close, and free slots are filled newest first.
func (t *Toasts) Sync() {
	t.mu.Lock()
	changed := t.syncLocked()
	out := t.activeLocked()
	t.mu.Unlock()

	if changed {
		t.notify(out)
	}
}

func (t *Toasts) syncLocked() bool {
	if t.closed {
		return false
	}
	changed := false

	for id := range t.handled {
		if !t.store.Has(id) {
			delete(t.handled, id)
		}
	}

	for id, e := range t.active {
		n, ok := t.store.Get(id)
		if ok && !n.Read {
			continue
		}
		e.timer.Stop()
		delete(t.active, id)
		t.handled[id] = true
		changed = true
	}

	if len(t.active) >= t.opts.Max {
		return changed
	}
	for _, n := range t.store.Snapshot() {
		if len(t.active) >= t.opts.Max {
			break
		}
		if t.handled[n.ID] || t.active[n.ID] != nil || !t.Eligible(n) {
			continue
		}
		t.show(n)
		changed = true
	}
	return changed
}

func (t *Toasts) show(n domain.Notification) {
	now := t.opts.Now()
	id := n.ID
	t.active[id] = &toastEntry{
		toast: Toast{Notification: n, ShownAt: now, ExpiresAt: now.Add(t.opts.TTL)},
		timer: t.opts.AfterFunc(t.opts.TTL, func() { t.close(id) }),
	}
}

// Dismiss closes a toast by hand. It returns false when id is not shown.
func (t *Toasts) Dismiss(id string) bool {
	return t.close(id)
}

func (t *Toasts) close(id string) bool {
	t.mu.Lock()
	e, ok := t.active[id]
	if !ok {
		t.mu.Unlock()
		return false
	}
	e.timer.Stop()
	delete(t.active, id)
	t.handled[id] = true
	t.mu.Unlock()

	// The record may already be gone; closing the toast still stands.
	_, _ = t.reader.MarkRead(id)

	t.mu.Lock()
	t.syncLocked()
	out := t.activeLocked()
	t.mu.Unlock()

	t.notify(out)
	return true
}

// Active returns the visible toasts, newest first.
func (t *Toasts) Active() []Toast {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.activeLocked()
}

func (t *Toasts) activeLocked() []Toast {
	out := make([]Toast, 0, len(t.active))
	for _, e := range t.active {
		out = append(out, e.toast)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Reset forgets every toast, e.g. after the store was cleared.
func (t *Toasts) Reset() {
	t.mu.Lock()
	for id, e := range t.active {
		e.timer.Stop()
		delete(t.active, id)
	}
	t.handled = make(map[string]bool)
	t.mu.Unlock()

	t.notify(nil)
}

// Close stops all timers. The adapter shows nothing afterwards.
func (t *Toasts) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	for id, e := range t.active {
		e.timer.Stop()
		delete(t.active, id)
	}
}

func (t *Toasts) notify(out []Toast) {
	if t.opts.OnChange != nil {
		t.opts.OnChange(out)
	}
}
