// Package application composes the feed of one signed-in user and the
// registry of feeds held by the gateway.
package application

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"vn.io.arda/notifeed/internal/channel"
	"vn.io.arda/notifeed/internal/domain"
	"vn.io.arda/notifeed/internal/history"
	"vn.io.arda/notifeed/internal/messages"
	"vn.io.arda/notifeed/internal/metrics"
	"vn.io.arda/notifeed/internal/present"
	"vn.io.arda/notifeed/internal/store"
	"vn.io.arda/notifeed/internal/tracker"
)

// ErrInvalidSession is returned by Login for a session without a user id.
var ErrInvalidSession = errors.New("session has no user id")

const (
	defaultQueueSize = 256
	historyQueueSize = 4
	subscriberBuffer = 16
)

// Change kinds.
const (
	ChangeSnapshot = "snapshot"
	ChangeToasts   = "toast"
)

// Change is published whenever a view of the feed moved. Payload is a View
// for snapshots and a []present.Toast for toast changes.
type Change struct {
	Kind    string
	Payload any
}

// Hub is the interface for broadcasting feed changes to connected clients.
// Implementation lives in transport/http/sse_hub.go.
type Hub interface {
	Broadcast(userID string, change Change)
}

type nopHub struct{}

func (nopHub) Broadcast(string, Change) {}

// Deps are the collaborators of a Feed. Notifications, Dashboard and Hub may be nil.
type Deps struct {
	Dialer        channel.Dialer
	Notifications domain.NotificationService
	Dashboard     domain.DashboardService
	Hub           Hub
	Metrics       *metrics.Metrics
}

// Options tune a Feed.
type Options struct {
	QueueSize      int
	ReconnectDelay time.Duration
	HistoryLimit   int
	Toast          present.ToastOptions
	Now            func() time.Time
}

type historyBatch struct {
	epoch uint64
	items []domain.Notification
}

// Feed is the notification feed of one user session. Live events and
// history batches flow through one bounded queue drained by a single
// consumer; user actions mutate the store directly.
type Feed struct {
	deps    Deps
	opts    Options
	metrics *metrics.Metrics

	store   *store.Store
	manager *channel.Manager
	loader  *history.Loader
	tracker *tracker.Tracker

	events  chan channel.Event
	batches chan historyBatch
	stateCh chan struct{}

	lifecycle sync.Mutex

	mu       sync.RWMutex
	session  domain.Session
	owner    string
	active   bool
	liveGen  uint64
	dropdown *present.Dropdown
	toasts   *present.Toasts

	epoch        atomic.Uint64
	wasConnected bool

	subMu  sync.Mutex
	subs   map[chan Change]struct{}
	closed bool

	startOnce sync.Once
	started   atomic.Bool
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	bg        sync.WaitGroup
}

// NewFeed creates an idle Feed. Call Start, or Login which starts it.
func NewFeed(deps Deps, opts Options) *Feed {
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if deps.Hub == nil {
		deps.Hub = nopHub{}
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewNop()
	}

	f := &Feed{
		deps:    deps,
		opts:    opts,
		metrics: deps.Metrics,
		store:   store.New(),
		events:  make(chan channel.Event, opts.QueueSize),
		batches: make(chan historyBatch, historyQueueSize),
		stateCh: make(chan struct{}, 1),
		subs:    make(map[chan Change]struct{}),
		done:    make(chan struct{}),
	}

	var remote domain.NotificationService
	if deps.Notifications != nil {
		remote = authorized{inner: deps.Notifications, token: f.token}
	}
	f.loader = history.NewLoader(remote, opts.HistoryLimit)
	f.tracker = tracker.New(f.store, remote)
	f.tracker.OnDurabilityError = func(error) { f.metrics.DurabilityFailures.Inc() }

	f.manager = channel.NewManager(deps.Dialer, f.events, channel.Options{
		ReconnectDelay: opts.ReconnectDelay,
		Now:            opts.Now,
		OnState:        f.onState,
		OnMalformed:    func(string, error) { f.metrics.Malformed.Inc() },
		OnReconnect:    f.metrics.Reconnects.Inc,
	})

	f.dropdown = present.NewDropdown(f.store, domain.Session{}, nil)
	f.toasts = f.newToasts("")
	return f
}

// Start runs the consumer. ctx bounds the feed's background work.
func (f *Feed) Start(ctx context.Context) {
	f.startOnce.Do(func() {
		f.ctx, f.cancel = context.WithCancel(ctx)
		f.started.Store(true)
		go f.consume(f.ctx)
	})
}

func (f *Feed) consume(ctx context.Context) {
	defer close(f.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-f.events:
			f.applyLive(ev)
		case b := <-f.batches:
			f.applyHistory(b)
		case <-f.stateCh:
			f.publishView()
		}
	}
}

func (f *Feed) applyLive(ev channel.Event) {
	n := ev.Notification

	f.mu.RLock()
	current := f.active && ev.Generation == f.liveGen
	inserted := current && f.store.Insert(n)
	toasts := f.toasts
	f.mu.RUnlock()

	switch {
	case !current:
		f.metrics.Stale.Inc()
		log.Debug().Uint64("generation", ev.Generation).Str("id", n.ID).Msg("dropping event from ended session")
		return
	case !inserted:
		f.metrics.Duplicates.WithLabelValues(string(n.Origin)).Inc()
		return
	}

	f.metrics.Inserted.WithLabelValues(string(n.Origin)).Inc()
	toasts.Sync()
	f.publishView()
}

func (f *Feed) applyHistory(b historyBatch) {
	f.mu.RLock()
	current := f.active && b.epoch == f.epoch.Load()
	added := 0
	if current {
		added = f.store.InsertBatch(b.items)
	}
	f.mu.RUnlock()

	if !current {
		f.metrics.Stale.Inc()
		return
	}
	origin := string(domain.OriginPersisted)
	f.metrics.Inserted.WithLabelValues(origin).Add(float64(added))
	f.metrics.Duplicates.WithLabelValues(origin).Add(float64(len(b.items) - added))
	if added > 0 {
		f.publishView()
	}
}

// Login scopes the feed to s. The same session again only refreshes the
// token and retries a failed history load. A different user or role ends
// the current session first.
func (f *Feed) Login(s domain.Session) error {
	if !s.Valid() {
		return ErrInvalidSession
	}
	f.Start(context.Background())

	f.lifecycle.Lock()
	defer f.lifecycle.Unlock()

	f.mu.Lock()
	cur, active := f.session, f.active
	if active && cur.Same(s) {
		f.session.Token = s.Token
		f.mu.Unlock()
		f.loadHistory(s)
		return nil
	}
	f.mu.Unlock()

	roleChanged := active && cur.UserID == s.UserID && cur.Role != s.Role
	if active {
		f.logout(false)
	}

	f.mu.Lock()
	if f.owner != s.UserID {
		// Whatever a previous user left behind, such as the sign-out notice.
		f.store.Clear()
	}
	f.session = s
	f.owner = s.UserID
	f.active = true
	f.dropdown = present.NewDropdown(f.store, s, f.deps.Dashboard)
	f.toasts.Close()
	f.toasts = f.newToasts(s.Role)
	f.liveGen = f.manager.Connect(s)
	f.mu.Unlock()

	log.Info().
		Str("user", s.UserID).
		Str("role", string(s.Role)).
		Str("branch", s.BranchID).
		Msg("feed session started")

	if roleChanged {
		title, body := messages.RoleChanged(string(s.Role))
		f.PushLocal(domain.Notification{Title: title, Message: body, Category: domain.CategoryInfo})
	}
	f.loadHistory(s)
	f.publishView()
	return nil
}

// Logout ends the session: it unsubscribes, drops everything queued for it,
// clears the feed and leaves a local "signed out" record behind.
func (f *Feed) Logout() {
	f.lifecycle.Lock()
	defer f.lifecycle.Unlock()
	f.logout(true)
}

func (f *Feed) logout(announce bool) {
	f.manager.Disconnect()

	f.mu.Lock()
	wasActive := f.active
	user := f.session.UserID
	f.active = false
	f.session = domain.Session{}
	f.liveGen = 0
	f.epoch.Add(1)
	cleared := f.store.Clear()
	f.loader.Reset()
	f.toasts.Close()
	f.toasts = f.newToasts("")
	f.dropdown = present.NewDropdown(f.store, domain.Session{}, nil)
	f.mu.Unlock()

	if !wasActive {
		return
	}
	log.Info().Str("user", user).Int("cleared", cleared).Msg("feed session ended")

	if announce {
		title, body := messages.LoggedOut()
		f.PushLocal(domain.Notification{Title: title, Message: body, Category: domain.CategoryInfo})
		return
	}
	f.publishView()
}

func (f *Feed) loadHistory(s domain.Session) {
	if f.loader.Loaded(s.UserID) {
		return
	}
	epoch := f.epoch.Load()

	f.bg.Add(1)
	go func() {
		defer f.bg.Done()

		start := time.Now()
		batch, err := f.loader.Load(f.ctx, s)
		if err != nil {
			f.metrics.HistoryFailures.Inc()
			return
		}
		if batch == nil {
			return
		}
		f.metrics.HistoryLatency.Observe(time.Since(start).Seconds())

		select {
		case f.batches <- historyBatch{epoch: epoch, items: batch}:
		case <-f.ctx.Done():
		}
	}()
}

// onState runs under the manager lock.
func (f *Feed) onState(s channel.State) {
	connected := s == channel.Connected
	if connected != f.wasConnected {
		f.wasConnected = connected
		if connected {
			f.metrics.Connections.Inc()
		} else {
			f.metrics.Connections.Dec()
		}
	}
	select {
	case f.stateCh <- struct{}{}:
	default:
	}
}

func (f *Feed) newToasts(role domain.Role) *present.Toasts {
	opts := f.opts.Toast
	opts.OnChange = func(ts []present.Toast) {
		f.publish(Change{Kind: ChangeToasts, Payload: ts})
		f.publishView()
	}
	return present.NewToasts(f.store, role, f.tracker, opts)
}

func (f *Feed) token() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.session.Token
}

func (f *Feed) views() (*present.Dropdown, *present.Toasts) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropdown, f.toasts
}

// Current returns the session the feed is scoped to.
func (f *Feed) Current() (domain.Session, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.session, f.active
}

// Connected reports whether the pub/sub connection is up.
func (f *Feed) Connected() bool {
	return f.manager.Connected()
}

// Channels returns the active subscriptions.
func (f *Feed) Channels() []string {
	return f.manager.Channels()
}

// Notifications returns the role-filtered feed, newest first.
func (f *Feed) Notifications() []domain.Notification {
	d, _ := f.views()
	return d.Items()
}

// UnreadCount counts visible unread records.
func (f *Feed) UnreadCount() int {
	d, _ := f.views()
	return d.Unread()
}

// Badge returns the role-specific badge count.
func (f *Feed) Badge() int {
	d, _ := f.views()
	return d.Badge()
}

// View returns the dropdown state.
func (f *Feed) View() View {
	d, _ := f.views()
	return View{
		Connected:     f.manager.Connected(),
		Notifications: d.Items(),
		UnreadCount:   d.Unread(),
		Badge:         d.Badge(),
	}
}

// MarkAsRead marks one record read locally.
func (f *Feed) MarkAsRead(id string) error {
	changed, err := f.tracker.MarkRead(id)
	if err != nil {
		return err
	}
	if changed {
		_, t := f.views()
		t.Sync()
		f.publishView()
	}
	return nil
}

// MarkAllRead marks every record read locally.
func (f *Feed) MarkAllRead() int {
	n := f.tracker.MarkAllRead()
	if n > 0 {
		_, t := f.views()
		t.Sync()
		f.publishView()
	}
	return n
}

// Dismiss removes one record. Persisted records are also deleted remotely,
// best effort.
func (f *Feed) Dismiss(id string) error {
	if err := f.tracker.Dismiss(id); err != nil {
		return err
	}
	_, t := f.views()
	t.Sync()
	f.publishView()
	return nil
}

// ClearAll empties the feed locally.
func (f *Feed) ClearAll() int {
	n := f.tracker.ClearAll()
	_, t := f.views()
	t.Reset()
	f.publishView()
	return n
}

// PushLocal adds a client-originated record. Missing id, scope and
// timestamp are filled in. It returns false when the record duplicated an
// existing one.
func (f *Feed) PushLocal(n domain.Notification) (domain.Notification, bool) {
	if n.ID == "" {
		n.ID = domain.LocalID()
	}
	if n.Scope == "" {
		n.Scope = domain.ScopeUser
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = f.opts.Now()
	}
	n.Origin = domain.OriginLocal
	n.Read = false

	origin := string(domain.OriginLocal)
	if !f.store.Insert(n) {
		f.metrics.Duplicates.WithLabelValues(origin).Inc()
		return n, false
	}
	f.metrics.Inserted.WithLabelValues(origin).Inc()

	_, t := f.views()
	t.Sync()
	f.publishView()
	return n, true
}

// Toasts returns the visible toasts, newest first.
func (f *Feed) Toasts() []present.Toast {
	_, t := f.views()
	return t.Active()
}

// DismissToast closes a toast and marks its record read.
func (f *Feed) DismissToast(id string) bool {
	_, t := f.views()
	return t.Dismiss(id)
}

// OpenPanel fetches the role's dashboard collections.
func (f *Feed) OpenPanel(ctx context.Context) present.Panel {
	d, _ := f.views()
	p := d.Open(domain.WithToken(ctx, f.token()))
	f.publishView()
	return p
}

// Panel returns the collections from the last OpenPanel.
func (f *Feed) Panel() present.Panel {
	d, _ := f.views()
	return d.Panel()
}

// Subscribe returns a stream of changes and a function that ends it.
// Slow subscribers miss changes rather than block the feed.
func (f *Feed) Subscribe() (<-chan Change, func()) {
	ch := make(chan Change, subscriberBuffer)

	f.subMu.Lock()
	defer f.subMu.Unlock()
	if f.closed {
		close(ch)
		return ch, func() {}
	}
	f.subs[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.subMu.Lock()
			defer f.subMu.Unlock()
			if _, ok := f.subs[ch]; ok {
				delete(f.subs, ch)
				close(ch)
			}
		})
	}
}

func (f *Feed) publishView() {
	f.publish(Change{Kind: ChangeSnapshot, Payload: f.View()})
}

func (f *Feed) publish(c Change) {
	f.mu.RLock()
	owner := f.owner
	f.mu.RUnlock()

	if owner != "" {
		f.deps.Hub.Broadcast(owner, c)
	}

	f.subMu.Lock()
	defer f.subMu.Unlock()
	for ch := range f.subs {
		select {
		case ch <- c:
		default:
		}
	}
}

// Close ends the session and stops all background work.
func (f *Feed) Close() {
	f.lifecycle.Lock()
	f.logout(false)
	f.lifecycle.Unlock()

	if f.started.Load() {
		f.cancel()
		<-f.done
		f.bg.Wait()
	}
	f.tracker.Wait()

	_, t := f.views()
	t.Close()

	f.subMu.Lock()
	f.closed = true
	for ch := range f.subs {
		delete(f.subs, ch)
		close(ch)
	}
	f.subMu.Unlock()
}

// authorized forwards the session's bearer token to the Notification Service.
type authorized struct {
	inner domain.NotificationService
	token func() string
}

func (a authorized) History(ctx context.Context, userID string, page, limit int) ([]domain.StoredNotification, error) {
	return a.inner.History(domain.WithToken(ctx, a.token()), userID, page, limit)
}

func (a authorized) Delete(ctx context.Context, id string) error {
	return a.inner.Delete(domain.WithToken(ctx, a.token()), id)
}
