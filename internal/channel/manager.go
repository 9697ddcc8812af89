// Package channel owns the persistent publish/subscribe connection of a
// session and keeps its subscription set in line with the session's role.
package channel

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"vn.io.arda/notifeed/internal/domain"
)

// State is the connection state of a Manager.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "CONNECTING"
	case Connected:
		return "CONNECTED"
	default:
		return "DISCONNECTED"
	}
}

// Event is a parsed live notification tagged with the connect generation it
// belongs to. Consumers drop events from a generation they no longer serve.
type Event struct {
	Generation   uint64
	Notification domain.Notification
}

// Options tune a Manager. Zero values fall back to defaults.
type Options struct {
	ReconnectDelay time.Duration
	Now            func() time.Time

	// OnState is called with the manager lock held and must not call back into it.
	OnState     func(State)
	OnMalformed func(channel string, err error)
	OnReconnect func()
}

const (
	defaultReconnectDelay = 3 * time.Second
	unsubscribeTimeout    = 5 * time.Second
)

// Manager keeps exactly one connection per connected session.
type Manager struct {
	dialer Dialer
	out    chan<- Event
	opts   Options

	mu      sync.Mutex
	state   State
	active  []string
	current *run
	gen     uint64
}

type run struct {
	gen     uint64
	session domain.Session
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewManager creates a Manager that delivers parsed events to out.
func NewManager(d Dialer, out chan<- Event, opts Options) *Manager {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = defaultReconnectDelay
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{dialer: d, out: out, opts: opts}
}

// Connect starts the connection loop for s and returns its generation.
// It is a no-op while a loop is already connecting or connected.
func (m *Manager) Connect(s domain.Session) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil || !s.Valid() {
		return m.gen
	}

	m.gen++
	ctx, cancel := context.WithCancel(context.Background())
	r := &run{gen: m.gen, session: s, cancel: cancel, done: make(chan struct{})}
	m.current = r
	m.setStateLocked(Connecting)

	go m.loop(ctx, r)
	return r.gen
}

// Disconnect stops the loop, unsubscribes every channel and closes the
// connection. It returns once the connection is released.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	r := m.current
	m.current = nil
	m.active = nil
	m.setStateLocked(Disconnected)
	m.mu.Unlock()

	if r == nil {
		return
	}
	r.cancel()
	<-r.done
	log.Info().Str("user", r.session.UserID).Uint64("generation", r.gen).Msg("pubsub disconnected")
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connected reports whether the connection is up.
func (m *Manager) Connected() bool {
	return m.State() == Connected
}

// Generation returns the generation of the active loop, or 0 when idle.
func (m *Manager) Generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return 0
	}
	return m.current.gen
}

// Channels returns the active subscription set, sorted.
func (m *Manager) Channels() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]string(nil), m.active...)
	sort.Strings(out)
	return out
}

func (m *Manager) loop(ctx context.Context, r *run) {
	defer close(r.done)

	channels := ChannelsFor(r.session)
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			if m.opts.OnReconnect != nil {
				m.opts.OnReconnect()
			}
			timer := time.NewTimer(m.opts.ReconnectDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
			m.setState(r, Connecting)
		}

		err := m.serve(ctx, r, channels)
		if ctx.Err() != nil {
			return
		}
		m.setState(r, Disconnected)
		log.Warn().Err(err).
			Str("user", r.session.UserID).
			Dur("retry_in", m.opts.ReconnectDelay).
			Msg("pubsub connection lost, retrying")
	}
}

// serve runs one connection until it drops or ctx ends. Subscriptions are
// always released before the connection is closed.
func (m *Manager) serve(ctx context.Context, r *run, channels []string) error {
	conn, err := m.dialer.Dial(ctx, r.session)
	if err != nil {
		return fmt.Errorf("%w: dial: %v", domain.ErrConnection, err)
	}

	subscribed := make(map[string]bool, len(channels))
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), unsubscribeTimeout)
		defer cancel()
		for ch := range subscribed {
			if uerr := conn.Unsubscribe(cleanupCtx, ch); uerr != nil {
				log.Debug().Err(uerr).Str("channel", ch).Msg("unsubscribe failed")
			}
		}
		if cerr := conn.Close(); cerr != nil {
			log.Debug().Err(cerr).Msg("pubsub close failed")
		}
		m.setActive(r, nil)
	}()

	for _, ch := range channels {
		if err := conn.Subscribe(ctx, ch); err != nil {
			return fmt.Errorf("%w: subscribe %s: %v", domain.ErrConnection, ch, err)
		}
		subscribed[ch] = true
	}
	m.setActive(r, channels)
	m.setState(r, Connected)
	log.Info().
		Str("user", r.session.UserID).
		Str("role", string(r.session.Role)).
		Strs("channels", channels).
		Msg("pubsub connected")

	for {
		msg, err := conn.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			return fmt.Errorf("%w: receive: %v", domain.ErrConnection, err)
		}
		if !subscribed[msg.Channel] {
			log.Debug().Str("channel", msg.Channel).Msg("message on unsubscribed channel, dropping")
			continue
		}

		n, err := Parse(msg.Channel, msg.Data, m.opts.Now())
		if err != nil {
			log.Warn().Err(err).Str("channel", msg.Channel).Msg("dropping inbound message")
			if m.opts.OnMalformed != nil {
				m.opts.OnMalformed(msg.Channel, err)
			}
			continue
		}

		select {
		case m.out <- Event{Generation: r.gen, Notification: n}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (m *Manager) setState(r *run, s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != r {
		return
	}
	m.setStateLocked(s)
}

func (m *Manager) setStateLocked(s State) {
	if m.state == s {
		return
	}
	m.state = s
	if m.opts.OnState != nil {
		m.opts.OnState(s)
	}
}

func (m *Manager) setActive(r *run, channels []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != r {
		return
	}
	m.active = append([]string(nil), channels...)
}
