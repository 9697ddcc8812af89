// Package memory is an in-process pub/sub driver for local development and tests.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"vn.io.arda/notifeed/internal/channel"
	"vn.io.arda/notifeed/internal/domain"
)

var (
	// ErrDropped is returned by Receive after Broker.Drop.
	ErrDropped = errors.New("memory: connection dropped")
	// ErrClosed is returned by operations on a closed connection.
	ErrClosed = errors.New("memory: connection closed")
)

const bufferSize = 64

// Broker fans published messages out to every connection subscribed to the channel.
type Broker struct {
	mu        sync.RWMutex
	conns     map[*Conn]struct{}
	failDials int
	dials     int
}

// New creates an empty Broker.
func New() *Broker {
	return &Broker{conns: make(map[*Conn]struct{})}
}

// Dial implements channel.Dialer.
func (b *Broker) Dial(ctx context.Context, _ domain.Session) (channel.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.dials++
	if b.failDials > 0 {
		b.failDials--
		return nil, errors.New("memory: dial refused")
	}
	c := &Conn{
		broker:   b,
		channels: make(map[string]bool),
		msgs:     make(chan channel.Message, bufferSize),
		closed:   make(chan struct{}),
		dropped:  make(chan struct{}),
	}
	b.conns[c] = struct{}{}
	return c, nil
}

// FailDials makes the next n dials fail.
func (b *Broker) FailDials(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failDials = n
}

// Dials returns how many dials were attempted.
func (b *Broker) Dials() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dials
}

// Publish delivers data to every subscriber of ch and returns how many received it.
func (b *Broker) Publish(ch string, data []byte) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := 0
	for c := range b.conns {
		if !c.subscribed(ch) {
			continue
		}
		select {
		case c.msgs <- channel.Message{Channel: ch, Data: data}:
			delivered++
		default:
			log.Warn().Str("channel", ch).Msg("memory subscriber buffer full, skipping")
		}
	}
	return delivered
}

// Subscribers returns how many open connections are subscribed to ch.
func (b *Broker) Subscribers(ch string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := 0
	for c := range b.conns {
		if c.subscribed(ch) {
			n++
		}
	}
	return n
}

// Connections returns the number of open connections.
func (b *Broker) Connections() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.conns)
}

// Drop simulates a transport failure on every open connection.
func (b *Broker) Drop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for c := range b.conns {
		c.dropOnce.Do(func() { close(c.dropped) })
	}
}

func (b *Broker) remove(c *Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conns, c)
}

// Conn is one connection to a Broker.
type Conn struct {
	broker *Broker

	mu       sync.RWMutex
	channels map[string]bool

	msgs      chan channel.Message
	closed    chan struct{}
	dropped   chan struct{}
	closeOnce sync.Once
	dropOnce  sync.Once
}

func (c *Conn) subscribed(ch string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.channels[ch]
}

// Subscribe implements channel.Conn.
func (c *Conn) Subscribe(_ context.Context, ch string) error {
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channels[ch] = true
	return nil
}

// Unsubscribe implements channel.Conn.
func (c *Conn) Unsubscribe(_ context.Context, ch string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.channels, ch)
	return nil
}

// Receive implements channel.Conn.
func (c *Conn) Receive(ctx context.Context) (channel.Message, error) {
	select {
	case msg := <-c.msgs:
		return msg, nil
	case <-c.dropped:
		return channel.Message{}, ErrDropped
	case <-c.closed:
		return channel.Message{}, ErrClosed
	case <-ctx.Done():
		return channel.Message{}, ctx.Err()
	}
}

// Close implements channel.Conn.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.broker.remove(c)
	})
	return nil
}
