// Package kafka maps feed channels onto Kafka topics using franz-go.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/twmb/franz-go/pkg/kgo"

	"vn.io.arda/notifeed/internal/channel"
	"vn.io.arda/notifeed/internal/domain"
	"vn.io.arda/notifeed/internal/pubsub/kafka/registry"

	// Blank imports trigger init() in each handler file,
	// registering all event translators into the registry.
	_ "vn.io.arda/notifeed/internal/pubsub/kafka/handlers"
)

// ErrClosed is returned by Receive once the client has been closed.
var ErrClosed = errors.New("kafka: client closed")

// maxFetchFailures is how many polls in a row may fail without delivering a
// record before the connection is reported lost.
const maxFetchFailures = 3

// fetchHealth counts polls that returned errors and no records.
type fetchHealth struct {
	failures int
}

// observe records one poll. It returns a domain.ErrConnection once
// maxFetchFailures failed polls happened in a row.
func (h *fetchHealth) observe(err error, records int) error {
	if err == nil || records > 0 {
		h.failures = 0
		return nil
	}
	h.failures++
	if h.failures < maxFetchFailures {
		return nil
	}
	return fmt.Errorf("%w: %d failed fetches: %v", domain.ErrConnection, h.failures, err)
}

// Dialer opens one franz-go client per session.
type Dialer struct {
	Brokers []string
	// TopicPrefix is prepended to every channel name, e.g. "feed." -> "feed.bookings".
	TopicPrefix string
	ClientID    string
}

// Dial creates a direct (group-less) consumer positioned at the end of each
// topic of the session's channel set, so only live traffic is delivered.
func (d Dialer) Dial(ctx context.Context, s domain.Session) (channel.Conn, error) {
	channels := channel.ChannelsFor(s)
	topics := make([]string, 0, len(channels))
	for _, ch := range channels {
		topics = append(topics, d.TopicPrefix+ch)
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(d.Brokers...),
		kgo.ConsumeTopics(topics...),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtEnd()),
	}
	if d.ClientID != "" {
		opts = append(opts, kgo.ClientID(d.ClientID))
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("kafka ping: %w", err)
	}

	consuming := make(map[string]bool, len(topics))
	for _, t := range topics {
		consuming[t] = true
	}
	return &Conn{client: client, prefix: d.TopicPrefix, consuming: consuming, subscribed: map[string]bool{}}, nil
}

// Conn wraps a franz-go client.
type Conn struct {
	client *kgo.Client
	prefix string

	mu         sync.Mutex
	consuming  map[string]bool
	subscribed map[string]bool
	pending    []*kgo.Record
	health     fetchHealth
}

// Subscribe starts delivering records of the channel's topic.
func (c *Conn) Subscribe(_ context.Context, ch string) error {
	topic := c.prefix + ch

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.consuming[topic] {
		c.client.AddConsumeTopics(topic)
		c.consuming[topic] = true
	}
	c.subscribed[topic] = true
	return nil
}

// Unsubscribe stops consuming the channel's topic.
func (c *Conn) Unsubscribe(_ context.Context, ch string) error {
	topic := c.prefix + ch

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.consuming[topic] {
		return nil
	}
	c.client.PurgeTopicsFromClient(topic)
	delete(c.consuming, topic)
	delete(c.subscribed, topic)
	return nil
}

// Receive returns the next record from a subscribed topic.
func (c *Conn) Receive(ctx context.Context) (channel.Message, error) {
	for {
		if msg, ok := c.next(); ok {
			return msg, nil
		}

		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return channel.Message{}, ErrClosed
		}
		if err := ctx.Err(); err != nil {
			return channel.Message{}, err
		}

		var fetchErr error
		fetches.EachError(func(topic string, partition int32, err error) {
			log.Error().Err(err).Str("topic", topic).Int32("partition", partition).Msg("kafka fetch error")
			fetchErr = err
		})
		if err := c.health.observe(fetchErr, fetches.NumRecords()); err != nil {
			return channel.Message{}, err
		}

		c.mu.Lock()
		fetches.EachRecord(func(r *kgo.Record) {
			c.pending = append(c.pending, r)
		})
		c.mu.Unlock()
	}
}

func (c *Conn) next() (channel.Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for len(c.pending) > 0 {
		r := c.pending[0]
		c.pending[0] = nil
		c.pending = c.pending[1:]
		if !c.subscribed[r.Topic] {
			continue
		}

		ch := strings.TrimPrefix(r.Topic, c.prefix)
		data, ok := registry.Dispatch(ch, r.Value)
		if !ok {
			continue
		}
		log.Debug().Str("topic", r.Topic).Str("key", string(r.Key)).Msg("kafka record received")
		return channel.Message{Channel: ch, Data: data}, true
	}
	return channel.Message{}, false
}

// Close shuts the client down.
func (c *Conn) Close() error {
	c.client.Close()
	return nil
}
