// Package redis maps feed channels onto Redis pub/sub channels.
package redis

import (
	"context"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"vn.io.arda/notifeed/internal/channel"
	"vn.io.arda/notifeed/internal/domain"
)

// Dialer opens one PubSub per session over a shared client.
type Dialer struct {
	Client *goredis.Client
	// Prefix is prepended to every channel name.
	Prefix string
}

// NewClient parses url and returns a configured client.
func NewClient(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return goredis.NewClient(opts), nil
}

// Dial checks the server is reachable and opens an empty subscription.
func (d Dialer) Dial(ctx context.Context, _ domain.Session) (channel.Conn, error) {
	if err := d.Client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Conn{pubsub: d.Client.Subscribe(ctx), prefix: d.Prefix}, nil
}

// Conn wraps a go-redis PubSub.
type Conn struct {
	pubsub *goredis.PubSub
	prefix string
}

func (c *Conn) Subscribe(ctx context.Context, ch string) error {
	return c.pubsub.Subscribe(ctx, c.prefix+ch)
}

func (c *Conn) Unsubscribe(ctx context.Context, ch string) error {
	return c.pubsub.Unsubscribe(ctx, c.prefix+ch)
}

func (c *Conn) Receive(ctx context.Context) (channel.Message, error) {
	msg, err := c.pubsub.ReceiveMessage(ctx)
	if err != nil {
		return channel.Message{}, err
	}
	return channel.Message{
		Channel: strings.TrimPrefix(msg.Channel, c.prefix),
		Data:    []byte(msg.Payload),
	}, nil
}

func (c *Conn) Close() error {
	return c.pubsub.Close()
}
