package channel

import (
	"context"

	"vn.io.arda/notifeed/internal/domain"
)

// Message is one payload received on a subscribed channel.
type Message struct {
	Channel string
	Data    []byte
}

// Conn is an open publish/subscribe connection.
// Drivers live in internal/pubsub.
type Conn interface {
	Subscribe(ctx context.Context, channel string) error
	Unsubscribe(ctx context.Context, channel string) error

	// Receive blocks until a message arrives. A non-nil error other than a
	// context error means the connection dropped.
	Receive(ctx context.Context) (Message, error)

	Close() error
}

// Dialer opens connections on behalf of a session.
type Dialer interface {
	Dial(ctx context.Context, s domain.Session) (Conn, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context, s domain.Session) (Conn, error)

func (f DialerFunc) Dial(ctx context.Context, s domain.Session) (Conn, error) {
	return f(ctx, s)
}
