package transport

import "context"

// Transport is a publish/subscribe primitive addressed by named channels.
// Any process can publish to a channel; subscribers receive a live stream of
// payloads published after their subscription was acknowledged.
type Transport interface {
	// Publish sends payload to every current subscriber of channel.
	// Publishing to a channel without subscribers is not an error.
	Publish(ctx context.Context, channel string, payload []byte) error

	// Subscribe opens a subscription and returns once the broker acknowledged it.
	// Failures wrap cnst.ErrTransportUnavailable.
	Subscribe(ctx context.Context, channel string) (Subscription, error)

	// Close releases the broker connection.
	Close() error
}

// Subscription is a live stream of payloads for one channel.
type Subscription interface {
	// Channel returns the subscribed channel name.
	Channel() string

	// Receive blocks until the next payload arrives. It returns ctx.Err() on
	// cancellation, cnst.ErrSubscriptionClosed after Close, or the broker error.
	Receive(ctx context.Context) ([]byte, error)

	// Close releases the subscription. It is safe to call more than once.
	Close() error
}
