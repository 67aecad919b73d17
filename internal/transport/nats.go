package transport

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/102326/PyLab/internal/common/cnst"
	"github.com/102326/PyLab/internal/common/config"
	"github.com/102326/PyLab/pkg/utils"
)

// NATSTransport implements Transport on core NATS subjects
type NATSTransport struct {
	logger *zap.Logger
	conn   *nats.Conn
}

var _ Transport = (*NATSTransport)(nil)

// NewNATSTransport connects to NATS with automatic reconnect
func NewNATSTransport(logger *zap.Logger, cfg config.TransportNATSConfig) (*NATSTransport, error) {
	lg := logger.Named("transport.nats")
	conn, err := nats.Connect(cfg.URL,
		nats.Name(utils.FirstNonEmpty(cfg.Name, cnst.AppName)),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				lg.Warn("disconnected from NATS", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			lg.Info("reconnected to NATS", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w: %w", cnst.ErrTransportUnavailable, err)
	}
	return &NATSTransport{logger: lg, conn: conn}, nil
}

// Publish implements Transport.Publish
func (t *NATSTransport) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.conn.Publish(channel, payload); err != nil {
		return fmt.Errorf("failed to publish to %s: %w: %w", channel, cnst.ErrTransportUnavailable, err)
	}
	return nil
}

// Subscribe implements Transport.Subscribe
func (t *NATSTransport) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	sub, err := t.conn.SubscribeSync(channel)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w: %w", channel, cnst.ErrTransportUnavailable, err)
	}
	// Round trip to the server so the interest is registered before returning.
	if err := t.conn.FlushWithContext(ctx); err != nil {
		_ = sub.Unsubscribe()
		return nil, fmt.Errorf("failed to confirm subscription to %s: %w: %w", channel, cnst.ErrTransportUnavailable, err)
	}
	return &natsSubscription{channel: channel, sub: sub}, nil
}

// Close implements Transport.Close
func (t *NATSTransport) Close() error {
	t.conn.Close()
	return nil
}

type natsSubscription struct {
	channel string
	sub     *nats.Subscription
	closed  atomic.Bool
}

func (s *natsSubscription) Channel() string {
	return s.channel
}

func (s *natsSubscription) Receive(ctx context.Context) ([]byte, error) {
	if s.closed.Load() {
		return nil, cnst.ErrSubscriptionClosed
	}
	msg, err := s.sub.NextMsgWithContext(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if s.closed.Load() {
			return nil, cnst.ErrSubscriptionClosed
		}
		return nil, fmt.Errorf("nats subscription to %s failed: %w: %w", s.channel, cnst.ErrTransportUnavailable, err)
	}
	return msg.Data, nil
}

func (s *natsSubscription) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := s.sub.Unsubscribe()
	if errors.Is(err, nats.ErrConnectionClosed) || errors.Is(err, nats.ErrBadSubscription) {
		return nil
	}
	return err
}
