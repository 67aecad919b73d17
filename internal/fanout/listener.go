package fanout

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/102326/PyLab/internal/notify"
	"github.com/102326/PyLab/internal/session"
	"github.com/102326/PyLab/internal/transport"
	"github.com/102326/PyLab/pkg/metrics"
)

// ExitReason tells why a listener's relay loop returned
type ExitReason int

const (
	// ExitCancelled means Stop was called; it is not an error
	ExitCancelled ExitReason = iota
	// ExitConnClosed means the connection was no longer writable
	ExitConnClosed
	// ExitWriteFailed means relaying a payload to the connection failed
	ExitWriteFailed
	// ExitTransportError means the subscription broke
	ExitTransportError
)

func (r ExitReason) String() string {
	switch r {
	case ExitCancelled:
		return "cancelled"
	case ExitConnClosed:
		return "conn_closed"
	case ExitWriteFailed:
		return "write_failed"
	case ExitTransportError:
		return "transport_error"
	default:
		return "unknown"
	}
}

// Listener relays one user's channel to that user's connection for the
// lifetime of a session.
type Listener struct {
	logger    *zap.Logger
	transport transport.Transport
	sess      *session.Session
	metrics   *metrics.Metrics
	onExit    func(ExitReason)

	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

var _ session.Task = (*Listener)(nil)

// NewListener creates a listener for sess. onExit runs on the listener
// goroutine once the loop has stopped and the subscription is released.
func NewListener(logger *zap.Logger, tr transport.Transport, sess *session.Session, m *metrics.Metrics, onExit func(ExitReason)) *Listener {
	return &Listener{
		logger:    logger,
		transport: tr,
		sess:      sess,
		metrics:   m,
		onExit:    onExit,
		done:      make(chan struct{}),
	}
}

// Start subscribes to the user's channel and launches the relay loop.
// A subscribe failure is returned and no goroutine is left behind.
func (l *Listener) Start(ctx context.Context) error {
	sub, err := l.transport.Subscribe(ctx, notify.ChannelFor(l.sess.UserID))
	if err != nil {
		close(l.done)
		return err
	}
	loopCtx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.logger.Debug("listener subscribed", zap.String("channel", sub.Channel()))

	go l.run(loopCtx, sub)
	return nil
}

// Stop cancels the relay loop and waits until it has exited and the
// subscription has been released.
func (l *Listener) Stop() {
	l.stopOnce.Do(func() {
		if l.cancel != nil {
			l.cancel()
		}
	})
	<-l.done
}

// Done is closed once the loop has exited
func (l *Listener) Done() <-chan struct{} {
	return l.done
}

func (l *Listener) run(ctx context.Context, sub transport.Subscription) {
	reason := l.relay(ctx, sub)
	close(l.done)
	l.logger.Debug("listener stopped", zap.Stringer("reason", reason))
	if l.onExit != nil {
		l.onExit(reason)
	}
}

func (l *Listener) relay(ctx context.Context, sub transport.Subscription) ExitReason {
	defer func() {
		if err := sub.Close(); err != nil {
			l.logger.Warn("failed to release subscription",
				zap.String("channel", sub.Channel()),
				zap.Error(err))
		}
	}()

	for {
		payload, err := sub.Receive(ctx)
		if ctx.Err() != nil {
			return ExitCancelled
		}
		if err != nil {
			l.logger.Error("subscription failed, tearing session down",
				zap.String("channel", sub.Channel()),
				zap.Error(err))
			return ExitTransportError
		}

		if l.sess.Conn.Closed() {
			l.logger.Info("connection closed, stopping listener")
			return ExitConnClosed
		}
		if err := l.sess.Conn.Send(ctx, payload); err != nil {
			if ctx.Err() != nil {
				return ExitCancelled
			}
			l.logger.Warn("failed to relay payload, tearing session down", zap.Error(err))
			return ExitWriteFailed
		}
		l.metrics.Relayed()
	}
}
