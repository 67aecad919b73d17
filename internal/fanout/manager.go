package fanout

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/102326/PyLab/internal/common/cnst"
	"github.com/102326/PyLab/internal/session"
	"github.com/102326/PyLab/internal/transport"
	"github.com/102326/PyLab/pkg/logger"
	"github.com/102326/PyLab/pkg/metrics"
)

// Disconnect reasons reported to metrics and logs
const (
	ReasonClient   = "client"
	ReasonReplaced = "replaced"
	ReasonShutdown = "shutdown"
)

// Manager owns the lifecycle of every session on this process: it keeps the
// registry and the per-session listeners consistent across connect,
// disconnect, reconnect and listener failure.
//
// Operations on one user are serialized by a per-user lock; operations on
// different users proceed in parallel.
type Manager struct {
	logger    *zap.Logger
	registry  *session.Registry
	transport transport.Transport
	metrics   *metrics.Metrics

	locks *keyMutex
	// tracks listener goroutines and scheduled teardowns
	wg sync.WaitGroup

	// held shared by Connect and by teardown scheduling; Shutdown takes it
	// exclusively to flip closing, so no wg.Add races wg.Wait
	closeMu sync.RWMutex
	closing bool
}

// NewManager creates a manager over registry and tr; m may be nil
func NewManager(lg *zap.Logger, registry *session.Registry, tr transport.Transport, m *metrics.Metrics) *Manager {
	return &Manager{
		logger:    lg.Named("fanout.manager"),
		registry:  registry,
		transport: tr,
		metrics:   m,
		locks:     newKeyMutex(),
	}
}

// Connect tears down any prior session of userID, subscribes a new listener
// and registers the new session. If the subscription cannot be set up the
// session is not registered and the error is returned; the caller owns conn
// and should close it.
func (m *Manager) Connect(ctx context.Context, userID string, conn session.Connection) (*session.Session, error) {
	m.closeMu.RLock()
	defer m.closeMu.RUnlock()
	if m.closing {
		return nil, cnst.ErrShuttingDown
	}

	unlock := m.locks.Lock(userID)
	defer unlock()

	m.disconnectLocked(userID, ReasonReplaced)

	sess := session.New(userID, conn)
	lg := logger.ForSession(m.logger, userID, sess.ID)
	l := NewListener(lg, m.transport, sess, m.metrics, func(reason ExitReason) {
		m.listenerExited(sess, reason)
	})

	m.wg.Add(1)
	if err := l.Start(ctx); err != nil {
		m.wg.Done()
		m.metrics.SubscribeFailed()
		lg.Error("failed to start listener", zap.Error(err))
		return nil, fmt.Errorf("failed to start listener for user %s: %w", userID, err)
	}
	sess.Attach(l)
	m.registry.Register(userID, sess)
	m.metrics.SessionOpened()

	lg.Info("user connected")
	return sess, nil
}

// Disconnect releases the session of userID: registry entry first, then the
// listener (awaited), then the connection. It is a no-op for absent users
// and never fails.
func (m *Manager) Disconnect(userID string) {
	unlock := m.locks.Lock(userID)
	defer unlock()
	m.disconnectLocked(userID, ReasonClient)
}

// DisconnectSession releases sess only while it is still the registered
// session of its user, so a replaced connection cannot tear down its successor.
func (m *Manager) DisconnectSession(sess *session.Session) {
	m.teardown(sess, ReasonClient)
}

// SendDirect writes message to the user's connection when the user is
// connected to this process. It never crosses processes; use a Publisher for
// that. A write failure schedules teardown of the session.
func (m *Manager) SendDirect(ctx context.Context, userID string, message []byte) (bool, error) {
	sess, ok := m.registry.Get(userID)
	if !ok {
		m.metrics.DirectSend(false)
		return false, nil
	}
	if err := sess.Conn.Send(ctx, message); err != nil {
		m.metrics.DirectSend(false)
		m.schedule(func() { m.teardown(sess, ExitWriteFailed.String()) })
		return false, err
	}
	m.metrics.DirectSend(true)
	return true, nil
}

// Lookup returns the live session of userID on this process
func (m *Manager) Lookup(userID string) (*session.Session, bool) {
	return m.registry.Get(userID)
}

// Count returns the number of live sessions on this process
func (m *Manager) Count() int {
	return m.registry.Len()
}

// Shutdown refuses further connects, disconnects every session and waits
// for background teardowns
func (m *Manager) Shutdown(ctx context.Context) error {
	// waits for in-flight connects, so the snapshot below sees their sessions
	m.closeMu.Lock()
	m.closing = true
	m.closeMu.Unlock()

	sessions := m.registry.List()
	m.logger.Info("shutting down sessions", zap.Int("count", len(sessions)))
	for _, sess := range sessions {
		m.teardown(sess, ReasonShutdown)
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// schedule runs fn on a tracked goroutine. After Shutdown began it is
// dropped; Shutdown tears down every registered session itself.
func (m *Manager) schedule(fn func()) {
	m.closeMu.RLock()
	defer m.closeMu.RUnlock()
	if m.closing {
		return
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		fn()
	}()
}

func (m *Manager) listenerExited(sess *session.Session, reason ExitReason) {
	defer m.wg.Done()
	if reason == ExitCancelled {
		return
	}
	m.teardown(sess, reason.String())
}

func (m *Manager) teardown(sess *session.Session, reason string) {
	unlock := m.locks.Lock(sess.UserID)
	defer unlock()
	if !m.registry.RemoveIf(sess.UserID, sess.ID) {
		return
	}
	m.release(sess, reason)
}

// disconnectLocked must be called with the user's lock held
func (m *Manager) disconnectLocked(userID, reason string) {
	sess := m.registry.Remove(userID)
	if sess == nil {
		return
	}
	m.release(sess, reason)
}

// release stops the listener before closing the connection so nothing is
// relayed to a closing connection.
func (m *Manager) release(sess *session.Session, reason string) {
	lg := logger.ForSession(m.logger, sess.UserID, sess.ID)
	if l := sess.Listener(); l != nil {
		l.Stop()
	}
	if err := sess.Conn.Close(); err != nil {
		lg.Debug("error closing connection", zap.Error(err))
	}
	m.metrics.SessionClosed(reason)
	lg.Info("user resources cleaned up", zap.String("reason", reason))
}
