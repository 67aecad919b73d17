package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Connection is the live real-time connection owned by a Session.
type Connection interface {
	// Send writes one text frame carrying payload verbatim.
	Send(ctx context.Context, payload []byte) error

	// Closed reports whether the connection is no longer writable.
	Closed() bool

	// Close terminates the connection. Calling it again returns nil.
	Close() error
}

// Task is the handle of a session's background listener.
type Task interface {
	// Stop requests cancellation and returns once the task has fully exited.
	Stop()
}

// Session binds one user to one open connection on this process.
type Session struct {
	ID        string
	UserID    string
	Conn      Connection
	CreatedAt time.Time

	listener Task
}

// New creates a session with a fresh id
func New(userID string, conn Connection) *Session {
	return &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Conn:      conn,
		CreatedAt: time.Now(),
	}
}

// Attach stores the running listener on the session
func (s *Session) Attach(t Task) {
	s.listener = t
}

// Listener returns the attached listener, nil before Attach
func (s *Session) Listener() Task {
	return s.listener
}
