package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/102326/PyLab/internal/common/cnst"
)

const closeGracePeriod = time.Second

// WSConn adapts a gorilla websocket connection to Connection.
// Writes are serialized; gorilla allows one concurrent writer only.
type WSConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	mu     sync.Mutex
	closed atomic.Bool
	// set after a failed write; the stream can no longer carry a close frame
	broken atomic.Bool

	once     sync.Once
	closeErr error
}

var _ Connection = (*WSConn)(nil)

// NewWSConn wraps an accepted websocket connection
func NewWSConn(conn *websocket.Conn, writeTimeout time.Duration, readLimit int64) *WSConn {
	if readLimit > 0 {
		conn.SetReadLimit(readLimit)
	}
	return &WSConn{conn: conn, writeTimeout: writeTimeout}
}

// Send implements Connection.Send
func (c *WSConn) Send(ctx context.Context, payload []byte) error {
	if c.closed.Load() {
		return cnst.ErrConnClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	deadline := time.Now().Add(c.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		c.closed.Store(true)
		c.broken.Store(true)
		return err
	}
	// cancelling ctx unblocks a write stuck on a peer that stopped reading
	fired := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		defer close(fired)
		_ = c.conn.NetConn().SetWriteDeadline(time.Now())
	})
	defer func() {
		// the next writer must not see this deadline land after its own
		if !stop() {
			<-fired
		}
	}()

	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		// a failed write leaves the frame stream corrupt
		c.closed.Store(true)
		c.broken.Store(true)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %w", ctxErr, err)
		}
		return err
	}
	return nil
}

// ReadMessage reads the next inbound frame
func (c *WSConn) ReadMessage() (int, []byte, error) {
	return c.conn.ReadMessage()
}

// Closed implements Connection.Closed
func (c *WSConn) Closed() bool {
	return c.closed.Load()
}

// RemoteAddr returns the peer address
func (c *WSConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// Close implements Connection.Close with a normal closure frame
func (c *WSConn) Close() error {
	return c.CloseWith(websocket.CloseNormalClosure, "")
}

// CloseWith sends a close frame carrying code and reason, then closes the socket
func (c *WSConn) CloseWith(code int, reason string) error {
	first := false
	c.once.Do(func() {
		first = true
		c.closed.Store(true)
		if !c.broken.Load() {
			// WriteControl may run concurrently with other writers
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(code, reason),
				time.Now().Add(closeGracePeriod))
		}
		c.closeErr = c.conn.Close()
	})
	if !first {
		return nil
	}
	return c.closeErr
}
