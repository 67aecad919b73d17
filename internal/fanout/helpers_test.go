package fanout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/102326/PyLab/internal/common/cnst"
	"github.com/102326/PyLab/internal/transport"
)

// fakeConn records relayed payloads in memory
type fakeConn struct {
	mu         sync.Mutex
	msgs       [][]byte
	closed     bool
	closeCalls int
	failWrites bool
	recv       chan []byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{recv: make(chan []byte, 256)}
}

func (c *fakeConn) Send(_ context.Context, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return cnst.ErrConnClosed
	}
	if c.failWrites {
		return errors.New("write: broken pipe")
	}
	c.msgs = append(c.msgs, payload)
	c.recv <- payload
	return nil
}

func (c *fakeConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeCalls++
	c.closed = true
	return nil
}

// peerGone simulates the remote end going away without a close call
func (c *fakeConn) peerGone() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *fakeConn) breakWrites() {
	c.mu.Lock()
	c.failWrites = true
	c.mu.Unlock()
}

func (c *fakeConn) received() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.msgs))
	copy(out, c.msgs)
	return out
}

func (c *fakeConn) closeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCalls
}

func (c *fakeConn) expect(t *testing.T, want string) {
	t.Helper()
	select {
	case got := <-c.recv:
		require.Equal(t, want, string(got))
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %q", want)
	}
}

func (c *fakeConn) expectNothing(t *testing.T) {
	t.Helper()
	select {
	case got := <-c.recv:
		t.Fatalf("unexpected payload %q", got)
	case <-time.After(100 * time.Millisecond):
	}
}

// brokenTransport fails every subscribe
type brokenTransport struct {
	transport.Transport
}

func (brokenTransport) Subscribe(context.Context, string) (transport.Subscription, error) {
	return nil, cnst.ErrTransportUnavailable
}
