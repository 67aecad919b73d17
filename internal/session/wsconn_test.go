package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/102326/PyLab/internal/common/cnst"
)

// newWSPair returns the server side WSConn and the client side gorilla conn
func newWSPair(t *testing.T) (*WSConn, *websocket.Conn) {
	t.Helper()
	return newWSPairWithTimeout(t, time.Second)
}

func newWSPairWithTimeout(t *testing.T, writeTimeout time.Duration) (*WSConn, *websocket.Conn) {
	t.Helper()
	accepted := make(chan *websocket.Conn, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		accepted <- c
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	select {
	case c := <-accepted:
		return NewWSConn(c, writeTimeout, 1024), client
	case <-time.After(2 * time.Second):
		t.Fatal("server did not accept connection")
		return nil, nil
	}
}

func TestWSConn_SendWritesTextFrame(t *testing.T) {
	conn, client := newWSPair(t)

	require.NoError(t, conn.Send(context.Background(), []byte(`{"type":"chat"}`)))

	mt, data, err := client.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, mt)
	assert.Equal(t, `{"type":"chat"}`, string(data))
	assert.NotEmpty(t, conn.RemoteAddr())
}

func TestWSConn_ReadMessage(t *testing.T) {
	conn, client := newWSPair(t)
	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte("ping")))

	mt, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, mt)
	assert.Equal(t, "ping", string(data))
}

func TestWSConn_CloseIsIdempotent(t *testing.T) {
	conn, client := newWSPair(t)

	assert.False(t, conn.Closed())
	assert.NoError(t, conn.Close())
	assert.True(t, conn.Closed())
	assert.NoError(t, conn.Close())

	assert.ErrorIs(t, conn.Send(context.Background(), []byte("x")), cnst.ErrConnClosed)

	_, _, err := client.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestWSConn_CloseWithReason(t *testing.T) {
	conn, client := newWSPair(t)

	require.NoError(t, conn.CloseWith(websocket.CloseTryAgainLater, "transport unavailable"))
	_, _, err := client.ReadMessage()
	var ce *websocket.CloseError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, websocket.CloseTryAgainLater, ce.Code)
	assert.Equal(t, "transport unavailable", ce.Text)
}

func TestWSConn_SendAfterPeerGone(t *testing.T) {
	conn, client := newWSPair(t)
	require.NoError(t, client.Close())

	// the first writes may still land in socket buffers; eventually one fails
	assert.Eventually(t, func() bool {
		_ = conn.Send(context.Background(), []byte("x"))
		return conn.Closed()
	}, 3*time.Second, 10*time.Millisecond)
}

func TestWSConn_SendHonoursCancellation(t *testing.T) {
	// the client never reads, so writes block once the socket buffers fill
	conn, _ := newWSPairWithTimeout(t, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	payload := make([]byte, 1<<20)

	errs := make(chan error, 1)
	go func() {
		for {
			if err := conn.Send(ctx, payload); err != nil {
				errs <- err
				return
			}
		}
	}()

	time.Sleep(300 * time.Millisecond)
	cancel()

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Send did not return after cancellation")
	}

	start := time.Now()
	require.NoError(t, conn.Close())
	assert.Less(t, time.Since(start), closeGracePeriod)
}

func TestWSConn_SendWithCancelledContext(t *testing.T) {
	conn, client := newWSPair(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, conn.Send(ctx, []byte("x")), context.Canceled)
	assert.False(t, conn.Closed())

	require.NoError(t, conn.Send(context.Background(), []byte("y")))
	_, data, err := client.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "y", string(data))
}
