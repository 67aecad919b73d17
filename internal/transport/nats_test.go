package transport

import (
	"context"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/102326/PyLab/internal/common/cnst"
	"github.com/102326/PyLab/internal/common/config"
)

func TestNATSTransport_Contract(t *testing.T) {
	opts := natsserver.DefaultTestOptions
	opts.Port = -1
	srv := natsserver.RunServer(&opts)
	defer srv.Shutdown()

	tr, err := NewNATSTransport(zap.NewNop(), config.TransportNATSConfig{
		URL:           srv.ClientURL(),
		Name:          "notifyd-test",
		ReconnectWait: 10 * time.Millisecond,
		MaxReconnects: 1,
	})
	require.NoError(t, err)
	defer tr.Close()

	runContract(t, tr)
}

func TestNATSTransport_ReceiveFailsWhenConnectionClosed(t *testing.T) {
	opts := natsserver.DefaultTestOptions
	opts.Port = -1
	srv := natsserver.RunServer(&opts)
	defer srv.Shutdown()

	tr, err := NewNATSTransport(zap.NewNop(), config.TransportNATSConfig{URL: srv.ClientURL(), MaxReconnects: 0})
	require.NoError(t, err)

	sub, err := tr.Subscribe(context.Background(), "notify:1")
	require.NoError(t, err)
	require.NoError(t, tr.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = sub.Receive(ctx)
	require.Error(t, err)
	assert.NotErrorIs(t, err, context.DeadlineExceeded)
	assert.NoError(t, sub.Close())
}

func TestNewNATSTransport_ConnectionError(t *testing.T) {
	tr, err := NewNATSTransport(zap.NewNop(), config.TransportNATSConfig{URL: "nats://127.0.0.1:1"})
	assert.Nil(t, tr)
	assert.ErrorIs(t, err, cnst.ErrTransportUnavailable)
}
