package transport

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/102326/PyLab/internal/common/cnst"
)

// runContract exercises the behaviour every backend must share.
func runContract(t *testing.T, tr Transport) {
	t.Helper()

	t.Run("relays bytes unmodified", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		sub, err := tr.Subscribe(ctx, "notify:1")
		require.NoError(t, err)
		defer sub.Close()
		assert.Equal(t, "notify:1", sub.Channel())

		payload := []byte{'{', 0x00, 0xff, 'x', '}'}
		require.NoError(t, tr.Publish(ctx, "notify:1", payload))

		got, err := sub.Receive(ctx)
		require.NoError(t, err)
		assert.Equal(t, payload, got)
	})

	t.Run("preserves publish order", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		sub, err := tr.Subscribe(ctx, "notify:2")
		require.NoError(t, err)
		defer sub.Close()

		for i := 0; i < 20; i++ {
			require.NoError(t, tr.Publish(ctx, "notify:2", []byte(fmt.Sprintf("m%d", i))))
		}
		for i := 0; i < 20; i++ {
			got, err := sub.Receive(ctx)
			require.NoError(t, err)
			assert.Equal(t, fmt.Sprintf("m%d", i), string(got))
		}
	})

	t.Run("channels are isolated", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		sub, err := tr.Subscribe(ctx, "notify:3")
		require.NoError(t, err)
		defer sub.Close()

		require.NoError(t, tr.Publish(ctx, "notify:4", []byte("other")))
		require.NoError(t, tr.Publish(ctx, "notify:3", []byte("mine")))

		got, err := sub.Receive(ctx)
		require.NoError(t, err)
		assert.Equal(t, "mine", string(got))
	})

	t.Run("publish without subscribers is not an error", func(t *testing.T) {
		assert.NoError(t, tr.Publish(context.Background(), "notify:nobody", []byte("x")))
	})

	t.Run("receive honours cancellation", func(t *testing.T) {
		sub, err := tr.Subscribe(context.Background(), "notify:5")
		require.NoError(t, err)
		defer sub.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err = sub.Receive(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("closed subscription stops receiving", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		sub, err := tr.Subscribe(ctx, "notify:6")
		require.NoError(t, err)
		require.NoError(t, sub.Close())
		assert.NoError(t, sub.Close())

		_, err = sub.Receive(ctx)
		assert.ErrorIs(t, err, cnst.ErrSubscriptionClosed)
	})
}
