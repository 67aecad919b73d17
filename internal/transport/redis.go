package transport

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/102326/PyLab/internal/common/cnst"
	"github.com/102326/PyLab/internal/common/config"
	"github.com/102326/PyLab/pkg/utils"
)

// RedisTransport implements Transport on Redis PUBLISH/SUBSCRIBE
type RedisTransport struct {
	logger *zap.Logger
	client redis.UniversalClient
}

var _ Transport = (*RedisTransport)(nil)

// NewRedisTransport connects to Redis and verifies the connection with PING.
// Reconnect with backoff is handled by the go-redis client itself.
func NewRedisTransport(ctx context.Context, logger *zap.Logger, cfg config.TransportRedisConfig) (*RedisTransport, error) {
	addrs := utils.SplitByMultipleDelimiters(cfg.Addr, ";", ",")
	for i := range addrs {
		addrs[i] = strings.TrimSpace(addrs[i])
	}
	opts := &redis.UniversalOptions{
		Addrs:           addrs,
		Username:        cfg.Username,
		Password:        cfg.Password,
		MinRetryBackoff: cfg.MinRetryBackoff,
		MaxRetryBackoff: cfg.MaxRetryBackoff,
	}
	if cfg.ClusterType == cnst.RedisClusterTypeSentinel {
		opts.MasterName = cfg.MasterName
	}
	if cfg.ClusterType != cnst.RedisClusterTypeCluster {
		// can not set db in cluster mode
		opts.DB = cfg.DB
	}
	client := redis.NewUniversalClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w: %w", cnst.ErrTransportUnavailable, err)
	}

	return &RedisTransport{
		logger: logger.Named("transport.redis"),
		client: client,
	}, nil
}

// Publish implements Transport.Publish
func (t *RedisTransport) Publish(ctx context.Context, channel string, payload []byte) error {
	n, err := t.client.Publish(ctx, channel, payload).Result()
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w: %w", channel, cnst.ErrTransportUnavailable, err)
	}
	t.logger.Debug("published",
		zap.String("channel", channel),
		zap.Int("size", len(payload)),
		zap.Int64("receivers", n))
	return nil
}

// Subscribe implements Transport.Subscribe
func (t *RedisTransport) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	ps := t.client.Subscribe(ctx, channel)
	// The first reply is the subscription confirmation.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w: %w", channel, cnst.ErrTransportUnavailable, err)
	}
	return &redisSubscription{
		channel: channel,
		ps:      ps,
		msgs:    ps.Channel(),
	}, nil
}

// Close implements Transport.Close
func (t *RedisTransport) Close() error {
	return t.client.Close()
}

type redisSubscription struct {
	channel string
	ps      *redis.PubSub
	msgs    <-chan *redis.Message
	closed  atomic.Bool
}

func (s *redisSubscription) Channel() string {
	return s.channel
}

func (s *redisSubscription) Receive(ctx context.Context) ([]byte, error) {
	if s.closed.Load() {
		return nil, cnst.ErrSubscriptionClosed
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case msg, ok := <-s.msgs:
		if !ok {
			if s.closed.Load() {
				return nil, cnst.ErrSubscriptionClosed
			}
			return nil, fmt.Errorf("redis subscription to %s ended: %w", s.channel, cnst.ErrTransportUnavailable)
		}
		return []byte(msg.Payload), nil
	}
}

func (s *redisSubscription) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.ps.Close()
}
