package transport

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/102326/PyLab/internal/common/cnst"
	"github.com/102326/PyLab/internal/common/config"
)

// New creates a transport based on configuration
func New(ctx context.Context, logger *zap.Logger, cfg *config.TransportConfig) (Transport, error) {
	logger.Info("Initializing pub/sub transport", zap.String("type", cfg.Type))
	switch cnst.TransportType(cfg.Type) {
	case cnst.TransportRedis, "":
		return NewRedisTransport(ctx, logger, cfg.Redis)
	case cnst.TransportNATS:
		return NewNATSTransport(logger, cfg.NATS)
	case cnst.TransportMemory:
		return NewMemoryTransport(logger), nil
	default:
		return nil, fmt.Errorf("%w: %s", cnst.ErrUnsupportedTransport, cfg.Type)
	}
}
