package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/102326/PyLab/internal/common/cnst"
	"github.com/102326/PyLab/internal/transport"
	"github.com/102326/PyLab/pkg/metrics"
	"github.com/102326/PyLab/pkg/trace"
)

// Publisher pushes events to a user's channel. It does not know whether the
// user is connected to this process, another one, or offline; events for
// offline users are dropped by the transport.
type Publisher struct {
	logger    *zap.Logger
	transport transport.Transport
	metrics   *metrics.Metrics
}

// NewPublisher creates a publisher; m may be nil
func NewPublisher(logger *zap.Logger, tr transport.Transport, m *metrics.Metrics) *Publisher {
	return &Publisher{
		logger:    logger.Named("notify.publisher"),
		transport: tr,
		metrics:   m,
	}
}

// Publish sends payload verbatim to notify:{userID}
func (p *Publisher) Publish(ctx context.Context, userID string, payload []byte) error {
	channel := ChannelFor(userID)
	span := trace.Tracer(cnst.TraceNotify).Start(ctx, cnst.SpanPublish).
		WithAttrs(
			attribute.String(cnst.AttrUserID, userID),
			attribute.String(cnst.AttrChannel, channel),
			attribute.Int(cnst.AttrPayloadSize, len(payload)),
		)
	defer span.End()

	err := p.transport.Publish(span.Ctx, channel, payload)
	p.metrics.Published(err)
	if err != nil {
		span.Fail(err)
		p.logger.Error("failed to publish notification",
			zap.String("channel", channel),
			zap.Error(err))
		return err
	}
	p.logger.Debug("notification published",
		zap.String("channel", channel),
		zap.Int("size", len(payload)))
	return nil
}

// PublishEvent JSON-encodes event and publishes it
func (p *Publisher) PublishEvent(ctx context.Context, userID string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return p.Publish(ctx, userID, data)
}
