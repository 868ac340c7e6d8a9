package push

import (
	"context"
	"errors"
	"sync"
	"time"

	"anoa.com/boardpush/internal/entity"
	"anoa.com/boardpush/pkg/metrics"
	"go.uber.org/zap"
)

// AsyncChannel detaches delivery from the caller. Each send runs on its own
// goroutine bounded by timeout; failures are logged and dropped.
type AsyncChannel struct {
	inner   Channel
	timeout time.Duration
	logger  *zap.Logger
	wg      sync.WaitGroup
}

func NewAsyncChannel(inner Channel, timeout time.Duration, logger *zap.Logger) *AsyncChannel {
	return &AsyncChannel{
		inner:   inner,
		timeout: timeout,
		logger:  logger.Named("push"),
	}
}

// SendToUser always returns nil.
func (c *AsyncChannel) SendToUser(ctx context.Context, address string, payload *entity.Notification) error {
	snapshot := *payload
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()

		err := c.inner.SendToUser(sendCtx, address, &snapshot)
		switch {
		case err == nil:
			metrics.DeliveriesTotal.WithLabelValues(metrics.OutcomeDelivered).Inc()
		case errors.Is(err, ErrNoSubscriber):
			metrics.DeliveriesTotal.WithLabelValues(metrics.OutcomeUndelivered).Inc()
			c.logger.Debug("recipient not connected",
				zap.Uint64("notification_id", snapshot.ID),
			)
		default:
			metrics.DeliveriesTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
			c.logger.Debug("push delivery dropped",
				zap.Uint64("notification_id", snapshot.ID),
				zap.Error(err),
			)
		}
	}()
	return nil
}

// Close waits for in-flight sends.
func (c *AsyncChannel) Close() {
	c.wg.Wait()
}
