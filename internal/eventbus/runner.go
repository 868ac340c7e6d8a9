package eventbus

import (
	"context"
	"errors"
	"sync"
	"time"

	"anoa.com/boardpush/internal/event"
	"anoa.com/boardpush/pkg/metrics"
	"go.uber.org/zap"
)

const defaultRetryDelay = time.Second

// Runner drains a Source and dispatches each event on its own goroutine,
// with at most workers events in flight.
type Runner struct {
	source     Source
	dispatcher Dispatcher
	dedup      Deduplicator
	workers    int
	logger     *zap.Logger
	retryDelay time.Duration
}

func NewRunner(source Source, dispatcher Dispatcher, workers int, logger *zap.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		source:     source,
		dispatcher: dispatcher,
		workers:    workers,
		logger:     logger.Named("eventbus"),
		retryDelay: defaultRetryDelay,
	}
}

// WithDeduplicator skips events whose id was already claimed.
func (r *Runner) WithDeduplicator(d Deduplicator) *Runner {
	r.dedup = d
	return r
}

// Run blocks until ctx is cancelled, then waits for in-flight events.
func (r *Runner) Run(ctx context.Context) {
	r.logger.Info("event consumer started", zap.Int("workers", r.workers))
	defer r.logger.Info("event consumer stopped")

	sem := make(chan struct{}, r.workers)
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		msg, err := r.source.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			r.logger.Error("fetch event failed, retrying", zap.Error(err))
			select {
			case <-time.After(r.retryDelay):
				continue
			case <-ctx.Done():
				return
			}
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			// In-flight events finish even when shutdown starts.
			r.handle(context.WithoutCancel(ctx), msg)
		}()
	}
}

func (r *Runner) handle(ctx context.Context, msg Message) {
	defer func() {
		if err := msg.Ack(ctx); err != nil {
			r.logger.Warn("ack event failed", zap.Error(err))
		}
	}()

	ev, err := event.Decode(msg.Value)
	if err != nil {
		metrics.EventsTotal.WithLabelValues(invalidKind(err), metrics.OutcomeInvalid).Inc()
		r.logger.Warn("invalid event envelope",
			zap.ByteString("key", msg.Key),
			zap.Error(err),
		)
		return
	}

	eventID := ev.Metadata().EventID
	if r.dedup != nil {
		claimed, err := r.dedup.Claim(ctx, eventID)
		if err != nil {
			// Handle without dedup while redis is unreachable.
			r.logger.Warn("dedup claim failed", zap.Error(err))
		} else if !claimed {
			metrics.EventsTotal.WithLabelValues(string(ev.Kind()), metrics.OutcomeDuplicate).Inc()
			r.logger.Debug("duplicate event skipped", zap.String("event_id", eventID.String()))
			return
		}
	}

	if err := r.dispatcher.Dispatch(ctx, ev); err != nil {
		r.logger.Error("dispatch event failed",
			zap.String("kind", string(ev.Kind())),
			zap.String("event_id", eventID.String()),
			zap.Error(err),
		)
		if r.dedup != nil {
			if err := r.dedup.Release(ctx, eventID); err != nil {
				r.logger.Warn("dedup release failed", zap.Error(err))
			}
		}
		return
	}

	if r.dedup != nil {
		if err := r.dedup.Confirm(ctx, eventID); err != nil {
			r.logger.Warn("dedup confirm failed", zap.Error(err))
		}
	}
}

func invalidKind(err error) string {
	if errors.Is(err, event.ErrUnknownKind) {
		return "unknown"
	}
	return "malformed"
}
