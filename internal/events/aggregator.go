package events

import (
	"context"
	"log/slog"
	"time"

	"link-shortener/internal/counter"
	"link-shortener/internal/metrics"

	"github.com/ThreeDotsLabs/watermill/message"
)

// Aggregator consumes click events from the channel and folds each one
// into the pending counter for its short key.
//
// Delivery is at-least-once: an event redelivered after a crash before
// ack causes a double increment. Accepted - the pipeline trades perfect
// accuracy for availability, and the durable count can only ever be >=
// the true count, never below it.
type Aggregator struct {
	subscriber message.Subscriber
	store      counter.Store
	pendingTTL time.Duration
	logger     *slog.Logger
}

// NewAggregator creates a click event aggregator.
// pendingTTL bounds how long un-flushed deltas survive if the flush
// worker is down for an extended period (days, not hours).
func NewAggregator(subscriber message.Subscriber, store counter.Store, pendingTTL time.Duration, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		subscriber: subscriber,
		store:      store,
		pendingTTL: pendingTTL,
		logger:     logger,
	}
}

// Run consumes click events until the context is canceled.
// Intended to be started as a goroutine from main.
func (a *Aggregator) Run(ctx context.Context) error {
	messages, err := a.subscriber.Subscribe(ctx, TopicClicks)
	if err != nil {
		return err
	}

	a.logger.Info("aggregator started", "topic", TopicClicks)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			a.process(ctx, msg)
		}
	}
}

// process handles a single delivery. It must never halt consumption:
// a malformed event is dropped (acked), a store failure is nacked so the
// channel redelivers it.
func (a *Aggregator) process(ctx context.Context, msg *message.Message) {
	event, err := Unmarshal(msg)
	if err != nil {
		// Poison message: drop it and keep consuming
		a.logger.Error("dropping malformed click event",
			"message_uuid", msg.UUID,
			"error", err,
		)
		metrics.MalformedEventsTotal.Inc()
		msg.Ack()
		return
	}

	if _, err := a.store.HIncrBy(ctx, counter.PendingClicksKey, event.ShortKey, 1); err != nil {
		// Transient store failure: leave the event on the channel
		a.logger.Error("failed to aggregate click event",
			"short_key", event.ShortKey,
			"error", err,
		)
		msg.Nack()
		return
	}

	// Refresh the namespace TTL on every touch. Failure here is harmless:
	// the increment already landed, and the next event refreshes again.
	if err := a.store.Expire(ctx, counter.PendingClicksKey, a.pendingTTL); err != nil {
		a.logger.Warn("failed to refresh pending counter TTL", "error", err)
	}

	metrics.ClicksAggregatedTotal.Inc()
	msg.Ack()
}
