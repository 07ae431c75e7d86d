package events

import (
	"log/slog"

	"link-shortener/internal/domain"
	"link-shortener/internal/metrics"

	"github.com/ThreeDotsLabs/watermill/message"
	gobreaker "github.com/sony/gobreaker/v2"
)

// Publisher appends click events to the event channel.
//
// Click tracking is BEST-EFFORT relative to the redirect: a channel
// outage must never fail or delay the response the visitor is waiting
// for. PublishClick therefore swallows every failure - it logs, counts,
// and returns. The circuit breaker keeps a dead broker from adding
// connection-timeout latency to every redirect while it is down.
type Publisher struct {
	publisher message.Publisher
	breaker   *gobreaker.CircuitBreaker[any]
	logger    *slog.Logger
}

// NewPublisher creates a click event publisher over any channel transport
func NewPublisher(publisher message.Publisher, logger *slog.Logger) *Publisher {
	breaker := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name: "click-publisher",
	})

	return &Publisher{
		publisher: publisher,
		breaker:   breaker,
		logger:    logger,
	}
}

// PublishClick appends one click event for an admitted redirect.
// Fire-and-forget: failures are logged and counted, never returned.
func (p *Publisher) PublishClick(shortKey, ip, userAgent, referer string) {
	event := domain.NewClickEvent(shortKey, ip, userAgent, referer)

	msg, err := Marshal(event)
	if err != nil {
		p.logger.Error("failed to encode click event", "short_key", shortKey, "error", err)
		metrics.ClickPublishFailuresTotal.Inc()
		return
	}

	_, err = p.breaker.Execute(func() (any, error) {
		return nil, p.publisher.Publish(TopicClicks, msg)
	})
	if err != nil {
		p.logger.Error("failed to publish click event", "short_key", shortKey, "error", err)
		metrics.ClickPublishFailuresTotal.Inc()
		return
	}

	metrics.ClicksPublishedTotal.Inc()
	p.logger.Debug("published click event", "short_key", shortKey)
}

// Close shuts down the underlying channel publisher
func (p *Publisher) Close() error {
	return p.publisher.Close()
}
