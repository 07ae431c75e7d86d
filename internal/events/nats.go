package events

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
)

// NATSConfig holds connection settings for the NATS JetStream transport
// backing the click event channel.
type NATSConfig struct {
	URL string

	// QueueGroup is the consumer-group name: multiple aggregator
	// instances in the same group share the stream without double-
	// consuming a delivery.
	QueueGroup string

	// DurableName keeps the consumer position across restarts
	DurableName string

	MaxReconnects    int
	ReconnectWait    time.Duration
	AckWaitTimeout   time.Duration
	MaxDeliver       int
	MaxAckPending    int
	SubscribersCount int
	CloseTimeout     time.Duration
}

// DefaultNATSConfig returns production defaults for the click channel
func DefaultNATSConfig(url string) NATSConfig {
	return NATSConfig{
		URL:              url,
		QueueGroup:       "clicks-group",
		DurableName:      "clicks-aggregator",
		MaxReconnects:    -1, // Retry forever
		ReconnectWait:    2 * time.Second,
		AckWaitTimeout:   30 * time.Second,
		MaxDeliver:       5,
		MaxAckPending:    256,
		SubscribersCount: 1, // One pull loop per instance preserves per-key order
		CloseTimeout:     30 * time.Second,
	}
}

func natsOptions(cfg NATSConfig, logger watermill.LoggerAdapter) []natsgo.Option {
	return []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{
				"url": nc.ConnectedUrl(),
			})
		}),
	}
}

// NewNATSPublisher creates a JetStream publisher for the click channel.
// Message UUIDs are tracked as Nats-Msg-Id so the broker deduplicates
// publish retries.
func NewNATSPublisher(cfg NATSConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	wmConfig := wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOptions(cfg, logger),
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: true,
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}

	pub, err := wmNats.NewPublisher(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create nats publisher: %w", err)
	}

	return pub, nil
}

// NewNATSSubscriber creates a durable JetStream subscriber for the
// aggregator's consumer group.
func NewNATSSubscriber(cfg NATSConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	subOpts := []natsgo.SubOpt{
		natsgo.MaxDeliver(cfg.MaxDeliver),
		natsgo.MaxAckPending(cfg.MaxAckPending),
		natsgo.AckWait(cfg.AckWaitTimeout),
		natsgo.DeliverAll(), // Consume the backlog after a restart
	}

	wmConfig := wmNats.SubscriberConfig{
		URL:              cfg.URL,
		QueueGroupPrefix: cfg.QueueGroup,
		SubscribersCount: cfg.SubscribersCount,
		AckWaitTimeout:   cfg.AckWaitTimeout,
		CloseTimeout:     cfg.CloseTimeout,
		NatsOptions:      natsOptions(cfg, logger),
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:         false,
			AutoProvision:    true,
			AckAsync:         false, // Synchronous acks: offset commit before next delivery
			SubscribeOptions: subOpts,
			DurablePrefix:    cfg.DurableName,
		},
	}

	sub, err := wmNats.NewSubscriber(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create nats subscriber: %w", err)
	}

	return sub, nil
}
