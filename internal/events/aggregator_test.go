package events

import (
	"context"
	"testing"
	"time"

	"link-shortener/internal/counter"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregator_IncrementsPendingCounterPerEvent(t *testing.T) {
	pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubsub.Close()

	store := counter.NewMemoryStore()
	aggregator := NewAggregator(pubsub, store, 48*time.Hour, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = aggregator.Run(ctx) }()

	// Give the subscription time to attach before publishing
	time.Sleep(50 * time.Millisecond)

	publisher := NewPublisher(pubsub, testLogger())
	for i := 0; i < 3; i++ {
		publisher.PublishClick("xYz1", "1.2.3.4", "curl/8.0", "")
	}

	require.Eventually(t, func() bool {
		return store.PendingDelta(counter.PendingClicksKey, "xYz1") == 3
	}, 2*time.Second, 10*time.Millisecond)
}

func TestAggregator_MalformedEventDoesNotHaltConsumption(t *testing.T) {
	pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubsub.Close()

	store := counter.NewMemoryStore()
	aggregator := NewAggregator(pubsub, store, 48*time.Hour, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = aggregator.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)

	// A poison message followed by a valid one
	poison := message.NewMessage(watermill.NewUUID(), []byte(`{{{garbage`))
	require.NoError(t, pubsub.Publish(TopicClicks, poison))

	publisher := NewPublisher(pubsub, testLogger())
	publisher.PublishClick("abc1", "1.2.3.4", "curl/8.0", "")

	// The valid event behind the poison one still lands
	require.Eventually(t, func() bool {
		return store.PendingDelta(counter.PendingClicksKey, "abc1") == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestAggregator_EventsForSameKeyAccumulate(t *testing.T) {
	pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubsub.Close()

	store := counter.NewMemoryStore()
	aggregator := NewAggregator(pubsub, store, 48*time.Hour, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = aggregator.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)

	publisher := NewPublisher(pubsub, testLogger())
	publisher.PublishClick("one", "1.1.1.1", "", "")
	publisher.PublishClick("two", "2.2.2.2", "", "")
	publisher.PublishClick("one", "3.3.3.3", "", "")

	require.Eventually(t, func() bool {
		return store.PendingDelta(counter.PendingClicksKey, "one") == 2 &&
			store.PendingDelta(counter.PendingClicksKey, "two") == 1
	}, 2*time.Second, 10*time.Millisecond)

	pending, cursor, err := store.HScan(ctx, counter.PendingClicksKey, 0, 100)
	require.NoError(t, err)
	assert.Zero(t, cursor)
	assert.Len(t, pending, 2)
}
