package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"link-shortener/internal/domain"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// brokenPublisher simulates an unavailable channel
type brokenPublisher struct{}

func (brokenPublisher) Publish(string, ...*message.Message) error {
	return errors.New("broker unavailable")
}

func (brokenPublisher) Close() error { return nil }

func TestPublishClick_DeliversEventWithPartitionKey(t *testing.T) {
	pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubsub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	messages, err := pubsub.Subscribe(ctx, TopicClicks)
	require.NoError(t, err)

	publisher := NewPublisher(pubsub, testLogger())
	publisher.PublishClick("xYz1", "1.2.3.4", "curl/8.0", "https://example.org")

	select {
	case msg := <-messages:
		msg.Ack()

		assert.Equal(t, "xYz1", msg.Metadata.Get(MetadataPartitionKey))

		var event domain.ClickEvent
		require.NoError(t, json.Unmarshal(msg.Payload, &event))
		assert.Equal(t, "xYz1", event.ShortKey)
		assert.Equal(t, "1.2.3.4", event.IP)
		assert.Equal(t, "curl/8.0", event.UserAgent)
		assert.Equal(t, "https://example.org", event.Referer)
		assert.WithinDuration(t, time.Now(), event.OccurredAt, 5*time.Second)
	case <-time.After(2 * time.Second):
		t.Fatal("no click event delivered")
	}
}

func TestPublishClick_ChannelFailureDoesNotPropagate(t *testing.T) {
	publisher := NewPublisher(brokenPublisher{}, testLogger())

	// Must return normally: the redirect path never sees tracking failures
	assert.NotPanics(t, func() {
		publisher.PublishClick("xYz1", "1.2.3.4", "curl/8.0", "")
	})
}

func TestMarshalUnmarshal_RoundTrip(t *testing.T) {
	event := domain.NewClickEvent("abc1", "10.0.0.1", "Mozilla/5.0", "https://ref.example")

	msg, err := Marshal(event)
	require.NoError(t, err)
	assert.NotEmpty(t, msg.UUID)

	decoded, err := Unmarshal(msg)
	require.NoError(t, err)
	assert.Equal(t, event.ShortKey, decoded.ShortKey)
	assert.Equal(t, event.IP, decoded.IP)
}

func TestUnmarshal_RejectsEventWithoutKey(t *testing.T) {
	msg := message.NewMessage(watermill.NewUUID(), []byte(`{"ip":"1.2.3.4"}`))

	_, err := Unmarshal(msg)
	assert.Error(t, err)
}

func TestUnmarshal_RejectsGarbagePayload(t *testing.T) {
	msg := message.NewMessage(watermill.NewUUID(), []byte(`not json at all`))

	_, err := Unmarshal(msg)
	assert.Error(t, err)
}
