package events

import (
	"encoding/json"
	"fmt"

	"link-shortener/internal/domain"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// TopicClicks is the channel topic carrying click events.
// The short key travels as message metadata so the broker (and any
// future partitioned transport) can keep per-key ordering; events for
// different keys have no ordering relationship.
const TopicClicks = "clicks"

// MetadataPartitionKey is the metadata field carrying the partition key
const MetadataPartitionKey = "partition_key"

// Marshal encodes a click event into a channel message
func Marshal(event *domain.ClickEvent) (*message.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal click event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(MetadataPartitionKey, event.ShortKey)
	return msg, nil
}

// Unmarshal decodes a channel message into a click event.
// An event without a short key is malformed: there is nothing to count.
func Unmarshal(msg *message.Message) (*domain.ClickEvent, error) {
	var event domain.ClickEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal click event: %w", err)
	}

	if event.ShortKey == "" {
		return nil, fmt.Errorf("click event has no short key")
	}

	return &event, nil
}
