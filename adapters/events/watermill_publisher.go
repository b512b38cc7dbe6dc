package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/layer-3/signal/core"
	"github.com/layer-3/signal/ports"
)

// TopicKeyCreated is the topic for key creation events
const TopicKeyCreated = "signal.keys.created"

// KeyCreatedEvent describes an issued API key. It never carries the secret.
type KeyCreatedEvent struct {
	KeyID       string     `json:"key_id"`
	OwnerID     string     `json:"owner_id"`
	InstanceID  string     `json:"instance_id"`
	Permissions string     `json:"permissions"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
	topic     string
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{
		publisher: publisher,
		topic:     TopicKeyCreated,
	}
}

// PublishKeyCreated publishes a key creation event
func (p *WatermillPublisher) PublishKeyCreated(ctx context.Context, key *core.IssuedKey) error {
	event := KeyCreatedEvent{
		KeyID:       key.ID,
		OwnerID:     key.OwnerID,
		InstanceID:  key.InstanceID,
		Permissions: key.Permissions,
		CreatedAt:   key.CreatedAt,
		ExpiresAt:   key.ExpiresAt,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(key.ID, payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) PublishKeyCreated(context.Context, *core.IssuedKey) error { return nil }
