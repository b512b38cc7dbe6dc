package ports

import (
	"context"

	"github.com/layer-3/signal/core"
)

// EventPublisher publishes events to notify other instances
type EventPublisher interface {
	PublishKeyCreated(ctx context.Context, key *core.IssuedKey) error
}
