package ports

import (
	"context"
	"time"

	"github.com/layer-3/signal/core"
)

// KeyValueStore is the durable storage behind the session store.
// Get returns core.ErrNotFound for a missing key.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// KeyStore keeps issued API key records, indexed by the secret's hash.
// A zero ttl keeps the record until deleted.
type KeyStore interface {
	SaveKey(ctx context.Context, key *core.IssuedKey, ttl time.Duration) error
	FindKey(ctx context.Context, hash string) (*core.IssuedKey, error)
}

// ChallengeStore remembers answered login challenges until they expire.
// ConsumeChallenge returns core.ErrChallengeUsed when id was consumed before.
type ChallengeStore interface {
	ConsumeChallenge(ctx context.Context, id string, ttl time.Duration) error
}

// Allowlist is the server-side set of permitted wallet addresses.
type Allowlist interface {
	Contains(ctx context.Context, address string) (bool, error)
}

// DeploymentCatalog lists the deployments the API server knows about.
type DeploymentCatalog interface {
	Deployments(ctx context.Context, appID string) ([]core.Deployment, error)
}
