package ports

import (
	"context"

	"github.com/layer-3/signal/core"
)

// AllowlistAPI asks the platform whether an address may use it.
type AllowlistAPI interface {
	IsWhitelisted(ctx context.Context, address string) (bool, error)
}

// KeyAPI submits a signed key creation request and returns the secret.
type KeyAPI interface {
	CreateKey(ctx context.Context, token string, req *core.SignedKeyRequest) (string, error)
}

// DeploymentAPI lists the deployments of an application.
type DeploymentAPI interface {
	ListDeployments(ctx context.Context, token, appID string) ([]core.Deployment, error)
}

// LoginAPI runs the wallet challenge login against the platform.
type LoginAPI interface {
	RequestChallenge(ctx context.Context, address string) (token, message string, err error)
	Login(ctx context.Context, challengeToken, signature string) (string, error)
}
