package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/layer-3/signal/core"
	"github.com/layer-3/signal/ports"
	"github.com/rs/zerolog"
)

// AuthSource provides the auth state that gates session operations.
type AuthSource interface {
	Snapshot(ctx context.Context) AuthSnapshot
}

// KeyService issues scoped API keys on behalf of the authenticated session.
type KeyService struct {
	auth    AuthSource
	signer  ports.Signer
	api     ports.KeyAPI
	timeout time.Duration
	logger  zerolog.Logger
}

// NewKeyService creates a key service bounding the issuance request by timeout.
func NewKeyService(auth AuthSource, signer ports.Signer, api ports.KeyAPI, timeout time.Duration, logger zerolog.Logger) *KeyService {
	return &KeyService{
		auth:    auth,
		signer:  signer,
		api:     api,
		timeout: timeout,
		logger:  logger.With().Str("component", "keys").Logger(),
	}
}

// CreateKey has the wallet sign a CREATE_KEY payload and submits it. The
// returned secret is shown by the server exactly once; callers must not
// store it.
//
// A declined signature yields core.ErrIssuanceCanceled and nothing is sent.
// Network, status and response errors yield core.ErrIssuanceFailed.
func (s *KeyService) CreateKey(ctx context.Context, req core.KeyRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	snapshot := s.auth.Snapshot(ctx)
	if snapshot.State != core.AuthStateAuthenticated {
		return "", fmt.Errorf("%w: state is %s", core.ErrNotAuthenticated, snapshot.State)
	}
	token := snapshot.Token()

	claims, err := core.DecodeSessionClaims(token)
	if err != nil {
		return "", err
	}

	payload, err := core.NewKeyPayload(claims, req)
	if err != nil {
		return "", err
	}

	message, err := payload.CanonicalMessage()
	if err != nil {
		return "", err
	}

	signature, err := s.signer.SignMessage(ctx, message)
	switch {
	case errors.Is(err, core.ErrSignatureDeclined), errors.Is(err, context.Canceled):
		s.logger.Info().Msg("key creation canceled at signature prompt")
		return "", fmt.Errorf("%w: %w", core.ErrIssuanceCanceled, err)
	case err != nil:
		return "", fmt.Errorf("%w: sign request: %w", core.ErrIssuanceFailed, err)
	case signature == "":
		return "", fmt.Errorf("%w: empty signature", core.ErrIssuanceCanceled)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	secret, err := s.api.CreateKey(ctx, token, &core.SignedKeyRequest{
		Message:   string(message),
		Payload:   payload,
		Signature: signature,
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("owner_id", claims.OwnerID).Msg("key creation failed")
		return "", fmt.Errorf("%w: %w", core.ErrIssuanceFailed, err)
	}

	s.logger.Info().
		Str("owner_id", claims.OwnerID).
		Str("instance_id", claims.InstanceID).
		Str("permissions", req.Permissions).
		Msg("api key created")
	return secret, nil
}
