package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/signal/core"
	"github.com/layer-3/signal/internal/eth"
	"github.com/layer-3/signal/ports"
	"github.com/rs/zerolog"
)

// SecretPrefix starts every issued API key secret.
const SecretPrefix = "sk_"

// KeyIssuer is the server side of key creation: it verifies a signed
// CREATE_KEY request against the caller's session and issues the secret.
type KeyIssuer struct {
	keys     ports.KeyStore
	eventPub ports.EventPublisher
	logger   zerolog.Logger
	now      func() time.Time
}

// NewKeyIssuer creates a new key issuer
func NewKeyIssuer(keys ports.KeyStore, eventPub ports.EventPublisher, logger zerolog.Logger) *KeyIssuer {
	return &KeyIssuer{
		keys:     keys,
		eventPub: eventPub,
		logger:   logger.With().Str("component", "issuer").Logger(),
		now:      time.Now,
	}
}

// Issue verifies req for the session described by claims and returns the
// new secret. Only its hash is stored.
func (i *KeyIssuer) Issue(ctx context.Context, claims *core.SessionClaims, req *core.SignedKeyRequest) (string, *core.IssuedKey, error) {
	payload := req.Payload
	if payload.Action != core.ActionCreateKey {
		return "", nil, fmt.Errorf("%w: unsupported action %q", core.ErrInvalidKeyRequest, payload.Action)
	}
	if payload.Data.Permissions == "" {
		return "", nil, fmt.Errorf("%w: permissions must not be empty", core.ErrInvalidKeyRequest)
	}
	if payload.OwnerID != claims.OwnerID || payload.InstanceID != claims.InstanceID {
		return "", nil, core.ErrPermissionMismatch
	}

	// The signed bytes must be exactly the canonical form of the payload,
	// otherwise the signature would cover something other than what we act on.
	canonical, err := payload.CanonicalMessage()
	if err != nil {
		return "", nil, err
	}
	if string(canonical) != req.Message {
		return "", nil, fmt.Errorf("%w: message does not match payload", core.ErrInvalidSignature)
	}
	if err := eth.VerifyText(canonical, req.Signature, claims.Key); err != nil {
		return "", nil, fmt.Errorf("signature verification failed: %w", err)
	}

	ttl, err := core.ParseExpiresIn(payload.Data.ExpiresIn)
	if err != nil {
		return "", nil, err
	}

	secret, err := generateSecret()
	if err != nil {
		return "", nil, err
	}

	now := i.now()
	key := &core.IssuedKey{
		ID:          uuid.New().String(),
		Hash:        HashSecret(secret),
		OwnerID:     claims.OwnerID,
		InstanceID:  claims.InstanceID,
		Permissions: payload.Data.Permissions,
		CreatedAt:   now,
	}
	if ttl > 0 {
		expiresAt := now.Add(ttl)
		key.ExpiresAt = &expiresAt
	}

	if err := i.keys.SaveKey(ctx, key, ttl); err != nil {
		return "", nil, fmt.Errorf("failed to save key: %w", err)
	}

	// The key is already stored; a lost event must not fail the request
	if err := i.eventPub.PublishKeyCreated(ctx, key); err != nil {
		i.logger.Warn().Err(err).Str("key_id", key.ID).Msg("failed to publish key created event")
	}

	i.logger.Info().Str("key_id", key.ID).Str("owner_id", key.OwnerID).Dur("ttl", ttl).Msg("issued api key")
	return secret, key, nil
}

// Lookup returns the record of a previously issued secret.
func (i *KeyIssuer) Lookup(ctx context.Context, secret string) (*core.IssuedKey, error) {
	return i.keys.FindKey(ctx, HashSecret(secret))
}

// HashSecret is the storage key of an API key secret.
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

func generateSecret() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return SecretPrefix + hex.EncodeToString(b), nil
}
