package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/layer-3/signal/core"
	"github.com/layer-3/signal/internal/eth"
	"github.com/layer-3/signal/ports"
	"github.com/rs/zerolog"
)

// SessionIssuer is the server side of wallet login. It hands out signed
// challenges to allowlisted addresses and exchanges a signed challenge for
// a session token. Each challenge can be answered once.
type SessionIssuer struct {
	tokenizer  ports.Tokenizer
	allowlist  ports.Allowlist
	challenges ports.ChallengeStore
	logger     zerolog.Logger
	now        func() time.Time

	challengeTTL time.Duration
	sessionTTL   time.Duration
}

// NewSessionIssuer creates a new session issuer
func NewSessionIssuer(
	tokenizer ports.Tokenizer,
	allowlist ports.Allowlist,
	challenges ports.ChallengeStore,
	logger zerolog.Logger,
) *SessionIssuer {
	return &SessionIssuer{
		tokenizer:    tokenizer,
		allowlist:    allowlist,
		challenges:   challenges,
		logger:       logger.With().Str("component", "login").Logger(),
		now:          time.Now,
		challengeTTL: 5 * time.Minute,
		sessionTTL:   24 * time.Hour,
	}
}

// CreateChallenge generates a new login challenge for address and returns
// it together with its token.
func (s *SessionIssuer) CreateChallenge(ctx context.Context, address string) (*core.Challenge, string, error) {
	if !common.IsHexAddress(address) {
		return nil, "", core.ErrInvalidAddress
	}
	address = common.HexToAddress(address).Hex()

	allowed, err := s.allowlist.Contains(ctx, address)
	if err != nil {
		return nil, "", fmt.Errorf("failed to check allowlist: %w", err)
	}
	if !allowed {
		return nil, "", core.ErrNotAllowlisted
	}

	nonceBytes := make([]byte, 32)
	if _, err := rand.Read(nonceBytes); err != nil {
		return nil, "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	now := s.now().UTC().Truncate(time.Second)
	challenge := &core.Challenge{
		ID:        uuid.New().String(),
		Address:   address,
		Nonce:     hex.EncodeToString(nonceBytes),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.challengeTTL),
	}

	token, err := s.tokenizer.ChallengeToToken(challenge)
	if err != nil {
		return nil, "", err
	}
	return challenge, token, nil
}

// Login verifies the wallet signature over the challenge message and
// returns a session token for the challenged address. A challenge that was
// already exchanged yields core.ErrChallengeUsed.
func (s *SessionIssuer) Login(ctx context.Context, challengeToken, signature string) (string, error) {
	challenge, err := s.tokenizer.TokenToChallenge(challengeToken)
	if err != nil {
		return "", err
	}

	if err := eth.VerifyText(challenge.Message(), signature, challenge.Address); err != nil {
		return "", fmt.Errorf("signature verification failed: %w", err)
	}

	// Mark the challenge before minting so a captured answer cannot be
	// exchanged again while the challenge token is still valid
	ttl := challenge.ExpiresAt.Sub(s.now())
	if ttl < time.Second {
		ttl = time.Second
	}
	if err := s.challenges.ConsumeChallenge(ctx, challenge.ID, ttl); err != nil {
		if errors.Is(err, core.ErrChallengeUsed) {
			s.logger.Warn().Str("address", challenge.Address).Str("challenge_id", challenge.ID).Msg("challenge replayed")
		}
		return "", err
	}

	// Membership may have been revoked since the challenge was handed out
	allowed, err := s.allowlist.Contains(ctx, challenge.Address)
	if err != nil {
		return "", fmt.Errorf("failed to check allowlist: %w", err)
	}
	if !allowed {
		return "", core.ErrNotAllowlisted
	}

	token, err := s.SessionFor(challenge.Address)
	if err != nil {
		return "", err
	}

	s.logger.Info().Str("address", challenge.Address).Str("challenge_id", challenge.ID).Msg("session issued")
	return token, nil
}

// SessionFor signs a session token for address without a challenge. The
// owner is the lowercased address and every session gets a new instance.
func (s *SessionIssuer) SessionFor(address string) (string, error) {
	if !common.IsHexAddress(address) {
		return "", core.ErrInvalidAddress
	}
	key := common.HexToAddress(address).Hex()

	now := s.now()
	return s.tokenizer.ClaimsToToken(&core.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   key,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.sessionTTL)),
		},
		OwnerID:    strings.ToLower(key),
		InstanceID: uuid.New().String(),
		Key:        key,
	})
}
