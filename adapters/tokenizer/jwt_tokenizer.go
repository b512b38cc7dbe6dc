package tokenizer

import (
	"crypto/ecdsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/layer-3/signal/core"
	"github.com/layer-3/signal/ports"
)

const (
	AudienceChallenge = "signal:challenge"
	AudienceSession   = "signal:session"
)

// DefaultSessionTTL is applied when claims carry no expiry.
const DefaultSessionTTL = 24 * time.Hour

// JWTTokenizer implements the Tokenizer interface using ES256 JWTs
type JWTTokenizer struct {
	signKey *ecdsa.PrivateKey
}

// NewJWTTokenizer creates a new JWT tokenizer
func NewJWTTokenizer(signKey *ecdsa.PrivateKey) ports.Tokenizer {
	return &JWTTokenizer{signKey: signKey}
}

// ChallengeClaims carries a login challenge inside a JWT
type ChallengeClaims struct {
	jwt.RegisteredClaims
	Nonce string `json:"nonce"`
}

// ChallengeToToken converts a Challenge to a JWT token
func (j *JWTTokenizer) ChallengeToToken(challenge *core.Challenge) (string, error) {
	claims := ChallengeClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   challenge.Address,
			ID:        challenge.ID,
			ExpiresAt: jwt.NewNumericDate(challenge.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(challenge.IssuedAt),
			Audience:  jwt.ClaimStrings{AudienceChallenge},
		},
		Nonce: challenge.Nonce,
	}

	signedToken, err := jwt.NewWithClaims(jwt.SigningMethodES256, claims).SignedString(j.signKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign challenge token: %w", err)
	}

	return signedToken, nil
}

// TokenToChallenge verifies a challenge token and returns the challenge
func (j *JWTTokenizer) TokenToChallenge(tokenStr string) (*core.Challenge, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &ChallengeClaims{}, j.keyFunc,
		jwt.WithAudience(AudienceChallenge), jwt.WithExpirationRequired(), jwt.WithIssuedAt())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*ChallengeClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid challenge claims", core.ErrInvalidToken)
	}
	if claims.ID == "" || claims.Subject == "" || claims.Nonce == "" || claims.IssuedAt == nil {
		return nil, fmt.Errorf("%w: incomplete challenge", core.ErrInvalidToken)
	}

	return &core.Challenge{
		ID:        claims.ID,
		Address:   claims.Subject,
		Nonce:     claims.Nonce,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// ClaimsToToken signs claims into a session token
func (j *JWTTokenizer) ClaimsToToken(claims *core.SessionClaims) (string, error) {
	c := *claims
	now := time.Now()
	if c.IssuedAt == nil {
		c.IssuedAt = jwt.NewNumericDate(now)
	}
	if c.ExpiresAt == nil {
		c.ExpiresAt = jwt.NewNumericDate(now.Add(DefaultSessionTTL))
	}
	c.Audience = jwt.ClaimStrings{AudienceSession}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, c)

	signedToken, err := token.SignedString(j.signKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}

	return signedToken, nil
}

// TokenToClaims verifies a session token and returns its claims
func (j *JWTTokenizer) TokenToClaims(tokenStr string) (*core.SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &core.SessionClaims{}, j.keyFunc,
		jwt.WithAudience(AudienceSession), jwt.WithExpirationRequired())

	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, core.ErrInvalidToken
	}

	claims, ok := token.Claims.(*core.SessionClaims)
	if !ok {
		return nil, fmt.Errorf("%w: invalid claims type", core.ErrInvalidToken)
	}

	if claims.OwnerID == "" || claims.InstanceID == "" || claims.Key == "" {
		return nil, fmt.Errorf("%w: incomplete claims", core.ErrInvalidToken)
	}

	return claims, nil
}

func (j *JWTTokenizer) keyFunc(token *jwt.Token) (interface{}, error) {
	// Validate the signing method
	if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return &j.signKey.PublicKey, nil
}
