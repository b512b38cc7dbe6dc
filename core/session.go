package core

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims are the identifiers embedded in a session token.
type SessionClaims struct {
	jwt.RegisteredClaims
	OwnerID    string `json:"owner_id"`
	InstanceID string `json:"instance_id"`
	Key        string `json:"key"`
}

// DecodeSessionClaims extracts the claims of a session token WITHOUT
// verifying its signature. Verification is the server's job: the client
// only needs the identifiers to address requests, so nothing obtained here
// may be used for an access decision.
func DecodeSessionClaims(token string) (*SessionClaims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	claims := &SessionClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.OwnerID == "" || claims.InstanceID == "" {
		return nil, fmt.Errorf("%w: missing owner_id or instance_id", ErrInvalidToken)
	}

	return claims, nil
}
