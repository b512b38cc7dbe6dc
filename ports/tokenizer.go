package ports

import "github.com/layer-3/signal/core"

// Tokenizer converts between domain values and signed tokens. Only the API
// server holds one; clients decode session claims without verifying.
type Tokenizer interface {
	ChallengeToToken(challenge *core.Challenge) (string, error)
	TokenToChallenge(token string) (*core.Challenge, error)

	ClaimsToToken(claims *core.SessionClaims) (string, error)
	TokenToClaims(token string) (*core.SessionClaims, error)
}
