package tokenizer

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/layer-3/signal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return key
}

func sessionClaims() *core.SessionClaims {
	return &core.SessionClaims{
		OwnerID:    "owner-1",
		InstanceID: "instance-1",
		Key:        "0x00000000000000000000000000000000000000aa",
	}
}

func TestJWTTokenizer_RoundTrip(t *testing.T) {
	tk := NewJWTTokenizer(newKey(t))

	token, err := tk.ClaimsToToken(sessionClaims())
	require.NoError(t, err)

	claims, err := tk.TokenToClaims(token)
	require.NoError(t, err)
	assert.Equal(t, "owner-1", claims.OwnerID)
	assert.Equal(t, "instance-1", claims.InstanceID)
	assert.NotNil(t, claims.ExpiresAt)

	// the client-side decoder reads the same claims without the key
	decoded, err := core.DecodeSessionClaims(token)
	require.NoError(t, err)
	assert.Equal(t, claims.Key, decoded.Key)
}

func TestJWTTokenizer_Rejects(t *testing.T) {
	tk := NewJWTTokenizer(newKey(t))
	other := NewJWTTokenizer(newKey(t))

	foreign, err := other.ClaimsToToken(sessionClaims())
	require.NoError(t, err)

	expiredClaims := sessionClaims()
	expiredClaims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	expired, err := tk.ClaimsToToken(expiredClaims)
	require.NoError(t, err)

	incompleteClaims := sessionClaims()
	incompleteClaims.Key = ""
	incomplete, err := tk.ClaimsToToken(incompleteClaims)
	require.NoError(t, err)

	hmac, err := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims()).SignedString([]byte("secret"))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"garbage":    "not-a-token",
		"foreign":    foreign,
		"expired":    expired,
		"incomplete": incomplete,
		"hmac":       hmac,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := tk.TokenToClaims(token)
			assert.ErrorIs(t, err, core.ErrInvalidToken)
		})
	}
}

func TestJWTTokenizer_Challenge(t *testing.T) {
	tk := NewJWTTokenizer(newKey(t))
	now := time.Now().Truncate(time.Second)

	challenge := &core.Challenge{
		ID:        "c-1",
		Address:   "0x00000000000000000000000000000000000000aa",
		Nonce:     "abcd",
		IssuedAt:  now,
		ExpiresAt: now.Add(5 * time.Minute),
	}

	token, err := tk.ChallengeToToken(challenge)
	require.NoError(t, err)

	parsed, err := tk.TokenToChallenge(token)
	require.NoError(t, err)
	assert.Equal(t, challenge.Address, parsed.Address)
	assert.Equal(t, challenge.Nonce, parsed.Nonce)
	assert.Equal(t, string(challenge.Message()), string(parsed.Message()))

	// a challenge is not a session and the other way round
	_, err = tk.TokenToClaims(token)
	assert.ErrorIs(t, err, core.ErrInvalidToken)

	session, err := tk.ClaimsToToken(sessionClaims())
	require.NoError(t, err)
	_, err = tk.TokenToChallenge(session)
	assert.ErrorIs(t, err, core.ErrInvalidToken)

	challenge.ExpiresAt = now.Add(-time.Second)
	expired, err := tk.ChallengeToToken(challenge)
	require.NoError(t, err)
	_, err = tk.TokenToChallenge(expired)
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}
