package core_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/layer-3/signal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("unrelated-secret"))
	require.NoError(t, err)
	return token
}

func TestDecodeSessionClaims(t *testing.T) {
	iat := time.Now().Add(-time.Minute).Truncate(time.Second)
	token := signedToken(t, core.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{IssuedAt: jwt.NewNumericDate(iat)},
		OwnerID:          "owner-1",
		InstanceID:       "instance-1",
		Key:              "0x00000000000000000000000000000000000000aa",
	})

	claims, err := core.DecodeSessionClaims(token)
	require.NoError(t, err)
	assert.Equal(t, "owner-1", claims.OwnerID)
	assert.Equal(t, "instance-1", claims.InstanceID)
	assert.Equal(t, "0x00000000000000000000000000000000000000aa", claims.Key)
	assert.True(t, claims.IssuedAt.Time.Equal(iat))
	assert.Nil(t, claims.ExpiresAt)
}

func TestDecodeSessionClaims_DoesNotVerify(t *testing.T) {
	// expired and signed with a key the client never sees
	token := signedToken(t, core.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour))},
		OwnerID:          "owner-1",
		InstanceID:       "instance-1",
	})

	_, err := core.DecodeSessionClaims(token)
	assert.NoError(t, err)
}

func TestDecodeSessionClaims_Invalid(t *testing.T) {
	tests := map[string]string{
		"empty":            "",
		"garbage":          "not-a-jwt",
		"missing owner":    signedToken(t, core.SessionClaims{InstanceID: "i"}),
		"missing instance": signedToken(t, core.SessionClaims{OwnerID: "o"}),
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := core.DecodeSessionClaims(token)
			assert.ErrorIs(t, err, core.ErrInvalidToken)
		})
	}
}
