package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/layer-3/signal/adapters/store"
	"github.com/layer-3/signal/core"
	"github.com/layer-3/signal/internal/eth"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	events []*core.IssuedKey
	err    error
}

func (p *recordingPublisher) PublishKeyCreated(_ context.Context, key *core.IssuedKey) error {
	p.events = append(p.events, key)
	return p.err
}

type issuerFixture struct {
	wallet    *fakeWallet
	claims    *core.SessionClaims
	keys      *store.MemoryKeyStore
	publisher *recordingPublisher
	issuer    *KeyIssuer
}

func newIssuerFixture(t *testing.T) *issuerFixture {
	t.Helper()
	wallet := newFakeWallet(t)
	keys := store.NewMemoryKeyStore()
	publisher := &recordingPublisher{}
	issuer := NewKeyIssuer(keys, publisher, zerolog.Nop())
	issuer.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	return &issuerFixture{
		wallet:    wallet,
		claims:    &core.SessionClaims{OwnerID: "owner-1", InstanceID: "instance-1", Key: wallet.conn.Address},
		keys:      keys,
		publisher: publisher,
		issuer:    issuer,
	}
}

func (f *issuerFixture) signedRequest(t *testing.T, req core.KeyRequest) *core.SignedKeyRequest {
	t.Helper()
	payload, err := core.NewKeyPayload(f.claims, req)
	require.NoError(t, err)
	message, err := payload.CanonicalMessage()
	require.NoError(t, err)
	signature, err := f.wallet.SignMessage(context.Background(), message)
	require.NoError(t, err)
	return &core.SignedKeyRequest{Message: string(message), Payload: payload, Signature: signature}
}

func TestKeyIssuer_Issue(t *testing.T) {
	ctx := context.Background()
	f := newIssuerFixture(t)

	secret, key, err := f.issuer.Issue(ctx, f.claims, f.signedRequest(t, core.DefaultKeyRequest()))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(secret, SecretPrefix))
	assert.Len(t, secret, len(SecretPrefix)+32)
	assert.Equal(t, HashSecret(secret), key.Hash)
	assert.NotContains(t, key.Hash, secret)
	assert.Equal(t, "-1", key.Permissions)
	require.NotNil(t, key.ExpiresAt)
	assert.Equal(t, 10*time.Hour, key.ExpiresAt.Sub(key.CreatedAt))

	found, err := f.issuer.Lookup(ctx, secret)
	require.NoError(t, err)
	assert.Equal(t, key.ID, found.ID)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, key.ID, f.publisher.events[0].ID)
}

func TestKeyIssuer_NeverExpires(t *testing.T) {
	f := newIssuerFixture(t)

	_, key, err := f.issuer.Issue(context.Background(), f.claims, f.signedRequest(t, core.KeyRequest{Permissions: "32,11"}))
	require.NoError(t, err)
	assert.Nil(t, key.ExpiresAt)
}

func TestKeyIssuer_PublishFailureDoesNotFail(t *testing.T) {
	f := newIssuerFixture(t)
	f.publisher.err = errors.New("broker down")

	_, _, err := f.issuer.Issue(context.Background(), f.claims, f.signedRequest(t, core.DefaultKeyRequest()))
	assert.NoError(t, err)
}

func TestKeyIssuer_Rejects(t *testing.T) {
	f := newIssuerFixture(t)
	other := newFakeWallet(t)

	tests := []struct {
		name    string
		mutate  func(req *core.SignedKeyRequest)
		wantErr error
	}{
		{"wrong action", func(r *core.SignedKeyRequest) { r.Payload.Action = "DELETE_KEY" }, core.ErrInvalidKeyRequest},
		{"empty permissions", func(r *core.SignedKeyRequest) { r.Payload.Data.Permissions = "" }, core.ErrInvalidKeyRequest},
		{"other owner", func(r *core.SignedKeyRequest) { r.Payload.OwnerID = "owner-2" }, core.ErrPermissionMismatch},
		{"payload altered after signing", func(r *core.SignedKeyRequest) { r.Payload.Data.Permissions = "99" }, core.ErrInvalidSignature},
		{"signed by another wallet", func(r *core.SignedKeyRequest) {
			sig, err := other.SignMessage(context.Background(), []byte(r.Message))
			require.NoError(t, err)
			r.Signature = sig
		}, core.ErrInvalidSignature},
		{"bad expiry", func(r *core.SignedKeyRequest) {
			r.Payload.Data.ExpiresIn = "forever"
			msg, err := r.Payload.CanonicalMessage()
			require.NoError(t, err)
			r.Message = string(msg)
			r.Signature, err = eth.SignText(f.wallet.key, msg)
			require.NoError(t, err)
		}, core.ErrInvalidKeyRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := f.signedRequest(t, core.DefaultKeyRequest())
			tt.mutate(req)

			_, _, err := f.issuer.Issue(context.Background(), f.claims, req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Empty(t, f.publisher.events)
}
