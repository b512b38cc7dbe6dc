package service

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/golang-jwt/jwt/v5"
	"github.com/layer-3/signal/adapters/store"
	"github.com/layer-3/signal/core"
	"github.com/layer-3/signal/internal/eth"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// fakeWallet is a wallet whose connection and approval are set by the test.
type fakeWallet struct {
	mu        sync.Mutex
	conn      core.WalletConnection
	key       *ecdsa.PrivateKey
	decline   bool
	signCalls int
	signed    []byte
}

func newFakeWallet(t *testing.T) *fakeWallet {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return &fakeWallet{
		key:  key,
		conn: core.WalletConnection{Status: core.WalletConnected, Address: crypto.PubkeyToAddress(key.PublicKey).Hex()},
	}
}

func (w *fakeWallet) Connection(context.Context) core.WalletConnection {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn
}

func (w *fakeWallet) setConnection(conn core.WalletConnection) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.conn = conn
}

func (w *fakeWallet) SignMessage(_ context.Context, message []byte) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.signCalls++
	w.signed = message
	if w.decline {
		return "", core.ErrSignatureDeclined
	}
	return eth.SignText(w.key, message)
}

// fakeAllowlistAPI answers from a map; addresses in block wait for release.
type fakeAllowlistAPI struct {
	mu      sync.Mutex
	allowed map[string]bool
	err     error
	block   map[string]chan struct{}
	calls   []string
}

func newFakeAllowlistAPI(allowed ...string) *fakeAllowlistAPI {
	api := &fakeAllowlistAPI{allowed: map[string]bool{}, block: map[string]chan struct{}{}}
	for _, a := range allowed {
		api.allowed[a] = true
	}
	return api
}

func (f *fakeAllowlistAPI) IsWhitelisted(ctx context.Context, address string) (bool, error) {
	f.mu.Lock()
	f.calls = append(f.calls, address)
	release := f.block[address]
	allowed, err := f.allowed[address], f.err
	f.mu.Unlock()

	if release != nil {
		<-release
	}
	return allowed, err
}

func (f *fakeAllowlistAPI) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeAllowlistAPI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeKeyAPI records the submitted request.
type fakeKeyAPI struct {
	mu     sync.Mutex
	secret string
	err    error
	calls  int
	token  string
	req    *core.SignedKeyRequest
}

func (f *fakeKeyAPI) CreateKey(_ context.Context, token string, req *core.SignedKeyRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.token = token
	f.req = req
	return f.secret, f.err
}

// failingKV fails every write.
type failingKV struct {
	*store.MemoryKV
}

func (failingKV) Set(context.Context, string, string) error {
	return errors.New("disk full")
}

func (failingKV) Delete(context.Context, string) error {
	return errors.New("disk full")
}

func sessionToken(t *testing.T, ownerID, instanceID, key string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, core.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{IssuedAt: jwt.NewNumericDate(time.Now())},
		OwnerID:          ownerID,
		InstanceID:       instanceID,
		Key:              key,
	}).SignedString([]byte("server-secret"))
	require.NoError(t, err)
	return token
}

func newTestSessionStore(t *testing.T, token string) *SessionStore {
	t.Helper()
	s, err := NewSessionStore(context.Background(), store.NewMemoryKV(), zerolog.Nop())
	require.NoError(t, err)
	if token != "" {
		require.NoError(t, s.SetToken(context.Background(), token))
	}
	return s
}

// fakeLoginAPI hands out a fixed challenge and returns token on login.
type fakeLoginAPI struct {
	mu        sync.Mutex
	message   string
	token     string
	err       error
	logins    int
	signature string
}

func (f *fakeLoginAPI) RequestChallenge(_ context.Context, address string) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", "", f.err
	}
	return "challenge-token", f.message + address, nil
}

func (f *fakeLoginAPI) Login(_ context.Context, challengeToken, signature string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins++
	f.signature = signature
	return f.token, nil
}
