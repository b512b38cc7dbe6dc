package main

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/layer-3/signal/adapters/events"
	"github.com/layer-3/signal/adapters/store"
	"github.com/layer-3/signal/adapters/tokenizer"
	"github.com/layer-3/signal/core"
	"github.com/layer-3/signal/ports"
	"github.com/layer-3/signal/service"
	transport "github.com/layer-3/signal/transport/http"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerminalConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}

	for _, tt := range tests {
		var out bytes.Buffer
		confirm := terminalConfirm(strings.NewReader(tt.input), &out)

		ok, err := confirm(context.Background(), []byte(`{"action": "CREATE_KEY"}`))
		require.NoError(t, err)
		assert.Equal(t, tt.want, ok, "input %q", tt.input)
		assert.Contains(t, out.String(), `"action": "CREATE_KEY"`)
	}
}

func TestPrintDeployments(t *testing.T) {
	var out bytes.Buffer
	printDeployments(&out, nil)
	assert.Equal(t, "Deployments\n", out.String())

	out.Reset()
	printDeployments(&out, []core.Deployment{
		{DeployID: "d2", SID: "s2", Timestamp: time.Now().Add(-2 * time.Hour)},
		{DeployID: "d1", SID: "s1", Timestamp: time.Now().Add(-48 * time.Hour)},
	})
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Deployments (2)", lines[0])
	assert.Contains(t, lines[1], "2 hours ago")
	assert.Contains(t, lines[2], "2 days ago")
}

type cliEnv struct {
	server    *httptest.Server
	keyHits   atomic.Int32
	tokenizer ports.Tokenizer
	address   string
}

// newCLIEnv starts the platform API in process and points the CLI at it
// through the environment. The session is kept in LevelDB so it survives
// between invocations.
func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zerolog.Nop()

	walletKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	env := &cliEnv{
		address:   crypto.PubkeyToAddress(walletKey.PublicKey).Hex(),
		tokenizer: tokenizer.NewJWTTokenizer(signKey),
	}

	allowlist := store.NewMemoryAllowlist(env.address)
	catalog := store.NewMemoryDeployments()
	catalog.Add("app-1", core.Deployment{DeployID: "d1", SID: "s1", Timestamp: time.Now().Add(-3 * time.Hour)})

	router := transport.SetupRouter(
		transport.NewAPIHandlers(
			service.NewSessionIssuer(env.tokenizer, allowlist, store.NewMemoryChallengeStore(), logger),
			service.NewKeyIssuer(store.NewMemoryKeyStore(), events.NopPublisher{}, logger),
			allowlist,
			catalog,
			logger,
		),
		env.tokenizer,
		logger,
	)
	env.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/keys" {
			env.keyHits.Add(1)
		}
		router.ServeHTTP(w, r)
	}))
	t.Cleanup(env.server.Close)

	t.Setenv("SIGNAL_CONFIG", "")
	t.Setenv("SIGNAL_API_URL", env.server.URL)
	t.Setenv("SIGNAL_STORE", "leveldb")
	t.Setenv("SIGNAL_STORE_PATH", t.TempDir())
	t.Setenv("SIGNAL_PRIVATE_KEY", hex.EncodeToString(crypto.FromECDSA(walletKey)))
	t.Setenv("SIGNAL_KEY_FILE", "")
	t.Setenv("SIGNAL_LOG_LEVEL", "error")
	return env
}

func (e *cliEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	app := newApp()
	app.Reader = strings.NewReader(stdin)
	app.Writer = &out
	app.ErrWriter = &out

	err := app.Run(append([]string{"signal"}, args...))
	return out.String(), err
}

func TestApp_SessionLifecycle(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "", "state")
	require.NoError(t, err)
	assert.Contains(t, out, "state:   no-token")
	assert.Contains(t, out, env.address)

	out, err = env.run(t, "n\n", "login")
	require.NoError(t, err)
	assert.Contains(t, out, "login canceled")

	out, err = env.run(t, "y\n", "login")
	require.NoError(t, err)
	assert.Contains(t, out, "Sign in to Signal")
	assert.Contains(t, out, "logged in, state: authenticated")

	out, err = env.run(t, "", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "owner_id:    "+strings.ToLower(env.address))
	assert.Contains(t, out, "key:         "+env.address)

	_, err = env.run(t, "", "logout")
	require.NoError(t, err)

	out, err = env.run(t, "", "state")
	require.NoError(t, err)
	assert.Contains(t, out, "state:   no-token")
}

func TestApp_LoginRejectsGarbage(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "", "login", "--token", "not-a-jwt")
	require.ErrorIs(t, err, core.ErrInvalidToken)
}

func TestApp_KeysCreate(t *testing.T) {
	env := newCLIEnv(t)

	env.login(t)

	out, err := env.run(t, "n\n", "keys", "create")
	require.NoError(t, err)
	assert.Contains(t, out, "key creation canceled")
	assert.Equal(t, int32(0), env.keyHits.Load())

	out, err = env.run(t, "y\n", "keys", "create", "--permissions", "32,11", "--expires-in", "1h")
	require.NoError(t, err)
	assert.Contains(t, out, `"permissions": "32,11"`)
	assert.Contains(t, out, "only be shown once")
	assert.Contains(t, out, "  sk_")
	assert.Equal(t, int32(1), env.keyHits.Load())
}

func TestApp_KeysCreateRequiresSession(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "y\n", "keys", "create")
	require.ErrorIs(t, err, core.ErrNotAuthenticated)
	assert.Equal(t, int32(0), env.keyHits.Load())
}

func TestApp_Deployments(t *testing.T) {
	env := newCLIEnv(t)

	env.login(t)

	out, err := env.run(t, "", "deployments", "--app", "app-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Deployments (1)")
	assert.Contains(t, out, "d1")
	assert.Contains(t, out, "3 hours ago")

	out, err = env.run(t, "", "deployments", "--app", "app-2")
	require.NoError(t, err)
	assert.Equal(t, "Deployments\n", out)
}
