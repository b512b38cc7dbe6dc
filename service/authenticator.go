package service

import (
	"context"
	"errors"

	"github.com/layer-3/signal/core"
	"github.com/layer-3/signal/ports"
	"github.com/rs/zerolog"
)

// AuthSnapshot is the derived auth state together with its inputs.
type AuthSnapshot struct {
	State     core.AuthState
	Wallet    core.WalletConnection
	Allowlist AllowlistResult

	token string
}

// Token is the session token the state was derived from.
func (s AuthSnapshot) Token() string {
	return s.token
}

// Authenticator combines the wallet probe, the allow-list checker and the
// session store into a single auth state.
type Authenticator struct {
	wallet    ports.WalletProbe
	allowlist *AllowlistChecker
	sessions  *SessionStore
	logger    zerolog.Logger
}

// NewAuthenticator creates a new authenticator
func NewAuthenticator(wallet ports.WalletProbe, allowlist *AllowlistChecker, sessions *SessionStore, logger zerolog.Logger) *Authenticator {
	return &Authenticator{
		wallet:    wallet,
		allowlist: allowlist,
		sessions:  sessions,
		logger:    logger.With().Str("component", "auth").Logger(),
	}
}

// Snapshot reads all inputs and derives the current state. The allow-list
// is looked up again when the wallet address changed since the last lookup
// or when that lookup failed; a confirmed answer is kept for the address.
func (a *Authenticator) Snapshot(ctx context.Context) AuthSnapshot {
	wallet := a.wallet.Connection(ctx)

	address := ""
	if wallet.Connected() {
		address = wallet.Address
	}

	result := a.allowlist.Current()
	if result.Address != address || result.Err != nil {
		resolved, err := a.allowlist.Resolve(ctx, address)
		switch {
		case errors.Is(err, core.ErrStaleLookup):
			result = a.allowlist.Current()
		default:
			result = resolved
		}
	}

	token := a.sessions.Token()
	state := core.DeriveAuthState(wallet, result.Allowlisted(), token)

	a.logger.Debug().Str("state", state.String()).Str("address", address).Msg("auth state derived")

	return AuthSnapshot{
		State:     state,
		Wallet:    wallet,
		Allowlist: result,
		token:     token,
	}
}

// Login stores a session token obtained from a completed login flow.
func (a *Authenticator) Login(ctx context.Context, token string) error {
	if _, err := core.DecodeSessionClaims(token); err != nil {
		return err
	}
	return a.sessions.SetToken(ctx, token)
}

// Logout clears the session.
func (a *Authenticator) Logout(ctx context.Context) error {
	return a.sessions.ResetToken(ctx)
}

// Claims decodes the current session token without verifying it.
func (a *Authenticator) Claims() (*core.SessionClaims, error) {
	return core.DecodeSessionClaims(a.sessions.Token())
}
