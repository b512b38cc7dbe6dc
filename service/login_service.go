package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/layer-3/signal/core"
	"github.com/layer-3/signal/ports"
	"github.com/rs/zerolog"
)

// LoginService obtains a session token by having the wallet sign a
// platform challenge, then stores it through the authenticator.
type LoginService struct {
	auth    *Authenticator
	signer  ports.Signer
	api     ports.LoginAPI
	timeout time.Duration
	logger  zerolog.Logger
}

func NewLoginService(auth *Authenticator, signer ports.Signer, api ports.LoginAPI, timeout time.Duration, logger zerolog.Logger) *LoginService {
	return &LoginService{
		auth:    auth,
		signer:  signer,
		api:     api,
		timeout: timeout,
		logger:  logger.With().Str("component", "login").Logger(),
	}
}

// SignIn runs the challenge login for the connected wallet. It needs a
// connected, allowlisted wallet; an existing session is replaced. A
// declined signature yields core.ErrLoginCanceled and leaves the stored
// session untouched.
func (s *LoginService) SignIn(ctx context.Context) error {
	snapshot := s.auth.Snapshot(ctx)
	switch snapshot.State {
	case core.AuthStateNoWallet, core.AuthStateLoading, core.AuthStateLoadingAlt:
		return fmt.Errorf("%w: state is %s", core.ErrNotAuthenticated, snapshot.State)
	case core.AuthStateNotWhitelisted:
		if snapshot.Allowlist.Err != nil {
			return fmt.Errorf("allowlist lookup: %w", snapshot.Allowlist.Err)
		}
		return core.ErrNotAllowlisted
	}
	address := snapshot.Wallet.Address

	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	challengeToken, message, err := s.api.RequestChallenge(reqCtx, address)
	cancel()
	if err != nil {
		return fmt.Errorf("request challenge: %w", err)
	}

	signature, err := s.signer.SignMessage(ctx, []byte(message))
	switch {
	case errors.Is(err, core.ErrSignatureDeclined), errors.Is(err, context.Canceled):
		s.logger.Info().Msg("login canceled at signature prompt")
		return fmt.Errorf("%w: %w", core.ErrLoginCanceled, err)
	case err != nil:
		return fmt.Errorf("sign challenge: %w", err)
	}

	reqCtx, cancel = context.WithTimeout(ctx, s.timeout)
	token, err := s.api.Login(reqCtx, challengeToken, signature)
	cancel()
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	if err := s.auth.Login(ctx, token); err != nil {
		return err
	}

	s.logger.Info().Str("address", address).Msg("signed in")
	return nil
}
