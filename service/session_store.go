package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/layer-3/signal/core"
	"github.com/layer-3/signal/ports"
	"github.com/rs/zerolog"
)

// SessionKey is the key the session record is persisted under.
const SessionKey = "SIGNAL-token"

// persistedSession is the stored record: {"state":{"token":"..."},"version":0}.
type persistedSession struct {
	State struct {
		Token string `json:"token"`
	} `json:"state"`
	Version int `json:"version"`
}

// SessionStore holds the session token of this process and writes every
// change through to a KeyValueStore. Reads never block.
type SessionStore struct {
	kv     ports.KeyValueStore
	logger zerolog.Logger

	token atomic.Pointer[string]
	mu    sync.Mutex // serializes writers
}

// NewSessionStore loads the persisted token from kv. A missing record
// means no session.
func NewSessionStore(ctx context.Context, kv ports.KeyValueStore, logger zerolog.Logger) (*SessionStore, error) {
	s := &SessionStore{
		kv:     kv,
		logger: logger.With().Str("component", "session").Logger(),
	}

	token := ""
	raw, err := kv.Get(ctx, SessionKey)
	switch {
	case errors.Is(err, core.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("load session: %w", err)
	default:
		var record persistedSession
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			return nil, fmt.Errorf("load session: corrupt record: %w", err)
		}
		token = record.State.Token
	}

	s.token.Store(&token)
	s.logger.Debug().Bool("has_token", token != "").Msg("session loaded")
	return s, nil
}

// Token returns the current token, "" when there is no session.
func (s *SessionStore) Token() string {
	return *s.token.Load()
}

// SetToken replaces the token. The new value is persisted before it
// becomes visible; on error the previous token stays in place.
func (s *SessionStore) SetToken(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var record persistedSession
	record.State.Token = token
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	if err := s.kv.Set(ctx, SessionKey, string(raw)); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}

	s.token.Store(&token)
	s.logger.Debug().Bool("has_token", token != "").Msg("session updated")
	return nil
}

// ResetToken clears the session and removes the persisted record. On error
// the previous token stays in place.
func (s *SessionStore) ResetToken(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Delete(ctx, SessionKey); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	empty := ""
	s.token.Store(&empty)
	s.logger.Debug().Msg("session cleared")
	return nil
}
