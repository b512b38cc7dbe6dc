package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/layer-3/signal/core"
	"github.com/layer-3/signal/ports"
	"github.com/rs/zerolog"
)

// AllowlistResult is the outcome of the latest allow-list lookup.
type AllowlistResult struct {
	Address string
	Allowed bool
	Pending bool
	Err     error // lookup failed; Allowed is false
}

// Allowlisted is the fail-closed boolean used for auth state derivation.
func (r AllowlistResult) Allowlisted() bool {
	return r.Allowed && r.Err == nil && !r.Pending
}

// AllowlistChecker resolves allow-list membership for the current wallet
// address. Only the lookup for the most recent address is ever recorded.
type AllowlistChecker struct {
	api     ports.AllowlistAPI
	timeout time.Duration
	logger  zerolog.Logger

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	current    AllowlistResult
}

// NewAllowlistChecker creates a checker bounding each lookup by timeout.
func NewAllowlistChecker(api ports.AllowlistAPI, timeout time.Duration, logger zerolog.Logger) *AllowlistChecker {
	return &AllowlistChecker{
		api:     api,
		timeout: timeout,
		logger:  logger.With().Str("component", "allowlist").Logger(),
	}
}

// Check performs a single lookup. Empty or malformed addresses are not
// allowlisted and cause no network call.
func (c *AllowlistChecker) Check(ctx context.Context, address string) (bool, error) {
	if address == "" || !common.IsHexAddress(address) {
		return false, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	allowed, err := c.api.IsWhitelisted(ctx, address)
	if err != nil {
		return false, fmt.Errorf("allowlist lookup for %s: %w", address, err)
	}
	return allowed, nil
}

// Resolve makes address the current one and looks it up, canceling any
// lookup still running for a previous address. If another Resolve starts
// before this one finishes, the outcome is discarded and
// core.ErrStaleLookup is returned alongside it.
func (c *AllowlistChecker) Resolve(ctx context.Context, address string) (AllowlistResult, error) {
	c.mu.Lock()
	c.generation++
	generation := c.generation
	if c.cancel != nil {
		c.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.current = AllowlistResult{Address: address, Pending: true}
	c.mu.Unlock()
	defer cancel()

	allowed, err := c.Check(ctx, address)
	result := AllowlistResult{Address: address, Allowed: allowed, Err: err}

	c.mu.Lock()
	defer c.mu.Unlock()

	if generation != c.generation {
		c.logger.Debug().Str("address", address).Msg("discarding stale allowlist result")
		return result, core.ErrStaleLookup
	}

	c.current = result
	c.cancel = nil
	if err != nil {
		c.logger.Warn().Err(err).Str("address", address).Msg("allowlist lookup failed")
	} else {
		c.logger.Debug().Str("address", address).Bool("allowed", allowed).Msg("allowlist resolved")
	}
	return result, nil
}

// Current returns the result for the most recent address.
func (c *AllowlistChecker) Current() AllowlistResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}
