package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/layer-3/signal/core"
	"github.com/layer-3/signal/ports"
)

// MemoryKV is an in-memory implementation of the KeyValueStore interface.
// Nothing survives a restart; use it for tests and throwaway sessions.
type MemoryKV struct {
	data map[string]string
	mu   sync.RWMutex
}

// NewMemoryKV creates a new in-memory key-value store
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]string)}
}

var _ ports.KeyValueStore = (*MemoryKV)(nil)

func (s *MemoryKV) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.data[key]
	if !ok {
		return "", core.ErrNotFound
	}
	return value, nil
}

func (s *MemoryKV) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = value
	return nil
}

func (s *MemoryKV) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	return nil
}

// MemoryKeyStore is an in-memory implementation of the KeyStore interface
type MemoryKeyStore struct {
	keys map[string]memoryKey
	mu   sync.RWMutex
}

type memoryKey struct {
	key       core.IssuedKey
	expiresAt time.Time // zero when the key never expires
}

// NewMemoryKeyStore creates a new in-memory key store
func NewMemoryKeyStore() *MemoryKeyStore {
	return &MemoryKeyStore{keys: make(map[string]memoryKey)}
}

var _ ports.KeyStore = (*MemoryKeyStore)(nil)

// SaveKey stores a key record and schedules its removal once ttl elapses.
func (s *MemoryKeyStore) SaveKey(ctx context.Context, key *core.IssuedKey, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := memoryKey{key: *key}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
		hash, expiresAt := key.Hash, entry.expiresAt

		time.AfterFunc(ttl, func() {
			s.mu.Lock()
			defer s.mu.Unlock()

			// Only delete if the record was not replaced in the meantime
			stored, ok := s.keys[hash]
			if ok && !stored.expiresAt.IsZero() && !stored.expiresAt.After(expiresAt) {
				delete(s.keys, hash)
			}
		})
	}
	s.keys[key.Hash] = entry
	return nil
}

// FindKey returns the record for hash unless it is absent or expired.
func (s *MemoryKeyStore) FindKey(ctx context.Context, hash string) (*core.IssuedKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.keys[hash]
	if !ok {
		return nil, core.ErrNotFound
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		return nil, core.ErrNotFound
	}

	key := entry.key
	return &key, nil
}

// MemoryChallengeStore is an in-memory implementation of the ChallengeStore
// interface
type MemoryChallengeStore struct {
	used map[string]time.Time
	mu   sync.Mutex
}

// NewMemoryChallengeStore creates a new in-memory challenge store
func NewMemoryChallengeStore() *MemoryChallengeStore {
	return &MemoryChallengeStore{used: make(map[string]time.Time)}
}

var _ ports.ChallengeStore = (*MemoryChallengeStore)(nil)

// ConsumeChallenge marks a challenge as used
func (s *MemoryChallengeStore) ConsumeChallenge(ctx context.Context, id string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if expiry, exists := s.used[id]; exists && now.Before(expiry) {
		return core.ErrChallengeUsed
	}

	expiryTime := now.Add(ttl)
	s.used[id] = expiryTime

	// Drop the record once the challenge itself has expired
	time.AfterFunc(ttl, func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if storedExpiry, exists := s.used[id]; exists && !storedExpiry.After(expiryTime) {
			delete(s.used, id)
		}
	})

	return nil
}

// MemoryAllowlist is a fixed set of addresses compared case-insensitively.
type MemoryAllowlist struct {
	addresses map[string]struct{}
	mu        sync.RWMutex
}

// NewMemoryAllowlist creates an allow-list holding addresses.
func NewMemoryAllowlist(addresses ...string) *MemoryAllowlist {
	a := &MemoryAllowlist{addresses: make(map[string]struct{})}
	for _, address := range addresses {
		a.Add(address)
	}
	return a
}

var _ ports.Allowlist = (*MemoryAllowlist)(nil)

func (a *MemoryAllowlist) Add(address string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.addresses[strings.ToLower(address)] = struct{}{}
}

func (a *MemoryAllowlist) Contains(ctx context.Context, address string) (bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	_, ok := a.addresses[strings.ToLower(address)]
	return ok, nil
}

// MemoryDeployments is a DeploymentCatalog seeded in memory.
type MemoryDeployments struct {
	apps map[string][]core.Deployment
	mu   sync.RWMutex
}

func NewMemoryDeployments() *MemoryDeployments {
	return &MemoryDeployments{apps: make(map[string][]core.Deployment)}
}

var _ ports.DeploymentCatalog = (*MemoryDeployments)(nil)

// Add records a deployment of appID.
func (m *MemoryDeployments) Add(appID string, d core.Deployment) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.apps[appID] = append(m.apps[appID], d)
}

// Deployments returns the deployments of appID in insertion order.
func (m *MemoryDeployments) Deployments(ctx context.Context, appID string) ([]core.Deployment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]core.Deployment{}, m.apps[appID]...), nil
}
