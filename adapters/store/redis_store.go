package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/layer-3/signal/core"
	"github.com/layer-3/signal/ports"
	"github.com/redis/go-redis/v9"
)

// RedisKV is a Redis implementation of the KeyValueStore interface
type RedisKV struct {
	client *redis.Client
	prefix string
}

// NewRedisKV creates a new Redis key-value store
func NewRedisKV(client *redis.Client) *RedisKV {
	return &RedisKV{
		client: client,
		prefix: "signal:kv:",
	}
}

var _ ports.KeyValueStore = (*RedisKV)(nil)

func (s *RedisKV) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, s.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", core.ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", core.ErrStoreOperation, err)
	}
	return value, nil
}

func (s *RedisKV) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreOperation, err)
	}
	return nil
}

func (s *RedisKV) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreOperation, err)
	}
	return nil
}

// RedisKeyStore is a Redis implementation of the KeyStore interface.
// Records are JSON encoded and expire with the key.
type RedisKeyStore struct {
	client *redis.Client
	prefix string
}

// NewRedisKeyStore creates a new Redis key store
func NewRedisKeyStore(client *redis.Client) *RedisKeyStore {
	return &RedisKeyStore{
		client: client,
		prefix: "signal:apikey:",
	}
}

var _ ports.KeyStore = (*RedisKeyStore)(nil)

func (s *RedisKeyStore) SaveKey(ctx context.Context, key *core.IssuedKey, ttl time.Duration) error {
	payload, err := json.Marshal(key)
	if err != nil {
		return fmt.Errorf("failed to marshal key: %w", err)
	}

	// a zero expiration keeps the record
	if err := s.client.Set(ctx, s.prefix+key.Hash, payload, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreOperation, err)
	}
	return nil
}

func (s *RedisKeyStore) FindKey(ctx context.Context, hash string) (*core.IssuedKey, error) {
	payload, err := s.client.Get(ctx, s.prefix+hash).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", core.ErrStoreOperation, err)
	}

	var key core.IssuedKey
	if err := json.Unmarshal(payload, &key); err != nil {
		return nil, fmt.Errorf("failed to unmarshal key: %w", err)
	}
	return &key, nil
}

// RedisChallengeStore is a Redis implementation of the ChallengeStore
// interface
type RedisChallengeStore struct {
	client *redis.Client
	prefix string
}

// NewRedisChallengeStore creates a new Redis challenge store
func NewRedisChallengeStore(client *redis.Client) *RedisChallengeStore {
	return &RedisChallengeStore{
		client: client,
		prefix: "signal:challenge:",
	}
}

var _ ports.ChallengeStore = (*RedisChallengeStore)(nil)

// ConsumeChallenge marks a challenge as used. SETNX makes the check and the
// mark a single step across server instances.
func (s *RedisChallengeStore) ConsumeChallenge(ctx context.Context, id string, ttl time.Duration) error {
	ok, err := s.client.SetNX(ctx, s.prefix+id, "1", ttl).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreOperation, err)
	}
	if !ok {
		return core.ErrChallengeUsed
	}
	return nil
}

// Ping checks the Redis connection
func Ping(ctx context.Context, client *redis.Client) error {
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
