package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/layer-3/signal/core"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func redisClient(t *testing.T) *redis.Client {
	t.Helper()
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}

	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	t.Cleanup(func() { client.Close() })

	require.NoError(t, Ping(context.Background(), client))
	return client
}

func TestRedisKV(t *testing.T) {
	client := redisClient(t)
	kv := NewRedisKV(client)
	kv.prefix = "signal:test:" + t.Name() + ":"

	exerciseKV(t, kv)
}

func TestRedisKeyStore(t *testing.T) {
	ctx := context.Background()
	s := NewRedisKeyStore(redisClient(t))
	s.prefix = "signal:test:" + t.Name() + ":"

	expires := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	key := &core.IssuedKey{ID: "k1", Hash: "h1", OwnerID: "o", InstanceID: "i", Permissions: "32,11", ExpiresAt: &expires}
	require.NoError(t, s.SaveKey(ctx, key, time.Hour))

	found, err := s.FindKey(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, "32,11", found.Permissions)
	assert.True(t, found.ExpiresAt.Equal(expires))

	_, err = s.FindKey(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestRedisChallengeStore(t *testing.T) {
	s := NewRedisChallengeStore(redisClient(t))
	s.prefix = "signal:test:" + t.Name() + ":" + time.Now().Format(time.RFC3339Nano) + ":"

	exerciseChallengeStore(t, s)
}
