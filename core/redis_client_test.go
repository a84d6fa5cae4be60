package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisClient) {
	t.Helper()
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(RedisClientOptions{
		RedisURL:  "redis://" + mr.Addr(),
		DB:        RedisDBClientState,
		Namespace: "storefront",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisClient_MemoryContract(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	v, err := client.Get(ctx, "c1:cart")
	require.NoError(t, err, "missing keys are not errors")
	assert.Empty(t, v)

	require.NoError(t, client.Set(ctx, "c1:cart", "[]", 0))
	assert.True(t, mr.Exists("storefront:c1:cart"), "keys are namespaced")

	v, err = client.Get(ctx, "c1:cart")
	require.NoError(t, err)
	assert.Equal(t, "[]", v)

	ok, err := client.Exists(ctx, "c1:cart")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, client.Delete(ctx, "c1:cart"))
	ok, _ = client.Exists(ctx, "c1:cart")
	assert.False(t, ok)
}

func TestRedisClient_TTL(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "assistant:session:s1", "{}", time.Minute))
	mr.FastForward(2 * time.Minute)

	v, err := client.Get(ctx, "assistant:session:s1")
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestRedisClient_Counters(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()

	n, err := client.Incr(ctx, "rl:c1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	require.NoError(t, client.Expire(ctx, "rl:c1", time.Minute))

	ttl, err := client.TTL(ctx, "rl:c1")
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestRedisClient_Unavailable(t *testing.T) {
	mr, client := setupTestRedis(t)
	mr.Close()

	err := client.Set(context.Background(), "c1:theme", `"dark"`, 0)
	require.Error(t, err)
	assert.True(t, IsStorage(err))
	assert.Error(t, client.HealthCheck(context.Background()))
}

func TestNewRedisClient_Errors(t *testing.T) {
	_, err := NewRedisClient(RedisClientOptions{})
	assert.True(t, errors.Is(err, ErrInvalidConfiguration))

	_, err = NewRedisClient(RedisClientOptions{RedisURL: "not a url"})
	assert.True(t, errors.Is(err, ErrInvalidConfiguration))
}

func TestGetRedisDBName(t *testing.T) {
	assert.Equal(t, "Client State", GetRedisDBName(RedisDBClientState))
	assert.Equal(t, "Sessions", GetRedisDBName(RedisDBSessions))
	assert.Equal(t, "Doc Jobs", GetRedisDBName(RedisDBDocJobs))
	assert.Equal(t, "DB 9", GetRedisDBName(9))
}
