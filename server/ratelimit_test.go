package server

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gemfashion/storefront/core"
)

func TestWindowLimiter(t *testing.T) {
	l := NewWindowLimiter(2, 20*time.Millisecond)
	ctx := context.Background()

	for i, want := range []bool{true, true, false} {
		ok, _, err := l.Allow(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, want, ok, "request %d", i)
	}
	ok, _, _ := l.Allow(ctx, "b")
	assert.True(t, ok, "keys are independent")

	time.Sleep(25 * time.Millisecond)
	ok, _, _ = l.Allow(ctx, "a")
	assert.True(t, ok, "a new window starts after the period")
}

func TestWindowLimiter_Disabled(t *testing.T) {
	l := NewWindowLimiter(0, time.Minute)
	for i := 0; i < 100; i++ {
		ok, _, _ := l.Allow(context.Background(), "a")
		require.True(t, ok)
	}
}

func TestRedisLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	rc, err := core.NewRedisClient(core.RedisClientOptions{RedisURL: "redis://" + mr.Addr(), DB: -1, Namespace: "sf"})
	require.NoError(t, err)
	defer rc.Close()

	l := NewRedisLimiter(rc, 1, time.Minute)
	ctx := context.Background()

	ok, resetAt, err := l.Allow(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Minute), resetAt, 2*time.Second)

	ok, _, err = l.Allow(ctx, "c1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, time.Minute, mr.TTL("sf:ratelimit:c1"))

	mr.FastForward(time.Minute)
	ok, _, err = l.Allow(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLimiter_Unavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	rc, err := core.NewRedisClient(core.RedisClientOptions{RedisURL: "redis://" + mr.Addr(), DB: -1})
	require.NoError(t, err)
	defer rc.Close()
	mr.Close()

	_, _, err = NewRedisLimiter(rc, 1, time.Minute).Allow(context.Background(), "c1")
	assert.Error(t, err)
}
