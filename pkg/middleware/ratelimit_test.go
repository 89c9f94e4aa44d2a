package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRateLimiter(t *testing.T, config *RateLimitConfig) (*RateLimiter, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRateLimiter(client, config, ""), mr
}

func TestRateLimiter_AllowsWithinWindow(t *testing.T) {
	rl, _ := setupRateLimiter(t, &RateLimitConfig{MessagesPerWindow: 3, WindowDuration: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := rl.Allow(ctx, "29:u1")
		require.NoError(t, err)
		assert.True(t, allowed, "message %d should be allowed", i+1)
	}

	allowed, err := rl.Allow(ctx, "29:u1")
	require.NoError(t, err)
	assert.False(t, allowed, "message over the window must be limited")
}

func TestRateLimiter_PerUserWindows(t *testing.T) {
	rl, _ := setupRateLimiter(t, &RateLimitConfig{MessagesPerWindow: 1, WindowDuration: time.Minute})
	ctx := context.Background()

	allowed, err := rl.Allow(ctx, "29:u1")
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = rl.Allow(ctx, "29:u2")
	require.NoError(t, err)
	assert.True(t, allowed, "another user's window is independent")
}

func TestRateLimiter_WindowExpiry(t *testing.T) {
	rl, mr := setupRateLimiter(t, &RateLimitConfig{MessagesPerWindow: 1, WindowDuration: time.Minute})
	ctx := context.Background()

	allowed, err := rl.Allow(ctx, "29:u1")
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = rl.Allow(ctx, "29:u1")
	require.NoError(t, err)
	require.False(t, allowed)

	mr.FastForward(2 * time.Minute)

	allowed, err = rl.Allow(ctx, "29:u1")
	require.NoError(t, err)
	assert.True(t, allowed, "window should reset after expiry")
}

func TestRateLimiter_FailsOpenOnRedisError(t *testing.T) {
	rl, mr := setupRateLimiter(t, nil)
	mr.Close()

	allowed, err := rl.Allow(context.Background(), "29:u1")
	assert.True(t, allowed, "redis outage must not silence the bot")
	assert.Error(t, err)
}

func TestRateLimiter_Remaining(t *testing.T) {
	rl, _ := setupRateLimiter(t, &RateLimitConfig{MessagesPerWindow: 5, WindowDuration: time.Minute})
	ctx := context.Background()

	remaining, err := rl.Remaining(ctx, "29:u1")
	require.NoError(t, err)
	assert.Equal(t, 5, remaining)

	_, err = rl.Allow(ctx, "29:u1")
	require.NoError(t, err)
	_, err = rl.Allow(ctx, "29:u1")
	require.NoError(t, err)

	remaining, err = rl.Remaining(ctx, "29:u1")
	require.NoError(t, err)
	assert.Equal(t, 3, remaining)
}
