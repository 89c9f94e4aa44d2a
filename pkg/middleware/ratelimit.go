package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RateLimitConfig configures the per-user message window.
type RateLimitConfig struct {
	MessagesPerWindow int
	WindowDuration    time.Duration
}

// DefaultRateLimitConfig allows 30 messages per user per minute.
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		MessagesPerWindow: 30,
		WindowDuration:    time.Minute,
	}
}

// RateLimiter implements per-user rate limiting using Redis, so the limit
// is shared across bot instances behind the same platform endpoint.
type RateLimiter struct {
	redis  *redis.Client
	config *RateLimitConfig
	prefix string
}

// NewRateLimiter creates a new Redis-backed rate limiter.
func NewRateLimiter(redisClient *redis.Client, config *RateLimitConfig, prefix string) *RateLimiter {
	if config == nil {
		config = DefaultRateLimitConfig()
	}
	if prefix == "" {
		prefix = "chatsentry:ratelimit"
	}
	return &RateLimiter{
		redis:  redisClient,
		config: config,
		prefix: prefix,
	}
}

// Allow checks whether a message from the user is within the window.
// On Redis errors it fails open (allows the message) so a cache outage
// never silences the bot; the error is returned for logging.
func (rl *RateLimiter) Allow(ctx context.Context, userID string) (bool, error) {
	key := fmt.Sprintf("%s:%s", rl.prefix, userID)

	pipe := rl.redis.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, rl.config.WindowDuration)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, fmt.Errorf("redis error: %w", err)
	}

	return incr.Val() <= int64(rl.config.MessagesPerWindow), nil
}

// Remaining returns the number of messages left in the user's window.
func (rl *RateLimiter) Remaining(ctx context.Context, userID string) (int, error) {
	key := fmt.Sprintf("%s:%s", rl.prefix, userID)

	count, err := rl.redis.Get(ctx, key).Int()
	if err == redis.Nil {
		return rl.config.MessagesPerWindow, nil
	} else if err != nil {
		return 0, err
	}

	remaining := rl.config.MessagesPerWindow - count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}
