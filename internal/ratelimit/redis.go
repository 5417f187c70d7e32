package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a fixed-window counter limiter backed by Redis. The window
// key rolls over with the clock, so a burst may span two windows; acceptable
// for message throttling.
type RedisLimiter struct {
	client *redis.Client
	rate   int
	window time.Duration
}

// NewRedisLimiter creates a Redis-backed limiter allowing rate events per
// window per key.
func NewRedisLimiter(client *redis.Client, rate int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, rate: rate, window: window}
}

// Allow increments the current window's counter for key and checks the limit.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	windowKey := fmt.Sprintf("ratelimit:%s:%d", key, time.Now().Unix()/int64(l.window.Seconds()))

	pipe := l.client.Pipeline()
	incr := pipe.Incr(ctx, windowKey)
	pipe.Expire(ctx, windowKey, l.window*2)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	return incr.Val() <= int64(l.rate), nil
}

// Ping checks the Redis connection, for health reporting.
func (l *RedisLimiter) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}
