package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"reflection-backend/internal/shared/telemetry"
)

// RedisCounter is the subset of the go-redis client RedisLimiter uses.
type RedisCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	PExpire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// RedisLimiter shares limits across instances with fixed windows in Redis.
// A window lasts Burst/Rate seconds and admits Burst requests. Redis errors
// fail open.
type RedisLimiter struct {
	client RedisCounter
	prefix string
	now    func() time.Time
}

// NewRedisLimiter constructs a RedisLimiter. Keys are namespaced by prefix.
func NewRedisLimiter(client RedisCounter, prefix string, now func() time.Time) *RedisLimiter {
	if now == nil {
		now = time.Now
	}
	if prefix == "" {
		prefix = "ratelimit:"
	}
	return &RedisLimiter{client: client, prefix: prefix, now: now}
}

// Allow counts one request against key's current window.
func (l *RedisLimiter) Allow(ctx context.Context, key string, rule RateLimitRule) (bool, time.Duration) {
	if l == nil || rule.Rate <= 0 || rule.Burst <= 0 {
		return true, 0
	}
	window := time.Duration(float64(rule.Burst) / rule.Rate * float64(time.Second))
	if window < time.Second {
		window = time.Second
	}
	now := l.now()
	slot := now.UnixNano() / int64(window)
	redisKey := fmt.Sprintf("%s%s:%d", l.prefix, key, slot)

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		telemetry.Warn("ratelimit.redis_error", map[string]any{"key": redisKey, "error": err})
		return true, 0
	}
	if count == 1 {
		if err := l.client.PExpire(ctx, redisKey, window).Err(); err != nil {
			telemetry.Warn("ratelimit.redis_error", map[string]any{"key": redisKey, "error": err})
		}
	}
	if count > int64(rule.Burst) {
		elapsed := time.Duration(now.UnixNano() % int64(window))
		return false, window - elapsed
	}
	return true, 0
}

var (
	_ Limiter = (*RateLimiter)(nil)
	_ Limiter = (*RedisLimiter)(nil)
)
