package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/srourslaw/Sharepoint-project-sub005/internal/domain"
)

const keyPrefix = "ratelimit:"

// RedisLimiter is a fixed-window rate limiter backed by redis, for sharing
// buckets across gateway processes. The window is enforced with INCR plus a
// PEXPIRE set on the first hit of each window.
type RedisLimiter struct {
	client      *redis.Client
	maxRequests int
	window      time.Duration
}

// NewRedisLimiter creates a redis-backed limiter allowing maxRequests per window.
func NewRedisLimiter(client *redis.Client, maxRequests int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client:      client,
		maxRequests: maxRequests,
		window:      window,
	}
}

// Consume takes one point from the key's bucket.
func (l *RedisLimiter) Consume(ctx context.Context, key string) error {
	redisKey := keyPrefix + key

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return fmt.Errorf("rate limit store unavailable: %w", err)
	}

	if count == 1 {
		if err := l.client.PExpire(ctx, redisKey, l.window).Err(); err != nil {
			return fmt.Errorf("rate limit store unavailable: %w", err)
		}
	}

	if count > int64(l.maxRequests) {
		ttl, ttlErr := l.client.PTTL(ctx, redisKey).Result()
		if ttlErr != nil || ttl < 0 {
			ttl = l.window
		}
		return domain.NewProviderError(
			domain.ErrCodeRateLimitExceeded,
			"",
			"rate limit exceeded for key: "+key,
		).WithRetryAfter(retryAfterSeconds(ttl))
	}

	return nil
}

// Status reports the current bucket for a key without consuming from it.
func (l *RedisLimiter) Status(ctx context.Context, key string) (*domain.RateLimitStatus, error) {
	redisKey := keyPrefix + key

	count, err := l.client.Get(ctx, redisKey).Int()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("rate limit store unavailable: %w", err)
	}

	ttl, err := l.client.PTTL(ctx, redisKey).Result()
	if err != nil || ttl < 0 {
		ttl = l.window
	}

	remaining := l.maxRequests - count
	if remaining < 0 {
		remaining = 0
	}

	return &domain.RateLimitStatus{
		Limit:     l.maxRequests,
		Remaining: remaining,
		ResetTime: time.Now().Add(ttl),
		IsBlocked: remaining == 0,
	}, nil
}
