// Package ratelimit provides per-key fixed-window admission control.
// The in-memory limiter is the default; a redis-backed limiter is available
// for deployments that share buckets across processes.
package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/srourslaw/Sharepoint-project-sub005/internal/domain"
)

type bucket struct {
	count   int
	resetAt time.Time
}

// Limiter is an in-memory fixed-window rate limiter. Unknown keys start with
// a full bucket; buckets fully refill after exactly one window.
type Limiter struct {
	mu          sync.Mutex
	buckets     map[string]*bucket
	maxRequests int
	window      time.Duration
}

// NewLimiter creates an in-memory limiter allowing maxRequests per window.
func NewLimiter(maxRequests int, window time.Duration) *Limiter {
	return &Limiter{
		buckets:     make(map[string]*bucket),
		maxRequests: maxRequests,
		window:      window,
	}
}

// Consume takes one point from the key's bucket, failing with
// RateLimitExceeded once the window's budget is exhausted. Rejected requests
// never reach a provider.
func (l *Limiter) Consume(_ context.Context, key string) error {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, exists := l.buckets[key]
	if !exists || !now.Before(b.resetAt) {
		b = &bucket{count: 0, resetAt: now.Add(l.window)}
		l.buckets[key] = b
	}

	if b.count >= l.maxRequests {
		return domain.NewProviderError(
			domain.ErrCodeRateLimitExceeded,
			"",
			"rate limit exceeded for key: "+key,
		).WithRetryAfter(retryAfterSeconds(b.resetAt.Sub(now)))
	}

	b.count++
	return nil
}

// Status reports the current bucket for a key without consuming from it.
func (l *Limiter) Status(_ context.Context, key string) (*domain.RateLimitStatus, error) {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, exists := l.buckets[key]
	if !exists || !now.Before(b.resetAt) {
		return &domain.RateLimitStatus{
			Limit:     l.maxRequests,
			Remaining: l.maxRequests,
			ResetTime: now.Add(l.window),
			IsBlocked: false,
		}, nil
	}

	remaining := l.maxRequests - b.count
	if remaining < 0 {
		remaining = 0
	}

	return &domain.RateLimitStatus{
		Limit:     l.maxRequests,
		Remaining: remaining,
		ResetTime: b.resetAt,
		IsBlocked: remaining == 0,
	}, nil
}

// retryAfterSeconds converts the remaining window to a whole-second retry
// hint, never less than one second.
func retryAfterSeconds(remaining time.Duration) int {
	seconds := int(math.Ceil(remaining.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	return seconds
}
