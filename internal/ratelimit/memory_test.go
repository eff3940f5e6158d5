package ratelimit_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/srourslaw/Sharepoint-project-sub005/internal/domain"
	"github.com/srourslaw/Sharepoint-project-sub005/internal/ratelimit"
)

func TestConsume(t *testing.T) {
	ctx := context.Background()

	t.Run("should allow up to the limit and reject the overflow", func(t *testing.T) {
		limiter := ratelimit.NewLimiter(5, time.Minute)

		for i := 0; i < 5; i++ {
			require.NoError(t, limiter.Consume(ctx, "key"))
		}

		err := limiter.Consume(ctx, "key")
		pe, ok := domain.IsProviderError(err)
		require.True(t, ok)
		require.Equal(t, domain.ErrCodeRateLimitExceeded, pe.Code)
		require.Positive(t, pe.RetryAfterSeconds)
		require.True(t, pe.Retryable())
	})

	t.Run("should track keys independently", func(t *testing.T) {
		limiter := ratelimit.NewLimiter(1, time.Minute)

		require.NoError(t, limiter.Consume(ctx, "a"))
		require.Error(t, limiter.Consume(ctx, "a"))
		require.NoError(t, limiter.Consume(ctx, "b"))
	})

	t.Run("should refill fully after the window", func(t *testing.T) {
		limiter := ratelimit.NewLimiter(2, 30*time.Millisecond)

		require.NoError(t, limiter.Consume(ctx, "key"))
		require.NoError(t, limiter.Consume(ctx, "key"))
		require.Error(t, limiter.Consume(ctx, "key"))

		time.Sleep(40 * time.Millisecond)

		require.NoError(t, limiter.Consume(ctx, "key"))
		require.NoError(t, limiter.Consume(ctx, "key"))
		require.Error(t, limiter.Consume(ctx, "key"))
	})

	t.Run("should admit exactly the limit under concurrency", func(t *testing.T) {
		const (
			limit = 10
			calls = 50
		)

		limiter := ratelimit.NewLimiter(limit, time.Minute)
		errs := make(chan error, calls)

		var wg sync.WaitGroup
		for i := 0; i < calls; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- limiter.Consume(ctx, "shared")
			}()
		}
		wg.Wait()
		close(errs)

		admitted := 0
		for err := range errs {
			if err == nil {
				admitted++
			}
		}
		require.Equal(t, limit, admitted)
	})
}

func TestStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("should report a full bucket for unknown keys", func(t *testing.T) {
		limiter := ratelimit.NewLimiter(10, time.Minute)

		status, err := limiter.Status(ctx, "never-seen")
		require.NoError(t, err)
		require.Equal(t, 10, status.Limit)
		require.Equal(t, 10, status.Remaining)
		require.False(t, status.IsBlocked)
	})

	t.Run("should not consume from the bucket", func(t *testing.T) {
		limiter := ratelimit.NewLimiter(2, time.Minute)
		require.NoError(t, limiter.Consume(ctx, "key"))

		for i := 0; i < 5; i++ {
			status, err := limiter.Status(ctx, "key")
			require.NoError(t, err)
			require.Equal(t, 1, status.Remaining)
		}
	})

	t.Run("should report blocked when exhausted", func(t *testing.T) {
		limiter := ratelimit.NewLimiter(1, time.Minute)
		require.NoError(t, limiter.Consume(ctx, "key"))

		status, err := limiter.Status(ctx, "key")
		require.NoError(t, err)
		require.Zero(t, status.Remaining)
		require.True(t, status.IsBlocked)
		require.True(t, status.ResetTime.After(time.Now()))
	})

	t.Run("should report a full bucket after the window lapses", func(t *testing.T) {
		limiter := ratelimit.NewLimiter(1, 20*time.Millisecond)
		require.NoError(t, limiter.Consume(ctx, "key"))

		time.Sleep(30 * time.Millisecond)

		status, err := limiter.Status(ctx, "key")
		require.NoError(t, err)
		require.Equal(t, 1, status.Remaining)
		require.False(t, status.IsBlocked)
	})
}
