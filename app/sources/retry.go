package sources

import (
	"context"
	"math/rand"
	"time"
)

// RetryPolicy describes how an operation is retried. It is a plain value so
// call sites can be unit-tested against the policy they were given.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      bool
}

// DefaultRetryPolicy matches the fetch contract: 3 attempts, exponential
// backoff, capped.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
		Jitter:      true,
	}
}

// Delay returns the backoff before retry number attempt (1-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := p.BaseDelay * time.Duration(1<<uint(attempt-1))
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	if p.Jitter && delay > 0 {
		delay += time.Duration(rand.Int63n(int64(delay) / 2))
	}
	return delay
}

// Retry runs op until it succeeds, returns a non-retryable error, or the
// policy's attempts are exhausted. Rate-limit and auth failures stop the
// loop immediately.
func Retry(ctx context.Context, policy RetryPolicy, op func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		if fe, ok := AsFetchError(lastErr); ok && !fe.Retryable() {
			return lastErr
		}

		if attempt == policy.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(policy.Delay(attempt)):
		}
	}

	return lastErr
}
