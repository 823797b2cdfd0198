package db

import (
	"context"
	"math/rand"
	"time"
)

/*
RetryPolicy bounds the transient-failure retry loop: 1 initial attempt plus
up to MaxRetries more, sleeping min(BaseDelay*2^(attempt-1)+jitter, MaxDelay)
between attempts. Jitter spreads simultaneous clients so their retries do
not land in lockstep.
*/
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Jitter     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   10 * time.Second,
		Jitter:     time.Second,
	}
}

// noRetries executes exactly once; batch items use it so one contended item
// fails fast instead of stalling the whole batch in backoff sleeps.
func noRetries() RetryPolicy {
	return RetryPolicy{MaxRetries: 0}
}

/*
WithRetry runs op until it succeeds, returns a non-retryable error, or the
attempt budget is spent. Conflicts, duplicates, missing rows, and held locks
are never retried; they need caller intervention, not another attempt.
MaxRetries of 0 still runs op once. onRetry (optional) fires before each
backoff sleep.
*/
func WithRetry[T any](ctx context.Context, policy RetryPolicy, onRetry func(attempt int, err error), op func() (T, error)) (T, error) {
	var zero T

	attempts := policy.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		out, err := op()
		if err == nil {
			return out, nil
		}
		if !retryable(err) {
			return zero, err
		}
		lastErr = err
		if attempt == attempts {
			break
		}
		if onRetry != nil {
			onRetry(attempt, err)
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(policy.backoff(attempt)):
		}
	}
	return zero, lastErr
}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	delay := p.BaseDelay << (attempt - 1)
	if p.Jitter > 0 {
		delay += time.Duration(rand.Int63n(int64(p.Jitter)))
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}
