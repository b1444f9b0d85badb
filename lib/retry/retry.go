// Package retry is the bounded-retry primitive shared by the search and
// download stages. The portal fails in two ways: recoverable (slow render,
// captcha mismatch) which should be retried after a politeness delay, and
// permanent (unwritable destination, caller bugs) which must surface
// immediately. Permanent failures are marked with Permanent.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// BackoffFunc returns the wait duration before the next attempt.
// attempt is zero-based: the value passed after the first failure is 0.
type BackoffFunc func(attempt int) time.Duration

// Fixed waits the same duration between every attempt.
func Fixed(d time.Duration) BackoffFunc {
	return func(int) time.Duration { return d }
}

// Incremental waits base + step*attempt, the portal-politeness shape used
// for captcha and download retries.
func Incremental(base, step time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		return base + step*time.Duration(attempt)
	}
}

// Permanent marks err as non-retryable; Do returns it without consuming
// further attempts.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

type funcBackOff struct {
	fn      BackoffFunc
	attempt int
}

func (b *funcBackOff) NextBackOff() time.Duration {
	d := b.fn(b.attempt)
	b.attempt++
	if d < 0 {
		d = 0
	}
	return d
}

func (b *funcBackOff) Reset() {
	b.attempt = 0
}

// Do invokes op up to maxAttempts times, sleeping wait(attempt) between
// failures, and returns the last error once attempts are exhausted. The
// context is honored both inside op and during backoff sleeps.
func Do[T any](ctx context.Context, maxAttempts int, wait BackoffFunc, op func(context.Context) (T, error)) (T, error) {
	var result T
	if maxAttempts < 1 {
		return result, fmt.Errorf("retry: maxAttempts must be >= 1, got %d", maxAttempts)
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(&funcBackOff{fn: wait}, uint64(maxAttempts-1)),
		ctx,
	)
	err := backoff.Retry(func() error {
		out, err := op(ctx)
		if err != nil {
			return err
		}
		result = out
		return nil
	}, b)
	return result, err
}
