// Package retry provides retry functionality with exponential backoff and jitter.
// It is used at process boundaries only: connecting to Postgres and Redis at
// startup and re-reading poller queries. Domain writes are never retried here;
// a lost optimistic-concurrency race is returned to the caller.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Backoff describes the delay schedule between attempts.
type Backoff struct {
	// MaxAttempts counts the first attempt too.
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	// Jitter spreads each delay by +/- Jitter*delay (0.0 to 1.0).
	Jitter float64
}

// delay returns the wait after the given failed attempt (1-based).
func (b Backoff) delay(attempt int) time.Duration {
	d := float64(b.InitialDelay) * math.Pow(b.Multiplier, float64(attempt-1))
	if d > float64(b.MaxDelay) {
		d = float64(b.MaxDelay)
	}
	if b.Jitter > 0 {
		d += d * b.Jitter * (rand.Float64()*2 - 1)
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// OnRetryFunc is called before each wait.
type OnRetryFunc func(attempt int, err error, delay time.Duration)

// Retrier runs an operation until it succeeds, the error is not retryable,
// attempts run out or the context is done.
type Retrier struct {
	backoff Backoff
	retryIf func(error) bool
	onRetry OnRetryFunc
}

// New creates a Retrier. A nil retryIf retries every error.
func New(b Backoff, retryIf func(error) bool, onRetry OnRetryFunc) *Retrier {
	if b.MaxAttempts < 1 {
		b.MaxAttempts = 1
	}
	if b.Multiplier < 1 {
		b.Multiplier = 1
	}
	if b.MaxDelay < b.InitialDelay {
		b.MaxDelay = b.InitialDelay
	}
	if retryIf == nil {
		retryIf = func(error) bool { return true }
	}
	return &Retrier{backoff: b, retryIf: retryIf, onRetry: onRetry}
}

// WithAttempts returns a copy of r limited to n attempts.
func (r *Retrier) WithAttempts(n int) *Retrier {
	b := r.backoff
	b.MaxAttempts = n
	return New(b, r.retryIf, r.onRetry)
}

// Do executes operation. The last error is returned unchanged.
func (r *Retrier) Do(ctx context.Context, operation func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= r.backoff.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		lastErr = operation(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == r.backoff.MaxAttempts || !r.retryIf(lastErr) {
			return lastErr
		}

		delay := r.backoff.delay(attempt)
		if r.onRetry != nil {
			r.onRetry(attempt, lastErr, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return lastErr
		case <-timer.C:
		}
	}
	return lastErr
}

// DoWithDataRetrier runs operation through r and returns its data.
func DoWithDataRetrier[T any](ctx context.Context, r *Retrier, operation func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := r.Do(ctx, func(ctx context.Context) error {
		var opErr error
		result, opErr = operation(ctx)
		return opErr
	})
	return result, err
}

// StartupRetrier waits up to roughly 20s for a dependency (database, cache)
// to come up. Errors rejected by retryIf, such as a malformed URL, fail at once.
func StartupRetrier(retryIf func(error) bool, onRetry OnRetryFunc) *Retrier {
	return New(Backoff{
		MaxAttempts:  8,
		InitialDelay: 250 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		Jitter:       0.2,
	}, retryIf, onRetry)
}

// DatabaseRetrier returns a Retrier for idempotent read queries.
func DatabaseRetrier(retryIf func(error) bool) *Retrier {
	return New(Backoff{
		MaxAttempts:  3,
		InitialDelay: 50 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
		Jitter:       0.05,
	}, retryIf, nil)
}
