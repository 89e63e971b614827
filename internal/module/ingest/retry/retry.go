// Package retry is the Retry/Backoff Utility (C13): a generic retry helper
// with exponential backoff, used by every external-port call (C4 exchange
// rates, C10 AI categorization).
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// Retryable is implemented by errors the caller knows are safe to retry
// (network timeout, 5xx, explicit rate-limit). Errors that don't implement
// it surface immediately.
type Retryable interface {
	Retryable() bool
}

// IsRetryable reports whether err should trigger another attempt.
func IsRetryable(err error) bool {
	var r Retryable
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return false
}

// Policy configures the backoff schedule: delays are
// min(base * 2^(attempt-1), cap) between attempts, up to MaxAttempts total
// tries (spec section 4.13).
type Policy struct {
	MaxAttempts int
	Base        time.Duration
	Cap         time.Duration
}

func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 5, Base: 2 * time.Second, Cap: 32 * time.Second}
}

// Delay returns the backoff delay before the given 1-indexed attempt.
func (p Policy) Delay(attempt int) time.Duration {
	factor := math.Pow(2, float64(attempt-1))
	d := time.Duration(float64(p.Base) * factor)
	if d > p.Cap {
		d = p.Cap
	}
	return d
}

// ExhaustedError wraps the last error observed after all attempts failed.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry: exhausted after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// Do runs op, retrying on retryable errors per policy. A non-retryable
// error surfaces immediately without consuming remaining attempts.
func Do(ctx context.Context, policy Policy, op func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !IsRetryable(lastErr) {
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
	return &ExhaustedError{Attempts: policy.MaxAttempts, Last: lastErr}
}
