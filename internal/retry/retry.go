// Package retry drives a fallible async step with exponential backoff,
// classifying errors as retryable or terminal by substring inspection -
// the same heuristic the gateway this was distilled from used.
package retry

import (
	"context"
	"strings"
	"time"
)

// Policy is an immutable retry policy. When Enabled is false, the
// effective max attempts collapses to 1 regardless of MaxAttempts.
type Policy struct {
	Enabled      bool
	MaxAttempts  uint32
	BackoffBase  time.Duration
	BackoffMax   time.Duration
}

// EffectiveMaxAttempts returns the attempt budget actually enforced.
func (p Policy) EffectiveMaxAttempts() uint32 {
	if !p.Enabled {
		return 1
	}
	if p.MaxAttempts == 0 {
		return 1
	}
	return p.MaxAttempts
}

// Backoff returns the sleep duration before attempt k (1-indexed, so
// Backoff(1) is the wait before the second attempt): backoff_base *
// 2^(k-1), capped at backoff_max. No jitter - see spec.md section 9.
func (p Policy) Backoff(k uint32) time.Duration {
	if k == 0 {
		return 0
	}

	d := p.BackoffBase
	for i := uint32(1); i < k; i++ {
		d *= 2
		if d > p.BackoffMax {
			return p.BackoffMax
		}
	}
	if d > p.BackoffMax {
		d = p.BackoffMax
	}
	return d
}

var retryableSubstrings = []string{
	"timeout", "connection", "network", "temporary", "503", "502", "504",
}

// IsRetryable classifies err by case-insensitive substring match against
// a fixed vocabulary of transient-failure markers.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range retryableSubstrings {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// Op is the fallible operation the engine drives. It must be safe to
// invoke more than once.
type Op[T any] func(ctx context.Context) (T, error)

// Do invokes op up to policy.EffectiveMaxAttempts() times, sleeping
// Policy.Backoff between attempts. A successful attempt short-circuits
// immediately. A terminal (non-retryable) error is returned without
// consuming further attempts. After the final attempt the last error is
// returned unchanged. Cancellation of ctx aborts any remaining attempts.
func Do[T any](ctx context.Context, policy Policy, op Op[T]) (T, error) {
	var zero T
	var lastErr error

	maxAttempts := policy.EffectiveMaxAttempts()

	for attempt := uint32(1); attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			wait := policy.Backoff(attempt - 1)
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			case <-timer.C:
			}
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		lastErr = err

		if attempt >= maxAttempts {
			break
		}
		if !policy.Enabled || !IsRetryable(err) {
			break
		}
	}

	return zero, lastErr
}
