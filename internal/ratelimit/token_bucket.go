// Package ratelimit implements the gateway's ingress admission control: a
// single global token bucket gating how many requests enter the pipeline
// per second.
package ratelimit

import (
	"sync"
	"time"
)

// TokenBucket holds capacity tokens refilling at refillRate tokens/sec.
// tokens never exceeds capacity and is never negative.
type TokenBucket struct {
	mu          sync.Mutex
	capacity    uint64
	tokens      uint64
	refillRate  uint64
	lastRefill  time.Time
}

func newTokenBucket(capacity, refillRate uint64) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		tokens:     capacity,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// tryAcquire refills the bucket for elapsed time, then takes one token if
// available. Returns false without mutating tokens when the bucket is dry.
func (b *TokenBucket) tryAcquire() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill()

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// refill adds floor(elapsed_seconds * refillRate) tokens, clamped to
// capacity, and only advances lastRefill when it actually added tokens -
// this keeps a refillRate of 0 from ever creeping lastRefill forward and
// preserves the bucket as a pure one-shot burst of capacity tokens.
func (b *TokenBucket) refill() {
	now := time.Now()
	elapsed := now.Sub(b.lastRefill)

	added := uint64(elapsed.Seconds() * float64(b.refillRate))
	if added == 0 {
		return
	}

	b.tokens += added
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	b.lastRefill = now
}

// Limiter is the admission-control entry point used by the request
// pipeline: Check reports whether one token is available right now, with
// no waiting or queuing. A disabled limiter always allows.
type Limiter struct {
	bucket  *TokenBucket
	enabled bool
}

func NewLimiter(requestsPerSecond, burstSize uint64, enabled bool) *Limiter {
	capacity := burstSize
	if capacity == 0 {
		capacity = 1
	}
	return &Limiter{
		bucket:  newTokenBucket(capacity, requestsPerSecond),
		enabled: enabled,
	}
}

// Check returns true iff the request may proceed now. It never blocks.
func (l *Limiter) Check() bool {
	if !l.enabled {
		return true
	}
	return l.bucket.tryAcquire()
}
