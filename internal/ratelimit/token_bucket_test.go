package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiter_BurstThenReject(t *testing.T) {
	l := NewLimiter(1, 2, true)

	assert.True(t, l.Check(), "first token should be available")
	assert.True(t, l.Check(), "second token should be available")
	assert.False(t, l.Check(), "third request should be rejected within the burst window")
}

func TestLimiter_RefillsOverTime(t *testing.T) {
	l := NewLimiter(10, 1, true)

	assert.True(t, l.Check())
	assert.False(t, l.Check(), "single-capacity bucket should reject immediately after drain")

	time.Sleep(150 * time.Millisecond)

	assert.True(t, l.Check(), "bucket should have refilled at least one token after 150ms at 10/s")
}

func TestLimiter_DisabledAlwaysAllows(t *testing.T) {
	l := NewLimiter(1, 1, false)

	for i := 0; i < 100; i++ {
		assert.True(t, l.Check())
	}
}

func TestLimiter_ZeroRefillRateIsOneShot(t *testing.T) {
	l := NewLimiter(0, 3, true)

	assert.True(t, l.Check())
	assert.True(t, l.Check())
	assert.True(t, l.Check())
	assert.False(t, l.Check(), "zero refill rate must never replenish tokens")

	time.Sleep(50 * time.Millisecond)
	assert.False(t, l.Check(), "zero refill rate must never replenish tokens, even after waiting")
}

func TestTokenBucket_NeverExceedsCapacity(t *testing.T) {
	b := newTokenBucket(5, 1000)
	b.lastRefill = time.Now().Add(-time.Hour)

	b.refill()

	assert.LessOrEqual(t, b.tokens, b.capacity)
	assert.Equal(t, uint64(5), b.tokens)
}
