package breaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := New(Config{Enabled: true, FailureThreshold: 3, RecoveryTimeout: time.Hour, HalfOpenMaxCalls: 1})

	assert.True(t, cb.CanExecute())
	cb.RecordFailure()
	cb.RecordFailure()
	assert.Equal(t, Closed, cb.State())
	assert.True(t, cb.CanExecute())

	cb.RecordFailure()
	assert.Equal(t, Open, cb.State())
	assert.False(t, cb.CanExecute())
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := New(Config{Enabled: true, FailureThreshold: 3, RecoveryTimeout: time.Hour, HalfOpenMaxCalls: 1})

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	cb.RecordFailure()

	assert.Equal(t, Closed, cb.State(), "an intervening success should reset the consecutive-failure count")
}

func TestCircuitBreaker_RecoversThroughHalfOpen(t *testing.T) {
	cb := New(Config{Enabled: true, FailureThreshold: 1, RecoveryTimeout: 20 * time.Millisecond, HalfOpenMaxCalls: 2})

	cb.RecordFailure()
	assert.Equal(t, Open, cb.State())
	assert.False(t, cb.CanExecute())

	time.Sleep(25 * time.Millisecond)

	assert.True(t, cb.CanExecute(), "first call after recovery timeout should be let through")
	assert.Equal(t, HalfOpen, cb.State())

	cb.RecordSuccess()
	assert.Equal(t, HalfOpen, cb.State(), "one probe success with HalfOpenMaxCalls=2 should not yet close")

	cb.RecordSuccess()
	assert.Equal(t, Closed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := New(Config{Enabled: true, FailureThreshold: 1, RecoveryTimeout: 10 * time.Millisecond, HalfOpenMaxCalls: 3})

	cb.RecordFailure()
	time.Sleep(15 * time.Millisecond)
	assert.True(t, cb.CanExecute())
	assert.Equal(t, HalfOpen, cb.State())

	cb.RecordFailure()
	assert.Equal(t, Open, cb.State(), "any failure during half-open must reopen immediately")
}

func TestCircuitBreaker_Disabled(t *testing.T) {
	cb := New(Config{Enabled: false, FailureThreshold: 1, RecoveryTimeout: time.Hour, HalfOpenMaxCalls: 1})

	for i := 0; i < 10; i++ {
		cb.RecordFailure()
		assert.True(t, cb.CanExecute())
	}
	assert.Equal(t, Closed, cb.State())
}
