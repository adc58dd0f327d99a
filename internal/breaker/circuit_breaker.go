// Package breaker implements the gateway's per-pool circuit breaker: a
// three-state machine (closed/open/half-open) that isolates a failing
// upstream pool from further traffic until it shows signs of recovery.
package breaker

import (
	"sync/atomic"
	"time"
)

type State int32

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config mirrors config.CircuitBreakerConfig's meaningful fields, kept
// separate so this package has no dependency on the config package.
type Config struct {
	Enabled          bool
	FailureThreshold int64
	RecoveryTimeout  time.Duration
	HalfOpenMaxCalls int64
}

// CircuitBreaker tracks consecutive failures against a pool and opens once
// FailureThreshold is reached, probing recovery after RecoveryTimeout with
// up to HalfOpenMaxCalls half-open calls.
type CircuitBreaker struct {
	cfg Config

	state           atomic.Int32
	failureCount    atomic.Int64
	successCount    atomic.Int64
	lastFailureNano atomic.Int64
}

func New(cfg Config) *CircuitBreaker {
	cb := &CircuitBreaker{cfg: cfg}
	cb.state.Store(int32(Closed))
	return cb
}

// CanExecute reports whether a request may proceed. It may itself
// transition Open -> HalfOpen when the recovery timeout has elapsed,
// matching the spec's "can_execute may mutate" contract.
func (cb *CircuitBreaker) CanExecute() bool {
	if !cb.cfg.Enabled {
		return true
	}

	switch State(cb.state.Load()) {
	case Closed:
		return true

	case Open:
		lastFailure := time.Unix(0, cb.lastFailureNano.Load())
		if time.Since(lastFailure) >= cb.cfg.RecoveryTimeout {
			cb.transitionToHalfOpen()
			return true
		}
		return false

	case HalfOpen:
		return cb.successCount.Load() < cb.cfg.HalfOpenMaxCalls

	default:
		return false
	}
}

// RecordSuccess reports a successful upstream interaction. In Closed it
// resets the consecutive-failure counter; in HalfOpen it counts toward
// closing the breaker; in Open it is a no-op (the breaker is not informed
// of successes while rejecting outright).
func (cb *CircuitBreaker) RecordSuccess() {
	if !cb.cfg.Enabled {
		return
	}

	switch State(cb.state.Load()) {
	case Closed:
		cb.failureCount.Store(0)

	case HalfOpen:
		successes := cb.successCount.Add(1)
		if successes >= cb.cfg.HalfOpenMaxCalls {
			cb.transitionToClosed()
		}
	}
}

// RecordFailure reports a failed upstream interaction. In Closed it may
// open the breaker once FailureThreshold is reached; in HalfOpen a single
// failure reopens immediately.
func (cb *CircuitBreaker) RecordFailure() {
	if !cb.cfg.Enabled {
		return
	}

	switch State(cb.state.Load()) {
	case Closed:
		failures := cb.failureCount.Add(1)
		if failures >= cb.cfg.FailureThreshold {
			cb.transitionToOpen()
		}

	case HalfOpen:
		cb.transitionToOpen()
	}
}

func (cb *CircuitBreaker) State() State {
	if !cb.cfg.Enabled {
		return Closed
	}
	return State(cb.state.Load())
}

func (cb *CircuitBreaker) transitionToOpen() {
	cb.lastFailureNano.Store(time.Now().UnixNano())
	cb.state.Store(int32(Open))
	cb.successCount.Store(0)
}

func (cb *CircuitBreaker) transitionToHalfOpen() {
	cb.state.Store(int32(HalfOpen))
	cb.successCount.Store(0)
}

func (cb *CircuitBreaker) transitionToClosed() {
	cb.state.Store(int32(Closed))
	cb.failureCount.Store(0)
	cb.successCount.Store(0)
}
