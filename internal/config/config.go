// Package config defines the gateway's typed policy configuration, loaded
// from a JSON file on disk and otherwise backed by built-in defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

const (
	DefaultConfigPath = "config.json"

	DefaultUpstream = "127.0.0.1:8080"

	DefaultRequestsPerSecond = 1000
	DefaultBurstSize         = 100

	DefaultFailureThreshold  = 5
	DefaultRecoveryTimeout   = 30 * time.Second
	DefaultHalfOpenMaxCalls  = 3

	DefaultMaxAttempts = 3
	DefaultBackoffBase = 100 * time.Millisecond
	DefaultBackoffMax  = 5 * time.Second

	DefaultConnectTimeout = 5 * time.Second
	DefaultRequestTimeout = 30 * time.Second

	DefaultProxyListenAddr = "0.0.0.0:6188"
	DefaultAdminListenAddr = "127.0.0.1:9188"

	DefaultHealthCheckInterval = time.Second
)

// ProxyConfig is the immutable snapshot of policy tunables the hot path
// reads. A loaded ProxyConfig is never mutated in place; a config reload
// (not implemented here - see Non-goals) would publish a new snapshot
// through the atomic pointer in Atomic rather than mutate this struct.
type ProxyConfig struct {
	Upstreams      []string             `json:"upstreams"`
	RateLimit      RateLimitConfig      `json:"rate_limit"`
	CircuitBreaker CircuitBreakerConfig `json:"circuit_breaker"`
	Retry          RetryConfig          `json:"retry"`
	Timeout        TimeoutConfig        `json:"timeout"`
}

type RateLimitConfig struct {
	Enabled           bool `json:"enabled"`
	RequestsPerSecond uint64 `json:"requests_per_second"`
	BurstSize         uint64 `json:"burst_size"`
}

type CircuitBreakerConfig struct {
	Enabled            bool   `json:"enabled"`
	FailureThreshold   uint64 `json:"failure_threshold"`
	RecoveryTimeoutSecs uint64 `json:"recovery_timeout_secs"`
	HalfOpenMaxCalls   uint64 `json:"half_open_max_calls"`
}

type RetryConfig struct {
	Enabled        bool   `json:"enabled"`
	MaxAttempts    uint32 `json:"max_attempts"`
	BackoffBaseMs  uint64 `json:"backoff_base_ms"`
	BackoffMaxMs   uint64 `json:"backoff_max_ms"`
}

type TimeoutConfig struct {
	ConnectTimeoutSecs uint64 `json:"connect_timeout_secs"`
	RequestTimeoutSecs uint64 `json:"request_timeout_secs"`
}

// Default returns a configuration with the built-in fallback values named
// in spec.md section 6: single local upstream, all policies enabled.
func Default() *ProxyConfig {
	return &ProxyConfig{
		Upstreams: []string{DefaultUpstream},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: DefaultRequestsPerSecond,
			BurstSize:         DefaultBurstSize,
		},
		CircuitBreaker: CircuitBreakerConfig{
			Enabled:             true,
			FailureThreshold:    DefaultFailureThreshold,
			RecoveryTimeoutSecs: uint64(DefaultRecoveryTimeout.Seconds()),
			HalfOpenMaxCalls:    DefaultHalfOpenMaxCalls,
		},
		Retry: RetryConfig{
			Enabled:       true,
			MaxAttempts:   DefaultMaxAttempts,
			BackoffBaseMs: uint64(DefaultBackoffBase.Milliseconds()),
			BackoffMaxMs:  uint64(DefaultBackoffMax.Milliseconds()),
		},
		Timeout: TimeoutConfig{
			ConnectTimeoutSecs: uint64(DefaultConnectTimeout.Seconds()),
			RequestTimeoutSecs: uint64(DefaultRequestTimeout.Seconds()),
		},
	}
}

// Load reads a JSON config file from path, filling in defaults for any
// fields the file omits and for numeric fields it sets to zero; an explicit
// zero requests_per_second and explicit false enabled flags are kept as
// written. A missing or malformed file is the
// caller's concern - Load only decodes, the supervisor decides whether to
// fall back to Default().
func Load(path string) (*ProxyConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyZeroDefaults()

	if len(cfg.Upstreams) == 0 {
		cfg.Upstreams = []string{DefaultUpstream}
	}

	return cfg, nil
}

// applyZeroDefaults fills fields a partial JSON document left at their
// zero value with the documented default, mirroring the "missing fields
// fall back to built-in defaults" rule in spec.md section 6.
func (c *ProxyConfig) applyZeroDefaults() {
	d := Default()

	if c.RateLimit.BurstSize == 0 {
		c.RateLimit.BurstSize = d.RateLimit.BurstSize
	}
	if c.CircuitBreaker.FailureThreshold == 0 {
		c.CircuitBreaker.FailureThreshold = d.CircuitBreaker.FailureThreshold
	}
	if c.CircuitBreaker.RecoveryTimeoutSecs == 0 {
		c.CircuitBreaker.RecoveryTimeoutSecs = d.CircuitBreaker.RecoveryTimeoutSecs
	}
	if c.CircuitBreaker.HalfOpenMaxCalls == 0 {
		c.CircuitBreaker.HalfOpenMaxCalls = d.CircuitBreaker.HalfOpenMaxCalls
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = d.Retry.MaxAttempts
	}
	if c.Retry.BackoffBaseMs == 0 {
		c.Retry.BackoffBaseMs = d.Retry.BackoffBaseMs
	}
	if c.Retry.BackoffMaxMs == 0 {
		c.Retry.BackoffMaxMs = d.Retry.BackoffMaxMs
	}
	if c.Timeout.ConnectTimeoutSecs == 0 {
		c.Timeout.ConnectTimeoutSecs = d.Timeout.ConnectTimeoutSecs
	}
	if c.Timeout.RequestTimeoutSecs == 0 {
		c.Timeout.RequestTimeoutSecs = d.Timeout.RequestTimeoutSecs
	}
}

func (c *ProxyConfig) ConnectTimeout() time.Duration {
	return time.Duration(c.Timeout.ConnectTimeoutSecs) * time.Second
}

func (c *ProxyConfig) RequestTimeout() time.Duration {
	return time.Duration(c.Timeout.RequestTimeoutSecs) * time.Second
}

func (c *ProxyConfig) RecoveryTimeout() time.Duration {
	return time.Duration(c.CircuitBreaker.RecoveryTimeoutSecs) * time.Second
}

func (c *ProxyConfig) BackoffBase() time.Duration {
	return time.Duration(c.Retry.BackoffBaseMs) * time.Millisecond
}

func (c *ProxyConfig) BackoffMax() time.Duration {
	return time.Duration(c.Retry.BackoffMaxMs) * time.Millisecond
}
