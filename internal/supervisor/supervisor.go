// Package supervisor wires every policy component together and owns the
// gateway's process lifecycle: load config, build the pipeline, start
// both listeners, block for a signal, shut down cleanly.
package supervisor

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/thushan/gateway/internal/admin"
	"github.com/thushan/gateway/internal/balancer"
	"github.com/thushan/gateway/internal/breaker"
	"github.com/thushan/gateway/internal/config"
	"github.com/thushan/gateway/internal/gateway"
	"github.com/thushan/gateway/internal/health"
	"github.com/thushan/gateway/internal/logger"
	"github.com/thushan/gateway/internal/metrics"
	"github.com/thushan/gateway/internal/ratelimit"
	"github.com/thushan/gateway/internal/retry"
	"github.com/thushan/gateway/pkg/eventbus"
)

const ProxyShutdownTimeout = 10 * time.Second

// Supervisor owns the proxy listener, the admin listener and the
// background health checker for the lifetime of the process.
type Supervisor struct {
	cfg     *config.Atomic
	log     *logger.StyledLogger
	metrics *metrics.Registry

	pool    *balancer.Pool
	checker *health.Checker

	lb         *gateway.LB
	proxySrv   *http.Server
	adminSrv   *admin.Server
	events     *eventbus.EventBus[gateway.Event]
}

// Load reads ProxyConfig from path, falling back to built-in defaults and
// logging the reason when the file is missing or malformed - the config
// surface is external plumbing, but this fallback behaviour is load-bearing.
func Load(path string, log *logger.StyledLogger) *config.Atomic {
	cfg, err := config.Load(path)
	if err != nil {
		log.Warn("failed to load config, falling back to defaults", "path", path, "error", err)
		cfg = config.Default()
	}
	log.Info("loaded configuration", "path", path, "config", fmt.Sprintf("%+v", *cfg))
	return config.NewAtomic(cfg)
}

// New constructs every policy component from the current config snapshot
// and wires them into a gateway.LB, but starts nothing yet.
func New(atomicCfg *config.Atomic, log *logger.StyledLogger) *Supervisor {
	cfg := atomicCfg.Load()

	peers := make([]*balancer.Peer, 0, len(cfg.Upstreams))
	for _, addr := range cfg.Upstreams {
		peers = append(peers, balancer.NewPeer(addr))
	}
	pool := balancer.NewPool(peers)

	limiter := ratelimit.NewLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.BurstSize, cfg.RateLimit.Enabled)

	cb := breaker.New(breaker.Config{
		Enabled:          cfg.CircuitBreaker.Enabled,
		FailureThreshold: int64(cfg.CircuitBreaker.FailureThreshold),
		RecoveryTimeout:  cfg.RecoveryTimeout(),
		HalfOpenMaxCalls: int64(cfg.CircuitBreaker.HalfOpenMaxCalls),
	})

	retryPolicy := retry.Policy{
		Enabled:     cfg.Retry.Enabled,
		MaxAttempts: cfg.Retry.MaxAttempts,
		BackoffBase: cfg.BackoffBase(),
		BackoffMax:  cfg.BackoffMax(),
	}

	reg := metrics.NewRegistry()
	events := eventbus.New[gateway.Event]()

	lb := gateway.New(gateway.Options{
		Config:  atomicCfg,
		Limiter: limiter,
		Breaker: cb,
		Pool:    pool,
		Retry:   retryPolicy,
		Metrics: reg,
		Log:     log,
		Events:  events,
	})

	checker := health.NewChecker(pool)

	return &Supervisor{
		cfg:     atomicCfg,
		log:     log,
		metrics: reg,
		pool:    pool,
		checker: checker,
		lb:      lb,
		events:  events,
	}
}

// Run starts the health checker and both listeners, then blocks until ctx
// is cancelled (typically by a signal handler in main), at which point it
// shuts both listeners down gracefully.
func (s *Supervisor) Run(ctx context.Context, proxyAddr, adminAddr string) error {
	s.checker.Start(ctx)
	defer s.checker.Stop()

	s.adminSrv = admin.New(adminAddr, s.metrics, s.log)
	s.proxySrv = &http.Server{
		Addr:    proxyAddr,
		Handler: s.lb,
	}

	errCh := make(chan error, 2)

	go func() {
		if err := s.adminSrv.ListenAndServe(); err != nil {
			errCh <- fmt.Errorf("admin listener: %w", err)
		}
	}()

	go func() {
		s.log.Info("proxy listener starting", "addr", proxyAddr)
		if err := s.proxySrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("proxy listener: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		s.log.Error("listener failed, shutting down", "error", err)
	}

	return s.shutdown()
}

func (s *Supervisor) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ProxyShutdownTimeout)
	defer cancel()

	var firstErr error

	if err := s.proxySrv.Shutdown(shutdownCtx); err != nil {
		firstErr = err
	}
	if err := s.adminSrv.Shutdown(shutdownCtx); err != nil && firstErr == nil {
		firstErr = err
	}

	s.lb.Cleanup()
	s.events.Shutdown()

	return firstErr
}
