// Package admin serves the gateway's observability surface: health and
// metrics endpoints bound to their own listener so they stay reachable
// even when the proxy listener is saturated.
package admin

import (
	"context"
	"net/http"
	"time"

	"github.com/thushan/gateway/internal/logger"
	"github.com/thushan/gateway/internal/metrics"
	"github.com/thushan/gateway/internal/router"
	"github.com/thushan/gateway/internal/version"
)

const (
	ReadHeaderTimeout = 5 * time.Second
	ShutdownTimeout   = 5 * time.Second
)

// Server owns the admin HTTP listener: /healthz, /metrics and /version.
// It has no dependency on the upstream pool or breakers - that isolation
// is the entire point of running it on a separate port.
type Server struct {
	httpServer *http.Server
	log        *logger.StyledLogger
}

func New(addr string, reg *metrics.Registry, log *logger.StyledLogger) *Server {
	registry := router.NewRouteRegistry(log)

	registry.Register("/healthz", healthzHandler, "Liveness probe")
	registry.Register("/metrics", reg.Handler().ServeHTTP, "Prometheus metrics")
	registry.Register("/version", versionHandler, "Build and version info")

	mux := http.NewServeMux()
	registry.WireUp(mux)

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: ReadHeaderTimeout,
		},
		log: log,
	}
}

// ListenAndServe blocks until the listener fails or Shutdown is called,
// matching net/http.Server's own contract - http.ErrServerClosed on a
// clean shutdown is not an error worth surfacing to the caller.
func (s *Server) ListenAndServe() error {
	s.log.Info("admin listener starting", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

func healthzHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func versionHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"name":"` + version.Name + `","version":"` + version.Version + `"}`))
}
