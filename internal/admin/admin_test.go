package admin

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/thushan/gateway/internal/logger"
	"github.com/thushan/gateway/internal/metrics"
)

func TestHealthzReturnsOK(t *testing.T) {
	_, sl, cleanup, err := logger.NewWithTheme(&logger.Config{Level: logger.LogLevelError, Theme: "default"})
	assert.NoError(t, err)
	defer cleanup()

	srv := New("127.0.0.1:0", metrics.NewRegistry(), sl)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Equal(t, "OK", string(body))
}

func TestMetricsReturnsPrometheusText(t *testing.T) {
	_, sl, cleanup, err := logger.NewWithTheme(&logger.Config{Level: logger.LogLevelError, Theme: "default"})
	assert.NoError(t, err)
	defer cleanup()

	reg := metrics.NewRegistry()
	reg.RequestsTotal.Inc()

	srv := New("127.0.0.1:0", reg, sl)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), "api_proxy_requests_total 1")
}

func TestVersionReturnsJSON(t *testing.T) {
	_, sl, cleanup, err := logger.NewWithTheme(&logger.Config{Level: logger.LogLevelError, Theme: "default"})
	assert.NoError(t, err)
	defer cleanup()

	srv := New("127.0.0.1:0", metrics.NewRegistry(), sl)

	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
}
