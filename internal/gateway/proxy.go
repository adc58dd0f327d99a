package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/thushan/gateway/internal/balancer"
	"github.com/thushan/gateway/internal/breaker"
	"github.com/thushan/gateway/internal/config"
	"github.com/thushan/gateway/internal/logger"
	"github.com/thushan/gateway/internal/metrics"
	"github.com/thushan/gateway/internal/ratelimit"
	"github.com/thushan/gateway/internal/retry"
	"github.com/thushan/gateway/internal/util"
	"github.com/thushan/gateway/pkg/eventbus"
	"github.com/thushan/gateway/pkg/pool"
)

const (
	DefaultMaxIdleConns        = 100
	DefaultMaxIdleConnsPerHost = 10
	DefaultIdleConnTimeout     = 90 * time.Second
	DefaultTLSHandshakeTimeout = 10 * time.Second
	DefaultStreamBufferSize    = 32 * 1024
)

// Event is published on pkg/eventbus for every completed request, giving
// anything subscribed (debug tooling, future plugins) visibility into the
// proxy lifecycle without coupling it into the hot path.
type Event struct {
	Type      EventType
	RequestID string
	Upstream  string
	Duration  time.Duration
	Error     string
}

type EventType string

const (
	EventSuccess EventType = "request_end"
	EventFailure EventType = "request_error"
)

// LB is the proxy's per-request state machine: admission control, breaker
// check, retry-driven peer selection, forwarding and observability, wired
// together the way a Pingora ProxyHttp implementation wires its phases,
// translated into a plain http.Handler.
type LB struct {
	cfg *config.Atomic

	limiter  *ratelimit.Limiter
	breaker  *breaker.CircuitBreaker
	pool     *balancer.Pool
	retry    retry.Policy
	metrics  *metrics.Registry
	log      *logger.StyledLogger
	events   *eventbus.EventBus[Event]

	transport  *http.Transport
	bufferPool *pool.Pool[*[]byte]
}

type Options struct {
	Config   *config.Atomic
	Limiter  *ratelimit.Limiter
	Breaker  *breaker.CircuitBreaker
	Pool     *balancer.Pool
	Retry    retry.Policy
	Metrics  *metrics.Registry
	Log      *logger.StyledLogger
	Events   *eventbus.EventBus[Event]
}

func New(opts Options) *LB {
	transport := &http.Transport{
		MaxIdleConns:        DefaultMaxIdleConns,
		MaxIdleConnsPerHost: DefaultMaxIdleConnsPerHost,
		IdleConnTimeout:     DefaultIdleConnTimeout,
		TLSHandshakeTimeout: DefaultTLSHandshakeTimeout,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			cfg := opts.Config.Load()
			dialer := &net.Dialer{Timeout: cfg.ConnectTimeout()}
			return dialer.DialContext(ctx, network, addr)
		},
	}

	bufferPool := pool.NewLitePool(func() *[]byte {
		buf := make([]byte, DefaultStreamBufferSize)
		return &buf
	})

	return &LB{
		cfg:        opts.Config,
		limiter:    opts.Limiter,
		breaker:    opts.Breaker,
		pool:       opts.Pool,
		retry:      opts.Retry,
		metrics:    opts.Metrics,
		log:        opts.Log,
		events:     opts.Events,
		transport:  transport,
		bufferPool: bufferPool,
	}
}

func (lb *LB) Cleanup() {
	lb.transport.CloseIdleConnections()
}

// ServeHTTP drives the six phases in order for one request: new_ctx,
// request_filter, upstream_peer, upstream_request_filter, response_filter,
// logging. Each phase's contract is documented on its own method.
func (lb *LB) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rc := lb.newCtx()

	if lb.requestFilter(w, r, rc) {
		lb.logging(r, rc, nil)
		return
	}

	peer, err := lb.upstreamPeer(r.Context(), rc)
	if err != nil {
		w.WriteHeader(http.StatusBadGateway)
		lb.logging(r, rc, err)
		return
	}

	lb.upstreamRequestFilter(r, rc, peer)

	status, respErr := lb.forward(w, r, peer, rc)
	if respErr != nil {
		lb.logging(r, rc, respErr)
		return
	}

	lb.responseFilter(rc, status)
	lb.logging(r, rc, nil)
}

// newCtx allocates a RequestContext and increments requests_total.
func (lb *LB) newCtx() *RequestContext {
	lb.metrics.RequestsTotal.Inc()
	requestID := generateRequestID()
	return newRequestContext(requestID)
}

// requestFilter applies admission control. Returns true if the request
// was fully handled here (rate-limited or breaker-rejected) and the
// pipeline should stop.
func (lb *LB) requestFilter(w http.ResponseWriter, r *http.Request, rc *RequestContext) bool {
	lb.log.Debug("request received",
		"event", "request_start",
		"request_id", rc.RequestID,
		"method", r.Method,
		"uri", r.URL.Path,
		"client_ip", util.GetClientIP(r, false, nil),
		"query_keys", queryKeys(r.URL))

	if !lb.limiter.Check() {
		lb.metrics.RateLimitedTotal.Inc()
		lb.log.Warn("request rejected by rate limiter", "event", "rate_limited", "request_id", rc.RequestID)
		w.WriteHeader(http.StatusTooManyRequests)
		return true
	}

	if !lb.breaker.CanExecute() {
		lb.metrics.CircuitBreakerOpenTotal.Inc()
		lb.log.Warn("request rejected by circuit breaker", "event", "breaker_open", "request_id", rc.RequestID)
		w.WriteHeader(http.StatusServiceUnavailable)
		return true
	}

	return false
}

var errNoUpstream = errors.New("no upstream available (connection error)")

// upstreamPeer drives the retry engine over LB selection, recording
// breaker success/failure on the outcome.
func (lb *LB) upstreamPeer(ctx context.Context, rc *RequestContext) (*balancer.Peer, error) {
	peer, err := retry.Do(ctx, lb.retry, func(ctx context.Context) (*balancer.Peer, error) {
		p, selErr := lb.pool.Next()
		if selErr != nil {
			lb.metrics.UpstreamErrorsTotal.Inc()
			return nil, errNoUpstream
		}
		lb.metrics.UpstreamSelectedTotal.Inc()
		return p, nil
	})

	if err != nil {
		lb.breaker.RecordFailure()
		lb.metrics.RetriesTotal.Inc()
		lb.log.Warn("failed to select upstream after retries", "event", "upstream_selection_failed", "request_id", rc.RequestID, "error", err)
		return nil, err
	}

	lb.breaker.RecordSuccess()
	rc.ChosenUpstream = peer.Addr
	lb.log.InfoWithPeer("upstream peer selected", peer.Addr, "event", "upstream_selected", "request_id", rc.RequestID)
	return peer, nil
}

// upstreamRequestFilter injects the Host and X-Request-Id headers. Per
// design, Host is always the first configured upstream rather than the
// selected peer - a deliberate simplification carried over unchanged.
func (lb *LB) upstreamRequestFilter(r *http.Request, rc *RequestContext, peer *balancer.Peer) {
	cfg := lb.cfg.Load()
	host := "127.0.0.1:8080"
	if len(cfg.Upstreams) > 0 {
		host = cfg.Upstreams[0]
	}
	r.Header.Set("Host", host)
	r.Header.Set("X-Request-Id", rc.RequestID)
}

// responseFilter observes request_duration_seconds.
func (lb *LB) responseFilter(rc *RequestContext, status int) {
	duration := time.Since(rc.StartInstant)
	lb.metrics.RequestDuration.Observe(duration.Seconds())
	lb.log.Debug("response", "event", "response", "request_id", rc.RequestID, "status", status)
}

// logging emits the terminal access-log line and publishes a lifecycle
// event, regardless of outcome.
func (lb *LB) logging(r *http.Request, rc *RequestContext, err error) {
	duration := time.Since(rc.StartInstant)

	if err != nil {
		lb.log.Warn("request failed",
			"event", "request_error",
			"request_id", rc.RequestID,
			"method", r.Method,
			"uri", r.URL.Path,
			"upstream", rc.ChosenUpstream,
			"duration_ms", duration.Milliseconds(),
			"error", err.Error())

		if lb.events != nil {
			lb.events.PublishAsync(Event{Type: EventFailure, RequestID: rc.RequestID, Upstream: rc.ChosenUpstream, Duration: duration, Error: err.Error()})
		}
		return
	}

	lb.log.Info("request completed",
		"event", "request_end",
		"request_id", rc.RequestID,
		"method", r.Method,
		"uri", r.URL.Path,
		"upstream", rc.ChosenUpstream,
		"duration_ms", duration.Milliseconds())

	if lb.events != nil {
		lb.events.PublishAsync(Event{Type: EventSuccess, RequestID: rc.RequestID, Upstream: rc.ChosenUpstream, Duration: duration})
	}
}

// forward performs the actual round-trip and response streaming. It is
// not one of the six named phases but sits between upstream_request_filter
// and response_filter, mirroring where the original Pingora session
// actually ships bytes.
func (lb *LB) forward(w http.ResponseWriter, r *http.Request, peer *balancer.Peer, rc *RequestContext) (int, error) {
	cfg := lb.cfg.Load()

	targetURL := &url.URL{Scheme: "http", Host: peer.Addr, Path: r.URL.Path, RawQuery: r.URL.RawQuery}

	ctx, cancel := context.WithTimeout(r.Context(), cfg.RequestTimeout())
	defer cancel()

	proxyReq, err := http.NewRequestWithContext(ctx, r.Method, targetURL.String(), r.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to create proxy request: %w", err)
	}
	copyHeaders(proxyReq, r)
	if h := proxyReq.Header.Get("Host"); h != "" {
		proxyReq.Host = h
	}

	resp, err := lb.transport.RoundTrip(proxyReq)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	for key, values := range resp.Header {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	w.WriteHeader(resp.StatusCode)

	buf := lb.bufferPool.Get()
	defer lb.bufferPool.Put(buf)

	if _, err := io.CopyBuffer(w, resp.Body, *buf); err != nil && !errors.Is(err, context.Canceled) {
		return resp.StatusCode, err
	}

	return resp.StatusCode, nil
}

func copyHeaders(dst *http.Request, src *http.Request) {
	for key, values := range src.Header {
		for _, value := range values {
			dst.Header.Add(key, value)
		}
	}
}

func queryKeys(u *url.URL) []string {
	values := u.Query()
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	return keys
}

// generateRequestID is a package-level var so tests can substitute a
// deterministic generator without touching the production path.
var generateRequestID = util.GenerateRequestID
