package sdk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/birbparty/roost/internal/telemetry"
)

// Request is a fully built HTTP request.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// path returns the URL path for observer keys, without the query string.
func (r *Request) path() string {
	if u, err := url.Parse(r.URL); err == nil {
		return u.Path
	}
	if i := strings.IndexByte(r.URL, '?'); i >= 0 {
		return r.URL[:i]
	}
	return r.URL
}

// Response is what a transport obtained from the backend, whatever the status.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// Duration is the wall time of the attempt that produced the response.
	Duration time.Duration
}

// ContentType returns the Content-Type header.
func (r *Response) ContentType() string {
	if r == nil || r.Header == nil {
		return ""
	}
	return r.Header.Get("Content-Type")
}

// RequestID returns the X-Request-Id header.
func (r *Response) RequestID() string {
	if r == nil || r.Header == nil {
		return ""
	}
	return r.Header.Get(HeaderRequestID)
}

// SuccessFunc receives a response, for any HTTP status.
type SuccessFunc func(*Response)

// FailureFunc receives the reason no response could be obtained.
type FailureFunc func(error)

// Transport executes requests and reports the outcome through exactly one
// callback: onSuccess when any HTTP response arrived, onFailure when none
// did. Whether the status means success is decided by the response model.
//
// Three variants are provided:
//   - DirectTransport: blocks the calling goroutine
//   - PooledTransport: one goroutine per request with bounded retries
//   - ReactorTransport: shared fasthttp client, cancellable
type Transport interface {
	Execute(ctx context.Context, req *Request, onSuccess SuccessFunc, onFailure FailureFunc)
	Close() error
}

// terminal guarantees a single callback per request.
type terminal struct {
	once sync.Once
	ok   SuccessFunc
	fail FailureFunc
}

func newTerminal(ok SuccessFunc, fail FailureFunc) *terminal {
	if ok == nil {
		ok = func(*Response) {}
	}
	if fail == nil {
		fail = func(error) {}
	}
	return &terminal{ok: ok, fail: fail}
}

func (t *terminal) success(resp *Response) {
	t.once.Do(func() { t.ok(resp) })
}

func (t *terminal) failure(err error) {
	t.once.Do(func() { t.fail(err) })
}

// transportBase holds what every variant shares: limiter, observer, logger
// and tracing.
type transportBase struct {
	name     TransportMode
	observer Observer
	limiter  *rate.Limiter
	logger   *logrus.Logger
	timeout  time.Duration
	closed   atomic.Bool
}

func (b *transportBase) init(name TransportMode, cfg *Config) {
	b.name = name
	b.observer = cfg.Observer
	b.logger = cfg.Logger
	b.timeout = cfg.Timeout
	if b.observer == nil {
		b.observer = &NoopObserver{}
	}
	if b.logger == nil {
		b.logger = telemetry.L()
	}
	if cfg.RateLimit.RequestsPerSecond > 0 {
		burst := cfg.RateLimit.Burst
		if burst <= 0 {
			burst = 1
		}
		b.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), burst)
	}
}

// wait blocks on the client-side rate limiter.
func (b *transportBase) wait(ctx context.Context) error {
	if b.limiter == nil {
		return nil
	}
	if err := b.limiter.Wait(ctx); err != nil {
		return NewError(ErrorTypeRateLimit, "rate limiter wait failed", err)
	}
	return nil
}

func (b *transportBase) startSpan(ctx context.Context, req *Request) (context.Context, trace.Span) {
	return telemetry.StartSpan(ctx, "roost.request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", req.Method),
			attribute.String("http.url", req.URL),
			attribute.String("roost.transport", string(b.name)),
		),
	)
}

// finish records the outcome on the span, the observer and the log.
func (b *transportBase) finish(ctx context.Context, span trace.Span, req *Request, start time.Time, resp *Response, err error) {
	duration := time.Since(start)
	if resp != nil {
		span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
		if resp.StatusCode >= 300 {
			span.SetStatus(codes.Error, fmt.Sprintf("status %d", resp.StatusCode))
		}
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		telemetry.WithLogger(ctx, b.logger).WithFields(logrus.Fields{
			"transport": b.name,
			"method":    req.Method,
			"url":       req.URL,
			"duration":  duration.String(),
		}).WithError(err).Warn("Request failed without a response")
	}
	span.End()
	b.observer.OnRequestEnd(req.Method, req.path(), duration, err)
}

func (b *transportBase) checkClosed() error {
	if b.closed.Load() {
		return ErrTransportClosed
	}
	return nil
}

// requestGroup counts running requests and refuses new ones once closed.
// Unlike a WaitGroup it may be entered while another goroutine waits.
type requestGroup struct {
	mu     sync.Mutex
	idle   *sync.Cond
	n      int
	closed bool
}

// enter admits one request unless the group is closed.
func (g *requestGroup) enter() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return false
	}
	g.n++
	return true
}

// add counts work spawned by a request that was already admitted.
func (g *requestGroup) add() {
	g.mu.Lock()
	g.n++
	g.mu.Unlock()
}

func (g *requestGroup) leave() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n--
	if g.n == 0 && g.idle != nil {
		g.idle.Broadcast()
	}
}

// wait blocks until no request is running.
func (g *requestGroup) wait() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for g.n > 0 {
		if g.idle == nil {
			g.idle = sync.NewCond(&g.mu)
		}
		g.idle.Wait()
	}
}

// close refuses new requests and waits for running ones.
func (g *requestGroup) close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
	g.wait()
}

// newHTTPClient builds the net/http client shared by the direct and pooled
// variants.
func newHTTPClient(cfg *Config) *http.Client {
	if cfg.HTTPClient != nil {
		return cfg.HTTPClient
	}
	return &http.Client{
		Transport: otelhttp.NewTransport(&http.Transport{
			MaxIdleConns:        cfg.TransportConfig.MaxIdleConns,
			MaxConnsPerHost:     cfg.TransportConfig.MaxConnsPerHost,
			IdleConnTimeout:     cfg.TransportConfig.IdleConnTimeout,
			TLSHandshakeTimeout: 10 * time.Second,
		}),
		Timeout: cfg.Timeout,
	}
}

// NewTransport builds the variant selected by cfg.TransportMode.
func NewTransport(cfg *Config) (Transport, error) {
	switch cfg.TransportMode {
	case "", TransportDirect:
		return NewDirectTransport(cfg), nil
	case TransportPooled:
		return NewPooledTransport(cfg), nil
	case TransportReactor:
		return NewReactorTransport(cfg), nil
	default:
		return nil, validationError(ErrInvalidConfig, "unknown transport mode %q", cfg.TransportMode)
	}
}
