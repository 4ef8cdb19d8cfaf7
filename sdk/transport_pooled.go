package sdk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// errRetryableStatus counts a 5xx status against the circuit breaker; the
// caller still receives the response.
var errRetryableStatus = errors.New("retryable status")

// RetryPredicate decides whether another attempt should follow attempt
// (1-based), given its response or error.
type RetryPredicate func(attempt int, resp *Response, err error) bool

// DefaultRetryPredicate retries retryable transport errors and gateway
// failures (502, 503, 504).
func DefaultRetryPredicate(attempt int, resp *Response, err error) bool {
	if err != nil {
		return IsRetryable(err)
	}
	if resp == nil {
		return false
	}
	switch resp.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// PooledTransport runs every request on its own goroutine and retries it up
// to MaxAttempts times. If the final attempt produced a response it goes to
// onSuccess; otherwise the last error goes to onFailure.
//
// Example:
//
//	cfg := sdk.DefaultConfig().
//	    WithTransportMode(sdk.TransportPooled).
//	    WithRetryPredicate(func(attempt int, resp *sdk.Response, err error) bool {
//	        return err != nil
//	    })
type PooledTransport struct {
	transportBase
	client      *http.Client
	maxAttempts int
	predicate   RetryPredicate
	strategy    RetryStrategy
	breaker     CircuitBreaker
	inflight    requestGroup
}

// NewPooledTransport creates a goroutine-per-request transport.
func NewPooledTransport(cfg *Config) *PooledTransport {
	t := &PooledTransport{
		client:      newHTTPClient(cfg),
		maxAttempts: cfg.RetryConfig.MaxAttempts,
		predicate:   cfg.RetryPredicate,
		strategy:    cfg.RetryStrategy,
	}
	t.init(TransportPooled, cfg)

	if t.maxAttempts <= 0 {
		t.maxAttempts = DefaultMaxAttempts
	}
	if t.predicate == nil {
		t.predicate = DefaultRetryPredicate
	}
	if t.strategy == nil {
		t.strategy = &ExponentialBackoffStrategy{
			InitialInterval: cfg.RetryConfig.InitialInterval,
			MaxInterval:     cfg.RetryConfig.MaxInterval,
			Multiplier:      cfg.RetryConfig.Multiplier,
			Jitter:          0.3,
			Budget:          RetryBudget{MaxAttempts: t.maxAttempts},
		}
	}
	if cfg.CircuitBreakerConfig != nil {
		t.breaker = newObservedCircuitBreaker(NewCircuitBreaker(*cfg.CircuitBreakerConfig), cfg.Host, t.observer)
	} else {
		t.breaker = NewNoopCircuitBreaker()
	}
	return t
}

// Execute schedules req and returns immediately. The callback runs on the
// request goroutine.
func (t *PooledTransport) Execute(ctx context.Context, req *Request, onSuccess SuccessFunc, onFailure FailureFunc) {
	term := newTerminal(onSuccess, onFailure)
	if !t.inflight.enter() {
		term.failure(ErrTransportClosed)
		return
	}
	go func() {
		defer t.inflight.leave()
		t.run(ctx, req, term)
	}()
}

func (t *PooledTransport) run(ctx context.Context, req *Request, term *terminal) {
	t.observer.OnRequestStart(req.Method, req.path())
	start := time.Now()
	ctx, span := t.startSpan(ctx, req)

	var (
		resp     *Response
		err      error
		attempts int
	)
retry:
	for attempts = 1; ; attempts++ {
		resp, err = t.attempt(ctx, req)
		if attempts >= t.maxAttempts || !t.predicate(attempts, resp, err) {
			break
		}
		delay := t.strategy.NextInterval(attempts)
		if delay <= 0 {
			break
		}
		cause := err
		if cause == nil {
			cause = fmt.Errorf("status %d", resp.StatusCode)
		}
		t.observer.OnRetryAttempt(req.Method, req.path(), attempts, delay, cause)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			if resp == nil {
				err = WrapError(ctx.Err(), ErrorTypeTimeout, "context canceled during retry wait")
			}
			break retry
		case <-timer.C:
		}
	}

	if err != nil && resp == nil && attempts > 1 {
		err = NewError(ErrorTypeRetryExhausted, fmt.Sprintf("gave up after %d attempts", attempts), err).
			WithContext(&ErrorContext{URL: req.URL, Method: req.Method, Duration: time.Since(start), Attempts: attempts})
	}
	t.finish(ctx, span, req, start, resp, err)
	if resp != nil {
		term.success(resp)
		return
	}
	term.failure(err)
}

// attempt performs one exchange through the limiter and the breaker.
func (t *PooledTransport) attempt(ctx context.Context, req *Request) (*Response, error) {
	if err := t.wait(ctx); err != nil {
		return nil, err
	}
	var resp *Response
	err := t.breaker.Execute(func() error {
		r, err := performHTTPRequest(ctx, t.client, req)
		if err != nil {
			return err
		}
		resp = r
		if r.StatusCode >= http.StatusInternalServerError {
			return errRetryableStatus
		}
		return nil
	})
	if resp != nil {
		return resp, nil
	}
	return nil, err
}

// Breaker exposes the circuit breaker guarding this transport.
func (t *PooledTransport) Breaker() CircuitBreaker {
	return t.breaker
}

// Wait blocks until every scheduled request has delivered its callback.
func (t *PooledTransport) Wait() {
	t.inflight.wait()
}

// Close rejects new requests, waits for in-flight ones and releases idle
// connections.
func (t *PooledTransport) Close() error {
	t.inflight.close()
	t.client.CloseIdleConnections()
	return nil
}
