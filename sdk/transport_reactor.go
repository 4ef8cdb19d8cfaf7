package sdk

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
)

// ReactorTransport multiplexes every request over one shared fasthttp
// client. It is the only variant that can cancel: canceling the context, or
// calling the CancelFunc returned by Submit, delivers onFailure with
// ErrRequestCanceled and the late response is dropped.
type ReactorTransport struct {
	transportBase
	client   *fasthttp.Client
	inflight requestGroup
}

// NewReactorTransport creates the shared-client transport.
func NewReactorTransport(cfg *Config) *ReactorTransport {
	t := &ReactorTransport{
		client: &fasthttp.Client{
			Name:                cfg.Agent,
			ReadTimeout:         cfg.Timeout,
			WriteTimeout:        cfg.Timeout,
			MaxConnsPerHost:     cfg.TransportConfig.MaxConnsPerHost,
			MaxIdleConnDuration: cfg.TransportConfig.IdleConnTimeout,
		},
	}
	t.init(TransportReactor, cfg)
	return t
}

// Execute schedules req. Use Submit to keep a cancel handle.
func (t *ReactorTransport) Execute(ctx context.Context, req *Request, onSuccess SuccessFunc, onFailure FailureFunc) {
	t.Submit(ctx, req, onSuccess, onFailure)
}

// Submit schedules req and returns a function that cancels it.
//
// Example:
//
//	cancel := reactor.Submit(ctx, req,
//	    func(resp *sdk.Response) { log.Println(resp.StatusCode) },
//	    func(err error) { log.Println(sdk.IsCanceled(err)) })
//	defer cancel()
func (t *ReactorTransport) Submit(ctx context.Context, req *Request, onSuccess SuccessFunc, onFailure FailureFunc) context.CancelFunc {
	ctx, cancel := context.WithCancel(ctx)
	term := newTerminal(onSuccess, onFailure)
	if !t.inflight.enter() {
		cancel()
		term.failure(ErrTransportClosed)
		return cancel
	}

	go func() {
		defer t.inflight.leave()
		defer cancel()
		t.run(ctx, req, term)
	}()
	return cancel
}

// reactorFallbackTimeout bounds exchanges when neither the config nor the
// context sets a deadline. fasthttp cannot abort a running exchange.
const reactorFallbackTimeout = 30 * time.Second

type reactorResult struct {
	resp *Response
	err  error
}

func (t *ReactorTransport) run(ctx context.Context, req *Request, term *terminal) {
	t.observer.OnRequestStart(req.Method, req.path())
	start := time.Now()
	ctx, span := t.startSpan(ctx, req)

	// The exchange outlives a canceled request until fasthttp returns, so it
	// is counted separately.
	done := make(chan reactorResult, 1)
	t.inflight.add()
	go func() {
		defer t.inflight.leave()
		resp, err := t.do(ctx, req)
		done <- reactorResult{resp: resp, err: err}
	}()

	select {
	case <-ctx.Done():
		err := canceledError(ctx.Err())
		t.finish(ctx, span, req, start, nil, err)
		term.failure(err)
	case r := <-done:
		t.finish(ctx, span, req, start, r.resp, r.err)
		if r.err != nil {
			term.failure(r.err)
			return
		}
		term.success(r.resp)
	}
}

func canceledError(cause error) error {
	if errors.Is(cause, context.DeadlineExceeded) {
		return NewError(ErrorTypeTimeout, "request deadline exceeded", cause)
	}
	return NewError(ErrorTypeCanceled, "request canceled", cause)
}

// do performs one exchange with the shared client.
func (t *ReactorTransport) do(ctx context.Context, req *Request) (*Response, error) {
	if err := t.wait(ctx); err != nil {
		return nil, err
	}

	freq := fasthttp.AcquireRequest()
	fresp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(freq)
	defer fasthttp.ReleaseResponse(fresp)

	freq.SetRequestURI(req.URL)
	freq.Header.SetMethod(req.Method)
	for key, values := range req.Header {
		for _, v := range values {
			freq.Header.Add(key, v)
		}
	}
	if len(req.Body) > 0 {
		freq.SetBody(req.Body)
	}

	timeout := t.timeout
	if timeout <= 0 {
		timeout = reactorFallbackTimeout
	}
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); timeout <= 0 || remaining < timeout {
			timeout = remaining
		}
	}

	start := time.Now()
	if err := t.client.DoTimeout(freq, fresp, timeout); err != nil {
		netErr := &NetworkError{Op: req.Method + " " + req.URL, Err: err}
		if errors.Is(err, fasthttp.ErrTimeout) {
			return nil, NewError(ErrorTypeTimeout, netErr.Error(), netErr)
		}
		return nil, netErr.ToError()
	}

	header := make(http.Header)
	fresp.Header.VisitAll(func(key, value []byte) {
		header.Add(string(key), string(value))
	})
	if header.Get("Content-Type") == "" {
		if ct := fresp.Header.ContentType(); len(ct) > 0 {
			header.Set("Content-Type", string(ct))
		}
	}

	return &Response{
		StatusCode: fresp.StatusCode(),
		Header:     header,
		// The body buffer is recycled on release.
		Body:     append([]byte(nil), fresp.Body()...),
		Duration: time.Since(start),
	}, nil
}

// Wait blocks until every submitted request has delivered its callback.
func (t *ReactorTransport) Wait() {
	t.inflight.wait()
}

// Close rejects new requests, waits for in-flight ones and closes idle
// connections.
func (t *ReactorTransport) Close() error {
	t.inflight.close()
	t.client.CloseIdleConnections()
	return nil
}
