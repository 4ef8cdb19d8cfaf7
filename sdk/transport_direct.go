package sdk

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DirectTransport performs each request on the calling goroutine. Execute
// returns only after the callback has run. It never retries and cannot be
// canceled beyond the context deadline.
type DirectTransport struct {
	transportBase
	client *http.Client
}

// NewDirectTransport creates a synchronous transport.
func NewDirectTransport(cfg *Config) *DirectTransport {
	t := &DirectTransport{client: newHTTPClient(cfg)}
	t.init(TransportDirect, cfg)
	return t
}

// Execute performs req and invokes exactly one callback before returning.
// A panic inside the HTTP client is reported through onFailure.
func (t *DirectTransport) Execute(ctx context.Context, req *Request, onSuccess SuccessFunc, onFailure FailureFunc) {
	term := newTerminal(onSuccess, onFailure)
	if err := t.checkClosed(); err != nil {
		term.failure(err)
		return
	}

	t.observer.OnRequestStart(req.Method, req.path())
	start := time.Now()
	ctx, span := t.startSpan(ctx, req)

	resp, err := t.call(ctx, req)
	t.finish(ctx, span, req, start, resp, err)
	if err != nil {
		term.failure(err)
		return
	}
	term.success(resp)
}

// call isolates the client call so a panic becomes an error.
func (t *DirectTransport) call(ctx context.Context, req *Request) (resp *Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			resp = nil
			err = (&NetworkError{Op: req.Method + " " + req.URL, Err: fmt.Errorf("panic: %v", r)}).ToError()
		}
	}()
	if err := t.wait(ctx); err != nil {
		return nil, err
	}
	return performHTTPRequest(ctx, t.client, req)
}

// Close releases idle connections. Later calls fail with ErrTransportClosed.
func (t *DirectTransport) Close() error {
	t.closed.Store(true)
	t.client.CloseIdleConnections()
	return nil
}

// performHTTPRequest performs a single HTTP exchange with net/http. Any
// status code is a response; only transport problems are errors.
func performHTTPRequest(ctx context.Context, client *http.Client, req *Request) (*Response, error) {
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, validationError(ErrInvalidConfig, "failed to create request: %v", err)
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	start := time.Now()
	httpResp, err := client.Do(httpReq)
	if err != nil {
		netErr := &NetworkError{Op: req.Method + " " + req.URL, Err: err}
		return nil, netErr.ToError()
	}

	respBody, err := io.ReadAll(httpResp.Body)
	httpResp.Body.Close()
	if err != nil {
		netErr := &NetworkError{Op: "reading response", Err: err}
		return nil, netErr.ToError()
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       respBody,
		Duration:   time.Since(start),
	}, nil
}
