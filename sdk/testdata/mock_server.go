package testdata

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// Test credentials used by the mock backend.
const (
	AppID        = "test-app"
	APIKey       = "test-key"
	SessionToken = "sess-0123456789"
	UserID       = "user-42"
)

// MockServer is a Roost backend double. Handlers are registered as
// "METHOD /path"; a pattern ending in "/" matches every path below it,
// the longest such prefix winning.
type MockServer struct {
	*httptest.Server
	mu           sync.RWMutex
	handlers     map[string]HandlerFunc
	requestCount atomic.Int32
	requests     []RecordedRequest
}

// HandlerFunc returns the status and the JSON document to send. A nil
// document sends an empty body.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) (int, interface{})

// RecordedRequest stores information about a received request
type RecordedRequest struct {
	Method   string
	Path     string
	RawQuery string
	Headers  http.Header
	Body     []byte
	Time     time.Time
}

// NewMockServer starts a server answering the login and account routes of
// AppID.
func NewMockServer() *MockServer {
	ms := &MockServer{
		handlers: make(map[string]HandlerFunc),
		requests: make([]RecordedRequest, 0),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", ms.handleRequest)

	ms.Server = httptest.NewServer(mux)
	ms.setupDefaultHandlers()

	return ms
}

// AppPath returns the path of scope below the application root.
func AppPath(scope string) string {
	return "/v1/app/" + AppID + "/" + strings.TrimLeft(scope, "/")
}

// Envelope renders a Roost response document.
func Envelope(success, errors map[string]interface{}) map[string]interface{} {
	doc := map[string]interface{}{}
	if success != nil {
		doc["success"] = success
	}
	if errors != nil {
		doc["errors"] = errors
	}
	return doc
}

func (ms *MockServer) setupDefaultHandlers() {
	ms.RegisterHandler("POST "+AppPath("account/login"), func(w http.ResponseWriter, r *http.Request) (int, interface{}) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "hunter2" {
			return http.StatusUnauthorized, Envelope(nil, map[string]interface{}{
				"login": "invalid credentials",
			})
		}
		return http.StatusOK, Envelope(map[string]interface{}{
			"session_token": SessionToken,
			"user_id":       UserID,
		}, nil)
	})

	ms.RegisterHandler("POST "+AppPath("account/logout"), func(w http.ResponseWriter, r *http.Request) (int, interface{}) {
		return http.StatusOK, Envelope(map[string]interface{}{"logout": "ok"}, nil)
	})

	ms.RegisterHandler("POST "+AppPath("account"), func(w http.ResponseWriter, r *http.Request) (int, interface{}) {
		return http.StatusCreated, map[string]interface{}{
			"__id__":   UserID,
			"__type__": "user",
			"success":  map[string]interface{}{UserID: "created"},
		}
	})
}

// RegisterHandler registers a custom handler for a specific method and path pattern
func (ms *MockServer) RegisterHandler(pattern string, handler HandlerFunc) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.handlers[pattern] = handler
}

func (ms *MockServer) handleRequest(w http.ResponseWriter, r *http.Request) {
	body := make([]byte, 0)
	if r.Body != nil {
		body, _ = io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))
	}

	ms.mu.Lock()
	ms.requests = append(ms.requests, RecordedRequest{
		Method:   r.Method,
		Path:     r.URL.EscapedPath(),
		RawQuery: r.URL.RawQuery,
		Headers:  r.Header.Clone(),
		Body:     body,
		Time:     time.Now(),
	})
	ms.mu.Unlock()

	ms.requestCount.Add(1)

	pattern := r.Method + " " + r.URL.EscapedPath()
	ms.mu.RLock()
	handler, exact := ms.handlers[pattern]
	if !exact {
		best := ""
		for p, h := range ms.handlers {
			if strings.HasSuffix(p, "/") && strings.HasPrefix(pattern, p) && len(p) > len(best) {
				best, handler = p, h
			}
		}
	}
	ms.mu.RUnlock()

	if handler == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(Envelope(nil, map[string]interface{}{
			"route": "not found: " + pattern,
		}))
		return
	}

	status, response := handler(w, r)

	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(status)

	switch v := response.(type) {
	case nil:
	case []byte:
		_, _ = w.Write(v)
	default:
		_ = json.NewEncoder(w).Encode(v)
	}
}

// GetRequestCount returns the total number of requests received
func (ms *MockServer) GetRequestCount() int {
	return int(ms.requestCount.Load())
}

// GetRequests returns all recorded requests
func (ms *MockServer) GetRequests() []RecordedRequest {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	result := make([]RecordedRequest, len(ms.requests))
	copy(result, ms.requests)
	return result
}

// LastRequest returns the most recent request.
func (ms *MockServer) LastRequest() (RecordedRequest, bool) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	if len(ms.requests) == 0 {
		return RecordedRequest{}, false
	}
	return ms.requests[len(ms.requests)-1], true
}

// Reset clears all recorded requests
func (ms *MockServer) Reset() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.requestCount.Store(0)
	ms.requests = ms.requests[:0]
}

// WithErrorResponse answers pattern with statusCode and a one-entry
// errors map.
func (ms *MockServer) WithErrorResponse(pattern string, statusCode int, errorMsg string) {
	ms.RegisterHandler(pattern, func(w http.ResponseWriter, r *http.Request) (int, interface{}) {
		return statusCode, Envelope(nil, map[string]interface{}{
			"error": errorMsg,
		})
	})
}

// WithDelayedResponse sets up a handler that delays before responding
func (ms *MockServer) WithDelayedResponse(pattern string, delay time.Duration, handler HandlerFunc) {
	ms.RegisterHandler(pattern, func(w http.ResponseWriter, r *http.Request) (int, interface{}) {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
		}
		return handler(w, r)
	})
}

// WithRetryResponse fails failCount times with failStatus before answering
// with an empty success map.
func (ms *MockServer) WithRetryResponse(pattern string, failCount int, failStatus int) {
	attempts := atomic.Int32{}
	ms.RegisterHandler(pattern, func(w http.ResponseWriter, r *http.Request) (int, interface{}) {
		current := int(attempts.Add(1))
		if current <= failCount {
			return failStatus, Envelope(nil, map[string]interface{}{
				"error": "temporary failure",
			})
		}
		return http.StatusOK, Envelope(map[string]interface{}{}, nil)
	})
}

// Close shuts down the mock server
func (ms *MockServer) Close() {
	if ms.Server != nil {
		ms.Server.Close()
	}
}

// TestSuite bundles a mock server with a bounded context.
type TestSuite struct {
	T          *testing.T
	Server     *MockServer
	BaseURL    string
	Context    context.Context
	CancelFunc context.CancelFunc
}

// NewTestSuite starts a mock server that is closed with the test.
func NewTestSuite(t *testing.T) *TestSuite {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	server := NewMockServer()

	ts := &TestSuite{
		T:          t,
		Server:     server,
		BaseURL:    server.URL,
		Context:    ctx,
		CancelFunc: cancel,
	}
	t.Cleanup(ts.Cleanup)
	return ts
}

// Cleanup cleans up test resources
func (ts *TestSuite) Cleanup() {
	if ts.CancelFunc != nil {
		ts.CancelFunc()
	}
	if ts.Server != nil {
		ts.Server.Close()
	}
}
