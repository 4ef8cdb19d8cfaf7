package sdk

import (
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/birbparty/roost/internal/telemetry"
)

// Observer provides hooks for monitoring SDK operations.
// Methods are called synchronously on transport goroutines and must not
// block.
//
// Example implementation:
//
//	type LogObserver struct{}
//
//	func (LogObserver) OnRequestEnd(method, path string, d time.Duration, err error) {
//	    log.Printf("%s %s took %v (err=%v)", method, path, d, err)
//	}
//	// ... remaining methods
//
//	config := sdk.DefaultConfig().
//	    WithObserver(sdk.NewCompositeObserver(LogObserver{}, sdk.NewMetricsCollector()))
type Observer interface {
	// OnRequestStart is called before the first attempt of a request.
	OnRequestStart(method, path string)

	// OnRequestEnd is called once per request. err is nil whenever a
	// response was obtained, whatever its status.
	OnRequestEnd(method, path string, duration time.Duration, err error)

	// OnRetryAttempt is called before the pooled transport sleeps for a
	// retry. attempt is the attempt that just failed.
	OnRetryAttempt(method, path string, attempt int, delay time.Duration, err error)

	// OnCircuitBreakerStateChange is called when the breaker guarding
	// endpoint changes state.
	OnCircuitBreakerStateChange(endpoint string, oldState, newState CircuitState)

	// OnSessionCacheHit is called when a user-scoped service is reused.
	OnSessionCacheHit()

	// OnSessionCacheMiss is called when a user-scoped service is built.
	OnSessionCacheMiss()
}

// NoopObserver is the default observer. It does nothing.
type NoopObserver struct{}

func (n *NoopObserver) OnRequestStart(method, path string)                                  {}
func (n *NoopObserver) OnRequestEnd(method, path string, duration time.Duration, err error) {}
func (n *NoopObserver) OnRetryAttempt(method, path string, attempt int, delay time.Duration, err error) {
}
func (n *NoopObserver) OnCircuitBreakerStateChange(endpoint string, oldState, newState CircuitState) {
}
func (n *NoopObserver) OnSessionCacheHit()  {}
func (n *NoopObserver) OnSessionCacheMiss() {}

// MetricsSnapshot is a copy of the counters held by a MetricsCollector.
// Request maps are keyed by "METHOD /path".
type MetricsSnapshot struct {
	Requests            map[string]int64
	Errors              map[string]int64
	Retries             map[string]int64
	Latencies           map[string][]time.Duration
	CircuitStateChanges map[string]int64
	SessionCacheHits    int64
	SessionCacheMisses  int64
}

// SessionCacheHitRate returns hits / (hits + misses), 0 when idle.
func (s MetricsSnapshot) SessionCacheHitRate() float64 {
	total := s.SessionCacheHits + s.SessionCacheMisses
	if total == 0 {
		return 0
	}
	return float64(s.SessionCacheHits) / float64(total)
}

// Endpoints lists request keys in sorted order.
func (s MetricsSnapshot) Endpoints() []string {
	keys := make([]string, 0, len(s.Requests))
	for k := range s.Requests {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MetricsCollector keeps observer events in memory. It is meant for tests
// and debugging; use PrometheusObserver in production.
//
// Example:
//
//	metrics := sdk.NewMetricsCollector()
//	config := sdk.DefaultConfig().WithObserver(metrics)
//	// ...
//	snap := metrics.Snapshot()
//	fmt.Println(snap.Requests["GET /v1/app/my-app/text/k1"])
type MetricsCollector struct {
	mu                  sync.RWMutex
	requestCount        map[string]int64
	latencies           map[string][]time.Duration
	errorCount          map[string]int64
	retryCount          map[string]int64
	circuitStateChanges map[string]int64
	sessionHits         int64
	sessionMisses       int64
}

// NewMetricsCollector creates an empty collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		requestCount:        make(map[string]int64),
		latencies:           make(map[string][]time.Duration),
		errorCount:          make(map[string]int64),
		retryCount:          make(map[string]int64),
		circuitStateChanges: make(map[string]int64),
	}
}

func (m *MetricsCollector) OnRequestStart(method, path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[method+" "+path]++
}

func (m *MetricsCollector) OnRequestEnd(method, path string, duration time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := method + " " + path
	m.latencies[key] = append(m.latencies[key], duration)
	if err != nil {
		m.errorCount[key]++
	}
}

func (m *MetricsCollector) OnRetryAttempt(method, path string, attempt int, delay time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retryCount[method+" "+path]++
}

func (m *MetricsCollector) OnCircuitBreakerStateChange(endpoint string, oldState, newState CircuitState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.circuitStateChanges[endpoint]++
}

func (m *MetricsCollector) OnSessionCacheHit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionHits++
}

func (m *MetricsCollector) OnSessionCacheMiss() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionMisses++
}

// Snapshot returns a copy of the current counters.
func (m *MetricsCollector) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := MetricsSnapshot{
		Requests:            copyCounts(m.requestCount),
		Errors:              copyCounts(m.errorCount),
		Retries:             copyCounts(m.retryCount),
		CircuitStateChanges: copyCounts(m.circuitStateChanges),
		Latencies:           make(map[string][]time.Duration, len(m.latencies)),
		SessionCacheHits:    m.sessionHits,
		SessionCacheMisses:  m.sessionMisses,
	}
	for k, v := range m.latencies {
		snap.Latencies[k] = append([]time.Duration(nil), v...)
	}
	return snap
}

func copyCounts(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// CompositeObserver fans events out to several observers. A panicking
// observer is logged and skipped so the others still run.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver combines observers, called in order.
func NewCompositeObserver(observers ...Observer) Observer {
	return &CompositeObserver{observers: observers}
}

func (c *CompositeObserver) each(event string, fn func(Observer)) {
	for _, obs := range c.observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					telemetry.L().WithFields(logrus.Fields{
						"event": event,
						"panic": r,
					}).Warn("Observer panicked")
				}
			}()
			fn(obs)
		}()
	}
}

func (c *CompositeObserver) OnRequestStart(method, path string) {
	c.each("request_start", func(o Observer) { o.OnRequestStart(method, path) })
}

func (c *CompositeObserver) OnRequestEnd(method, path string, duration time.Duration, err error) {
	c.each("request_end", func(o Observer) { o.OnRequestEnd(method, path, duration, err) })
}

func (c *CompositeObserver) OnRetryAttempt(method, path string, attempt int, delay time.Duration, err error) {
	c.each("retry", func(o Observer) { o.OnRetryAttempt(method, path, attempt, delay, err) })
}

func (c *CompositeObserver) OnCircuitBreakerStateChange(endpoint string, oldState, newState CircuitState) {
	c.each("circuit", func(o Observer) { o.OnCircuitBreakerStateChange(endpoint, oldState, newState) })
}

func (c *CompositeObserver) OnSessionCacheHit() {
	c.each("session_hit", func(o Observer) { o.OnSessionCacheHit() })
}

func (c *CompositeObserver) OnSessionCacheMiss() {
	c.each("session_miss", func(o Observer) { o.OnSessionCacheMiss() })
}
