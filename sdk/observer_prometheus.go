package sdk

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusObserver exports observer events as Prometheus metrics. Paths
// are reduced to their Roost scope (text, binary, account, search, push)
// so object keys never become label values.
//
// Example:
//
//	reg := prometheus.NewRegistry()
//	config := sdk.DefaultConfig().
//	    WithObserver(sdk.NewPrometheusObserver(reg, "myapp"))
type PrometheusObserver struct {
	requests       *prometheus.CounterVec
	failures       *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	retries        *prometheus.CounterVec
	circuitState   *prometheus.GaugeVec
	sessionLookups *prometheus.CounterVec
}

// NewPrometheusObserver registers the SDK metrics with reg under
// namespace. A nil reg uses prometheus.DefaultRegisterer.
func NewPrometheusObserver(reg prometheus.Registerer, namespace string) *PrometheusObserver {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	o := &PrometheusObserver{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "roost",
			Name:      "requests_total",
			Help:      "Requests started, by method and scope.",
		}, []string{"method", "scope"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "roost",
			Name:      "request_failures_total",
			Help:      "Requests that ended without a response.",
		}, []string{"method", "scope"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "roost",
			Name:      "request_duration_seconds",
			Help:      "Request duration including retries.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "scope"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "roost",
			Name:      "retries_total",
			Help:      "Retry attempts scheduled by the pooled transport.",
		}, []string{"method", "scope"}),
		circuitState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "roost",
			Name:      "circuit_state",
			Help:      "Circuit breaker state: 0 closed, 1 open, 2 half-open.",
		}, []string{"endpoint"}),
		sessionLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "roost",
			Name:      "session_cache_lookups_total",
			Help:      "User-scoped service lookups, by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(o.requests, o.failures, o.duration, o.retries, o.circuitState, o.sessionLookups)
	return o
}

func (o *PrometheusObserver) OnRequestStart(method, path string) {
	o.requests.WithLabelValues(method, scopeOf(path)).Inc()
}

func (o *PrometheusObserver) OnRequestEnd(method, path string, duration time.Duration, err error) {
	scope := scopeOf(path)
	o.duration.WithLabelValues(method, scope).Observe(duration.Seconds())
	if err != nil {
		o.failures.WithLabelValues(method, scope).Inc()
	}
}

func (o *PrometheusObserver) OnRetryAttempt(method, path string, attempt int, delay time.Duration, err error) {
	o.retries.WithLabelValues(method, scopeOf(path)).Inc()
}

func (o *PrometheusObserver) OnCircuitBreakerStateChange(endpoint string, oldState, newState CircuitState) {
	o.circuitState.WithLabelValues(endpoint).Set(float64(newState))
}

func (o *PrometheusObserver) OnSessionCacheHit() {
	o.sessionLookups.WithLabelValues("hit").Inc()
}

func (o *PrometheusObserver) OnSessionCacheMiss() {
	o.sessionLookups.WithLabelValues("miss").Inc()
}

// scopeOf extracts the scope segment from /v1/app/{appId}/{scope}/...
func scopeOf(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] == "app" {
			return parts[i+2]
		}
	}
	return "other"
}
