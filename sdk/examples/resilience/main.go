// Resilience Example
// Runs a burst of asynchronous loads through the pooled transport with
// retries, a circuit breaker and client-side rate limiting, then prints
// the collected metrics.

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/birbparty/roost/sdk"
)

func main() {
	metrics := sdk.NewMetricsCollector()
	registry := prometheus.NewRegistry()

	config := sdk.DefaultConfig().
		WithHost(envOr("ROOST_HOST", "http://localhost:8080")).
		WithApp(envOr("ROOST_APP_ID", "demo"), envOr("ROOST_API_KEY", "demo-key")).
		WithTransportMode(sdk.TransportPooled).
		WithMaxAttempts(4).
		WithRetryStrategy(&sdk.ExponentialBackoffStrategy{
			InitialInterval: 50 * time.Millisecond,
			MaxInterval:     time.Second,
			Multiplier:      2,
			Jitter:          0.2,
			Budget:          sdk.RetryBudget{MaxAttempts: 4},
		}).
		WithCircuitBreaker(sdk.CircuitBreakerConfig{
			FailureThreshold: 5,
			SuccessThreshold: 2,
			Timeout:          10 * time.Second,
		}).
		WithRateLimit(50, 10).
		WithObserver(sdk.NewCompositeObserver(metrics, sdk.NewPrometheusObserver(registry, "example")))

	svc, err := sdk.NewService(config)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	defer svc.Close()

	go func() {
		http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		if err := http.ListenAndServe(":2112", nil); err != nil {
			log.Printf("Metrics endpoint stopped: %v", err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures = map[string]int{}
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		key := fmt.Sprintf("player-%d", i%10)
		err := svc.LoadAsync(ctx, nil, []string{key},
			func(resp *sdk.LoadResponse) {
				defer wg.Done()
			},
			func(err error) {
				defer wg.Done()
				mu.Lock()
				failures[classify(err)]++
				mu.Unlock()
			})
		if err != nil {
			wg.Done()
			log.Printf("Request %d rejected: %v", i, err)
		}
	}
	wg.Wait()

	snap := metrics.Snapshot()
	fmt.Println("--- Requests ---")
	for _, ep := range snap.Endpoints() {
		fmt.Printf("%-40s requests=%d errors=%d retries=%d\n",
			ep, snap.Requests[ep], snap.Errors[ep], snap.Retries[ep])
	}
	fmt.Println("--- Failures ---")
	for kind, n := range failures {
		fmt.Printf("%-16s %d\n", kind, n)
	}
	fmt.Println("--- Circuit breaker ---")
	for ep, n := range snap.CircuitStateChanges {
		fmt.Printf("%s changed state %d times\n", ep, n)
	}
}

func classify(err error) string {
	switch {
	case errors.Is(err, sdk.ErrCircuitOpen):
		return "circuit open"
	case errors.Is(err, sdk.ErrRateLimited):
		return "rate limited"
	case errors.Is(err, sdk.ErrRetryExhausted):
		return "retries exhausted"
	case sdk.IsCanceled(err):
		return "canceled"
	default:
		return "other"
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
