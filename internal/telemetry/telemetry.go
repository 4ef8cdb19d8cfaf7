package telemetry

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Telemetry owns the process-wide logger and tracer provider.
type Telemetry struct {
	provider *sdktrace.TracerProvider
}

// Init initializes logging and tracing.
func Init(ctx context.Context, cfg *Config) (*Telemetry, error) {
	InitLogger(cfg)

	tp, err := InitTracing(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	L().WithFields(map[string]interface{}{
		"service":     cfg.ServiceName,
		"version":     cfg.ServiceVersion,
		"environment": cfg.Environment,
		"tracing":     tp != nil,
	}).Debug("Telemetry initialized")

	return &Telemetry{provider: tp}, nil
}

// Shutdown flushes pending spans.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}
	if err := CloseTracing(ctx, t.provider); err != nil {
		L().WithError(err).Error("Failed to close tracing")
		return err
	}
	return nil
}

// MetricsHandler serves the metrics gathered by g.
func MetricsHandler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
