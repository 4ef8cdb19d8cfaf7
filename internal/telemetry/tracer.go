package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/birbparty/roost"

// FileTracerExporter writes finished spans as JSON lines.
type FileTracerExporter struct {
	mu      sync.Mutex
	file    *os.File
	encoder *json.Encoder
}

// FileSpan is the JSON form of an exported span.
type FileSpan struct {
	TraceID    string         `json:"trace_id"`
	SpanID     string         `json:"span_id"`
	ParentID   string         `json:"parent_id,omitempty"`
	Name       string         `json:"name"`
	StartTime  time.Time      `json:"start_time"`
	EndTime    time.Time      `json:"end_time"`
	Attributes map[string]any `json:"attributes"`
	Status     string         `json:"status"`
}

// InitTracing installs a tracer provider. With tracing disabled, or with
// neither an OTLP endpoint nor a trace file, the global no-op provider is
// left in place.
func InitTracing(ctx context.Context, cfg *Config) (*sdktrace.TracerProvider, error) {
	if !cfg.EnableTracing || (cfg.OTLPEndpoint == "" && cfg.TracesFilePath == "") {
		return nil, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.ServiceVersion),
			semconv.DeploymentEnvironmentKey.String(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	var exporter sdktrace.SpanExporter
	if cfg.TracesFilePath != "" {
		exporter, err = NewFileTracerExporter(cfg.TracesFilePath)
	} else {
		client := otlptracegrpc.NewClient(
			otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
			otlptracegrpc.WithInsecure(),
		)
		exporter, err = otlptrace.New(ctx, client)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SamplingRate)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp, nil
}

// NewFileTracerExporter creates a new file tracer exporter
func NewFileTracerExporter(filePath string) (*FileTracerExporter, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileTracerExporter{file: file, encoder: json.NewEncoder(file)}, nil
}

// ExportSpans implements sdktrace.SpanExporter.
func (f *FileTracerExporter) ExportSpans(_ context.Context, spans []sdktrace.ReadOnlySpan) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, span := range spans {
		fs := FileSpan{
			TraceID:    span.SpanContext().TraceID().String(),
			SpanID:     span.SpanContext().SpanID().String(),
			Name:       span.Name(),
			StartTime:  span.StartTime(),
			EndTime:    span.EndTime(),
			Status:     span.Status().Code.String(),
			Attributes: make(map[string]any, len(span.Attributes())),
		}
		if span.Parent().IsValid() {
			fs.ParentID = span.Parent().SpanID().String()
		}
		for _, attr := range span.Attributes() {
			fs.Attributes[string(attr.Key)] = attr.Value.AsInterface()
		}
		if err := f.encoder.Encode(fs); err != nil {
			return err
		}
	}
	return nil
}

// Shutdown implements sdktrace.SpanExporter.
func (f *FileTracerExporter) Shutdown(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.file.Close()
}

// Tracer returns the SDK tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// StartSpan starts a new span with the given name
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, opts...)
}

// CloseTracing flushes and shuts down tp. A nil provider is a no-op.
func CloseTracing(ctx context.Context, tp *sdktrace.TracerProvider) error {
	if tp == nil {
		return nil
	}
	return tp.Shutdown(ctx)
}
