package telemetry

import (
	"os"
	"strconv"
)

// Config holds the configuration for telemetry
type Config struct {
	// OTLP gRPC collector, e.g. "localhost:4317". Empty disables export.
	OTLPEndpoint   string
	ServiceName    string
	Environment    string
	ServiceVersion string

	// TracesFilePath writes spans as JSON lines instead of exporting them.
	TracesFilePath string

	SamplingRate float64
	LogLevel     string

	EnableTracing bool
}

// NewConfigFromEnv creates a new config from environment variables
func NewConfigFromEnv() *Config {
	return &Config{
		OTLPEndpoint:   getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:    getEnv("OTEL_SERVICE_NAME", "roost-cli"),
		Environment:    getEnv("ROOST_ENVIRONMENT", "development"),
		ServiceVersion: getEnv("ROOST_VERSION", "unknown"),
		TracesFilePath: getEnv("OTEL_TRACES_FILE_PATH", ""),
		SamplingRate:   getEnvFloat("OTEL_SAMPLING_RATE", 1.0),
		LogLevel:       getEnv("ROOST_LOG_LEVEL", "info"),
		EnableTracing:  getEnvBool("ROOST_ENABLE_TRACING", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
