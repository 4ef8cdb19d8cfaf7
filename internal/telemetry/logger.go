package telemetry

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

var (
	logger   *logrus.Logger
	loggerMu sync.RWMutex
)

// NewLogger builds a JSON logger carrying the standard service fields.
func NewLogger(cfg *Config) *logrus.Logger {
	l := logrus.New()

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	l.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "@timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})
	l.AddHook(&staticFieldsHook{fields: logrus.Fields{
		"service.name":    cfg.ServiceName,
		"service.version": cfg.ServiceVersion,
		"environment":     cfg.Environment,
	}})
	return l
}

// InitLogger installs the process logger returned by L.
func InitLogger(cfg *Config) {
	l := NewLogger(cfg)
	loggerMu.Lock()
	logger = l
	loggerMu.Unlock()
}

// staticFieldsHook stamps fixed fields on every entry.
type staticFieldsHook struct {
	fields logrus.Fields
}

func (h *staticFieldsHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *staticFieldsHook) Fire(entry *logrus.Entry) error {
	for k, v := range h.fields {
		if _, ok := entry.Data[k]; !ok {
			entry.Data[k] = v
		}
	}
	return nil
}

// L returns the global logger instance
func L() *logrus.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	if logger == nil {
		return logrus.StandardLogger()
	}
	return logger
}

// WithContext adds trace information to the global logger
func WithContext(ctx context.Context) *logrus.Entry {
	return WithLogger(ctx, L())
}

// WithLogger adds trace information from ctx to l.
func WithLogger(ctx context.Context, l *logrus.Logger) *logrus.Entry {
	if l == nil {
		l = L()
	}
	entry := l.WithContext(ctx)

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		entry = entry.WithFields(logrus.Fields{
			"trace.id": span.SpanContext().TraceID().String(),
			"span.id":  span.SpanContext().SpanID().String(),
		})
	}
	return entry
}
