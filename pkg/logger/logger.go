package logger

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog for structured logging
// This allows us to add custom functionality and swap implementations if needed
type Logger struct {
	*slog.Logger
}

// New creates a new logger instance
// JSON output keeps logs parseable by aggregation tools
func New(level string) *Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	handler := slog.NewJSONHandler(os.Stdout, opts)
	logger := slog.New(handler)

	return &Logger{Logger: logger}
}

// requestIDKey is an unexported type so no other package can collide
// with our context key
type requestIDKey struct{}

// WithRequestID stores a request ID in the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFrom extracts the request ID from the context, if any
func RequestIDFrom(ctx context.Context) (string, bool) {
	requestID, ok := ctx.Value(requestIDKey{}).(string)
	return requestID, ok
}

// WithContext returns a logger that tags every record with the request
// ID carried by the context
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if requestID, ok := RequestIDFrom(ctx); ok {
		return &Logger{Logger: l.With("request_id", requestID)}
	}
	return l
}

// WithFields adds additional fields to the logger
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &Logger{Logger: l.With(args...)}
}
