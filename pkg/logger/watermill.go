package logger

import (
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
)

// watermillAdapter bridges watermill's LoggerAdapter to slog so the
// event-channel internals log through the same JSON pipeline as the
// rest of the application.
type watermillAdapter struct {
	logger *slog.Logger
}

// NewWatermillAdapter wraps an slog logger for use by watermill
func NewWatermillAdapter(logger *slog.Logger) watermill.LoggerAdapter {
	return &watermillAdapter{logger: logger}
}

func (a *watermillAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.logger.Error(msg, append(flatten(fields), "error", err)...)
}

func (a *watermillAdapter) Info(msg string, fields watermill.LogFields) {
	a.logger.Info(msg, flatten(fields)...)
}

func (a *watermillAdapter) Debug(msg string, fields watermill.LogFields) {
	a.logger.Debug(msg, flatten(fields)...)
}

func (a *watermillAdapter) Trace(msg string, fields watermill.LogFields) {
	// slog has no trace level; map it to debug
	a.logger.Debug(msg, flatten(fields)...)
}

func (a *watermillAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &watermillAdapter{logger: a.logger.With(flatten(fields)...)}
}

func flatten(fields watermill.LogFields) []any {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return args
}
