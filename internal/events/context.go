package events

import (
	"context"
	"os"
)

type contextKey int

const (
	loggerKey contextKey = iota
	itemIDKey
)

// FromContext extracts logger from context.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerKey).(*Logger); ok {
		return l
	}
	return defaultLogger
}

// WithLogger adds logger to context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// WithItemID adds a batch item ID to context and its logger.
func WithItemID(ctx context.Context, id string) context.Context {
	logger := FromContext(ctx).WithField("item_id", id)
	ctx = context.WithValue(ctx, itemIDKey, id)
	return WithLogger(ctx, logger)
}

// GetItemID retrieves a batch item ID from context.
func GetItemID(ctx context.Context) string {
	if id, ok := ctx.Value(itemIDKey).(string); ok {
		return id
	}
	return ""
}

var defaultLogger = &Logger{
	level:  InfoLevel,
	format: "text",
	output: os.Stderr,
	fields: make(map[string]interface{}),
}

// SetDefault sets the default logger.
func SetDefault(logger *Logger) {
	defaultLogger = logger
}
