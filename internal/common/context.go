package common

import (
	"context"
	"log/slog"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRequestID contextKey = "request_id"
	ContextKeyEstateID  contextKey = "estate_id"
)

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// RequestIDFromContext extracts the request ID from context
func RequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return requestID
	}
	return ""
}

// WithEstateID adds an estate ID to the context
func WithEstateID(ctx context.Context, estateID string) context.Context {
	return context.WithValue(ctx, ContextKeyEstateID, estateID)
}

// EstateIDFromContext extracts the estate ID from context
func EstateIDFromContext(ctx context.Context) string {
	if estateID, ok := ctx.Value(ContextKeyEstateID).(string); ok {
		return estateID
	}
	return ""
}

// LoggerFrom decorates logger with whatever request-scoped ids ctx carries.
func LoggerFrom(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	if rid := RequestIDFromContext(ctx); rid != "" {
		logger = logger.With("req_id", rid)
	}
	if eid := EstateIDFromContext(ctx); eid != "" {
		logger = logger.With("estate_id", eid)
	}
	return logger
}
