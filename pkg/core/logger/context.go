package logger

import (
	"context"

	"go.uber.org/zap"
)

type contextKey struct{}

var loggerCtxKey = contextKey{}

var defaultLogger = zap.NewNop()

// Get extracts a logger from the context, falling back to the default
// logger. It is safe to call with a nil context.
func Get(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return defaultLogger
	}
	if ctxLogger, ok := ctx.Value(loggerCtxKey).(*zap.Logger); ok && ctxLogger != nil {
		return ctxLogger
	}
	return defaultLogger
}

// With returns a new context carrying logger.
func With(ctx context.Context, logger *zap.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerCtxKey, logger)
}
