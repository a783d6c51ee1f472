package log

import (
	"context"
)

type loggerKey struct{}

// NewContext carry a logger with tags, every record of the request is tagged
func NewContext(ctx context.Context, tags map[string]any) context.Context {
	return WithLogger(ctx, std.newWithTags(tags))
}

// WithLogger carry logger in ctx
func WithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// Inject add tags to the logger of ctx, later records of the same request
// carry them too. Without a request logger it does nothing.
func Inject(ctx context.Context, tags map[string]any) {
	if logger, ok := ctx.Value(loggerKey{}).(Logger); ok {
		logger.Inject(tags)
	}
}

// Extract the request logger, or the default one
func Extract(ctx context.Context) Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey{}).(Logger); ok {
			return logger
		}
	}
	return std
}
