package logging

import (
	"context"

	"github.com/rs/zerolog"
)

type loggerKey struct{}

// WithLogger returns ctx carrying logger. A nil logger stores Default.
func WithLogger(ctx context.Context, logger *zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, OrDefault(logger))
}

// FromContext returns the logger carried by ctx, or Default.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey{}).(*zerolog.Logger); ok {
			return logger
		}
	}
	return Default()
}

// WithChannel annotates the context logger with a bus channel name.
func WithChannel(ctx context.Context, channel string) context.Context {
	return withStr(ctx, "channel", channel)
}

// WithConnection annotates the context logger with a connection id.
func WithConnection(ctx context.Context, connectionID string) context.Context {
	return withStr(ctx, "connection_id", connectionID)
}

func withStr(ctx context.Context, key, value string) context.Context {
	logger := FromContext(ctx).With().Str(key, value).Logger()
	return WithLogger(ctx, &logger)
}
