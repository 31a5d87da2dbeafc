package logger

import "context"

// contextKey is a type for context keys to avoid collisions.
type contextKey string

const (
	loggerKey contextKey = "miniredis.logger"
	connIDKey contextKey = "miniredis.conn_id"
	remoteKey contextKey = "miniredis.remote"
)

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext extracts the logger from context.
// Returns the default logger if none is set.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(loggerKey).(Logger); ok {
		return l
	}
	return Default()
}

// WithConnID tags the context with a client connection id.
func WithConnID(ctx context.Context, connID string) context.Context {
	return context.WithValue(ctx, connIDKey, connID)
}

// ConnIDFromContext extracts the connection id from context.
func ConnIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(connIDKey).(string); ok {
		return id
	}
	return ""
}

// WithRemoteAddr tags the context with the client's address.
func WithRemoteAddr(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, remoteKey, addr)
}

// RemoteAddrFromContext extracts the client address from context.
func RemoteAddrFromContext(ctx context.Context) string {
	if addr, ok := ctx.Value(remoteKey).(string); ok {
		return addr
	}
	return ""
}

// L is a shorthand for FromContext that also enriches the logger
// with the connection id and remote address from the context.
func L(ctx context.Context) Logger {
	l := FromContext(ctx)

	if id := ConnIDFromContext(ctx); id != "" {
		l = l.With("conn_id", id)
	}
	if addr := RemoteAddrFromContext(ctx); addr != "" {
		l = l.With("remote", addr)
	}

	return l
}
