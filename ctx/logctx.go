package ctx

import (
	"context"
	"log/slog"
)

type loggerContextKey struct{}

// ContextWithLogger returns a copy of ctx carrying l.
//
// Middleware enriches the logger with request fields and hands it down by
// replacing the request:
//
//	l := ctx.LoggerFromContext(c.Context()).With("session", c.Session().ID())
//	c.SetRequest(c.Request().WithContext(ctx.ContextWithLogger(c.Context(), l)))
func ContextWithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, l)
}

// LoggerFromContext returns the logger stored by ContextWithLogger, or
// slog.Default if there is none.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if v := ctx.Value(loggerContextKey{}); v != nil {
		if l, ok := v.(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return slog.Default()
}
