// Package middleware holds app.Middleware implementations for dispatchers and
// http.Handler helpers that sit next to them on an app.App.
package middleware

import (
	"time"

	"github.com/feldspaten/hyperion/app"
	"github.com/feldspaten/hyperion/ctx"
)

// Logger returns middleware that logs one line per request with slog: method,
// path, status, duration, remote host, user agent and, when known, the user
// and request id. The logger comes from the request context.
//
// For handler errors the status is the one of the error page the dispatcher
// renders afterwards.
func Logger() app.Middleware {
	return func(next app.Handler) app.Handler {
		return func(r *ctx.Request) error {
			start := time.Now()
			err := next(r)
			dur := time.Since(start)

			attrs := []any{
				"method", r.Method(),
				"path", r.Path(),
				"duration_ms", float64(dur.Microseconds()) / 1000.0,
				"remote", r.RemoteHost(),
				"user_agent", r.Request().UserAgent(),
			}
			attrs = append(attrs, "status", responseStatus(r, err))
			if err != nil {
				attrs = append(attrs, "error", err.Error())
			}
			if r.IsLoggedIn() {
				attrs = append(attrs, "user", r.Session().Username())
			}
			if rid, ok := RequestIDFromContext(r.Context()); ok {
				attrs = append(attrs, "request_id", rid)
			}

			r.Logger().Info("request", attrs...)
			return err
		}
	}
}
