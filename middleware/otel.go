package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/feldspaten/hyperion/app"
	"github.com/feldspaten/hyperion/ctx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/feldspaten/hyperion/middleware"

// OTelConfig configures the OpenTelemetry middleware.
type OTelConfig struct {
	// Tracer used to start spans. Defaults to the global tracer provider.
	Tracer trace.Tracer
	// Propagator extracts the parent context from request headers. Defaults
	// to the global text map propagator.
	Propagator propagation.TextMapPropagator
	// ServiceName is recorded as service.name when set.
	ServiceName string
	// RecordDuration adds http.server.duration_ms to the span.
	RecordDuration bool
	// Filter skips tracing for requests it returns true for.
	Filter func(*ctx.Request) bool
	// SpanName overrides the default "METHOD /path" name.
	SpanName func(*ctx.Request) string
	// Attributes adds per-request attributes at span start.
	Attributes func(*ctx.Request) []attribute.KeyValue
	// ExtraAttributes are added to every span.
	ExtraAttributes []attribute.KeyValue
	// Status maps the final status and handler error to the span status.
	Status func(code int, err error) (codes.Code, string)
}

// OTel returns tracing middleware using the global tracer provider and
// propagator.
func OTel(serviceName string, extra ...attribute.KeyValue) app.Middleware {
	return OTelWithConfig(OTelConfig{ServiceName: serviceName, ExtraAttributes: extra})
}

// OTelWithConfig returns middleware that wraps each request in a server span.
// The span context replaces the request context, so handlers can start child
// spans from r.Context(). Session state (logged in, user name) is recorded
// after the handler ran, since a login attempt may change it.
func OTelWithConfig(cfg OTelConfig) app.Middleware {
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer(tracerName)
	}
	if cfg.Propagator == nil {
		cfg.Propagator = otel.GetTextMapPropagator()
	}
	if cfg.Status == nil {
		cfg.Status = defaultSpanStatus
	}
	return func(next app.Handler) app.Handler {
		return func(r *ctx.Request) error {
			if cfg.Filter != nil && cfg.Filter(r) {
				return next(r)
			}
			req := r.Request()
			parent := cfg.Propagator.Extract(req.Context(), propagation.HeaderCarrier(req.Header))

			name := req.Method + " " + r.Path()
			if cfg.SpanName != nil {
				if n := cfg.SpanName(r); n != "" {
					name = n
				}
			}
			attrs := []attribute.KeyValue{
				attribute.String("http.request.method", req.Method),
				attribute.String("url.path", r.Path()),
				attribute.String("client.address", r.RemoteHost()),
			}
			if cfg.ServiceName != "" {
				attrs = append(attrs, attribute.String("service.name", cfg.ServiceName))
			}
			if ua := req.UserAgent(); ua != "" {
				attrs = append(attrs, attribute.String("user_agent.original", ua))
			}
			attrs = append(attrs, cfg.ExtraAttributes...)
			if cfg.Attributes != nil {
				attrs = append(attrs, cfg.Attributes(r)...)
			}

			spanCtx, span := cfg.Tracer.Start(parent, name,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(attrs...),
			)
			defer span.End()
			r.SetRequest(req.WithContext(spanCtx))

			start := time.Now()
			err := next(r)

			code := responseStatus(r, err)
			span.SetAttributes(
				attribute.Int("http.response.status_code", code),
				attribute.Bool("session.logged_in", r.IsLoggedIn()),
			)
			if r.IsLoggedIn() {
				span.SetAttributes(attribute.String("enduser.id", r.Session().Username()))
			}
			if cfg.RecordDuration {
				span.SetAttributes(attribute.Float64("http.server.duration_ms", float64(time.Since(start).Microseconds())/1000.0))
			}
			if err != nil {
				span.RecordError(err)
			}
			c, desc := cfg.Status(code, err)
			span.SetStatus(c, desc)
			return err
		}
	}
}

func defaultSpanStatus(code int, err error) (codes.Code, string) {
	if err != nil || code >= http.StatusInternalServerError {
		return codes.Error, http.StatusText(code)
	}
	return codes.Unset, ""
}

// responseStatus returns the status the client will see. Errors that have not
// reached the client yet are mapped the way the dispatcher renders them.
func responseStatus(r *ctx.Request, err error) int {
	if err == nil || r.WroteHeader() {
		if s := r.StatusCode(); s != 0 {
			return s
		}
		return http.StatusOK
	}
	switch {
	case errors.Is(err, app.ErrLoginRequired), errors.Is(err, app.ErrAccessDenied):
		return http.StatusUnauthorized
	case errors.Is(err, app.ErrIllegalArgument):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
