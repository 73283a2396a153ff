package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/feldspaten/hyperion/app"
	"github.com/feldspaten/hyperion/ctx"
)

// HealthCheckFunc reports an unhealthy dependency by returning an error.
type HealthCheckFunc func(context.Context) error

// OnErrorFunc is called when the health check fails.
type OnErrorFunc func(*http.Request, error)

// OnSuccessFunc is called when the health check succeeds.
type OnSuccessFunc func(*http.Request)

// HealthCheckConfig configures the health endpoint.
type HealthCheckConfig struct {
	// Path of the endpoint. Defaults to "/health".
	Path string
	// HealthCheckFunc performs the check. Nil means always healthy.
	HealthCheckFunc HealthCheckFunc
	// OnErrorFunc is called on failure. If nil, the error is logged.
	OnErrorFunc OnErrorFunc
	// OnSuccessFunc is called on success.
	OnSuccessFunc OnSuccessFunc
	// ServiceName is included in the response. Defaults to "hyperion".
	ServiceName string
	// Sessions, when set, reports the number of live sessions.
	Sessions func() int
	// Logger used when OnErrorFunc is nil. Defaults to the context logger.
	Logger *slog.Logger
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Service   string `json:"service"`
	Sessions  *int   `json:"sessions,omitempty"`
	Error     string `json:"error,omitempty"`
}

// HealthCheck returns a plain http.Handler answering with a JSON health
// report: 200 when healthy, 503 otherwise. It bypasses the session machinery
// so that probes do not create sessions.
func HealthCheck(cfg HealthCheckConfig) http.Handler {
	if cfg.Path == "" {
		cfg.Path = "/health"
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "hyperion"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error
		if cfg.HealthCheckFunc != nil {
			err = cfg.HealthCheckFunc(r.Context())
		}

		resp := healthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Service:   cfg.ServiceName,
		}
		if cfg.Sessions != nil {
			n := cfg.Sessions()
			resp.Sessions = &n
		}
		code := http.StatusOK
		if err != nil {
			resp.Status = "unhealthy"
			resp.Error = err.Error()
			code = http.StatusServiceUnavailable
			switch {
			case cfg.OnErrorFunc != nil:
				cfg.OnErrorFunc(r, err)
			case cfg.Logger != nil:
				cfg.Logger.Error("health check failed", "error", err)
			default:
				ctx.LoggerFromContext(r.Context()).Error("health check failed", "error", err)
			}
		} else if cfg.OnSuccessFunc != nil {
			cfg.OnSuccessFunc(r)
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(resp)
	})
}

// RegisterHealthCheck mounts HealthCheck on a for GET and HEAD, reporting the
// app's live session count unless cfg.Sessions is already set.
func RegisterHealthCheck(a *app.App, cfg HealthCheckConfig) {
	if cfg.Path == "" {
		cfg.Path = "/health"
	}
	if cfg.Sessions == nil {
		cfg.Sessions = a.SessionCount
	}
	if cfg.Logger == nil {
		cfg.Logger = a.Logger()
	}
	h := HealthCheck(cfg)
	a.HandleHTTP(http.MethodGet, cfg.Path, h)
	a.HandleHTTP(http.MethodHead, cfg.Path, h)
}
