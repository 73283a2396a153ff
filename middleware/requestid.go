package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	"github.com/feldspaten/hyperion/app"
	"github.com/feldspaten/hyperion/ctx"
)

// RequestIDConfig configures the RequestID middleware.
type RequestIDConfig struct {
	Header string // default: X-Request-ID
}

type ridKey struct{}

// maxRequestIDLen bounds ids accepted from the client.
const maxRequestIDLen = 128

// RequestID returns middleware that tags each request with an id. An id sent
// by the client in the configured header is reused when it is short and
// printable; otherwise a random one is generated. The id is echoed in the
// response header and stored in the request context.
func RequestID(cfgs ...RequestIDConfig) app.Middleware {
	cfg := RequestIDConfig{Header: "X-Request-ID"}
	if len(cfgs) > 0 && cfgs[0].Header != "" {
		cfg.Header = cfgs[0].Header
	}
	return func(next app.Handler) app.Handler {
		return func(r *ctx.Request) error {
			id := r.Request().Header.Get(cfg.Header)
			if !validRequestID(id) {
				id = newID()
			}
			r.Header(cfg.Header, id)
			c := context.WithValue(r.Context(), ridKey{}, id)
			r.SetRequest(r.Request().WithContext(c))
			return next(r)
		}
	}
}

// RequestIDFromContext returns the request id stored by RequestID.
func RequestIDFromContext(c context.Context) (string, bool) {
	s, ok := c.Value(ridKey{}).(string)
	return s, ok
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}

func newID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
