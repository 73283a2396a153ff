package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/feldspaten/hyperion/app"
	"github.com/feldspaten/hyperion/ctx"
	"github.com/feldspaten/hyperion/page"
)

// Limiter decides whether a request for key may proceed and, if not, how
// long the client should wait.
type Limiter interface {
	Allow(key string) (allowed bool, retryAfter time.Duration)
}

// KeyFunc derives the rate limiting key from a request.
type KeyFunc func(*ctx.Request) string

// WindowLimiter allows capacity requests per key in each fixed window.
type WindowLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	capacity int
	window   time.Duration
	now      func() time.Time
	calls    int
}

type bucket struct {
	remaining int
	reset     time.Time
}

// pruneEvery is how many Allow calls pass between removals of stale buckets.
const pruneEvery = 1024

// NewWindowLimiter creates a WindowLimiter. capacity < 1 is treated as 1.
func NewWindowLimiter(capacity int, window time.Duration) *WindowLimiter {
	if capacity < 1 {
		capacity = 1
	}
	return &WindowLimiter{buckets: map[string]*bucket{}, capacity: capacity, window: window, now: time.Now}
}

func (l *WindowLimiter) Allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	l.calls++
	if l.calls%pruneEvery == 0 {
		for k, b := range l.buckets {
			if now.After(b.reset) {
				delete(l.buckets, k)
			}
		}
	}

	b := l.buckets[key]
	if b == nil || now.After(b.reset) {
		l.buckets[key] = &bucket{remaining: l.capacity - 1, reset: now.Add(l.window)}
		return true, 0
	}
	if b.remaining > 0 {
		b.remaining--
		return true, 0
	}
	return false, b.reset.Sub(now)
}

// Len returns the number of tracked keys.
func (l *WindowLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// RateLimit returns middleware limiting requests per client IP.
func RateLimit(l Limiter) app.Middleware { return RateLimitBy(l, ClientIP) }

// RateLimitBy returns middleware limiting requests per key. Rejected requests
// get a 429 page with a Retry-After header and never reach the handler.
func RateLimitBy(l Limiter, key KeyFunc) app.Middleware {
	return func(next app.Handler) app.Handler {
		return func(r *ctx.Request) error {
			ok, retry := l.Allow(key(r))
			if ok {
				return next(r)
			}
			if retry > 0 {
				r.Header("Retry-After", formatSeconds(retry))
			}
			r.Header("Content-Type", "text/html; charset=utf-8")
			r.Status(http.StatusTooManyRequests)
			p := page.ErrorPage(http.StatusText(http.StatusTooManyRequests), "Too many requests, please retry later.", http.StatusTooManyRequests)
			return p.Print(r.Writer())
		}
	}
}

// SessionKey keys on the logged in user, falling back to the client IP for
// guests. Guests can shed their session cookie at will, so it is not a key.
func SessionKey(r *ctx.Request) string {
	if r.IsLoggedIn() {
		return "user:" + r.Session().Username()
	}
	return ClientIP(r)
}

// ClientIP keys on X-Forwarded-For (first hop), X-Real-IP or the remote host,
// in that order.
func ClientIP(r *ctx.Request) string { return clientIP(r.Request()) }

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xrip := r.Header.Get("X-Real-IP"); xrip != "" {
		return strings.TrimSpace(xrip)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func formatSeconds(d time.Duration) string {
	sec := int((d + time.Second - 1) / time.Second)
	if sec < 1 {
		sec = 1
	}
	return strconv.Itoa(sec)
}
