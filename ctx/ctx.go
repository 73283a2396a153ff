// Package ctx provides Request, the per-request facade that binds one HTTP
// exchange to its resolved session.Session.
//
// A Request offers defaulted, typed parameter extraction (parse failures are
// absorbed and turned into the caller's default), client information such as
// locale and a best-effort mobile flag, and the two response sinks: a buffered
// text Writer and a raw ByteStream. The Request owns those sinks for the
// duration of the exchange; Close flushes and releases them and must run on
// every exit path, which the dispatcher guarantees.
//
// Typical usage inside a verb handler:
//
//	d.GET(func(r *ctx.Request, p *page.Page) error {
//		limit := r.ParameterInt("limit", 20)
//		verbose := r.ParameterBool("verbose", false)
//		r.Session().SetProperty("last_limit", strconv.Itoa(limit))
//		p.Add(page.Paragraph(fmt.Sprintf("limit=%d verbose=%t", limit, verbose)))
//		return nil
//	})
//
// Concurrency: a Request belongs to one in-flight exchange and is not meant to
// be shared; the sink accessors and Close are nevertheless serialised.
package ctx

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/feldspaten/hyperion/security"
	"github.com/feldspaten/hyperion/session"
	router "github.com/julienschmidt/httprouter"
	"golang.org/x/text/language"
)

var (
	// ErrClosed is returned by writes to a sink after the Request was closed.
	ErrClosed = errors.New("ctx: request closed")
	// ErrHeadersWritten is returned by PrepareDownload once the response has started.
	ErrHeadersWritten = errors.New("ctx: response headers already written")
)

// Accepted spellings for ParameterBool, matched case-insensitively.
var (
	trueValues  = []string{"1", "true", "on", "yes"}
	falseValues = []string{"0", "false", "off", "no"}
)

// maxMemory is the in-memory limit for multipart form parsing.
const maxMemory = 32 << 20

// Request is the per-request facade handed to verb handlers and middleware.
type Request struct {
	w       *responseWriter
	r       *http.Request
	params  router.Params
	session *session.Session
	mobile  bool

	formOnce sync.Once

	mu     sync.Mutex
	writer *bufio.Writer
	stream io.Writer
	closed bool
}

// New binds w and r to sess. params are the route parameters matched by the
// router and may be nil.
func New(w http.ResponseWriter, r *http.Request, params router.Params, sess *session.Session) *Request {
	return &Request{
		w:       &responseWriter{ResponseWriter: w},
		r:       r,
		params:  params,
		session: sess,
		mobile:  isMobileUserAgent(r.UserAgent()),
	}
}

// Request returns the underlying *http.Request.
func (c *Request) Request() *http.Request { return c.r }

// SetRequest replaces the underlying *http.Request, typically to attach a
// derived context:
//
//	c.SetRequest(c.Request().WithContext(context.WithValue(c.Context(), key, v)))
func (c *Request) SetRequest(r *http.Request) { c.r = r }

// ResponseWriter returns the status-tracking writer wrapping the original
// http.ResponseWriter.
func (c *Request) ResponseWriter() http.ResponseWriter { return c.w }

// Context returns the request-scoped context.Context.
func (c *Request) Context() context.Context { return c.r.Context() }

// Logger returns the request-scoped logger; see LoggerFromContext.
func (c *Request) Logger() *slog.Logger { return LoggerFromContext(c.Context()) }

// Method returns the HTTP method (e.g. "GET").
func (c *Request) Method() string { return c.r.Method }

// Path returns the raw request URL path.
func (c *Request) Path() string { return c.r.URL.Path }

// Session returns the session this request resolved to.
func (c *Request) Session() *session.Session { return c.session }

// IsLoggedIn reports whether the request's session has a user attached.
func (c *Request) IsLoggedIn() bool { return c.session != nil && c.session.IsLoggedIn() }

// Param returns a route parameter by name, "" if not present.
// For route "/users/:id", Param("id") on "/users/42" returns "42".
func (c *Request) Param(name string) string { return c.params.ByName(name) }

func (c *Request) form() url.Values {
	c.formOnce.Do(func() {
		// malformed bodies are bad input: whatever parsed is kept, the rest ignored
		if strings.HasPrefix(c.r.Header.Get("Content-Type"), "multipart/form-data") {
			_ = c.r.ParseMultipartForm(maxMemory)
		} else {
			_ = c.r.ParseForm()
		}
		if c.r.Form == nil {
			c.r.Form = url.Values{}
		}
	})
	return c.r.Form
}

// Parameter returns the named query or form parameter, or def when it is
// absent or empty.
func (c *Request) Parameter(name, def string) string {
	if v := c.form().Get(name); v != "" {
		return v
	}
	return def
}

// HasParameter reports whether the parameter was supplied at all, even empty.
func (c *Request) HasParameter(name string) bool {
	_, ok := c.form()[name]
	return ok
}

// ParameterInt returns the named parameter parsed as int, or def when it is
// missing, empty or not a valid integer.
func (c *Request) ParameterInt(name string, def int) int {
	s := c.Parameter(name, "")
	if s == "" {
		return def
	}
	v, err := strconv.ParseInt(s, 10, 0)
	if err != nil {
		return def
	}
	return int(v)
}

// ParameterInt64 returns the named parameter parsed as int64, or def.
func (c *Request) ParameterInt64(name string, def int64) int64 {
	s := c.Parameter(name, "")
	if s == "" {
		return def
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return def
	}
	return v
}

// ParameterFloat64 returns the named parameter parsed as float64, or def.
func (c *Request) ParameterFloat64(name string, def float64) float64 {
	s := c.Parameter(name, "")
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return v
}

// ParameterBool matches the named parameter case-insensitively against
// 1/true/on/yes and 0/false/off/no. Anything else yields def.
func (c *Request) ParameterBool(name string, def bool) bool {
	s := c.Parameter(name, "")
	for _, v := range trueValues {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	for _, v := range falseValues {
		if strings.EqualFold(s, v) {
			return false
		}
	}
	return def
}

// IsSecure reports whether the request arrived over TLS.
func (c *Request) IsSecure() bool { return c.r.TLS != nil }

// RemoteHost returns the client host without port, or "0.0.0.0" if unknown.
func (c *Request) RemoteHost() string {
	addr := c.r.RemoteAddr
	if host, _, err := net.SplitHostPort(addr); err == nil && host != "" {
		return host
	}
	if addr == "" {
		return "0.0.0.0"
	}
	return addr
}

// Locale returns the client's preferred language from Accept-Language, or
// language.Und if the header is missing or unusable.
func (c *Request) Locale() language.Tag {
	tags, _, err := language.ParseAcceptLanguage(c.r.Header.Get("Accept-Language"))
	if err != nil || len(tags) == 0 {
		return language.Und
	}
	return tags[0]
}

// IsMobileClient reports whether the User-Agent looked like a mobile browser.
// The check runs once per request and is a heuristic, not an authority.
func (c *Request) IsMobileClient() bool { return c.mobile }

// RequestURI returns the request path, optionally followed by the request
// parameters re-encoded as a query string. The password and lang parameters
// are never included. The result is safe to use as a local redirect target.
func (c *Request) RequestURI(includeParams bool) string {
	p := security.SanitizePath(c.r.URL.Path)
	if p == "" {
		p = "/"
	}
	if !includeParams {
		return p
	}
	vals := url.Values{}
	for k, vs := range c.form() {
		if k == "password" || k == "lang" {
			continue
		}
		vals[k] = append([]string(nil), vs...)
	}
	if len(vals) == 0 {
		return p
	}
	return p + "?" + vals.Encode()
}

// Header sets a response header. It has no effect after the header was written.
func (c *Request) Header(key, value string) { c.w.Header().Set(key, value) }

// Status stages the response status code for the first write.
func (c *Request) Status(code int) *Request {
	if !c.w.wroteHeader {
		c.w.status = code
	}
	return c
}

// StatusCode returns the staged or written status, 200 once the header went
// out without an explicit status, and 0 before anything happened.
func (c *Request) StatusCode() int { return c.w.status }

// WroteHeader reports whether the response header has been sent.
func (c *Request) WroteHeader() bool { return c.w.wroteHeader }

// SetCookie adds a Set-Cookie header to the response.
func (c *Request) SetCookie(ck *http.Cookie) { http.SetCookie(c.w, ck) }

// Redirect sends a redirect with the given status to url.
func (c *Request) Redirect(status int, url string) error {
	if c.w.wroteHeader {
		return ErrHeadersWritten
	}
	c.Header("Location", url)
	c.w.WriteHeader(status)
	return nil
}

// Writer returns the buffered text sink for the response. It is created on
// first use and flushed by Close.
func (c *Request) Writer() *bufio.Writer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writer == nil {
		c.writer = bufio.NewWriter(c.w)
	}
	return c.writer
}

// ByteStream returns the raw byte sink for the response. Pending text written
// through Writer is flushed first so the two never interleave out of order.
func (c *Request) ByteStream() io.Writer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writer != nil {
		_ = c.writer.Flush()
	}
	if c.stream == nil {
		c.stream = c.w
	}
	return c.stream
}

// DiscardBuffered drops text buffered in Writer that has not reached the
// client yet, so that an error page can replace it. It reports false once the
// response has started and can no longer be replaced.
func (c *Request) DiscardBuffered() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.w.wroteHeader {
		return false
	}
	if c.writer != nil {
		c.writer.Reset(c.w)
	}
	return true
}

// JSON encodes v and writes it with the given status through the byte stream.
func (c *Request) JSON(status int, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.Header("Content-Type", "application/json; charset=utf-8")
	c.Header("Content-Length", strconv.Itoa(len(b)))
	c.Status(status)
	_, err = c.ByteStream().Write(b)
	return err
}

// PrepareDownload marks the response as an attachment. filename is sanitised
// and may be empty; length is sent as Content-Length when positive. It must be
// called before any byte of the body is written.
func (c *Request) PrepareDownload(filename string, length int64) error {
	if c.w.wroteHeader {
		return ErrHeadersWritten
	}
	h := c.w.Header()
	if h.Get("Content-Type") == "" {
		h.Set("Content-Type", "application/octet-stream")
	}
	disposition := "attachment"
	if name := security.SanitizeFilename(filename); name != "" {
		disposition = mime.FormatMediaType("attachment", map[string]string{"filename": name})
	}
	h.Set("Content-Disposition", disposition)
	if length > 0 {
		h.Set("Content-Length", strconv.FormatInt(length, 10))
	}
	return nil
}

// Close flushes the text writer and the underlying response, sends a staged
// status that was never written, and releases both sinks. Later writes fail
// with ErrClosed. Close is idempotent.
func (c *Request) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	var err error
	if c.writer != nil {
		err = c.writer.Flush()
	}
	if !c.w.wroteHeader && c.w.status != 0 {
		c.w.WriteHeader(c.w.status)
	}
	c.w.Flush()
	c.w.closed = true
	c.closed = true
	return err
}
