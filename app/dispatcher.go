package app

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/feldspaten/hyperion/credentials"
	"github.com/feldspaten/hyperion/ctx"
	"github.com/feldspaten/hyperion/page"
	"github.com/feldspaten/hyperion/session"
	"github.com/julienschmidt/httprouter"
)

// DefaultCookieName names the cookie carrying the session id.
const DefaultCookieName = "SESSION.COOKIE"

// verbs are the only methods a Dispatcher routes.
var verbs = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodDelete,
	http.MethodHead,
	http.MethodOptions,
	http.MethodTrace,
}

// Config configures a Dispatcher. The zero value serves anonymous routes
// without credential checks.
type Config struct {
	// LoginRequired makes DefaultGate ask guests to log in.
	LoginRequired bool
	// Verifier checks username/password parameters sent by guests. Without a
	// Verifier no credential attempt is made.
	Verifier credentials.Verifier
	// NewUser builds the User attached to the session after a successful
	// check. Defaults to session.NewUser.
	NewUser func(ctx context.Context, username string) (*session.User, error)
	// Gate replaces DefaultGate(LoginRequired).
	Gate LoginGate
	// LoginPage renders the login-required response. redirect is the request
	// URI the client should come back to.
	LoginPage func(r *ctx.Request, redirect string) error
	// LoginURL, if set and LoginPage is nil, redirects guests there with a
	// redirect query parameter instead of rendering the built-in page.
	LoginURL string
	// OnError observes every error that reaches the dispatcher boundary,
	// before it is turned into a page.
	OnError func(r *ctx.Request, err error)
	// OnState observes lifecycle transitions. Mostly useful in tests.
	OnState func(r *http.Request, s State)
	// CookieName defaults to DefaultCookieName.
	CookieName string
	// Title and Stylesheet are applied to every page the dispatcher creates.
	Title      string
	Stylesheet string
	Logger     *slog.Logger
	// Middleware wraps the login check, gate and verb handler of this
	// dispatcher, inside any App and group middleware.
	Middleware []Middleware
}

// Dispatcher binds requests to sessions and routes them to one handler per
// verb. It implements http.Handler and can be used without an App.
//
// Each request walks RECEIVED → SESSION_RESOLVED → LOGIN_CHECK →
// HANDLER_EXECUTING → SUCCESS or ERROR → CLOSED. The request facade is closed
// on every path, including panics.
type Dispatcher struct {
	store *session.Store
	cfg   Config

	mu       sync.RWMutex
	handlers map[string]VerbHandler

	// outer returns App and group middleware; nil for standalone dispatchers.
	outer func() []Middleware
}

var _ http.Handler = (*Dispatcher)(nil)

// NewDispatcher returns a Dispatcher resolving sessions in store.
func NewDispatcher(store *session.Store, cfg Config) *Dispatcher {
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}
	if cfg.Gate == nil {
		cfg.Gate = DefaultGate(cfg.LoginRequired)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Dispatcher{store: store, cfg: cfg, handlers: make(map[string]VerbHandler)}
}

// Handle registers h for method, replacing any previous handler. It panics for
// methods other than GET, POST, PUT, DELETE, HEAD, OPTIONS and TRACE.
func (d *Dispatcher) Handle(method string, h VerbHandler) *Dispatcher {
	if !slices.Contains(verbs, method) {
		panic(fmt.Sprintf("app: unsupported verb %q", method))
	}
	if h == nil {
		panic("app: nil verb handler")
	}
	d.mu.Lock()
	d.handlers[method] = h
	d.mu.Unlock()
	return d
}

func (d *Dispatcher) GET(h VerbHandler) *Dispatcher     { return d.Handle(http.MethodGet, h) }
func (d *Dispatcher) POST(h VerbHandler) *Dispatcher    { return d.Handle(http.MethodPost, h) }
func (d *Dispatcher) PUT(h VerbHandler) *Dispatcher     { return d.Handle(http.MethodPut, h) }
func (d *Dispatcher) DELETE(h VerbHandler) *Dispatcher  { return d.Handle(http.MethodDelete, h) }
func (d *Dispatcher) HEAD(h VerbHandler) *Dispatcher    { return d.Handle(http.MethodHead, h) }
func (d *Dispatcher) OPTIONS(h VerbHandler) *Dispatcher { return d.Handle(http.MethodOptions, h) }
func (d *Dispatcher) TRACE(h VerbHandler) *Dispatcher   { return d.Handle(http.MethodTrace, h) }

// Allowed returns the registered verbs in canonical order.
func (d *Dispatcher) Allowed() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.handlers))
	for _, m := range verbs {
		if _, ok := d.handlers[m]; ok {
			out = append(out, m)
		}
	}
	return out
}

func (d *Dispatcher) handler(method string) (VerbHandler, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	h, ok := d.handlers[method]
	return h, ok
}

func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.serve(w, r, nil)
}

// serve has the httprouter.Handle signature so App can register it directly.
func (d *Dispatcher) serve(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	tr := &tracker{r: r, hook: d.cfg.OnState, log: d.cfg.Logger}
	tr.to(StateReceived)

	h, ok := d.handler(r.Method)
	if !ok {
		w.Header().Set("Allow", strings.Join(d.Allowed(), ", "))
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		tr.to(StateClosed)
		return
	}

	r = r.WithContext(ctx.ContextWithLogger(r.Context(), d.cfg.Logger))
	sess, created := d.store.Resolve(d.sessionID(r), remoteHost(r))
	req := ctx.New(w, r, ps, sess)
	defer func() {
		if err := req.Close(); err != nil {
			req.Logger().Debug("response flush failed", "err", err)
		}
		tr.to(StateClosed)
	}()
	if created {
		req.SetCookie(d.cookie(sess, req.IsSecure()))
	}
	// Resolve already touched the session, or created it just now
	if sess.IsExpired() {
		sess.Logout()
	}
	tr.to(StateSessionResolved)

	// handler panics surface to middleware as errors; the outer protect
	// catches panics raised by middleware itself
	inner := func(req *ctx.Request) error {
		return protect(func(req *ctx.Request) error { return d.run(req, h, tr) }, req)
	}
	if err := protect(d.compose(inner), req); err != nil {
		tr.to(StateError)
		d.writeError(req, err)
		return
	}
	if tr.state == StateHandlerExecuting {
		tr.to(StateSuccess)
	}
}

// compose wraps h with App, group and dispatcher middleware, outermost first.
func (d *Dispatcher) compose(h Handler) Handler {
	final := h
	for i := len(d.cfg.Middleware) - 1; i >= 0; i-- {
		final = d.cfg.Middleware[i](final)
	}
	if d.outer != nil {
		outer := d.outer()
		for i := len(outer) - 1; i >= 0; i-- {
			final = outer[i](final)
		}
	}
	return final
}

func protect(h Handler, r *ctx.Request) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &panicError{value: v}
		}
	}()
	return h(r)
}

// run is the innermost stage: credential attempt, gate, verb handler, page.
func (d *Dispatcher) run(r *ctx.Request, h VerbHandler, tr *tracker) error {
	tr.to(StateLoginCheck)
	d.attemptLogin(r)

	switch outcome := d.cfg.Gate(r); outcome {
	case Allowed:
	case LoginRequired:
		d.loginRequired(r)
		return nil
	default:
		r.Logger().Info("request refused", "path", r.Path(), "outcome", outcome.String())
		d.printPage(r, page.ErrorPage(d.cfg.Title, "Access denied", http.StatusUnauthorized))
		return nil
	}

	tr.to(StateHandlerExecuting)
	p := d.newPage()
	if err := h(r, p); err != nil {
		return err
	}
	if p.Enabled() && !r.WroteHeader() {
		d.printPage(r, p)
	}
	return nil
}

// attemptLogin applies a username/password pair sent by a guest. Any failure
// leaves the session a guest; the gate decides what happens next.
func (d *Dispatcher) attemptLogin(r *ctx.Request) {
	sess := r.Session()
	if d.cfg.Verifier == nil || sess.IsLoggedIn() {
		return
	}
	if !r.HasParameter("username") || !r.HasParameter("password") {
		return
	}
	log := r.Logger()
	c := credentials.Credentials{
		Username: strings.TrimSpace(r.Parameter("username", "")),
		Password: r.Parameter("password", ""),
	}
	if err := c.Validate(); err != nil {
		log.Info("login rejected", "reason", "invalid input", "failed_logins", sess.RecordFailedLogin())
		return
	}
	ok, err := d.cfg.Verifier.CheckLogin(r.Context(), c.Username, c.Password)
	if err != nil {
		log.Error("credential check failed", "user", c.Username, "err", err)
		return
	}
	if !ok {
		log.Info("login failed", "user", c.Username, "failed_logins", sess.RecordFailedLogin())
		return
	}

	u := session.NewUser(c.Username)
	if d.cfg.NewUser != nil {
		u, err = d.cfg.NewUser(r.Context(), c.Username)
		if err != nil || u == nil {
			log.Error("user lookup failed", "user", c.Username, "err", err)
			return
		}
	}
	sess.Login(u)
	log.Info("login", "user", u.Username(), "remote", sess.RemoteAddress())
}

func (d *Dispatcher) loginRequired(r *ctx.Request) {
	redirect := r.RequestURI(true)
	if d.cfg.LoginPage != nil {
		if err := d.cfg.LoginPage(r, redirect); err != nil {
			r.Logger().Error("login page failed", "err", err)
		}
		return
	}
	if d.cfg.LoginURL != "" {
		sep := "?"
		if strings.Contains(d.cfg.LoginURL, "?") {
			sep = "&"
		}
		_ = r.Redirect(http.StatusSeeOther, d.cfg.LoginURL+sep+"redirect="+url.QueryEscape(redirect))
		return
	}

	method := http.MethodGet
	if _, ok := d.handler(http.MethodPost); ok {
		method = http.MethodPost
	}
	p := d.newPage()
	p.SetStatus(http.StatusUnauthorized)
	p.Add(page.Headline("Login required", 2), page.LoginFormMethod(redirect, method))
	d.printPage(r, p)
}

func (d *Dispatcher) newPage() *page.Page {
	p := page.New(d.cfg.Title)
	p.Stylesheet = d.cfg.Stylesheet
	return p
}

func (d *Dispatcher) printPage(r *ctx.Request, p *page.Page) {
	if !r.WroteHeader() {
		r.Header("Content-Type", "text/html; charset=utf-8")
		r.Status(p.Status())
	}
	if err := p.Print(r.Writer()); err != nil {
		r.Logger().Error("page output failed", "err", err)
	}
}

func (d *Dispatcher) sessionID(r *http.Request) string {
	c, err := r.Cookie(d.cfg.CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

func (d *Dispatcher) cookie(s *session.Session, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     d.cfg.CookieName,
		Value:    s.ID(),
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func remoteHost(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// tracker records the lifecycle state of one request.
type tracker struct {
	r     *http.Request
	state State
	hook  func(*http.Request, State)
	log   *slog.Logger
}

func (t *tracker) to(s State) {
	t.state = s
	if t.hook != nil {
		t.hook(t.r, s)
	}
	if t.log.Enabled(t.r.Context(), slog.LevelDebug) {
		t.log.Debug("request state", "method", t.r.Method, "path", t.r.URL.Path, "state", s.String())
	}
}
