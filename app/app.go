// Package app hosts the Dispatcher, which binds each HTTP request to a
// session and routes it to one handler per verb, and App, an httprouter based
// router that mounts dispatchers and plain http.Handlers side by side while
// sharing a single session.Store.
//
//	a := app.New(app.WithLogger(app.NewLogger("info", os.Stdout)))
//	a.Route("/", app.Config{Title: "Home"}).GET(home)
//	a.Route("/account", app.Config{LoginRequired: true, Verifier: v}).
//		GET(account).
//		POST(account)
//	a.Start(ctx)
//	_ = http.ListenAndServe(":8080", a)
package app

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/feldspaten/hyperion/session"
	"github.com/julienschmidt/httprouter"
)

// App routes requests to dispatchers and plain handlers.
type App struct {
	router     *httprouter.Router // plain http.Handlers
	pages      *httprouter.Router // dispatchers, all registered under GET
	store      *session.Store
	logger     *slog.Logger
	middleware []Middleware
	defaults   Config
	sweepEvery time.Duration
	storeOpts  []session.Option
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the application logger. Dispatchers without their own
// logger inherit it.
func WithLogger(l *slog.Logger) Option { return func(a *App) { a.logger = l } }

// WithStore shares an existing session store instead of creating one.
func WithStore(st *session.Store) Option { return func(a *App) { a.store = st } }

// WithSessionOptions configures the store created by New.
func WithSessionOptions(opts ...session.Option) Option {
	return func(a *App) { a.storeOpts = append(a.storeOpts, opts...) }
}

// WithSweepInterval sets how often Start sweeps expired sessions. Values <= 0
// sweep at half the session timeout.
func WithSweepInterval(d time.Duration) Option { return func(a *App) { a.sweepEvery = d } }

// WithDefaults supplies Config values used by Route for fields the route's own
// Config leaves empty: Verifier, NewUser, CookieName, Title, Stylesheet,
// LoginURL, LoginPage and OnError.
func WithDefaults(cfg Config) Option { return func(a *App) { a.defaults = cfg } }

// New creates an App with a fresh session store.
func New(opts ...Option) *App {
	a := &App{
		router: httprouter.New(),
		pages:  httprouter.New(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	if a.logger == nil {
		a.logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	if a.store == nil {
		sopts := append([]session.Option{session.WithLogger(a.logger)}, a.storeOpts...)
		a.store = session.NewStore(sopts...)
	}
	a.router.HandleMethodNotAllowed = true
	return a
}

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger { return a.logger }

// Store returns the shared session store.
func (a *App) Store() *session.Store { return a.store }

// Use registers middleware around every dispatcher, outside group and route
// middleware. Register middleware before serving requests.
func (a *App) Use(mw ...Middleware) {
	if len(mw) == 0 {
		return
	}
	a.middleware = append(a.middleware, mw...)
}

// Route creates a Dispatcher for path and registers it for every verb. Route
// parameters such as ":id" are available through ctx.Request.Param.
func (a *App) Route(path string, cfg Config) *Dispatcher {
	return a.route(cleanPath(path), cfg, nil)
}

func (a *App) route(path string, cfg Config, group []Middleware) *Dispatcher {
	cfg = a.withDefaults(cfg)
	d := NewDispatcher(a.store, cfg)
	d.outer = func() []Middleware {
		all := make([]Middleware, 0, len(a.middleware)+len(group))
		all = append(all, a.middleware...)
		return append(all, group...)
	}
	a.pages.Handle(http.MethodGet, path, d.serve)
	return d
}

func (a *App) withDefaults(cfg Config) Config {
	def := a.defaults
	if cfg.Verifier == nil {
		cfg.Verifier = def.Verifier
	}
	if cfg.NewUser == nil {
		cfg.NewUser = def.NewUser
	}
	if cfg.CookieName == "" {
		cfg.CookieName = def.CookieName
	}
	if cfg.Title == "" {
		cfg.Title = def.Title
	}
	if cfg.Stylesheet == "" {
		cfg.Stylesheet = def.Stylesheet
	}
	if cfg.LoginURL == "" {
		cfg.LoginURL = def.LoginURL
	}
	if cfg.LoginPage == nil {
		cfg.LoginPage = def.LoginPage
	}
	if cfg.OnError == nil {
		cfg.OnError = def.OnError
	}
	if cfg.Logger == nil {
		cfg.Logger = a.logger
	}
	return cfg
}

// HandleHTTP registers a plain http.Handler for method and path. It bypasses
// sessions entirely, which suits /metrics or health probes.
//
//	a.HandleHTTP(http.MethodGet, "/metrics", promhttp.Handler())
func (a *App) HandleHTTP(method, path string, h http.Handler) {
	a.router.Handler(method, path, h)
}

// Mount registers h for GET, POST, PUT, PATCH, DELETE, OPTIONS and HEAD on path.
func (a *App) Mount(path string, h http.Handler) {
	for _, m := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions, http.MethodHead} {
		a.router.Handler(m, path, h)
	}
}

// SessionCount returns the number of live sessions.
func (a *App) SessionCount() int { return a.store.Count() }

// AllSessions returns a snapshot of the live sessions.
func (a *App) AllSessions() []*session.Session { return a.store.All() }

// FindSession returns the live session with id, if any. It does not count as
// activity on the session.
func (a *App) FindSession(id string) (*session.Session, bool) { return a.store.Lookup(id) }

// Start sweeps expired sessions in the background until ctx is cancelled.
func (a *App) Start(ctx context.Context) {
	go a.store.Run(ctx, a.sweepEvery)
}

// ServeHTTP sends requests for dispatcher paths to their dispatcher, whatever
// the method, and everything else to the plain router.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h, ps, _ := a.pages.Lookup(http.MethodGet, r.URL.Path); h != nil {
		h(w, r, ps)
		return
	}
	a.router.ServeHTTP(w, r)
}
