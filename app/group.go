package app

// Group registers dispatchers under a common path prefix with shared
// middleware. Middleware order is App, then outer groups, then inner groups,
// then the dispatcher's Config.Middleware.
//
//	admin := a.Group("/admin", RequireAdmin)
//	admin.Route("/sessions", app.Config{LoginRequired: true}).GET(listSessions)
type Group struct {
	app        *App
	prefix     string
	middleware []Middleware
}

// Group creates a route group with prefix and optional middleware.
func (a *App) Group(prefix string, mw ...Middleware) *Group {
	return &Group{app: a, prefix: cleanPath(prefix), middleware: mw}
}

// Use adds middleware for dispatchers registered on the group afterwards.
func (g *Group) Use(mw ...Middleware) { g.middleware = append(g.middleware, mw...) }

// Group creates a nested group inheriting prefix and middleware.
func (g *Group) Group(prefix string, mw ...Middleware) *Group {
	child := &Group{app: g.app, prefix: joinPath(g.prefix, prefix)}
	child.middleware = append(child.middleware, g.middleware...)
	child.middleware = append(child.middleware, mw...)
	return child
}

// Route creates a Dispatcher at the group prefix joined with path.
func (g *Group) Route(path string, cfg Config) *Dispatcher {
	mws := append([]Middleware(nil), g.middleware...)
	return g.app.route(joinPath(g.prefix, path), cfg, mws)
}
