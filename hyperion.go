// Package hyperion re-exports the main types of its subpackages so that simple
// servers need a single import.
package hyperion

import (
	"github.com/feldspaten/hyperion/app"
	"github.com/feldspaten/hyperion/ctx"
	"github.com/feldspaten/hyperion/page"
	"github.com/feldspaten/hyperion/session"
)

// App routes requests to dispatchers and plain handlers. Re-exported from app.App.
type App = app.App

// Group is a route group sharing a path prefix and middleware. Re-exported from app.Group.
type Group = app.Group

// Dispatcher binds requests to sessions and runs one handler per verb.
// Re-exported from app.Dispatcher.
type Dispatcher = app.Dispatcher

// Config configures a Dispatcher. Re-exported from app.Config.
type Config = app.Config

// VerbHandler serves one HTTP verb of a Dispatcher. Re-exported from app.VerbHandler.
type VerbHandler = app.VerbHandler

// Middleware wraps dispatcher handling. Re-exported from app.Middleware.
type Middleware = app.Middleware

// Request is the per-request facade, re-exported for convenience.
type Request = ctx.Request

// Page is the document a verb handler fills. Re-exported from page.Page.
type Page = page.Page

// Session is the server-side state of one client. Re-exported from session.Session.
type Session = session.Session

// User is the identity attached to a logged-in session. Re-exported from session.User.
type User = session.User

// New creates an App. Re-exported from app.New.
func New(opts ...app.Option) *App { return app.New(opts...) }
