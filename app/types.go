package app

import (
	"github.com/feldspaten/hyperion/ctx"
	"github.com/feldspaten/hyperion/page"
)

// VerbHandler serves one HTTP verb of a Dispatcher. It fills p, which the
// dispatcher prints afterwards unless p was disabled.
//
//	d.GET(func(r *ctx.Request, p *page.Page) error {
//		p.Add(page.Headline("Hello "+r.Session().Username(), 1))
//		return nil
//	})
type VerbHandler func(r *ctx.Request, p *page.Page) error

// Handler is one stage of request processing after the session is resolved.
// Middleware composes Handlers the same way for every verb.
type Handler func(*ctx.Request) error

// Middleware wraps a Handler. Middleware registered via App.Use runs first,
// then group middleware, then the dispatcher's own Config.Middleware.
//
//	func Audit(next app.Handler) app.Handler {
//		return func(r *ctx.Request) error {
//			err := next(r)
//			r.Logger().Info("audit", "user", r.Session().Username(), "status", r.StatusCode())
//			return err
//		}
//	}
type Middleware func(Handler) Handler

// Outcome is the login gate's decision for a request.
type Outcome int

const (
	// Allowed lets the request reach its verb handler.
	Allowed Outcome = iota
	// LoginRequired answers with the login-required page.
	LoginRequired
	// Denied answers with the access-denied page.
	Denied
)

func (o Outcome) String() string {
	switch o {
	case Allowed:
		return "allowed"
	case LoginRequired:
		return "login_required"
	case Denied:
		return "denied"
	default:
		return "unknown"
	}
}

// LoginGate decides whether a request may proceed, after any credential
// attempt carried by the request has been applied to its session.
type LoginGate func(*ctx.Request) Outcome

// DefaultGate lets logged-in sessions through and, when loginRequired is set,
// asks guests to log in.
func DefaultGate(loginRequired bool) LoginGate {
	return func(r *ctx.Request) Outcome {
		if r.IsLoggedIn() || !loginRequired {
			return Allowed
		}
		return LoginRequired
	}
}

// State is a step of the request lifecycle. Every request ends in StateClosed.
type State int

const (
	StateReceived State = iota
	StateSessionResolved
	StateLoginCheck
	StateHandlerExecuting
	StateSuccess
	StateError
	StateClosed
)

var stateNames = [...]string{
	StateReceived:         "RECEIVED",
	StateSessionResolved:  "SESSION_RESOLVED",
	StateLoginCheck:       "LOGIN_CHECK",
	StateHandlerExecuting: "HANDLER_EXECUTING",
	StateSuccess:          "SUCCESS",
	StateError:            "ERROR",
	StateClosed:           "CLOSED",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "UNKNOWN"
}
