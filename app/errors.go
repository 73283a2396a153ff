package app

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/feldspaten/hyperion/ctx"
	"github.com/feldspaten/hyperion/page"
)

var (
	// ErrAccessDenied is returned by a handler that refuses the request.
	// It is answered with a 401 "Access denied" page.
	ErrAccessDenied = errors.New("access denied")
	// ErrLoginRequired is returned by a handler that needs a logged-in session
	// on a route that does not require one in general.
	ErrLoginRequired = errors.New("login required")
	// ErrIllegalArgument marks a request the handler cannot serve because of
	// its input. It is answered with a 400 page.
	ErrIllegalArgument = errors.New("illegal argument")
)

// IllegalArgument wraps a message so it is answered like ErrIllegalArgument.
func IllegalArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrIllegalArgument, fmt.Sprintf(format, args...))
}

// panicError carries a recovered panic value to the error boundary.
type panicError struct {
	value any
}

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.value) }

// writeError answers err with the matching error page. It does nothing except
// logging when the response has already started.
func (d *Dispatcher) writeError(r *ctx.Request, err error) {
	log := r.Logger()
	var pe *panicError
	switch {
	case errors.Is(err, ErrLoginRequired), errors.Is(err, ErrAccessDenied):
		log.Info("request refused", "path", r.Path(), "err", err)
	case errors.Is(err, ErrIllegalArgument):
		log.Warn("illegal request", "path", r.Path(), "err", err)
	case errors.As(err, &pe):
		log.Error("panic recovered", "path", r.Path(), "panic", fmt.Sprint(pe.value))
	default:
		log.Error("request failed", "path", r.Path(), "err", err)
	}

	if d.cfg.OnError != nil {
		d.cfg.OnError(r, err)
	}
	if !r.DiscardBuffered() {
		return
	}

	switch {
	case errors.Is(err, ErrLoginRequired):
		d.loginRequired(r)
	case errors.Is(err, ErrAccessDenied):
		d.printPage(r, page.ErrorPage(d.cfg.Title, "Access denied", http.StatusUnauthorized))
	case errors.Is(err, ErrIllegalArgument):
		d.printPage(r, page.ErrorPage(d.cfg.Title, "Illegal request (Illegal argument)", http.StatusBadRequest))
	default:
		d.printPage(r, page.ErrorPage(d.cfg.Title, "Internal server error", http.StatusInternalServerError))
	}
}
