package hyperion

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/feldspaten/hyperion/app"
	"github.com/feldspaten/hyperion/page"
	"github.com/stretchr/testify/assert"
)

func TestNewServesRoute(t *testing.T) {
	a := New(app.WithLogger(app.NewLogger("error", nil)))
	a.Route("/", Config{Title: "Home"}).GET(func(r *Request, p *Page) error {
		p.Add(page.Paragraph("hi"))
		return nil
	})

	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<title>Home</title>")
	assert.Equal(t, 1, a.SessionCount())
}
