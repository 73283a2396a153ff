package page

import (
	"bytes"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPagePrintsHeadAndBody(t *testing.T) {
	p := New("Inbox <1>")
	p.Stylesheet = "/static/site.css"
	p.SetAutoRefresh(30)
	p.AddMeta("robots", "noindex")
	p.Add(Headline("Hello", 1), Paragraph("a & b"))

	var buf bytes.Buffer
	require.NoError(t, p.Print(&buf))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Contains(t, out, "<title>Inbox &lt;1&gt;</title>")
	assert.Contains(t, out, `<meta http-equiv="refresh" content="30">`)
	assert.Contains(t, out, `<meta name="robots" content="noindex">`)
	assert.Contains(t, out, `<link rel="stylesheet" type="text/css" href="/static/site.css">`)
	assert.Contains(t, out, "<h1>Hello</h1>")
	assert.Contains(t, out, "<p>a &amp; b</p>")
	assert.Equal(t, out, p.Render())
}

func TestPageOmitsOptionalHead(t *testing.T) {
	out := New("").Render()
	assert.NotContains(t, out, "<title>")
	assert.NotContains(t, out, "refresh")
	assert.NotContains(t, out, "stylesheet")
}

func TestPageStatusAndEnabled(t *testing.T) {
	p := New("x")
	assert.Equal(t, http.StatusOK, p.Status())
	assert.True(t, p.Enabled())
	p.SetStatus(http.StatusAccepted)
	p.Disable()
	assert.Equal(t, http.StatusAccepted, p.Status())
	assert.False(t, p.Enabled())

	var zero Page
	assert.Equal(t, http.StatusOK, zero.Status())
}

func TestAutoRefreshNegativeDisables(t *testing.T) {
	p := New("x")
	p.SetAutoRefresh(-5)
	assert.Equal(t, 0, p.AutoRefresh())
}

func TestParagraphLineBreaksAndEscaping(t *testing.T) {
	assert.Equal(t, "<p>one<br>two<br>&lt;three&gt;</p>", Paragraph("one\ntwo\r\n<three>").Render())
}

func TestHeadlineClampsLevel(t *testing.T) {
	assert.Equal(t, "<h1>x</h1>", Headline("x", 0).Render())
	assert.Equal(t, "<h6>x</h6>", Headline("x", 9).Render())
	assert.Equal(t, "<h3>&lt;b&gt;</h3>", Headline("<b>", 3).Render())
}

func TestRawIsVerbatim(t *testing.T) {
	assert.Equal(t, "<hr>", Raw("<hr>").Render())
}

func TestLoginFormPostsToAction(t *testing.T) {
	out := LoginForm("/secret?tab=2&x=\"y\"").Render()
	assert.Contains(t, out, `method="post"`)
	assert.Contains(t, out, `action="/secret?tab=2&amp;x=%22y%22"`)
	assert.Contains(t, out, `name="username"`)
	assert.Contains(t, out, `name="password"`)
}

func TestErrorPage(t *testing.T) {
	p := ErrorPage("Hyperion", "Access denied", http.StatusUnauthorized)
	assert.Equal(t, http.StatusUnauthorized, p.Status())
	assert.Equal(t, 2, p.Len())
	out := p.Render()
	assert.Contains(t, out, "<h2>Error</h2>")
	assert.Contains(t, out, "<p>Access denied</p>")
}

func TestFormatSeconds(t *testing.T) {
	cases := map[time.Duration]string{
		0:                                     "0 s",
		-time.Second:                          "0 s",
		45 * time.Second:                      "45 s",
		59*time.Second + 900*time.Millisecond: "59 s",
		60 * time.Second:                      "1 min",
		59 * time.Minute:                      "59 min",
		time.Hour:                             "1 h, 0 min",
		3*time.Hour + 5*time.Minute:           "3 h, 5 min",
		23*time.Hour + 59*time.Minute:         "23 h, 59 min",
		24 * time.Hour:                        "1 days",
		50 * time.Hour:                        "2 days",
	}
	for d, want := range cases {
		assert.Equal(t, want, FormatSeconds(d), d.String())
	}
}

func TestFormatDates(t *testing.T) {
	ts := time.Date(2024, time.March, 7, 9, 5, 3, 0, time.UTC)
	assert.Equal(t, "2024-03-07", FormatDate(ts))
	assert.Equal(t, "2024-03-07 09:05:03", FormatDateTime(ts))
	assert.Equal(t, "09:05:03", FormatTime(ts))
}

func TestLoginFormMethod(t *testing.T) {
	assert.Contains(t, LoginFormMethod("/x", "GET").Render(), `method="get"`)
	assert.Contains(t, LoginFormMethod("/x", "PUT").Render(), `method="post"`)
}
