// Package page renders the HTML documents produced by verb handlers and by the
// dispatcher's own error and login-required responses.
//
// A Page is a thin html/template document: a head with title, stylesheet,
// optional auto refresh and meta tags, and a body made of Renderer elements.
// All text passed to the element constructors is escaped; only Raw injects
// markup verbatim.
package page

import (
	"bytes"
	"html/template"
	"io"
	"net/http"
)

// Renderer produces an HTML fragment.
type Renderer interface {
	Render() string
}

// Printer writes a complete document.
type Printer interface {
	Print(w io.Writer) error
}

// Meta is a <meta name=... content=...> entry in the document head.
type Meta struct {
	Name    string
	Content string
}

// Page is the document a verb handler fills. The dispatcher prints it after the
// handler returns unless the handler disabled it, for example because it
// streamed a download instead.
type Page struct {
	Title      string
	Stylesheet string

	refresh  int
	status   int
	metas    []Meta
	body     []Renderer
	disabled bool
}

var _ Printer = (*Page)(nil)

var documentTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html><head>
{{- if .Title}}
<title>{{.Title}}</title>
{{- end}}
{{- if gt .Refresh 0}}
<meta http-equiv="refresh" content="{{.Refresh}}">
{{- end}}
{{- range .Metas}}
<meta name="{{.Name}}" content="{{.Content}}">
{{- end}}
{{- if .Stylesheet}}
<link rel="stylesheet" type="text/css" href="{{.Stylesheet}}">
{{- end}}
</head>
<body>
{{- range .Body}}
{{.}}
{{- end}}
</body></html>
`))

// New returns an enabled page with the given title and status 200.
func New(title string) *Page {
	return &Page{Title: title, status: http.StatusOK}
}

// Add appends elements to the body.
func (p *Page) Add(r ...Renderer) *Page {
	p.body = append(p.body, r...)
	return p
}

// AddMeta appends a named meta tag to the head.
func (p *Page) AddMeta(name, content string) *Page {
	p.metas = append(p.metas, Meta{Name: name, Content: content})
	return p
}

// SetAutoRefresh makes the browser reload the page after seconds. Values <= 0
// disable the refresh.
func (p *Page) SetAutoRefresh(seconds int) {
	if seconds < 0 {
		seconds = 0
	}
	p.refresh = seconds
}

// AutoRefresh returns the refresh delay in seconds, 0 if disabled.
func (p *Page) AutoRefresh() int { return p.refresh }

// SetStatus sets the HTTP status the page is sent with.
func (p *Page) SetStatus(code int) { p.status = code }

// Status returns the HTTP status the page is sent with.
func (p *Page) Status() int {
	if p.status == 0 {
		return http.StatusOK
	}
	return p.status
}

// Disable suppresses printing of the page.
func (p *Page) Disable() { p.disabled = true }

// Enabled reports whether the page will be printed.
func (p *Page) Enabled() bool { return !p.disabled }

// Len returns the number of body elements.
func (p *Page) Len() int { return len(p.body) }

// Print writes the complete document to w.
func (p *Page) Print(w io.Writer) error {
	body := make([]template.HTML, len(p.body))
	for i, r := range p.body {
		body[i] = template.HTML(r.Render())
	}
	return documentTmpl.Execute(w, struct {
		Title      string
		Stylesheet string
		Refresh    int
		Metas      []Meta
		Body       []template.HTML
	}{p.Title, p.Stylesheet, p.refresh, p.metas, body})
}

// Render returns the document as a string.
func (p *Page) Render() string {
	var buf bytes.Buffer
	if err := p.Print(&buf); err != nil {
		return ""
	}
	return buf.String()
}

// ErrorPage returns a page with an "Error" headline and message, sent with
// status.
func ErrorPage(title, message string, status int) *Page {
	p := New(title)
	p.SetStatus(status)
	p.Add(Headline("Error", 2), Paragraph(message))
	return p
}
