package page

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

// RendererFunc adapts a function to Renderer.
type RendererFunc func() string

func (f RendererFunc) Render() string { return f() }

// Headline renders text as <hN>. level is clamped to 1..6.
func Headline(text string, level int) Renderer {
	level = max(1, min(level, 6))
	return RendererFunc(func() string {
		return fmt.Sprintf("<h%d>%s</h%d>", level, template.HTMLEscapeString(text), level)
	})
}

// Paragraph renders text as <p>, turning line breaks into <br>.
func Paragraph(text string) Renderer {
	return RendererFunc(func() string {
		lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
		for i, l := range lines {
			lines[i] = template.HTMLEscapeString(l)
		}
		return "<p>" + strings.Join(lines, "<br>") + "</p>"
	})
}

// Raw renders html verbatim. Never pass user input.
func Raw(html string) Renderer {
	return RendererFunc(func() string { return html })
}

var loginFormTmpl = template.Must(template.New("login").Parse(`<form method="{{.Method}}" action="{{.Action}}">
<label>Username <input type="text" name="username" autocomplete="username" required></label>
<label>Password <input type="password" name="password" autocomplete="current-password" required></label>
<input type="submit" value="Login">
</form>`))

// LoginForm renders a form posting username and password to action.
func LoginForm(action string) Renderer {
	return LoginFormMethod(action, "post")
}

// LoginFormMethod is LoginForm with an explicit form method. Anything other
// than GET submits with POST.
func LoginFormMethod(action, method string) Renderer {
	method = strings.ToLower(method)
	if method != "get" {
		method = "post"
	}
	return RendererFunc(func() string {
		var buf bytes.Buffer
		data := struct{ Action, Method string }{action, method}
		if err := loginFormTmpl.Execute(&buf, data); err != nil {
			return ""
		}
		return buf.String()
	})
}
