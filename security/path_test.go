package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizePath(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "simple", input: "/admin", expected: "/admin"},
		{name: "nested", input: "/admin/users", expected: "/admin/users"},
		{name: "no leading slash", input: "admin", expected: "/admin"},
		{name: "double slashes", input: "//evil.example", expected: "/evil.example"},
		{name: "dot segments", input: "/admin/../login", expected: "/login"},
		{name: "escaped space", input: "/my%20files", expected: "/my files"},
		{name: "empty", input: "", expected: "/"},
		{name: "special chars", input: "/a@b", expected: ""},
		{name: "bad escape", input: "/a%", expected: ""},
		{name: "scheme smuggling", input: "/http:%2F%2Fevil", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizePath(tt.input))
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"report.pdf", "report.pdf"},
		{"../../etc/passwd", "passwd"},
		{`C:\temp\data.csv`, "data.csv"},
		{".hidden", "hidden"},
		{"my report (1).txt", "myreport1.txt"},
		{"quote\"d.txt", "quoted.txt"},
		{"%2e%2e%2fsecret", "secret"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, SanitizeFilename(tt.input), tt.input)
	}
}
