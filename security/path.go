// Package security holds input hygiene helpers shared by the request facade:
// path normalisation for redirect targets and filename cleaning for download
// headers.
package security

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

// allow only safe URL path characters (RFC 3986 unreserved set plus '/' and ' ')
var safePathRegex = regexp.MustCompile(`^[a-zA-Z0-9/_\-\.\~ ]*$`)

// SanitizePath normalizes, decodes, and validates a request path so it can be
// echoed back as a local redirect target. Returns "" if invalid.
func SanitizePath(rawPath string) string {
	if rawPath == "" {
		return "/"
	}

	decoded, err := url.PathUnescape(rawPath)
	if err != nil {
		return ""
	}
	// path.Clean removes ../, // and ./ segments
	clean := path.Clean(decoded)
	if !strings.HasPrefix(clean, "/") {
		clean = "/" + clean
	}
	if !safePathRegex.MatchString(clean) {
		return ""
	}
	return clean
}

// SanitizeFilename reduces name to characters that are safe inside a
// Content-Disposition header: letters, digits, '.', '-' and '_'. Directory
// parts and leading dots are dropped. Returns "" if nothing usable remains.
func SanitizeFilename(name string) string {
	if decoded, err := url.QueryUnescape(name); err == nil {
		name = decoded
	}
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}

	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
			r == '.' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	return strings.TrimLeft(b.String(), ".")
}
