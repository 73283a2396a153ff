package app

import (
	"path"
	"strings"
)

// cleanPath returns p rooted at "/" with duplicate slashes and dot segments
// removed. "" becomes "/".
func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// joinPath joins a group prefix and a route path: "/api" + "v1" is "/api/v1",
// "/admin" + "/" is "/admin".
func joinPath(prefix, p string) string {
	if prefix == "" || prefix == "/" {
		return cleanPath(p)
	}
	if p == "" || p == "/" {
		return cleanPath(prefix)
	}
	return cleanPath(strings.TrimRight(prefix, "/") + "/" + strings.TrimLeft(p, "/"))
}
