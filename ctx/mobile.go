package ctx

import (
	"regexp"
	"strings"
)

// mobileAgentRegex matches User-Agent fragments of common mobile browsers.
var mobileAgentRegex = regexp.MustCompile(`(?i)(android|bb\d+|meego).+mobile|avantgo|bada/|blackberry|blazer|compal|elaine|fennec|hiptop|iemobile|ip(hone|od)|iris|kindle|lge |maemo|midp|mmp|mobile.+firefox|netfront|opera m(ob|in)i|palm( os)?|phone|p(ixi|re)/|plucker|pocket|psp|series(4|6)0|symbian|treo|up\.(browser|link)|vodafone|wap|windows (ce|phone)|xda|xiino`)

// isMobileUserAgent is a best-effort guess; false negatives are expected.
func isMobileUserAgent(ua string) bool {
	if ua == "" {
		return false
	}
	if mobileAgentRegex.MatchString(ua) {
		return true
	}
	// Mozilla/5.0 (Linux; Android 14; ...) without a "mobile" token, e.g. tablets
	if !strings.HasPrefix(ua, "Mozilla/") {
		return false
	}
	open := strings.IndexByte(ua, '(')
	if open < 0 {
		return false
	}
	rest := ua[open+1:]
	end := strings.IndexByte(rest, ')')
	if end < 0 {
		return false
	}
	for _, part := range strings.Split(rest[:end], ";") {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(part)), "android") {
			return true
		}
	}
	return false
}
