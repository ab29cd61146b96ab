package httpx

import (
	"net/http"
	"net/url"
	"strings"
)

// safeRedirectPath keeps post-login redirects inside the app. Anything that
// is not a plain relative path falls back to "/".
func safeRedirectPath(candidate string) string {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return "/"
	}
	u, err := url.Parse(candidate)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") {
		return "/"
	}
	// "//evil.example" and "/\evil.example" are treated as hosts by browsers.
	if strings.HasPrefix(candidate, "//") || strings.HasPrefix(candidate, "/\\") {
		return "/"
	}
	return candidate
}

// requestLocation is the location a guard records as the return target.
func requestLocation(r *http.Request) string {
	return safeRedirectPath(r.URL.RequestURI())
}
