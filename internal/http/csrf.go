package httpx

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"
)

const (
	// CSRFCookieName is the cookie holding the double-submit token. The login
	// and logout forms post it back as a hidden field of the same name.
	CSRFCookieName = "csrf_token"
	// CSRFHeaderName carries the token for script clients.
	CSRFHeaderName = "X-Csrf-Token"

	csrfTokenBytes = 32
	csrfCookieTTL  = 12 * time.Hour
)

// CSRFConfig configures CSRFProtection. Zero values use the defaults above.
type CSRFConfig struct {
	CookieName string
	HeaderName string
	FieldName  string
	Logger     *slog.Logger
}

func (c CSRFConfig) withDefaults() CSRFConfig {
	if c.CookieName == "" {
		c.CookieName = CSRFCookieName
	}
	if c.HeaderName == "" {
		c.HeaderName = CSRFHeaderName
	}
	if c.FieldName == "" {
		c.FieldName = c.CookieName
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// CSRFProtection implements the double-submit cookie check on every unsafe
// method. The token in the cookie must match the X-Csrf-Token header or the
// csrf_token form field. A request sent with Content-Type application/json
// is exempt: a cross-site page cannot send one without a CORS preflight,
// and the server answers no preflights.
func CSRFProtection(cfg CSRFConfig) func(http.Handler) http.Handler {
	cfg = cfg.withDefaults()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := cookieValue(r, cfg.CookieName)
			if token == "" {
				minted, err := newCSRFToken()
				if err != nil {
					cfg.Logger.ErrorContext(r.Context(), "csrf token", slog.Any("error", err))
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					return
				}
				token = minted
				http.SetCookie(w, &http.Cookie{
					Name:     cfg.CookieName,
					Value:    token,
					Path:     "/",
					MaxAge:   int(csrfCookieTTL / time.Second),
					Secure:   r.TLS != nil || forwardedHTTPS(r),
					SameSite: http.SameSiteStrictMode,
				})
			}
			r = r.WithContext(context.WithValue(r.Context(), csrfKey{}, token))

			if unsafeMethod(r.Method) && !isJSONRequest(r) && !tokenMatches(r, token, cfg) {
				cfg.Logger.WarnContext(r.Context(), "csrf check failed",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path))
				if IsBrowserRequest(r) {
					http.Error(w, "Your session form expired. Reload the page and try again.", http.StatusForbidden)
					return
				}
				WriteError(w, ErrorParams{
					Code:    http.StatusForbidden,
					ErrCode: "csrf_failed",
					Err:     errors.New("Missing or invalid CSRF token."),
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type csrfKey struct{}

// CSRFToken returns the token CSRFProtection attached to r, or "".
func CSRFToken(r *http.Request) string {
	token, _ := r.Context().Value(csrfKey{}).(string)
	return token
}

func unsafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return false
	}
	return true
}

func tokenMatches(r *http.Request, want string, cfg CSRFConfig) bool {
	got := r.Header.Get(cfg.HeaderName)
	if got == "" && isFormRequest(r) {
		if err := r.ParseForm(); err != nil {
			return false
		}
		got = r.PostForm.Get(cfg.FieldName)
	}
	return got != "" && subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func isFormRequest(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mediaType == "application/x-www-form-urlencoded"
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

func newCSRFToken() (string, error) {
	b := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func forwardedHTTPS(r *http.Request) bool {
	for _, proto := range strings.Split(r.Header.Get("X-Forwarded-Proto"), ",") {
		if strings.EqualFold(strings.TrimSpace(proto), "https") {
			return true
		}
	}
	return false
}
