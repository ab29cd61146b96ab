package httpx

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/mmk-storefront/internal/domain/auth"
	apperrors "github.com/target/mmk-storefront/internal/errors"
	mocks "github.com/target/mmk-storefront/internal/mocks/auth"
	"github.com/target/mmk-storefront/internal/service"
)

func formBody(kv ...string) string {
	v := url.Values{}
	for i := 0; i+1 < len(kv); i += 2 {
		v.Set(kv[i], kv[i+1])
	}
	return v.Encode()
}

func TestAuthHandlers_JSONLogin(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/auth/login", `{"username":"merchant","password":"merchant-pw"}`, asJSON)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec.Body.Bytes())
	assert.Equal(t, true, body["authenticated"])
	assert.Equal(t, true, body["is_merchant"])
	principal, ok := body["principal"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "merchant", principal["username"])
	assert.True(t, s.auth.IsAuthenticated())
}

func TestAuthHandlers_JSONLoginRejectionsLookAlike(t *testing.T) {
	bodies := []string{
		`{"username":"merchant","password":"wrong"}`,
		`{"username":"nobody","password":"merchant-pw"}`,
		`{"username":"","password":""}`,
	}
	for _, b := range bodies {
		t.Run(b, func(t *testing.T) {
			s := newTestServer(t)

			rec := s.do(http.MethodPost, "/auth/login", b, asJSON)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.JSONEq(t,
				fmt.Sprintf(`{"error":"invalid_credentials","message":%q}`, apperrors.InvalidCredentialsMessage),
				rec.Body.String())
			assert.False(t, s.auth.IsAuthenticated())
		})
	}
}

func TestAuthHandlers_LoginDirectoryUnavailable(t *testing.T) {
	dir := mocks.NewStubDirectory(nil)
	dir.VerifyFunc = func(context.Context, string, string) (domainauth.Principal, error) {
		return domainauth.Principal{}, fmt.Errorf("lookup: %w", redis.ErrPoolTimeout)
	}
	s := newTestServer(t, func(o *serverOptions) { o.directory = dir })

	rec := s.do(http.MethodPost, "/auth/login", `{"username":"merchant","password":"pw"}`, asJSON)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unavailable", decodeBody(t, rec.Body.Bytes())["error"])
}

func TestAuthHandlers_FormLogin(t *testing.T) {
	tests := []struct {
		name     string
		redirect string
		wantLoc  string
	}{
		{name: "relative redirect kept", redirect: "/merchant/?tab=orders", wantLoc: "/merchant/?tab=orders"},
		{name: "absolute redirect dropped", redirect: "https://evil.example/", wantLoc: "/"},
		{name: "scheme-relative redirect dropped", redirect: "//evil.example/x", wantLoc: "/"},
		{name: "missing redirect", wantLoc: "/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)

			body := formBody("username", "merchant", "password", "merchant-pw", "redirect_uri", tt.redirect)
			rec := s.do(http.MethodPost, "/auth/login", body, asForm)

			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, tt.wantLoc, rec.Header().Get("Location"))
			assert.True(t, s.auth.IsAuthenticated())
		})
	}
}

func TestAuthHandlers_FormLoginFailureRerendersForm(t *testing.T) {
	s := newTestServer(t)

	body := formBody("username", "merchant", "password", "nope", "redirect_uri", "/merchant/")
	rec := s.do(http.MethodPost, "/auth/login", body, asForm)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	html := rec.Body.String()
	assert.Contains(t, html, `role="alert"`)
	assert.Contains(t, html, "Invalid username or password.")
	assert.Contains(t, html, `value="merchant"`)
	assert.Contains(t, html, `value="/merchant/"`)
	assert.NotContains(t, html, "nope")
}

func TestAuthHandlers_LoginPage(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/login?redirect_uri=%2Fdashboard", "", asBrowser)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="redirect_uri" value="/dashboard"`)
	assert.Contains(t, rec.Body.String(), `name="csrf_token"`)

	s.signIn(t, "admin")
	rec = s.do(http.MethodGet, "/login?redirect_uri=%2Fdashboard", "", asBrowser)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
}

func TestAuthHandlers_Logout(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		s := newTestServer(t)
		s.signIn(t, "merchant")

		rec := s.do(http.MethodPost, "/auth/logout", "", asJSON)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, false, decodeBody(t, rec.Body.Bytes())["authenticated"])
		assert.False(t, s.auth.IsAuthenticated())
		_, ok, err := s.kv.Get(context.Background(), service.KeyUser)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("browser", func(t *testing.T) {
		s := newTestServer(t)
		s.signIn(t, "merchant")

		rec := s.do(http.MethodPost, "/auth/logout", "", asForm)

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/login", rec.Header().Get("Location"))
		assert.False(t, s.auth.IsAuthenticated())
	})
}

func TestAuthHandlers_StatusIsStaleUntilRefresh(t *testing.T) {
	s := newTestServer(t)
	s.signIn(t, "customer")

	// Another client clears the persisted session.
	require.NoError(t, s.kv.DeleteMany(context.Background(), service.KeyUser, service.KeyToken, service.KeyPermissions))

	rec := s.do(http.MethodGet, "/auth/status", "", asJSON)
	assert.Equal(t, true, decodeBody(t, rec.Body.Bytes())["authenticated"])

	rec = s.do(http.MethodPost, "/auth/refresh", "", asJSON)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decodeBody(t, rec.Body.Bytes())["authenticated"])

	rec = s.do(http.MethodGet, "/api/orders", "", asJSON)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthHandlers_UnauthorizedPage(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/unauthorized", "", asBrowser)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "Access denied")

	rec = s.do(http.MethodGet, "/unauthorized", "", func(r *http.Request) { r.Header.Set("Accept", "application/json") })
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", decodeBody(t, rec.Body.Bytes())["error"])
}

func TestAuthHandlers_LoginRateLimited(t *testing.T) {
	s := newTestServer(t, func(o *serverOptions) { o.loginRateLimit = 2 })
	body := `{"username":"customer","password":"wrong"}`

	for range 2 {
		rec := s.do(http.MethodPost, "/auth/login", body, asJSON)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec := s.do(http.MethodPost, "/auth/login", body, asJSON)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate_limited", decodeBody(t, rec.Body.Bytes())["error"])

	// Other routes are not throttled.
	rec = s.do(http.MethodGet, "/auth/status", "", asJSON)
	assert.Equal(t, http.StatusOK, rec.Code)
}
