package httpx

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/target/mmk-storefront/internal/adapters/kvstore"
	domainauth "github.com/target/mmk-storefront/internal/domain/auth"
	mocks "github.com/target/mmk-storefront/internal/mocks/auth"
	"github.com/target/mmk-storefront/internal/service"
	"github.com/target/mmk-storefront/internal/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testUsers() map[string]mocks.StubUser {
	return map[string]mocks.StubUser{
		"admin": {
			Password:  "admin-pw",
			Principal: testutil.NewPrincipal("a-1", "admin").WithRole(domainauth.RoleSuperAdmin).Build(),
		},
		"merchant": {
			Password: "merchant-pw",
			Principal: testutil.NewPrincipal("m-1", "merchant").
				WithRole(domainauth.RoleMerchant).
				WithBusiness("Shop LLC").
				Grant("products", "read", "write").
				Grant("orders", "read").
				Build(),
		},
		"customer": {
			Password:  "customer-pw",
			Principal: testutil.NewPrincipal("c-1", "customer").Grant("orders", "read").Build(),
		},
	}
}

type testServer struct {
	handler http.Handler
	auth    *service.AuthContext
	kv      *kvstore.Memory
}

type serverOptions struct {
	directory        *mocks.StubDirectory
	loginPath        string
	unauthorizedPath string
	loginRateLimit   int
}

func newTestServer(t *testing.T, opts ...func(*serverOptions)) *testServer {
	t.Helper()
	o := serverOptions{directory: mocks.NewStubDirectory(testUsers())}
	for _, opt := range opts {
		opt(&o)
	}

	kv := kvstore.NewMemory()
	sessions := service.NewSessionStore(service.SessionStoreOptions{
		Directory: o.directory,
		Store:     kv,
		Now:       func() time.Time { return testutil.FixedTime },
		Logger:    discardLogger(),
	})
	auth := service.NewAuthContext(context.Background(), service.AuthContextOptions{
		Sessions: sessions,
		Logger:   discardLogger(),
	})
	router := NewRouter(RouterServices{
		Auth:             auth,
		LoginPath:        o.loginPath,
		UnauthorizedPath: o.unauthorizedPath,
		LoginRateLimit:   o.loginRateLimit,
		Logger:           discardLogger(),
		Now:              func() time.Time { return testutil.FixedTime },
	})
	return &testServer{handler: BrowserDetection()(router), auth: auth, kv: kv}
}

func (s *testServer) signIn(t *testing.T, username string) {
	t.Helper()
	_, err := s.auth.Login(context.Background(), domainauth.Credentials{
		Username: username,
		Password: testUsers()[username].Password,
	})
	require.NoError(t, err)
}

type reqOpt func(*http.Request)

func asBrowser(r *http.Request) { r.Header.Set("Accept", "text/html,application/xhtml+xml") }

func asJSON(r *http.Request) {
	r.Header.Set("Accept", "application/json")
	r.Header.Set("Content-Type", "application/json")
}

const testCSRFToken = "csrf-test-token"

// asForm sends a browser form post carrying a matching CSRF cookie and header.
func asForm(r *http.Request) {
	asBrowser(r)
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	withCSRFCookie(testCSRFToken)(r)
	r.Header.Set(CSRFHeaderName, testCSRFToken)
}

// asBareForm is a browser form post without any CSRF material.
func asBareForm(r *http.Request) {
	asBrowser(r)
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
}

func withCSRFCookie(token string) reqOpt {
	return func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: token})
	}
}

func (s *testServer) do(method, target, body string, opts ...reqOpt) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	for _, opt := range opts {
		opt(req)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}
