package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/target/mmk-storefront/config"
)

func TestBuildHTTPHandler_GatesWithConfiguredPaths(t *testing.T) {
	ctx := context.Background()
	cfg := &config.AppConfig{
		Auth: config.AuthConfig{
			Store:            config.StoreFile,
			StateFile:        filepath.Join(t.TempDir(), "session.json"),
			Directory:        config.DirectoryMemory,
			SeedDemo:         true,
			BcryptCost:       bcrypt.MinCost,
			LoginPath:        "/signin",
			UnauthorizedPath: "/denied",
		},
		HTTP: config.HTTPConfig{CompressionEnabled: true, CompressionLevel: 5, SecureHeaders: true},
	}
	stack, err := BuildAuth(ctx, AuthDeps{Auth: cfg.Auth, Logger: quietLogger()})
	require.NoError(t, err)

	h := BuildHTTPHandler(&HTTPServerConfig{Config: cfg, Stack: stack, Logger: quietLogger()})

	req := httptest.NewRequest(http.MethodGet, "/admin/", nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/signin?redirect_uri=%2Fadmin%2F", rec.Header().Get("Location"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewHTTPServer_DefaultAddr(t *testing.T) {
	stack, err := BuildAuth(context.Background(), AuthDeps{
		Auth:   config.AuthConfig{Store: config.StoreMemory, Directory: config.DirectoryMemory, BcryptCost: bcrypt.MinCost},
		Logger: quietLogger(),
	})
	require.NoError(t, err)

	srv := NewHTTPServer(&HTTPServerConfig{Stack: stack, Logger: quietLogger()})
	assert.Equal(t, "127.0.0.1:8080", srv.Addr)
	require.NoError(t, ShutdownHTTPServer(context.Background(), srv, 0, quietLogger()))
}
