package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/target/mmk-storefront/config"
	httpx "github.com/target/mmk-storefront/internal/http"
)

// HTTPServerConfig contains configuration for HTTP server.
type HTTPServerConfig struct {
	Config *config.AppConfig
	Stack  *AuthStack
	Logger *slog.Logger
}

// BuildHTTPHandler wires the router and middleware.
// Order: Recover -> Logging -> SecureHeaders -> BrowserDetection -> Compression -> Router.
func BuildHTTPHandler(cfg *HTTPServerConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	appCfg := cfg.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	var h http.Handler = httpx.NewRouter(httpx.RouterServices{
		Auth:             cfg.Stack.Auth,
		Guard:            cfg.Stack.Guard,
		LoginPath:        appCfg.Auth.LoginPath,
		UnauthorizedPath: appCfg.Auth.UnauthorizedPath,
		LoginRateLimit:   appCfg.Auth.LoginRateLimit,
		LoginRateWindow:  appCfg.Auth.LoginRateWindow,
		Logger:           logger,
	})

	if appCfg.HTTP.CompressionEnabled {
		logger.Info("HTTP compression enabled", "level", appCfg.HTTP.CompressionLevel)
		h = httpx.Compression(httpx.CompressionConfig{Level: appCfg.HTTP.CompressionLevel, Logger: logger})(h)
	}
	h = httpx.BrowserDetection()(h)
	if appCfg.HTTP.SecureHeaders {
		h = httpx.SecureHeaders(httpx.SecurityConfig{
			SSLRedirect: appCfg.HTTP.SSLRedirect,
			IsDev:       appCfg.IsDev,
			Logger:      logger,
		})(h)
	}
	h = httpx.Logging(logger)(h)
	h = httpx.Recover(logger)(h)
	return h
}

// NewHTTPServer builds the server without starting it.
func NewHTTPServer(cfg *HTTPServerConfig) *http.Server {
	addr := ""
	if cfg.Config != nil {
		addr = cfg.Config.HTTP.Addr
	}
	if addr == "" {
		addr = "127.0.0.1:8080"
	}
	return &http.Server{
		Addr:              addr,
		Handler:           BuildHTTPHandler(cfg),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// ServeHTTP blocks serving srv until it is shut down. A graceful shutdown
// is not an error.
func ServeHTTP(srv *http.Server, logger *slog.Logger) error {
	logger.Info("starting HTTP server", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ShutdownHTTPServer gracefully shuts down the HTTP server within timeout.
func ShutdownHTTPServer(ctx context.Context, srv *http.Server, timeout time.Duration, logger *slog.Logger) error {
	if srv == nil {
		return nil
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	logger.Info("shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("HTTP server stopped")
	return nil
}
