package httpx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/target/mmk-storefront/internal/service"
)

// RouterServices holds the dependencies of the storefront router.
type RouterServices struct {
	Auth             *service.AuthContext
	Guard            *service.Guard
	LoginPath        string
	UnauthorizedPath string
	Logger           *slog.Logger
	Now              func() time.Time

	// LoginRateLimit caps POST /auth/login per client IP within
	// LoginRateWindow. Zero disables throttling.
	LoginRateLimit  int
	LoginRateWindow time.Duration
}

// NewRouter registers every storefront route. Gated routes go through
// Guarded with the configured login and unauthorized destinations, and
// every form post is checked by CSRFProtection.
func NewRouter(svc RouterServices) http.Handler {
	logger := svc.Logger
	if logger == nil {
		logger = slog.Default()
	}
	guard := svc.Guard
	if guard == nil {
		guard = service.NewGuard(svc.Auth)
	}
	loginPath := svc.LoginPath
	if loginPath == "" {
		loginPath = service.DefaultLoginPath
	}
	unauthorizedPath := svc.UnauthorizedPath
	if unauthorizedPath == "" {
		unauthorizedPath = service.DefaultUnauthorizedPath
	}

	gcfg := GuardConfig{Guard: guard, Logger: logger}
	gated := func(req service.Requirement, h http.Handler) http.Handler {
		return Guarded(gcfg, req.WithPaths(loginPath, unauthorizedPath))(h)
	}

	auth := &AuthHandlers{Auth: svc.Auth, LoginPath: loginPath, Logger: logger}
	store := &StorefrontHandlers{LoginPath: loginPath, Logger: logger, Now: svc.Now}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", healthHandler)

	mux.HandleFunc("GET "+loginPath, auth.LoginPage)
	mux.HandleFunc("GET "+unauthorizedPath, auth.Unauthorized)
	mux.Handle("POST /auth/login",
		LoginRateLimit(svc.LoginRateLimit, svc.LoginRateWindow, logger)(http.HandlerFunc(auth.Login)))
	mux.HandleFunc("POST /auth/logout", auth.Logout)
	mux.HandleFunc("POST /auth/refresh", auth.Refresh)
	mux.HandleFunc("GET /auth/status", auth.Status)

	mux.Handle("GET /{$}", WithSnapshot(svc.Auth)(store.Home()))
	mux.Handle("GET /admin/", gated(service.RequireSuperAdmin(), store.Admin()))
	mux.Handle("GET /merchant/", gated(service.RequireMerchant(), store.Merchant()))
	mux.Handle("GET /dashboard", gated(service.RequireAdminOrMerchant(), store.Dashboard()))

	mux.Handle("GET /api/me/permissions", gated(service.Requirement{}, http.HandlerFunc(auth.Permission)))
	mux.Handle("POST /api/merchant/products",
		gated(service.RequirePermission("products", "write"), http.HandlerFunc(store.CreateProduct)))
	mux.Handle("GET /api/orders",
		gated(service.RequirePermission("orders", "read"), http.HandlerFunc(store.ListOrders)))

	return CSRFProtection(CSRFConfig{Logger: logger})(mux)
}
