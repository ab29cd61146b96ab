package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/target/mmk-storefront/internal/errors"
	"github.com/target/mmk-storefront/internal/service"
)

// GuardConfig wires a route guard.
type GuardConfig struct {
	Guard  *service.Guard
	Logger *slog.Logger
}

// Guarded gates next behind req. Browser requests are redirected to the
// decision's location; API requests get a 401 or 403 JSON body.
// The snapshot the decision was made on is placed in the request context.
func Guarded(cfg GuardConfig, req service.Requirement) func(http.Handler) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			snap := cfg.Guard.Auth().Snapshot()
			d := service.Decide(snap, req, requestLocation(r))

			switch d.Outcome {
			case service.Render:
				next.ServeHTTP(w, r.WithContext(SetSnapshotInContext(r.Context(), snap)))
				return
			case service.RedirectLogin:
				if IsBrowserRequest(r) {
					http.Redirect(w, r, d.Location, http.StatusSeeOther)
					return
				}
				WriteAppError(w, apperrors.Unauthenticated("Authentication required."))
			case service.RedirectUnauthorized:
				logger.DebugContext(r.Context(), "access denied",
					slog.String("path", r.URL.Path),
					slog.String("role", snap.Principal.Role.String()))
				if IsBrowserRequest(r) {
					http.Redirect(w, r, d.Location, http.StatusSeeOther)
					return
				}
				WriteAppError(w, apperrors.Forbidden("Insufficient permissions."))
			default:
				WriteAppError(w, errors.New("unknown guard outcome"))
			}
		})
	}
}

// WithSnapshot attaches the current snapshot to ungated requests so public
// pages can still show who is signed in.
func WithSnapshot(auth *service.AuthContext) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(SetSnapshotInContext(r.Context(), auth.Snapshot())))
		})
	}
}
