package httpx

import (
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	domainauth "github.com/target/mmk-storefront/internal/domain/auth"
	apperrors "github.com/target/mmk-storefront/internal/errors"
	"github.com/target/mmk-storefront/internal/service"
)

// AuthHandlers exposes the process-wide authorization context over HTTP.
type AuthHandlers struct {
	Auth      *service.AuthContext
	LoginPath string
	Logger    *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *AuthHandlers) loginPath() string {
	if h.LoginPath != "" {
		return h.LoginPath
	}
	return service.DefaultLoginPath
}

// statusResponse is the JSON view of a snapshot.
type statusResponse struct {
	Authenticated bool                  `json:"authenticated"`
	Principal     *domainauth.Principal `json:"principal,omitempty"`
	IsSuperAdmin  bool                  `json:"is_super_admin"`
	IsMerchant    bool                  `json:"is_merchant"`
	IsCustomer    bool                  `json:"is_customer"`
}

func newStatusResponse(snap service.Snapshot) statusResponse {
	return statusResponse{
		Authenticated: snap.IsAuthenticated,
		Principal:     snap.Principal,
		IsSuperAdmin:  snap.IsSuperAdmin,
		IsMerchant:    snap.IsMerchant,
		IsCustomer:    snap.IsCustomer,
	}
}

// LoginPage renders the sign-in form.
// GET /login?redirect_uri=<optional>.
func (h *AuthHandlers) LoginPage(w http.ResponseWriter, r *http.Request) {
	redirectURI := safeRedirectPath(r.URL.Query().Get("redirect_uri"))
	if h.Auth.IsAuthenticated() {
		http.Redirect(w, r, redirectURI, http.StatusSeeOther)
		return
	}
	render(w, h.logger(), http.StatusOK, "login", pageData{Title: "Sign in", RedirectURI: redirectURI, CSRFToken: CSRFToken(r)})
}

type loginRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	RedirectURI string `json:"redirect_uri,omitempty"`
}

// Login authenticates against the directory and opens the session.
// POST /auth/login with a JSON body or a form.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	jsonBody := isJSONRequest(r)

	var in loginRequest
	if jsonBody {
		if !DecodeJSON(w, r, &in) {
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			WriteAppError(w, apperrors.Validation("Malformed form body."))
			return
		}
		in = loginRequest{
			Username:    r.PostForm.Get("username"),
			Password:    r.PostForm.Get("password"),
			RedirectURI: r.PostForm.Get("redirect_uri"),
		}
	}
	redirectURI := safeRedirectPath(in.RedirectURI)

	p, err := h.Auth.Login(r.Context(), domainauth.Credentials{Username: in.Username, Password: in.Password})
	if err != nil {
		mapped := apperrors.MapAuthError(err)
		if !apperrors.IsInvalidCredentials(mapped) {
			h.logger().ErrorContext(r.Context(), "login failed", slog.Any("error", err))
		}
		if jsonBody {
			WriteAppError(w, mapped)
			return
		}
		var appErr *apperrors.AppError
		msg := apperrors.InvalidCredentialsMessage
		if errors.As(mapped, &appErr) {
			msg = appErr.Message
		}
		render(w, h.logger(), statusFor(apperrors.GetCode(mapped)), "login", pageData{
			Title:       "Sign in",
			Error:       msg,
			Username:    in.Username,
			RedirectURI: redirectURI,
			CSRFToken:   CSRFToken(r),
		})
		return
	}

	h.logger().InfoContext(r.Context(), "signed in",
		slog.String("principal_id", p.ID),
		slog.String("role", p.Role.String()))

	if jsonBody {
		WriteJSON(w, http.StatusOK, newStatusResponse(h.Auth.Snapshot()))
		return
	}
	http.Redirect(w, r, redirectURI, http.StatusSeeOther)
}

// Logout ends the session.
// POST /auth/logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	browser := IsBrowserRequest(r) && !isJSONRequest(r)
	if err := h.Auth.Logout(r.Context()); err != nil {
		h.logger().WarnContext(r.Context(), "logout could not clear persisted session", slog.Any("error", err))
		mapped := apperrors.MapAuthError(err)
		if !browser {
			WriteAppError(w, mapped)
			return
		}
		render(w, h.logger(), statusFor(apperrors.GetCode(mapped)), "page", pageData{
			Title:     "Sign out failed",
			Principal: h.Auth.Principal(),
			Error:     "We could not sign you out. Try again.",
			LoginPath: h.loginPath(),
			CSRFToken: CSRFToken(r),
		})
		return
	}

	if browser {
		http.Redirect(w, r, h.loginPath(), http.StatusSeeOther)
		return
	}
	WriteJSON(w, http.StatusOK, newStatusResponse(service.Snapshot{}))
}

// Refresh re-reads the session from the store.
// POST /auth/refresh.
func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, newStatusResponse(h.Auth.Refresh(r.Context())))
}

// Status reports the resident snapshot.
// GET /auth/status.
func (h *AuthHandlers) Status(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, newStatusResponse(h.Auth.Snapshot()))
}

// Unauthorized is the landing page for role and permission denials.
// GET /unauthorized.
func (h *AuthHandlers) Unauthorized(w http.ResponseWriter, r *http.Request) {
	if !IsBrowserRequest(r) {
		WriteAppError(w, apperrors.Forbidden("Insufficient permissions."))
		return
	}
	render(w, h.logger(), http.StatusForbidden, "unauthorized", pageData{Title: "Access denied"})
}

type permissionQuery struct {
	Resource string `query:"resource" validate:"required,max=64"`
	Action   string `query:"action"   validate:"required,max=64"`
}

type permissionResponse struct {
	Resource string `json:"resource"`
	Action   string `json:"action"`
	Allowed  bool   `json:"allowed"`
}

// Permission answers a single permission query for the guarded principal.
// GET /api/me/permissions?resource=<r>&action=<a>.
func (h *AuthHandlers) Permission(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	in := permissionQuery{
		Resource: strings.TrimSpace(q.Get("resource")),
		Action:   strings.TrimSpace(q.Get("action")),
	}
	if err := validateRequest(in); err != nil {
		WriteAppError(w, err)
		return
	}

	snap, ok := SnapshotFromContext(r.Context())
	if !ok {
		snap = h.Auth.Snapshot()
	}
	WriteJSON(w, http.StatusOK, permissionResponse{
		Resource: in.Resource,
		Action:   in.Action,
		Allowed:  snap.HasPermission(in.Resource, in.Action),
	})
}

func isJSONRequest(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}
