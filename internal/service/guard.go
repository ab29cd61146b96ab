package service

import (
	"net/url"

	domainauth "github.com/target/mmk-storefront/internal/domain/auth"
)

// Default redirect destinations.
const (
	DefaultLoginPath        = "/login"
	DefaultUnauthorizedPath = "/unauthorized"
)

// Outcome is the result class of a guard check.
type Outcome int

const (
	Render Outcome = iota
	RedirectLogin
	RedirectUnauthorized
)

func (o Outcome) String() string {
	switch o {
	case Render:
		return "render"
	case RedirectLogin:
		return "redirect_login"
	case RedirectUnauthorized:
		return "redirect_unauthorized"
	default:
		return "unknown"
	}
}

// PermissionRequirement names a (resource, action) pair.
type PermissionRequirement struct {
	Resource string
	Action   string
}

// Requirement describes what a protected destination needs. Zero value
// requires only authentication.
type Requirement struct {
	Role       *domainauth.Role
	AnyRoles   []domainauth.Role
	Permission *PermissionRequirement
	// FallbackPath is the login destination; DefaultLoginPath when empty.
	FallbackPath string
	// UnauthorizedPath defaults to DefaultUnauthorizedPath.
	UnauthorizedPath string
}

// Decision is what the routing layer should do.
type Decision struct {
	Outcome Outcome
	// Location is the redirect target; empty for Render.
	Location string
	// ReturnTo is the originally requested location, set for RedirectLogin.
	ReturnTo string
}

// Allowed reports whether the content should be rendered.
func (d Decision) Allowed() bool { return d.Outcome == Render }

// Decide evaluates req against snap. First match wins: unauthenticated,
// role, any-role, permission, render.
func Decide(snap Snapshot, req Requirement, location string) Decision {
	if !snap.IsAuthenticated {
		return Decision{
			Outcome:  RedirectLogin,
			Location: loginLocation(req.FallbackPath, location),
			ReturnTo: location,
		}
	}
	if req.Role != nil && !snap.HasRole(*req.Role) {
		return unauthorized(req)
	}
	if len(req.AnyRoles) > 0 && !snap.HasAnyRole(req.AnyRoles...) {
		return unauthorized(req)
	}
	if req.Permission != nil && !snap.HasPermission(req.Permission.Resource, req.Permission.Action) {
		return unauthorized(req)
	}
	return Decision{Outcome: Render}
}

func unauthorized(req Requirement) Decision {
	loc := req.UnauthorizedPath
	if loc == "" {
		loc = DefaultUnauthorizedPath
	}
	return Decision{Outcome: RedirectUnauthorized, Location: loc}
}

func loginLocation(fallback, returnTo string) string {
	if fallback == "" {
		fallback = DefaultLoginPath
	}
	if returnTo == "" {
		return fallback
	}
	u, err := url.Parse(fallback)
	if err != nil {
		return DefaultLoginPath + "?" + url.Values{"redirect_uri": {returnTo}}.Encode()
	}
	q := u.Query()
	q.Set("redirect_uri", returnTo)
	u.RawQuery = q.Encode()
	return u.String()
}

// WithPaths returns a copy of req using the given login and unauthorized
// destinations. Empty values keep the defaults.
func (req Requirement) WithPaths(login, unauthorizedPath string) Requirement {
	req.FallbackPath = login
	req.UnauthorizedPath = unauthorizedPath
	return req
}

// RequireRole requires exactly role.
func RequireRole(role domainauth.Role) Requirement {
	return Requirement{Role: &role}
}

// RequireSuperAdmin requires the super_admin role.
func RequireSuperAdmin() Requirement { return RequireRole(domainauth.RoleSuperAdmin) }

// RequireMerchant requires the merchant role.
func RequireMerchant() Requirement { return RequireRole(domainauth.RoleMerchant) }

// RequireAdminOrMerchant accepts either super_admin or merchant.
func RequireAdminOrMerchant() Requirement {
	return Requirement{AnyRoles: []domainauth.Role{domainauth.RoleSuperAdmin, domainauth.RoleMerchant}}
}

// RequirePermission requires a (resource, action) grant.
func RequirePermission(resource, action string) Requirement {
	return Requirement{Permission: &PermissionRequirement{Resource: resource, Action: action}}
}

// Guard evaluates requirements against a live AuthContext.
type Guard struct {
	auth *AuthContext
}

// NewGuard constructs a Guard.
func NewGuard(auth *AuthContext) *Guard {
	return &Guard{auth: auth}
}

// Check decides against the current snapshot. Nothing is cached between calls.
func (g *Guard) Check(req Requirement, location string) Decision {
	return Decide(g.auth.Snapshot(), req, location)
}

// Auth returns the context the guard reads.
func (g *Guard) Auth() *AuthContext { return g.auth }
