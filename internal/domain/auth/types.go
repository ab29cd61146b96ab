package auth

// Package auth contains domain-level types for authentication and sessions.
// It is pure and free of framework/adapter concerns.

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidCredentials is the only credential failure surfaced to callers.
	// It never says whether the username or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrCorruptedSession marks persisted session data that could not be decoded.
	// Read paths downgrade it to "no session"; it is never returned to the UI.
	ErrCorruptedSession = errors.New("corrupted session")

	// ErrNoSession reports that no session is persisted.
	ErrNoSession = errors.New("no active session")
)

// Role represents a principal's coarse-grained identity class.
// Keep string form for easy persistence; only the constants below are valid.
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleMerchant   Role = "merchant"
	RoleCustomer   Role = "customer"
)

// Roles returns every valid role in a stable order.
func Roles() []Role {
	return []Role{RoleSuperAdmin, RoleMerchant, RoleCustomer}
}

// ParseRole converts a string into a Role, rejecting unknown values.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Valid reports whether r is one of the closed set of roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleMerchant, RoleCustomer:
		return true
	default:
		return false
	}
}

func (r Role) String() string { return string(r) }

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("unknown role %q", string(r))
	}
	return []byte(r), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// BusinessInfo is the merchant-specific extension of a Profile.
type BusinessInfo struct {
	Name        string `json:"name"`
	StoreID     string `json:"store_id,omitempty"`
	TaxID       string `json:"tax_id,omitempty"`
	Description string `json:"description,omitempty"`
}

// Profile holds display and contact fields for a principal.
type Profile struct {
	DisplayName string        `json:"display_name"`
	FirstName   string        `json:"first_name,omitempty"`
	LastName    string        `json:"last_name,omitempty"`
	Phone       string        `json:"phone,omitempty"`
	Avatar      string        `json:"avatar,omitempty"`
	Address     string        `json:"address,omitempty"`
	Business    *BusinessInfo `json:"business,omitempty"`
}

// Principal is an authenticated identity (the marketplace "user").
type Principal struct {
	ID          string       `json:"id"`
	Username    string       `json:"username"`
	Email       string       `json:"email"`
	Role        Role         `json:"role"`
	Profile     Profile      `json:"profile"`
	Permissions []Permission `json:"permissions"`
	Active      bool         `json:"active"`
	CreatedAt   time.Time    `json:"created_at"`
	LastLoginAt *time.Time   `json:"last_login_at,omitempty"`
}

// WellFormed checks the structural invariants a principal must satisfy
// before it can back a session.
func (p Principal) WellFormed() error {
	if strings.TrimSpace(p.ID) == "" {
		return errors.New("principal id is empty")
	}
	if strings.TrimSpace(p.Username) == "" {
		return errors.New("principal username is empty")
	}
	if !p.Role.Valid() {
		return fmt.Errorf("principal role %q is invalid", string(p.Role))
	}
	for i, perm := range p.Permissions {
		if err := perm.WellFormed(); err != nil {
			return fmt.Errorf("permission %d: %w", i, err)
		}
	}
	return nil
}

// Clone returns a deep copy so callers can't mutate shared slices or pointers.
func (p Principal) Clone() Principal {
	out := p
	out.Permissions = ClonePermissions(p.Permissions)
	if p.Profile.Business != nil {
		b := *p.Profile.Business
		out.Profile.Business = &b
	}
	if p.LastLoginAt != nil {
		t := *p.LastLoginAt
		out.LastLoginAt = &t
	}
	return out
}

// Credentials is the username/password pair supplied by the login form.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate reports whether both fields are present.
func (c Credentials) Validate() error {
	if strings.TrimSpace(c.Username) == "" || c.Password == "" {
		return ErrInvalidCredentials
	}
	return nil
}

// Session pairs a principal with its bearer token and permission snapshot.
type Session struct {
	Principal   Principal    `json:"principal"`
	Token       string       `json:"token"`
	Permissions []Permission `json:"permissions"`
}
