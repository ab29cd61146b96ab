package auth

import (
	"errors"
	"slices"
	"strings"
)

// Wildcard matches any resource or any action.
const Wildcard = "*"

// Permission grants a set of actions on a resource.
// Either position may hold Wildcard.
type Permission struct {
	Resource string   `json:"resource"`
	Actions  []string `json:"actions"`
}

// WellFormed reports whether the grant can ever match.
func (p Permission) WellFormed() error {
	if strings.TrimSpace(p.Resource) == "" {
		return errors.New("resource is empty")
	}
	if len(p.Actions) == 0 {
		return errors.New("actions are empty")
	}
	return nil
}

// Matches reports whether this grant covers (resource, action).
// Malformed grants never match.
func (p Permission) Matches(resource, action string) bool {
	if p.WellFormed() != nil {
		return false
	}
	if p.Resource != Wildcard && p.Resource != resource {
		return false
	}
	return slices.Contains(p.Actions, Wildcard) || slices.Contains(p.Actions, action)
}

// Allows is the single permission decision used by every layer.
// super_admin holds an implicit grant over everything; other roles are
// granted access when any permission in perms matches.
func Allows(role Role, perms []Permission, resource, action string) bool {
	if role == RoleSuperAdmin {
		return true
	}
	if !role.Valid() {
		return false
	}
	for _, p := range perms {
		if p.Matches(resource, action) {
			return true
		}
	}
	return false
}

// Can reports whether the principal may perform action on resource.
func (p Principal) Can(resource, action string) bool {
	return Allows(p.Role, p.Permissions, resource, action)
}

// ClonePermissions deep-copies a permission list.
func ClonePermissions(perms []Permission) []Permission {
	if perms == nil {
		return nil
	}
	out := make([]Permission, len(perms))
	for i, p := range perms {
		out[i] = Permission{Resource: p.Resource, Actions: slices.Clone(p.Actions)}
	}
	return out
}

// EqualPermissions compares two permission lists element by element.
func EqualPermissions(a, b []Permission) bool {
	return slices.EqualFunc(a, b, func(x, y Permission) bool {
		return x.Resource == y.Resource && slices.Equal(x.Actions, y.Actions)
	})
}
