package ports

// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"
	"time"

	domainauth "github.com/target/mmk-storefront/internal/domain/auth"
)

// Directory verifies credentials against the authoritative principal records.
type Directory interface {
	// Verify returns the matching principal or domainauth.ErrInvalidCredentials.
	// Unknown users, inactive principals and password mismatches are not distinguished.
	Verify(ctx context.Context, username, password string) (domainauth.Principal, error)
}

// KVStore is the client-durable key-value store backing the session.
// Writes are whole-record replacements; SetMany and DeleteMany are atomic
// from a reader's point of view.
type KVStore interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	SetMany(ctx context.Context, entries map[string]string) error
	DeleteMany(ctx context.Context, keys ...string) error
}

// Sessions is the session store consumed by the authorization context.
type Sessions interface {
	Login(ctx context.Context, creds domainauth.Credentials) (domainauth.Principal, error)
	Logout(ctx context.Context) error
	CurrentPrincipal(ctx context.Context) *domainauth.Principal
}

// RoleGrants supplies default permission presets for a role.
type RoleGrants interface {
	Grants(role domainauth.Role) []domainauth.Permission
}

// LoginRecorder is optionally implemented by directories that track the
// last successful login.
type LoginRecorder interface {
	RecordLogin(ctx context.Context, principalID string, at time.Time) error
}

// AuthMetrics observes login attempts and discarded sessions.
type AuthMetrics interface {
	// ObserveLogin is called once per Login; err is nil on success.
	ObserveLogin(role domainauth.Role, elapsed time.Duration, err error)
	ObserveSessionDiscarded(reason string)
}
