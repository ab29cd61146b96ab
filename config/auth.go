package config

import (
	"fmt"
	"strings"
	"time"
)

// StoreKind selects the session KV backend.
type StoreKind string

const (
	StoreMemory StoreKind = "memory"
	StoreFile   StoreKind = "file"
	StoreRedis  StoreKind = "redis"
)

// UnmarshalText implements encoding.TextUnmarshaler for StoreKind.
func (s *StoreKind) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch StoreKind(v) {
	case StoreMemory, StoreFile, StoreRedis:
		*s = StoreKind(v)
		return nil
	default:
		return fmt.Errorf("invalid StoreKind: %q (valid options: memory, file, redis)", v)
	}
}

// DirectoryKind selects the credential directory.
type DirectoryKind string

const (
	DirectoryMemory   DirectoryKind = "memory"
	DirectoryPostgres DirectoryKind = "postgres"
)

// UnmarshalText implements encoding.TextUnmarshaler for DirectoryKind.
func (d *DirectoryKind) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch DirectoryKind(v) {
	case DirectoryMemory, DirectoryPostgres:
		*d = DirectoryKind(v)
		return nil
	default:
		return fmt.Errorf("invalid DirectoryKind: %q (valid options: memory, postgres)", v)
	}
}

// AuthConfig groups session and directory configuration.
type AuthConfig struct {
	// Store determines where the current session is persisted.
	Store StoreKind `env:"AUTH_STORE" envDefault:"file"`

	// StateFile is the JSON document used when Store=file.
	StateFile string `env:"AUTH_STATE_FILE" envDefault:".storefront/session.json"`

	// KeyPrefix namespaces session keys when Store=redis. With
	// REDIS_USE_CLUSTER it must contain a hash tag such as "{storefront}".
	KeyPrefix string `env:"AUTH_KEY_PREFIX" envDefault:"{storefront}:"`

	// SessionTTL expires redis session keys. Zero keeps them until logout.
	SessionTTL time.Duration `env:"AUTH_SESSION_TTL" envDefault:"0"`

	// Directory determines which credential directory verifies logins.
	Directory DirectoryKind `env:"AUTH_DIRECTORY" envDefault:"memory"`

	// LoginLatency simulates a network round trip in the memory directory.
	LoginLatency time.Duration `env:"AUTH_LOGIN_LATENCY" envDefault:"0"`

	// SeedDemo loads the demo principals (admin, merchant, customer).
	SeedDemo bool `env:"AUTH_SEED_DEMO" envDefault:"true"`

	// BcryptCost is used when hashing seeded passwords.
	BcryptCost int `env:"AUTH_BCRYPT_COST" envDefault:"10"`

	// LoginRateLimit caps sign-in attempts per client IP within
	// LoginRateWindow. Zero disables throttling.
	LoginRateLimit  int           `env:"AUTH_LOGIN_RATE_LIMIT"  envDefault:"10"`
	LoginRateWindow time.Duration `env:"AUTH_LOGIN_RATE_WINDOW" envDefault:"1m"`

	// LoginPath and UnauthorizedPath are the guard redirect destinations.
	LoginPath        string `env:"AUTH_LOGIN_PATH"        envDefault:"/login"`
	UnauthorizedPath string `env:"AUTH_UNAUTHORIZED_PATH" envDefault:"/unauthorized"`
}

// Sanitize applies guardrails to auth configuration values.
func (a *AuthConfig) Sanitize() {
	if a.SessionTTL < 0 {
		a.SessionTTL = 0
	}
	if a.LoginLatency < 0 {
		a.LoginLatency = 0
	}
	if a.LoginRateLimit < 0 {
		a.LoginRateLimit = 0
	}
	if a.LoginRateWindow <= 0 {
		a.LoginRateWindow = time.Minute
	}
	// Clamp bcrypt cost to 4-14.
	if a.BcryptCost < 4 {
		a.BcryptCost = 4
	}
	if a.BcryptCost > 14 {
		a.BcryptCost = 14
	}
	if !strings.HasPrefix(a.LoginPath, "/") {
		a.LoginPath = "/login"
	}
	if !strings.HasPrefix(a.UnauthorizedPath, "/") {
		a.UnauthorizedPath = "/unauthorized"
	}
}

// HasHashTag reports whether prefix pins keys to one Redis Cluster slot: a
// '{' followed by a non-empty run of bytes and a closing '}'.
func HasHashTag(prefix string) bool {
	open := strings.IndexByte(prefix, '{')
	if open < 0 {
		return false
	}
	closing := strings.IndexByte(prefix[open+1:], '}')
	return closing > 0
}
