package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - auth.go: Session store and directory configuration
//   - database.go: Postgres and Redis configuration
//   - http.go: HTTP server configuration
//   - observability.go: StatsD metrics
type AppConfig struct {
	// IsDev controls development mode behavior.
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Authentication configuration
	Auth AuthConfig

	// Database configuration
	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	// HTTP server configuration
	HTTP HTTPConfig

	Metrics MetricsConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.HTTP.Sanitize()
	c.Auth.Sanitize()
	c.Metrics.Sanitize()
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))

	// Check NODE_ENV for dev mode
	c.detectDevMode()
}

// Validate reports combinations that cannot start.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.Auth.Store == StoreFile && strings.TrimSpace(c.Auth.StateFile) == "" {
		errs = append(errs, errors.New("AUTH_STATE_FILE is required when AUTH_STORE=file"))
	}
	if c.Auth.SeedDemo && !c.IsDev && c.Auth.Directory == DirectoryPostgres {
		errs = append(errs, errors.New("AUTH_SEED_DEMO with a postgres directory requires DEV=true"))
	}
	if c.Auth.Store == StoreRedis && c.Redis.UseCluster && !HasHashTag(c.Auth.KeyPrefix) {
		errs = append(errs, fmt.Errorf("AUTH_KEY_PREFIX %q needs a hash tag like {storefront} when REDIS_USE_CLUSTER=true", c.Auth.KeyPrefix))
	}
	switch {
	case c.HTTP.Addr == "":
		errs = append(errs, errors.New("HTTP_ADDR must not be empty"))
	case !c.HTTP.IsLoopback():
		errs = append(errs, fmt.Errorf("HTTP_ADDR %q must bind a loopback address; the server keeps one signed-in session per process", c.HTTP.Addr))
	}
	return errors.Join(errs...)
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
// NODE_ENV is checked as a fallback (common in frontend tooling).
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}

// NeedsPostgres reports whether any configured component uses the database.
func (c *AppConfig) NeedsPostgres() bool { return c.Auth.Directory == DirectoryPostgres }

// NeedsRedis reports whether any configured component uses Redis.
func (c *AppConfig) NeedsRedis() bool { return c.Auth.Store == StoreRedis }
