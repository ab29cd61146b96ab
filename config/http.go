package config

import (
	"net"
	"strings"
	"time"
)

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to. It must be a loopback
	// address: the server holds a single signed-in session for the whole
	// process.
	Addr string `env:"HTTP_ADDR" envDefault:"127.0.0.1:8080"`

	// BaseURL is the base URL of the application (e.g., "https://shop.example.com").
	// Redirects are only followed when they resolve to this origin.
	BaseURL string `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`

	// CompressionEnabled enables gzip compression for text responses.
	CompressionEnabled bool `env:"HTTP_COMPRESSION_ENABLED" envDefault:"false"`

	// CompressionLevel is the gzip compression level (1-9).
	// Default is 6 (standard gzip default).
	CompressionLevel int `env:"HTTP_COMPRESSION_LEVEL" envDefault:"6"`

	// SecureHeaders adds frame, sniffing, referrer and CSP headers.
	SecureHeaders bool `env:"HTTP_SECURE_HEADERS" envDefault:"true"`

	// SSLRedirect redirects plain-HTTP requests to https.
	SSLRedirect bool `env:"HTTP_SSL_REDIRECT" envDefault:"false"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	// Clamp compression level to valid gzip range (1-9)
	if h.CompressionLevel < 1 {
		h.CompressionLevel = 1
	}
	if h.CompressionLevel > 9 {
		h.CompressionLevel = 9
	}
	if h.ShutdownTimeout <= 0 {
		h.ShutdownTimeout = 10 * time.Second
	}
}

// IsLoopback reports whether Addr binds only a loopback interface.
// An empty host (":8080") listens on every interface.
func (h HTTPConfig) IsLoopback() bool {
	host, _, err := net.SplitHostPort(strings.TrimSpace(h.Addr))
	if err != nil || host == "" {
		return false
	}
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
