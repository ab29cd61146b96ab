// Package metrics translates auth events into StatsD metrics.
package metrics

import (
	"errors"
	"strings"
	"time"

	domainauth "github.com/target/mmk-storefront/internal/domain/auth"
	apperrors "github.com/target/mmk-storefront/internal/errors"
	"github.com/target/mmk-storefront/internal/observability/statsd"
	"github.com/target/mmk-storefront/internal/ports"
)

const (
	metricLogin            = "auth.login"
	metricLoginDuration    = "auth.login.duration"
	metricSessionDiscarded = "auth.session.discarded"

	outcomeSuccess  = "success"
	outcomeRejected = "rejected"
	outcomeError    = "error"
)

// Auth implements ports.AuthMetrics on top of a StatsD sink. A nil Sink
// drops everything.
type Auth struct {
	Sink statsd.Sink
}

var _ ports.AuthMetrics = Auth{}

// ObserveLogin emits a counter and a timing tagged with the outcome.
// Rejected attempts carry no role since none was resolved.
func (m Auth) ObserveLogin(role domainauth.Role, elapsed time.Duration, err error) {
	if m.Sink == nil {
		return
	}
	tags := map[string]string{"outcome": loginOutcome(err)}
	if err == nil && role != "" {
		tags["role"] = string(role)
	}
	if err != nil && !errors.Is(err, domainauth.ErrInvalidCredentials) {
		tags["error_class"] = string(apperrors.GetCode(apperrors.MapAuthError(err)))
	}
	m.Sink.Count(metricLogin, 1, tags)
	m.Sink.Timing(metricLoginDuration, elapsed, tags)
}

// ObserveSessionDiscarded counts stored sessions that could not be restored.
func (m Auth) ObserveSessionDiscarded(reason string) {
	if m.Sink == nil {
		return
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "unknown"
	}
	m.Sink.Count(metricSessionDiscarded, 1, map[string]string{"reason": reason})
}

func loginOutcome(err error) string {
	switch {
	case err == nil:
		return outcomeSuccess
	case errors.Is(err, domainauth.ErrInvalidCredentials):
		return outcomeRejected
	default:
		return outcomeError
	}
}
