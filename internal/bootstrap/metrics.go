package bootstrap

import (
	"context"
	"log/slog"

	"github.com/target/mmk-storefront/config"
	"github.com/target/mmk-storefront/internal/observability/statsd"
)

// BuildMetricsSink connects to StatsD when metrics are enabled. A dial
// failure is logged and metrics stay off; the returned client is nil-safe.
func BuildMetricsSink(ctx context.Context, cfg config.MetricsConfig, logger *slog.Logger) *statsd.Client {
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.IsEnabled() {
		return nil
	}
	client, err := statsd.NewClient(ctx, statsd.Config{
		Address: cfg.StatsdAddress,
		Prefix:  cfg.Prefix,
		Logger:  logger,
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to initialise statsd client", "error", err)
		return nil
	}
	logger.InfoContext(ctx, "statsd metrics enabled", "addr", cfg.StatsdAddress, "prefix", cfg.Prefix)
	return client
}
