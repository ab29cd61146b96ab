package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/target/mmk-storefront/config"
	"github.com/target/mmk-storefront/internal/bootstrap"
	"github.com/target/mmk-storefront/internal/observability/metrics"
	"github.com/target/mmk-storefront/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		bootstrap.InitLogger("info").ErrorContext(ctx, "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
	logger := bootstrap.InitLogger(cfg.LogLevel)

	if err := run(ctx, &cfg, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) error {
	logger.InfoContext(ctx, "starting storefront",
		"addr", cfg.HTTP.Addr,
		"store", cfg.Auth.Store,
		"directory", cfg.Auth.Directory,
		"dev", cfg.IsDev)

	db, redisClient, err := initInfrastructure(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeInfrastructure(ctx, db, redisClient, logger)

	sink := bootstrap.BuildMetricsSink(ctx, cfg.Metrics, logger)
	defer func() {
		if err := sink.Close(); err != nil {
			logger.WarnContext(ctx, "close statsd client failed", "error", err)
		}
	}()

	stack, err := bootstrap.BuildAuth(ctx, bootstrap.AuthDeps{
		Auth:    cfg.Auth,
		DB:      db,
		Redis:   redisClient,
		Metrics: metrics.Auth{Sink: sink},
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("build auth: %w", err)
	}
	cancelWatch := stack.Auth.Subscribe(func(s service.Snapshot) {
		attrs := []any{"authenticated", s.IsAuthenticated}
		if s.Principal != nil {
			attrs = append(attrs, "principal_id", s.Principal.ID, "role", s.Principal.Role.String())
		}
		logger.InfoContext(ctx, "authorization state changed", attrs...)
	})
	defer cancelWatch()

	if p := stack.Auth.Principal(); p != nil {
		logger.InfoContext(ctx, "restored session", "principal_id", p.ID, "role", p.Role.String())
	}

	srv := bootstrap.NewHTTPServer(&bootstrap.HTTPServerConfig{Config: cfg, Stack: stack, Logger: logger})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return bootstrap.ServeHTTP(srv, logger)
	})
	g.Go(func() error {
		<-gctx.Done()
		return bootstrap.ShutdownHTTPServer(gctx, srv, cfg.HTTP.ShutdownTimeout, logger)
	})
	return g.Wait()
}

// initInfrastructure connects only what the configured adapters need.
//
//nolint:ireturn // returning redis.UniversalClient keeps sentinel/cluster support flexible.
func initInfrastructure(
	ctx context.Context,
	cfg *config.AppConfig,
	logger *slog.Logger,
) (*sql.DB, redis.UniversalClient, error) {
	dbCfg := bootstrap.DatabaseConfig{DBConfig: cfg.Postgres, RedisConfig: cfg.Redis, Logger: logger}

	var db *sql.DB
	if cfg.NeedsPostgres() {
		var err error
		db, err = bootstrap.ConnectDB(ctx, dbCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("connect db: %w", err)
		}
		if cfg.Postgres.RunMigrationsOnStart {
			if err := bootstrap.RunMigrations(ctx, db, logger); err != nil {
				closeInfrastructure(ctx, db, nil, logger)
				return nil, nil, err
			}
		} else {
			logger.InfoContext(ctx, "skipping database migrations on startup", "reason", "disabled via config")
		}
	}

	var redisClient redis.UniversalClient
	if cfg.NeedsRedis() {
		var err error
		redisClient, err = bootstrap.ConnectRedis(ctx, dbCfg)
		if err != nil {
			closeInfrastructure(ctx, db, nil, logger)
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
	}
	return db, redisClient, nil
}

func closeInfrastructure(ctx context.Context, db *sql.DB, redisClient redis.UniversalClient, logger *slog.Logger) {
	if db != nil {
		if err := db.Close(); err != nil {
			logger.ErrorContext(ctx, "close database failed", "error", err)
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.ErrorContext(ctx, "close redis failed", "error", err)
		}
	}
}
