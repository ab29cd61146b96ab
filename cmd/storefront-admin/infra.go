package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/target/mmk-storefront/internal/bootstrap"
)

var errPostgresNotConfigured = errors.New("AUTH_DIRECTORY is not postgres")

type infra struct {
	db    *sql.DB
	redis redis.UniversalClient
}

func (i *infra) Close() error {
	var errs []error
	if i.db != nil {
		if err := i.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close db: %w", err))
		}
	}
	if i.redis != nil {
		if err := i.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	return errors.Join(errs...)
}

// connectInfra opens only the connections the configured adapters need.
func connectInfra(cmdCtx *commandContext) (*infra, error) {
	cfg := &cmdCtx.Config
	dbCfg := bootstrap.DatabaseConfig{DBConfig: cfg.Postgres, RedisConfig: cfg.Redis, Logger: cmdCtx.Logger}
	out := &infra{}

	if cfg.NeedsPostgres() {
		db, err := bootstrap.ConnectDB(cmdCtx.Ctx, dbCfg)
		if err != nil {
			return nil, fmt.Errorf("connect db: %w", err)
		}
		out.db = db
	}
	if cfg.NeedsRedis() {
		client, err := bootstrap.ConnectRedis(cmdCtx.Ctx, dbCfg)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("connect redis: %w", err), out.Close())
		}
		out.redis = client
	}
	return out, nil
}

// withStack builds the auth stack for one command and tears it down after.
func withStack(cmdCtx *commandContext, fn func(*bootstrap.AuthStack) error) error {
	conns, err := connectInfra(cmdCtx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := conns.Close(); cerr != nil {
			cmdCtx.Logger.Warn("close infra failed", "error", cerr)
		}
	}()

	stack, err := bootstrap.BuildAuth(cmdCtx.Ctx, bootstrap.AuthDeps{
		Auth:   cmdCtx.Config.Auth,
		DB:     conns.db,
		Redis:  conns.redis,
		Logger: cmdCtx.Logger,
	})
	if err != nil {
		return err
	}
	return fn(stack)
}

func contextWithTimeout(cmdCtx *commandContext, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(cmdCtx.Ctx)
	}
	return context.WithTimeout(cmdCtx.Ctx, d)
}
