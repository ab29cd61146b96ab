package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/target/mmk-storefront/config"
	"github.com/target/mmk-storefront/internal/adapters/authroles"
	"github.com/target/mmk-storefront/internal/adapters/directory"
	"github.com/target/mmk-storefront/internal/adapters/kvstore"
	"github.com/target/mmk-storefront/internal/adapters/postgres"
	redisadapter "github.com/target/mmk-storefront/internal/adapters/redis"
	"github.com/target/mmk-storefront/internal/devseed"
	"github.com/target/mmk-storefront/internal/ports"
	"github.com/target/mmk-storefront/internal/service"
)

// AuthDeps groups what BuildAuth needs. DB and Redis are only required by
// the backends that use them.
type AuthDeps struct {
	Auth   config.AuthConfig
	DB     *sql.DB
	Redis  redis.UniversalClient
	Grants authroles.DefaultGrants
	// Metrics is optional; nil disables login metrics.
	Metrics ports.AuthMetrics
	Logger  *slog.Logger
}

// AuthStack is the wired session engine.
type AuthStack struct {
	Directory ports.Directory
	Store     ports.KVStore
	Sessions  *service.SessionStore
	Auth      *service.AuthContext
	Guard     *service.Guard
}

// BuildAuth wires directory, KV store, session store, auth context and guard.
func BuildAuth(ctx context.Context, deps AuthDeps) (*AuthStack, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dir, err := BuildDirectory(ctx, deps)
	if err != nil {
		return nil, err
	}
	store, err := BuildKVStore(deps.Auth, deps.Redis, logger)
	if err != nil {
		return nil, err
	}

	sessions := service.NewSessionStore(service.SessionStoreOptions{
		Directory: dir,
		Store:     store,
		Metrics:   deps.Metrics,
		Logger:    logger,
	})
	ac := service.NewAuthContext(ctx, service.AuthContextOptions{Sessions: sessions, Logger: logger})

	logger.InfoContext(ctx, "auth engine ready",
		"store", string(deps.Auth.Store),
		"directory", string(deps.Auth.Directory),
		"authenticated", ac.IsAuthenticated(),
	)

	return &AuthStack{
		Directory: dir,
		Store:     store,
		Sessions:  sessions,
		Auth:      ac,
		Guard:     service.NewGuard(ac),
	}, nil
}

// BuildKVStore selects the session backend.
//
//nolint:ireturn // the backend is chosen at runtime.
func BuildKVStore(cfg config.AuthConfig, client redis.UniversalClient, logger *slog.Logger) (ports.KVStore, error) {
	switch cfg.Store {
	case config.StoreMemory:
		return kvstore.NewMemory(), nil
	case config.StoreFile, "":
		f, err := kvstore.NewFile(cfg.StateFile, logger)
		if err != nil {
			return nil, fmt.Errorf("open session file: %w", err)
		}
		return f, nil
	case config.StoreRedis:
		if client == nil {
			return nil, errors.New("AUTH_STORE=redis requires a redis client")
		}
		return redisadapter.NewKVStore(client, redisadapter.Options{Prefix: cfg.KeyPrefix, TTL: cfg.SessionTTL}), nil
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.Store)
	}
}

// BuildDirectory selects the credential directory and seeds demo principals
// when configured.
//
//nolint:ireturn // the directory is chosen at runtime.
func BuildDirectory(ctx context.Context, deps AuthDeps) (ports.Directory, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var (
		dir    ports.Directory
		target devseed.Upserter
	)
	switch deps.Auth.Directory {
	case config.DirectoryMemory, "":
		mem, err := directory.NewMemoryDirectory(directory.Config{
			Latency:  deps.Auth.LoginLatency,
			HashCost: deps.Auth.BcryptCost,
			Logger:   logger,
		})
		if err != nil {
			return nil, err
		}
		dir, target = mem, mem
	case config.DirectoryPostgres:
		if deps.DB == nil {
			return nil, errors.New("AUTH_DIRECTORY=postgres requires a database")
		}
		pg := postgres.NewDirectory(deps.DB, logger)
		dir, target = pg, pg
	default:
		return nil, fmt.Errorf("unknown directory %q", deps.Auth.Directory)
	}

	if !deps.Auth.SeedDemo {
		if deps.Auth.Directory != config.DirectoryPostgres {
			logger.WarnContext(ctx, "memory directory has no principals; set AUTH_SEED_DEMO=true")
		}
		return dir, nil
	}
	records, err := devseed.Records(deps.Grants, deps.Auth.BcryptCost)
	if err != nil {
		return nil, err
	}
	if err := devseed.Seed(ctx, target, records, logger); err != nil {
		return nil, err
	}
	return dir, nil
}
