package storage

import (
	"context"
	"fmt"

	"coinwatch/config"
	"coinwatch/pkg/storage/file"
	"coinwatch/pkg/storage/memory"
	"coinwatch/pkg/storage/postgres"
	"coinwatch/pkg/storage/redis"
	"coinwatch/pkg/storage/sqlite"

	"go.uber.org/zap"
)

// Backend persists the ordered list of watched coin ids under one key.
type Backend interface {
	LoadWatchlist(ctx context.Context) ([]string, error)
	SaveWatchlist(ctx context.Context, ids []string) error
	IsHealthy(ctx context.Context) bool
	Close() error
}

// Open builds the backend selected by cfg.Storage.Backend.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Backend, error) {
	key := cfg.Storage.Key

	var (
		backend Backend
		err     error
	)
	switch cfg.Storage.Backend {
	case "memory":
		backend = memory.NewStore(key)
	case "file":
		backend, err = file.NewStore(cfg.Storage.File.Path, key)
	case "sqlite":
		backend, err = sqlite.NewStore(cfg.Storage.SQLite.Path, key)
	case "postgres":
		backend, err = postgres.InitializeAndMigrate(cfg.Postgres, cfg.Log.Environment, key, cfg.Log.Environment != "prod")
	case "redis":
		backend, err = redis.NewStore(ctx, redis.NewClient(cfg.Redis), cfg.Redis.KeyPrefix, key)
	default:
		return nil, fmt.Errorf("unknown storage backend: %q", cfg.Storage.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.Storage.Backend, err)
	}

	logger.Info("watchlist storage ready", zap.String("backend", cfg.Storage.Backend), zap.String("key", key))
	return backend, nil
}
