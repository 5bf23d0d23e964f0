package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"kanban/internal/config"
	"kanban/internal/storage"
	"kanban/internal/storage/cache"
	"kanban/internal/storage/redisstore"
	"kanban/internal/storage/sqlite"
	"kanban/internal/storage/tables"
)

// openBackend builds the configured backend, wrapped in the Redis cache when
// enabled. The returned func releases everything that was opened.
func openBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Backend, func() error, error) {
	var (
		backend storage.Backend
		closers []func() error
		rdb     *redis.Client
	)
	closeAll := func() error {
		var first error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil && first == nil {
				first = err
			}
		}
		return first
	}
	redisClient := func() *redis.Client {
		if rdb == nil {
			rdb = redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			closers = append(closers, rdb.Close)
		}
		return rdb
	}

	switch cfg.Backend {
	case config.BackendLocal:
		store, err := sqlite.Open(cfg.DBPath, logger, sqlite.WithTimeout(cfg.Timeout))
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, store.Close)
		backend = store
	case config.BackendRedis:
		store := redisstore.New(redisClient(),
			redisstore.WithPrefix(cfg.Redis.Prefix), redisstore.WithTimeout(cfg.Timeout))
		if err := store.Ping(ctx); err != nil {
			_ = closeAll()
			return nil, nil, err
		}
		backend = store
	case config.BackendTables:
		store, err := tables.New(cfg.Tables.ConnectionString, cfg.Tables.Table, cfg.Timeout)
		if err != nil {
			return nil, nil, err
		}
		if err := store.EnsureTable(ctx); err != nil {
			return nil, nil, err
		}
		backend = store
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}

	if cfg.Cache.Enabled {
		backend = cache.New(backend, redisClient(), cfg.Cache.TTL)
		logger.Info("board cache enabled", slog.String("redis", cfg.Redis.Addr), slog.Duration("ttl", cfg.Cache.TTL))
	}
	logger.Info("backend ready", slog.String("backend", cfg.Backend))
	return backend, closeAll, nil
}
