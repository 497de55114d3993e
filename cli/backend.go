package cli

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/starshipcosmos/authstore/session"
)

// openBackend connects the configured backend. The returned func releases it.
func openBackend(ctx context.Context, cfg Config) (session.Backend, func(), error) {
	switch cfg.Backend {
	case backendMemory:
		return session.NewMemoryBackend(), func() {}, nil

	case backendSQLite:
		b, err := session.NewSQLiteBackend(session.SQLiteStoreConfig{DSN: cfg.SQLite.DSN})
		if err != nil {
			return nil, nil, exitError(exitStorage, "%v", err)
		}
		return b, func() { _ = b.Close() }, nil

	case backendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		b := session.NewRedisBackend(client, cfg.Redis.Prefix, cfg.Redis.TTL)
		if _, err := b.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, nil, exitError(exitStorage, "%v", err)
		}
		return b, func() { _ = client.Close() }, nil

	case backendPostgres:
		pool, err := session.NewPostgresPool(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, exitError(exitStorage, "%v", err)
		}
		b, err := session.NewPostgresBackend(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, exitError(exitStorage, "%v", err)
		}
		return b, pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
