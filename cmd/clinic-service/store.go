package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/config"
	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/store"
	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/store/boltdb"
	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/store/memory"
	"github.com/suryaa44-en/YOLO-Hospital-Management-Ecosystem/internal/store/postgres"
)

func openPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DB_DSN is required for the postgres store")
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return pool, nil
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := openPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return postgres.NewStore(pool), nil
	case config.DriverBolt:
		st, err := boltdb.Open(cfg.BoltPath)
		if err != nil {
			return nil, fmt.Errorf("open bolt store %s: %w", cfg.BoltPath, err)
		}
		return st, nil
	case config.DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
