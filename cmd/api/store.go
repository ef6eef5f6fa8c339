package main

import (
	"context"
	"fmt"
	"log/slog"

	"urlshortener.local/internal/app/shortlink"
	"urlshortener.local/internal/app/shortlink/repo"
	"urlshortener.local/internal/app/shortlink/stats"
	"urlshortener.local/internal/platform/config"
	"urlshortener.local/internal/platform/db"
	"urlshortener.local/internal/platform/migrate"
	"urlshortener.local/migrations"
)

// store 是 main 需要的全部存储能力：短链、点击统计、就绪检查。
type store interface {
	shortlink.Store
	stats.Sink
	Ping(ctx context.Context) error
	Close() error
}

// pgStore 给 PostgresStore 补上 Close，关闭底层连接池。
type pgStore struct {
	*repo.PostgresStore
	close func()
}

func (s pgStore) Close() error {
	s.close()
	return nil
}

type memStore struct {
	*repo.MemoryStore
}

func (memStore) Close() error { return nil }

func openStore(ctx context.Context, cfg config.Config) (store, error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		pool, err := db.New(ctx, cfg.DBDSN)
		if err != nil {
			return nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ping db: %w", err)
		}
		res, err := migrate.Up(ctx, pool, migrate.Options{FS: migrations.FS})
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		slog.Info("数据库连接成功", "applied", res.AppliedFiles, "skipped", len(res.SkippedFiles))
		return pgStore{PostgresStore: repo.NewPostgresStore(pool), close: pool.Close}, nil
	case config.StoreSQLite:
		s, err := repo.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		slog.Info("sqlite store opened", "path", cfg.SQLitePath)
		return s, nil
	case config.StoreMemory:
		slog.Warn("memory store: data is lost on restart")
		return memStore{repo.NewMemoryStore()}, nil
	default:
		return nil, fmt.Errorf("%w: STORE_DRIVER %q", config.ErrInvalidConfig, cfg.StoreDriver)
	}
}
