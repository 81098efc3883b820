package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/0xORB/blog-website/cmd/internal/migrations"
)

// NewDBPool builds a pgxpool with sane defaults and validates connectivity.
// It does not run migrations; see migrate.
func NewDBPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	if cfg.DBMaxConns > 0 {
		pcfg.MaxConns = cfg.DBMaxConns
	}
	if cfg.DBMinConns >= 0 {
		pcfg.MinConns = cfg.DBMinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}

	if err := PingDB(ctx, pool, 3*time.Second); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

// PingDB checks if we can acquire a connection within timeout.
func PingDB(parent context.Context, pool *pgxpool.Pool, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	conn.Release()
	return nil
}

// migrate applies the embedded goose migrations when BLOG_DB_AUTO_MIGRATE is set.
func migrate(ctx context.Context, cfg Config, pool *pgxpool.Pool, log *slog.Logger) error {
	if !cfg.DBAutoMigrate {
		log.Info("db.migrate.skip")
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	v, err := migrations.UpPool(ctx, pool)
	if err != nil {
		return err
	}
	log.Info("db.migrate.ok", "version", v)
	return nil
}
