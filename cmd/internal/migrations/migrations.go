// Package migrations owns the database schema. The SQL files are embedded,
// name their tables without a schema, and are applied with goose inside the
// target schema at startup when BLOG_DB_AUTO_MIGRATE is on.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed sql/*.sql
var files embed.FS

const dir = "sql"

// DefaultSchema holds the tables unless a store is configured otherwise.
const DefaultSchema = "blog"

var (
	gooseUpContext  = goose.UpContext
	gooseVersion    = goose.GetDBVersionContext
	gooseSetDialect = goose.SetDialect
	gooseSetBaseFS  = goose.SetBaseFS
	openDB          = stdlib.OpenDB
)

// Up applies every pending migration to db and returns the resulting version.
func Up(ctx context.Context, db *sql.DB) (int64, error) {
	gooseSetBaseFS(files)
	if err := gooseSetDialect("postgres"); err != nil {
		return 0, fmt.Errorf("migrations: dialect: %w", err)
	}

	if err := gooseUpContext(ctx, db, dir); err != nil {
		return 0, fmt.Errorf("migrations: up: %w", err)
	}

	v, err := gooseVersion(ctx, db)
	if err != nil {
		return 0, fmt.Errorf("migrations: version: %w", err)
	}
	return v, nil
}

// UpPool applies the migrations inside DefaultSchema.
func UpPool(ctx context.Context, pool *pgxpool.Pool) (int64, error) {
	return UpSchema(ctx, pool, DefaultSchema)
}

// UpSchema creates schema when missing and applies every pending migration
// inside it. The goose version table lives in schema too, so each schema
// tracks its own version.
func UpSchema(ctx context.Context, pool *pgxpool.Pool, schema string) (int64, error) {
	if strings.TrimSpace(schema) == "" {
		return 0, fmt.Errorf("migrations: empty schema")
	}
	if pool == nil {
		return 0, fmt.Errorf("migrations: nil pool")
	}

	if _, err := pool.Exec(ctx, `CREATE SCHEMA IF NOT EXISTS `+pgx.Identifier{schema}.Sanitize()); err != nil {
		return 0, fmt.Errorf("migrations: create schema: %w", err)
	}

	db := openDB(schemaConnConfig(pool.Config().ConnConfig, schema))
	defer func() { _ = db.Close() }()
	db.SetMaxOpenConns(1)

	return Up(ctx, db)
}

// schemaConnConfig copies base with search_path pinned to schema.
func schemaConnConfig(base *pgx.ConnConfig, schema string) pgx.ConnConfig {
	cc := base.Copy()
	if cc.RuntimeParams == nil {
		cc.RuntimeParams = make(map[string]string)
	}
	cc.RuntimeParams["search_path"] = pgx.Identifier{schema}.Sanitize()
	return *cc
}

// Files lists the embedded migration file names in apply order.
func Files() ([]string, error) {
	entries, err := files.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name())
	}
	return out, nil
}
