package migrations_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/0xORB/blog-website/cmd/internal/migrations"
	"github.com/0xORB/blog-website/cmd/internal/pgtest"
)

func TestUpSchema_Postgres(t *testing.T) {
	pool := pgtest.OpenPool(t)
	schema := pgtest.NewSchema(t, pool)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	v, err := migrations.UpSchema(ctx, pool, schema)
	if err != nil {
		t.Fatalf("second UpSchema: %v", err)
	}
	if v != 3 {
		t.Fatalf("version=%d want 3", v)
	}

	for _, table := range []string{"users", "follows", "sessions", "goose_db_version"} {
		var found bool
		q := `SELECT to_regclass($1) IS NOT NULL`
		if err := pool.QueryRow(ctx, q, pgx.Identifier{schema, table}.Sanitize()).Scan(&found); err != nil {
			t.Fatalf("to_regclass %s: %v", table, err)
		}
		if !found {
			t.Fatalf("table %s missing from %s", table, schema)
		}
	}
}
