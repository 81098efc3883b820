package social

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/0xORB/blog-website/cmd/identity"
)

// PostgresStore implements Store over the follows table.
// The pool is owned by the caller.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

// WithSchema sets the Postgres schema used by the store (default "blog").
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if !identity.PgIdentIsValid(schema) {
			return fmt.Errorf("social: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{pool: pool, schema: identity.DefaultSchema}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("social: nil pool")
	}
	return st, nil
}

func (s *PostgresStore) follows() string { return identity.PgIdent(s.schema, "follows") }

// AddEdge relies on the primary key: a concurrent duplicate insert is
// absorbed by ON CONFLICT DO NOTHING rather than failing.
func (s *PostgresStore) AddEdge(ctx context.Context, followerID, followedID int64, now time.Time) (bool, error) {
	const op = "social.AddEdge"

	if err := ctx.Err(); err != nil {
		return false, err
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO `+s.follows()+` (follower_id, followed_id, created_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (follower_id, followed_id) DO NOTHING`,
		followerID, followedID, now.UTC(),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23503": // foreign_key_violation
				return false, identity.NotFoundError{Op: op, Resource: "user"}
			case "23514": // check_violation
				return false, SelfFollowError{Op: op, UserID: followerID}
			}
		}
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) RemoveEdge(ctx context.Context, followerID, followedID int64) (bool, error) {
	const op = "social.RemoveEdge"

	if err := ctx.Err(); err != nil {
		return false, err
	}

	tag, err := s.pool.Exec(ctx,
		`DELETE FROM `+s.follows()+` WHERE follower_id = $1 AND followed_id = $2`,
		followerID, followedID,
	)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) HasEdge(ctx context.Context, followerID, followedID int64) (bool, error) {
	const op = "social.HasEdge"

	if err := ctx.Err(); err != nil {
		return false, err
	}

	var ok bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM `+s.follows()+` WHERE follower_id = $1 AND followed_id = $2)`,
		followerID, followedID,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return ok, nil
}

func (s *PostgresStore) CountFollowers(ctx context.Context, userID int64) (int, error) {
	return s.count(ctx, "social.CountFollowers", "followed_id", userID)
}

func (s *PostgresStore) CountFollowing(ctx context.Context, userID int64) (int, error) {
	return s.count(ctx, "social.CountFollowing", "follower_id", userID)
}

func (s *PostgresStore) count(ctx context.Context, op, column string, userID int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM `+s.follows()+` WHERE `+column+` = $1`,
		userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

func (s *PostgresStore) ListFollowers(ctx context.Context, userID int64, limit int) ([]int64, error) {
	return s.list(ctx, "social.ListFollowers", "follower_id", "followed_id", userID, limit)
}

func (s *PostgresStore) ListFollowing(ctx context.Context, userID int64, limit int) ([]int64, error) {
	return s.list(ctx, "social.ListFollowing", "followed_id", "follower_id", userID, limit)
}

func (s *PostgresStore) list(ctx context.Context, op, selectCol, whereCol string, userID int64, limit int) ([]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+selectCol+` FROM `+s.follows()+`
		  WHERE `+whereCol+` = $1
		  ORDER BY created_at DESC, `+selectCol+` DESC
		  LIMIT $2`,
		userID, clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}
