package session

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/0xORB/blog-website/cmd/identity"
)

// PostgresStore implements Store over the sessions table.
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
			return fmt.Errorf("session: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore creates a Postgres-backed session store.
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
		return nil, fmt.Errorf("session: nil pool")
	}
	return st, nil
}

func (s *PostgresStore) table() string { return identity.PgIdent(s.schema, "sessions") }

const rowColumns = `id, user_id, token_hash, remember, created_at, last_used_at, expires_at, revoked_at, user_agent, ip`

func scanRow(row pgx.Row) (Row, error) {
	var (
		r  Row
		ua *string
		ip *netip.Addr
	)
	if err := row.Scan(
		&r.ID,
		&r.UserID,
		&r.TokenHash,
		&r.Remember,
		&r.CreatedAt,
		&r.LastUsedAt,
		&r.ExpiresAt,
		&r.RevokedAt,
		&ua,
		&ip,
	); err != nil {
		return Row{}, err
	}
	if ua != nil {
		r.UserAgent = *ua
	}
	if ip != nil {
		r.IP = *ip
	}
	return r, nil
}

// Create inserts a new session row.
func (s *PostgresStore) Create(ctx context.Context, in CreateInput) (Row, error) {
	const op = "session.Create"

	var ip any
	if in.IP.IsValid() {
		ip = in.IP
	}

	row, err := scanRow(s.pool.QueryRow(ctx, `
		INSERT INTO `+s.table()+` (
			id, user_id, token_hash, remember,
			created_at, last_used_at, expires_at, revoked_at,
			user_agent, ip
		) VALUES (
			$1, $2, $3, $4,
			$5, $5, $6, NULL,
			$7, $8
		)
		RETURNING `+rowColumns,
		in.ID, in.UserID, in.TokenHash, in.Remember,
		in.Now.UTC(), in.ExpiresAt.UTC(),
		nullIfEmpty(in.UserAgent), ip,
	))
	if err != nil {
		return Row{}, fmt.Errorf("%s: %w", op, err)
	}
	return row, nil
}

// GetByID loads a session row by id.
func (s *PostgresStore) GetByID(ctx context.Context, sessionID string) (Row, error) {
	return s.getOne(ctx, "session.GetByID", "id", sessionID)
}

// GetByTokenHash loads a session row by cookie token hash.
func (s *PostgresStore) GetByTokenHash(ctx context.Context, tokenHash string) (Row, error) {
	return s.getOne(ctx, "session.GetByTokenHash", "token_hash", tokenHash)
}

func (s *PostgresStore) getOne(ctx context.Context, op, column, value string) (Row, error) {
	row, err := scanRow(s.pool.QueryRow(ctx,
		`SELECT `+rowColumns+` FROM `+s.table()+` WHERE `+column+` = $1`,
		value,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return Row{}, ErrSessionNotFound
	}
	if err != nil {
		return Row{}, fmt.Errorf("%s: %w", op, err)
	}
	return row, nil
}

// Touch updates last_used_at for a session.
func (s *PostgresStore) Touch(ctx context.Context, now time.Time, sessionID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE `+s.table()+`
		SET last_used_at = $2
		WHERE id = $1
	`, sessionID, now.UTC())
	return err
}

// Revoke revokes a single session (idempotent).
func (s *PostgresStore) Revoke(ctx context.Context, now time.Time, sessionID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE `+s.table()+`
		SET revoked_at = COALESCE(revoked_at, $2)
		WHERE id = $1
	`, sessionID, now.UTC())
	return err
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
