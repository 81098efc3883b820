package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store over PostgreSQL.
//
// The pgx pool is owned by the caller; this store never closes it.
// Table identifiers are quoted through pgx.Identifier.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// DefaultSchema is where the migrations create the tables.
const DefaultSchema = "blog"

// WithSchema sets the Postgres schema used by the store (default "blog").
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return fmt.Errorf("identity: empty schema")
		}
		if !PgIdentIsValid(schema) {
			return fmt.Errorf("identity: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		schema: DefaultSchema,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("identity: nil pool")
	}
	return st, nil
}

const userColumns = `id, username, email, password_hash, about_me, last_seen, created_at`

func scanUser(row pgx.Row) (User, error) {
	var (
		u        User
		lastSeen *time.Time
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.AboutMe, &lastSeen, &u.CreatedAt); err != nil {
		return User{}, err
	}
	if lastSeen != nil {
		ts := lastSeen.UTC()
		u.LastSeen = &ts
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}

// CreateUser inserts a user. The unique constraints decide races between
// concurrent registrations.
func (s *PostgresStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

	if s == nil || s.pool == nil {
		return User{}, invalid(op, "nil store")
	}
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	if in.Username == "" || in.Email == "" {
		return User{}, invalid(op, "username and email are required")
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	users := PgIdent(s.schema, "users")
	row := s.pool.QueryRow(ctx,
		`INSERT INTO `+users+` (username, email, password_hash, about_me, created_at)
		 VALUES ($1, $2, $3, '', $4)
		 RETURNING `+userColumns,
		in.Username, in.Email, in.PasswordHash, now.UTC(),
	)

	u, err := scanUser(row)
	if err != nil {
		if field, ok := pgClassifyUniqueViolation(err); ok {
			return User{}, ConflictError{Op: op, Field: field}
		}
		return User{}, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id int64) (User, error) {
	return s.getOne(ctx, "identity.GetUserByID", "id", id)
}

func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (User, error) {
	return s.getOne(ctx, "identity.GetUserByUsername", "username", username)
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return s.getOne(ctx, "identity.GetUserByEmail", "email", email)
}

// getOne reads one user by a trusted column name.
func (s *PostgresStore) getOne(ctx context.Context, op, column string, arg any) (User, error) {
	if s == nil || s.pool == nil {
		return User{}, invalid(op, "nil store")
	}
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	users := PgIdent(s.schema, "users")
	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM `+users+` WHERE `+column+` = $1`,
		arg,
	)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, NotFoundError{Op: op, Resource: "user"}
		}
		return User{}, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// UpdateProfile writes username and about_me in one statement.
func (s *PostgresStore) UpdateProfile(ctx context.Context, in UpdateProfileInput) (User, error) {
	const op = "identity.UpdateProfile"

	if s == nil || s.pool == nil {
		return User{}, invalid(op, "nil store")
	}
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	if in.Username == "" {
		return User{}, invalid(op, "username is required")
	}

	users := PgIdent(s.schema, "users")
	row := s.pool.QueryRow(ctx,
		`UPDATE `+users+`
		    SET username = $2, about_me = $3
		  WHERE id = $1
		 RETURNING `+userColumns,
		in.UserID, in.Username, in.AboutMe,
	)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, NotFoundError{Op: op, Resource: "user"}
		}
		if field, ok := pgClassifyUniqueViolation(err); ok {
			return User{}, ConflictError{Op: op, Field: field}
		}
		return User{}, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

func (s *PostgresStore) UpdatePasswordHash(ctx context.Context, userID int64, hash string) error {
	const op = "identity.UpdatePasswordHash"

	if strings.TrimSpace(hash) == "" {
		return invalid(op, "empty hash")
	}
	return s.execOne(ctx, op, `SET password_hash = $2 WHERE id = $1`, userID, hash)
}

func (s *PostgresStore) TouchLastSeen(ctx context.Context, userID int64, now time.Time) error {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return s.execOne(ctx, "identity.TouchLastSeen", `SET last_seen = $2 WHERE id = $1`, userID, now.UTC())
}

// execOne runs "UPDATE users <tail>" and requires exactly one affected row.
func (s *PostgresStore) execOne(ctx context.Context, op, tail string, args ...any) error {
	if s == nil || s.pool == nil {
		return invalid(op, "nil store")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	users := PgIdent(s.schema, "users")
	tag, err := s.pool.Exec(ctx, `UPDATE `+users+` `+tail, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return NotFoundError{Op: op, Resource: "user"}
	}
	return nil
}

// PgIdentIsValid reports whether s is a plain, unquoted Postgres identifier.
func PgIdentIsValid(s string) bool {
	return pgIdentRe.MatchString(s)
}

// PgIdent returns the quoted schema-qualified name of a table.
func PgIdent(schema, name string) string {
	return pgx.Identifier{schema, name}.Sanitize()
}

func pgClassifyUniqueViolation(err error) (field string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}
	if pgErr.Code != "23505" { // unique_violation
		return "", false
	}

	// Prefer the migration's constraint names; fall back to substring matching.
	c := strings.ToLower(strings.TrimSpace(pgErr.ConstraintName))
	switch c {
	case "uq_users_username":
		return "username", true
	case "uq_users_email":
		return "email", true
	default:
		switch {
		case strings.Contains(c, "username"):
			return "username", true
		case strings.Contains(c, "email"):
			return "email", true
		default:
			return "unique", true
		}
	}
}
