package identity

import (
	"context"
	"time"
)

// CreateUserInput is a fully validated registration.
// PasswordHash is already encoded; stores never see plaintext.
type CreateUserInput struct {
	Username     string
	Email        string
	PasswordHash string
	Now          time.Time
}

// UpdateProfileInput replaces the mutable profile fields of one user.
type UpdateProfileInput struct {
	UserID   int64
	Username string
	AboutMe  string
}

// Store is the user persistence boundary.
//
// Contract:
//   - CreateUser and UpdateProfile return ConflictError{Field: "username"|"email"}
//     when a unique key is already held by another user, atomically with the write.
//   - Lookups return NotFoundError when no row matches. Matching is exact.
type Store interface {
	CreateUser(ctx context.Context, in CreateUserInput) (User, error)

	GetUserByID(ctx context.Context, id int64) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)

	UpdateProfile(ctx context.Context, in UpdateProfileInput) (User, error)
	UpdatePasswordHash(ctx context.Context, userID int64, hash string) error
	TouchLastSeen(ctx context.Context, userID int64, now time.Time) error
}
