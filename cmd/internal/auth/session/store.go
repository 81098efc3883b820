package session

import (
	"context"
	"net/netip"
	"time"
)

// Row mirrors the sessions table.
type Row struct {
	ID         string
	UserID     int64
	TokenHash  string
	Remember   bool
	CreatedAt  time.Time
	LastUsedAt *time.Time
	ExpiresAt  time.Time
	RevokedAt  *time.Time
	UserAgent  string
	IP         netip.Addr // zero when the client address was unknown
}

// Check reports why the row cannot authenticate a request at now, or nil.
func (r Row) Check(now time.Time) error {
	if r.RevokedAt != nil {
		return ErrSessionRevoked
	}
	if !r.ExpiresAt.After(now) {
		return ErrSessionExpired
	}
	return nil
}

// CreateInput is a new session. ID and TokenHash are minted by the Service.
type CreateInput struct {
	ID        string
	UserID    int64
	TokenHash string
	Remember  bool
	UserAgent string
	IP        netip.Addr
	Now       time.Time
	ExpiresAt time.Time
}

// Store abstracts persistence for session state.
//
// Lookups return ErrSessionNotFound when no row matches. Revoke keeps the
// first revocation time and is a no-op for unknown ids.
type Store interface {
	Create(ctx context.Context, in CreateInput) (Row, error)
	GetByID(ctx context.Context, sessionID string) (Row, error)
	GetByTokenHash(ctx context.Context, tokenHash string) (Row, error)
	Touch(ctx context.Context, now time.Time, sessionID string) error
	Revoke(ctx context.Context, now time.Time, sessionID string) error
}
