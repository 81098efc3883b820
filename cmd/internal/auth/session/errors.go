package session

import "errors"

var (
	// ErrInvalidToken is returned when an access token fails verification.
	ErrInvalidToken = errors.New("invalid token")

	// ErrSessionNotFound is returned when no session matches an id or token hash.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired is returned when the session is past expires_at.
	ErrSessionExpired = errors.New("session expired")

	// ErrSessionRevoked is returned when the session has been logged out.
	ErrSessionRevoked = errors.New("session revoked")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)
