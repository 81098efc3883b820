package identity

import (
	"errors"
	"fmt"

	"github.com/0xORB/blog-website/cmd/internal/validation"
	"github.com/0xORB/blog-website/cmd/security/password"
)

// Credentials sets and checks user passwords.
type Credentials struct {
	cfg password.Config

	// dummyHash is verified against when there is no real hash to check,
	// so unknown users cost the same as wrong passwords.
	dummyHash string
}

// NewCredentials builds Credentials for cfg.
func NewCredentials(cfg password.Config) (*Credentials, error) {
	dummy, err := cfg.DummyHash()
	if err != nil {
		return nil, fmt.Errorf("identity: dummy hash: %w", err)
	}
	return &Credentials{cfg: cfg, dummyHash: dummy}, nil
}

// SetPassword stores a fresh salted hash of plaintext on u.
// Policy failures come back as validation errors on the "password" field.
func (c *Credentials) SetPassword(u *User, plaintext string) error {
	const op = "identity.SetPassword"

	if u == nil {
		return invalid(op, "nil user")
	}

	h, err := c.cfg.Hash(plaintext)
	if err != nil {
		if msg, ok := policyMessage(err); ok {
			return fmt.Errorf("%s: %w", op, validation.Errors{{
				Field: "password",
				Rule:  validation.RulePasswordRejected,
				Msg:   msg,
			}})
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	u.PasswordHash = h
	return nil
}

// CheckPassword reports whether plaintext is the password last set on u.
// It never errors: malformed or missing hashes simply do not match.
func (c *Credentials) CheckPassword(u User, plaintext string) bool {
	if plaintext == "" || len(plaintext) > c.cfg.MaxInputBytes() || u.PasswordHash == "" {
		c.burn(plaintext)
		return false
	}
	ok, err := c.cfg.Verify(u.PasswordHash, plaintext)
	if err != nil {
		return false
	}
	return ok
}

// NeedsRehash reports whether u's stored hash predates the current parameters.
func (c *Credentials) NeedsRehash(u User) bool {
	return u.PasswordHash != "" && c.cfg.NeedsRehash(u.PasswordHash)
}

// burn spends one verification on the dummy hash.
func (c *Credentials) burn(plaintext string) {
	if n := c.cfg.MaxInputBytes(); len(plaintext) > n {
		plaintext = plaintext[:n]
	}
	_, _ = c.cfg.Verify(c.dummyHash, plaintext)
}

func policyMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, password.ErrPasswordEmpty):
		return "This field is required.", true
	case errors.Is(err, password.ErrPasswordTooShort):
		return "Password is too short.", true
	case errors.Is(err, password.ErrPasswordTooLong):
		return "Password is too long.", true
	case errors.Is(err, password.ErrWeakPassword):
		return "Password is too weak.", true
	default:
		return "", false
	}
}
