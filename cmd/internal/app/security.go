package app

import (
	"errors"

	"github.com/0xORB/blog-website/cmd/internal/auth/session"
	"github.com/0xORB/blog-website/cmd/security/token"
)

// ValidateSecurityConfig enforces the startup security policy.
//
// Fail-fast: a production process must not run on a generated signing key
// or fall back to plain SHA-256 token digests when the operator asked for secrets.
func ValidateSecurityConfig(cfg Config, sess session.Config) error {
	if cfg.RequireSecrets && sess.EphemeralKey {
		return errors.New("security policy: BLOG_REQUIRE_SECRETS=true but BLOG_SESSION_SIGNING_KEY is missing")
	}

	if !cfg.RequireTokenHMAC {
		return nil
	}

	// Bytes, not runes: the key is used raw.
	if _, err := token.HMACKeyFromEnv(32); err != nil {
		switch {
		case errors.Is(err, token.ErrHMACKeyMissing):
			return errors.New("security policy: BLOG_REQUIRE_TOKEN_HMAC=true but BLOG_TOKEN_HMAC_KEY is missing")
		case errors.Is(err, token.ErrHMACKeyTooShort):
			return errors.New("security policy: BLOG_REQUIRE_TOKEN_HMAC=true but BLOG_TOKEN_HMAC_KEY is too short (min 32 bytes)")
		default:
			return err
		}
	}

	if !token.HMACEnabled() {
		return errors.New("security policy: BLOG_REQUIRE_TOKEN_HMAC=true but token hasher is not in HMAC mode")
	}

	return nil
}
