package session

import (
	"crypto/rand"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// MinSigningKeyBytes is the shortest accepted HS256 key.
const MinSigningKeyBytes = 32

// Config defines runtime configuration for sessions, access tokens and the
// session cookie.
type Config struct {
	// Issuer is the "iss" claim of access tokens.
	Issuer string

	// AccessTokenTTL is the lifetime of JWT access tokens.
	AccessTokenTTL time.Duration

	// SessionTTL bounds sessions created without remember-me.
	SessionTTL time.Duration
	// RememberTTL bounds remember-me sessions.
	RememberTTL time.Duration

	// ClockSkew is the leeway applied when validating token times.
	ClockSkew time.Duration

	// SigningKey is the HS256 secret. EphemeralKey is set when it was
	// generated at startup because none was configured.
	SigningKey   []byte
	EphemeralKey bool

	CookieName     string
	CookiePath     string
	CookieDomain   string
	CookieSecure   bool
	CookieSameSite http.SameSite
}

// DefaultConfig returns development defaults without a signing key.
func DefaultConfig() Config {
	return Config{
		Issuer:         "blog",
		AccessTokenTTL: 15 * time.Minute,
		SessionTTL:     24 * time.Hour,
		RememberTTL:    365 * 24 * time.Hour,
		ClockSkew:      30 * time.Second,
		CookieName:     "blog_session",
		CookiePath:     "/",
		CookieSecure:   false,
		CookieSameSite: http.SameSiteLaxMode,
	}
}

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Optional (durations must be valid Go duration strings):
//   - BLOG_SESSION_ISSUER
//   - BLOG_SESSION_ACCESS_TTL
//   - BLOG_SESSION_TTL
//   - BLOG_SESSION_REMEMBER_TTL
//   - BLOG_SESSION_CLOCK_SKEW
//   - BLOG_SESSION_SIGNING_KEY (>= 32 bytes; a random key is generated when unset)
//   - BLOG_COOKIE_NAME, BLOG_COOKIE_PATH, BLOG_COOKIE_DOMAIN
//   - BLOG_COOKIE_SECURE (bool)
//   - BLOG_COOKIE_SAMESITE (lax|strict|none)
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := strings.TrimSpace(os.Getenv("BLOG_SESSION_ISSUER")); v != "" {
		cfg.Issuer = v
	}

	durations := []struct {
		key       string
		dst       *time.Duration
		allowZero bool
	}{
		{"BLOG_SESSION_ACCESS_TTL", &cfg.AccessTokenTTL, false},
		{"BLOG_SESSION_TTL", &cfg.SessionTTL, false},
		{"BLOG_SESSION_REMEMBER_TTL", &cfg.RememberTTL, false},
		{"BLOG_SESSION_CLOCK_SKEW", &cfg.ClockSkew, true},
	}
	for _, d := range durations {
		v := strings.TrimSpace(os.Getenv(d.key))
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil || parsed < 0 || (parsed == 0 && !d.allowZero) {
			return Config{}, ErrConfig
		}
		*d.dst = parsed
	}

	// A remember-me session must not be shorter than a plain one.
	if cfg.RememberTTL < cfg.SessionTTL {
		return Config{}, ErrConfig
	}

	if v := strings.TrimSpace(os.Getenv("BLOG_SESSION_SIGNING_KEY")); v != "" {
		if len(v) < MinSigningKeyBytes {
			return Config{}, ErrConfig
		}
		cfg.SigningKey = []byte(v)
	} else {
		key := make([]byte, MinSigningKeyBytes)
		if _, err := rand.Read(key); err != nil {
			return Config{}, err
		}
		cfg.SigningKey = key
		cfg.EphemeralKey = true
	}

	if v := strings.TrimSpace(os.Getenv("BLOG_COOKIE_NAME")); v != "" {
		cfg.CookieName = v
	}
	if v := strings.TrimSpace(os.Getenv("BLOG_COOKIE_PATH")); v != "" {
		cfg.CookiePath = v
	}
	cfg.CookieDomain = strings.TrimSpace(os.Getenv("BLOG_COOKIE_DOMAIN"))

	if v := strings.TrimSpace(os.Getenv("BLOG_COOKIE_SECURE")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, ErrConfig
		}
		cfg.CookieSecure = b
	}

	if v := strings.TrimSpace(os.Getenv("BLOG_COOKIE_SAMESITE")); v != "" {
		switch strings.ToLower(v) {
		case "lax":
			cfg.CookieSameSite = http.SameSiteLaxMode
		case "strict":
			cfg.CookieSameSite = http.SameSiteStrictMode
		case "none":
			// Browsers drop SameSite=None cookies that are not Secure.
			if !cfg.CookieSecure {
				return Config{}, ErrConfig
			}
			cfg.CookieSameSite = http.SameSiteNoneMode
		default:
			return Config{}, ErrConfig
		}
	}

	return cfg, nil
}
