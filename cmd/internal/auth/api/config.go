package authapi

import (
	"os"
	"strconv"
	"strings"
)

// Config controls auth API behavior.
type Config struct {
	// TrustProxy honours X-Forwarded-For / X-Real-IP when recording session IPs.
	TrustProxy   bool
	MaxBodyBytes int64
	// DefaultNext is where a login sends the browser when no safe next page was given.
	DefaultNext string
}

// LoadConfigFromEnv loads auth config from environment variables with safe defaults.
func LoadConfigFromEnv() Config {
	cfg := Config{
		TrustProxy:   envBool("BLOG_AUTH_TRUST_PROXY", false),
		MaxBodyBytes: envInt64("BLOG_AUTH_MAX_BODY_BYTES", 1<<20), // 1 MiB
		DefaultNext:  strings.TrimSpace(os.Getenv("BLOG_AUTH_DEFAULT_NEXT")),
	}
	if cfg.DefaultNext == "" || !isLocalPath(cfg.DefaultNext) {
		cfg.DefaultNext = "/index"
	}
	return cfg
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
