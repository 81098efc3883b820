package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	// Empty selects the in-memory stores.
	DatabaseURL   string
	DBMaxConns    int32
	DBMinConns    int32
	DBAutoMigrate bool

	// If true:
	// - /readyz returns 503 unless DB is configured and reachable.
	ReadinessRequireDB bool

	CORSAllowedOrigins   []string
	CORSAllowCredentials bool
	CORSMaxAgeSeconds    int

	MetricsEnabled bool

	// Security policy:
	// RequireSecrets refuses to start with a generated session signing key.
	// RequireTokenHMAC demands BLOG_TOKEN_HMAC_KEY (>= 32 bytes) so session
	// tokens are stored as HMAC digests.
	RequireSecrets   bool
	RequireTokenHMAC bool
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  EnvString("BLOG_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("BLOG_LOG_LEVEL", "info"),
		LogFormat: EnvString("BLOG_LOG_FORMAT", "auto"),

		ReadHeaderTimeout: EnvDuration("BLOG_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("BLOG_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("BLOG_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("BLOG_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("BLOG_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL:   EnvString("BLOG_DATABASE_URL", ""),
		DBMaxConns:    EnvInt32("BLOG_DB_MAX_CONNS", 10),
		DBMinConns:    EnvInt32("BLOG_DB_MIN_CONNS", 0),
		DBAutoMigrate: EnvBool("BLOG_DB_AUTO_MIGRATE", false),

		ReadinessRequireDB: EnvBool("BLOG_READINESS_REQUIRE_DB", false),

		CORSAllowedOrigins:   EnvCSV("BLOG_CORS_ALLOWED_ORIGINS", nil),
		CORSAllowCredentials: EnvBool("BLOG_CORS_ALLOW_CREDENTIALS", true),
		CORSMaxAgeSeconds:    EnvInt("BLOG_CORS_MAX_AGE", 600),

		MetricsEnabled: EnvBool("BLOG_METRICS_ENABLED", true),

		RequireSecrets:   EnvBool("BLOG_REQUIRE_SECRETS", false),
		RequireTokenHMAC: EnvBool("BLOG_REQUIRE_TOKEN_HMAC", false),
	}
}
