// Package app wires the blog server runtime: config, logging, stores, HTTP
// routes and the follow-notification gateway.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/0xORB/blog-website/cmd/identity"
	authapi "github.com/0xORB/blog-website/cmd/internal/auth/api"
	"github.com/0xORB/blog-website/cmd/internal/auth/session"
	"github.com/0xORB/blog-website/cmd/internal/realtime"
	"github.com/0xORB/blog-website/cmd/internal/social"
	socialapi "github.com/0xORB/blog-website/cmd/internal/social/api"
	"github.com/0xORB/blog-website/cmd/security/password"
)

// App is the blog server runtime: it owns the store lifecycle and the HTTP handler tree.
type App struct {
	cfg Config
	log Logger

	stores stores

	handler http.Handler
}

// stores bundles one backend for every persistence boundary.
// pool is nil in in-memory mode.
type stores struct {
	users    identity.Store
	edges    social.Store
	sessions session.Store
	pool     *pgxpool.Pool
}

func (s stores) dbEnabled() bool { return s.pool != nil }

func (s stores) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// New constructs a fully wired App instance from config and logger.
// Package-level settings (password, session, auth, websocket) are read from the environment.
func New(cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	sessCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	if err := ValidateSecurityConfig(cfg, sessCfg); err != nil {
		return nil, err
	}
	if sessCfg.EphemeralKey {
		log.Warn("session.signing_key.ephemeral", "hint", "set BLOG_SESSION_SIGNING_KEY to keep access tokens valid across restarts")
	}

	pwCfg, err := password.FromEnv()
	if err != nil {
		return nil, err
	}
	creds, err := identity.NewCredentials(pwCfg)
	if err != nil {
		return nil, err
	}

	st, err := newStores(context.Background(), cfg, log)
	if err != nil {
		return nil, err
	}

	a, err := wire(cfg, log, st, creds, sessCfg)
	if err != nil {
		st.Close()
		return nil, err
	}
	return a, nil
}

func wire(cfg Config, log Logger, st stores, creds *identity.Credentials, sessCfg session.Config) (*App, error) {
	dir, err := identity.NewDirectory(st.users, creds, log)
	if err != nil {
		return nil, err
	}

	var (
		reg        *prometheus.Registry
		httpM      *httpMetrics
		socialM    *social.Metrics
		authM      *authapi.Metrics
		registerer prometheus.Registerer
	)
	if cfg.MetricsEnabled {
		reg = newRegistry()
		registerer = reg
		if httpM, err = newHTTPMetrics(reg); err != nil {
			return nil, err
		}
	}
	if socialM, err = social.NewMetrics(registerer); err != nil {
		return nil, err
	}
	if authM, err = authapi.NewMetrics(registerer); err != nil {
		return nil, err
	}

	hub := realtime.NewHub(log)
	graph, err := social.NewGraph(st.edges, st.users,
		social.WithNotifier(hub),
		social.WithLogger(log),
		social.WithMetrics(socialM),
	)
	if err != nil {
		return nil, err
	}

	tokens, err := session.NewJWTManager(sessCfg)
	if err != nil {
		return nil, err
	}
	sessions, err := session.NewService(sessCfg, st.sessions, tokens, st.users, log)
	if err != nil {
		return nil, err
	}

	authCfg := authapi.LoadConfigFromEnv()
	authH, err := authapi.NewHandler(log, authCfg, dir, sessions, authapi.WithMetrics(authM))
	if err != nil {
		return nil, err
	}
	socialH, err := socialapi.NewHandler(log, dir, graph, authCfg.MaxBodyBytes)
	if err != nil {
		return nil, err
	}
	ws := realtime.NewWSGateway(log, hub, realtime.LoadConfigFromEnv())

	h := newRouter(routerDeps{
		cfg:      cfg,
		log:      log,
		pool:     st.pool,
		registry: reg,
		metrics:  httpM,
		auth:     authH,
		social:   socialH,
		ws:       ws,
	})

	return &App{cfg: cfg, log: log, stores: st, handler: h}, nil
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }

// Close releases store resources. Run calls it on shutdown.
func (a *App) Close() { a.stores.Close() }

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}
	defer a.Close()

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.stores.dbEnabled())

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	a.log.Info("server.stopped")
	return nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// newStores decides between Postgres-backed persistence and in-memory dev stores.
func newStores(ctx context.Context, cfg Config, log Logger) (stores, error) {
	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.inmemory_store")
		return stores{
			users:    identity.NewMemoryStore(),
			edges:    social.NewMemoryStore(),
			sessions: session.NewMemoryStore(),
		}, nil
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return stores{}, fmt.Errorf("db: %w", err)
	}

	// The app owns the pool; the stores only borrow it.
	st, err := postgresStores(pool)
	if err != nil {
		pool.Close()
		return stores{}, err
	}
	if err := migrate(ctx, cfg, pool, log); err != nil {
		pool.Close()
		return stores{}, fmt.Errorf("db: %w", err)
	}

	log.Info("db.enabled.postgres_store")
	return st, nil
}

func postgresStores(pool *pgxpool.Pool) (stores, error) {
	users, err := identity.NewPostgresStore(pool)
	if err != nil {
		return stores{}, err
	}
	edges, err := social.NewPostgresStore(pool)
	if err != nil {
		return stores{}, err
	}
	sessions, err := session.NewPostgresStore(pool)
	if err != nil {
		return stores{}, err
	}
	return stores{users: users, edges: edges, sessions: sessions, pool: pool}, nil
}
