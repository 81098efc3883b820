package app

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	authapi "github.com/0xORB/blog-website/cmd/internal/auth/api"
	"github.com/0xORB/blog-website/cmd/internal/httpx"
	"github.com/0xORB/blog-website/cmd/internal/realtime"
	socialapi "github.com/0xORB/blog-website/cmd/internal/social/api"
)

type routerDeps struct {
	cfg  Config
	log  Logger
	pool *pgxpool.Pool

	// registry and metrics are nil when metrics are disabled.
	registry *prometheus.Registry
	metrics  *httpMetrics

	auth   *authapi.Handler
	social *socialapi.Handler
	ws     *realtime.WSGateway
}

// newRouter builds the route tree.
//
//	/healthz /readyz /metrics   no identity
//	/auth/*                     identity resolved, anonymous allowed
//	/ /index /profile /users/*  logged-in users only
//	/ws                         logged-in users only
func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if d.metrics != nil {
		r.Use(d.metrics.middleware)
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteError(w, http.StatusNotFound, "not_found", "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	r.Get("/readyz", readyz(d))
	if d.registry != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler(d.registry))
	}

	r.Group(func(r chi.Router) {
		r.Use(d.auth.WithIdentity)
		d.auth.Routes(r)

		r.Group(func(r chi.Router) {
			r.Use(authapi.RequireUser)
			d.social.Routes(r)
			r.Method(http.MethodGet, "/ws", d.ws)
		})
	})

	var h http.Handler = r
	h = WithSecurityHeaders(h)
	if len(d.cfg.CORSAllowedOrigins) > 0 {
		h = WithCORS(h, d.cfg, d.log)
	}
	return WithRequestLogging(h, d.log)
}

func readyz(d routerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.cfg.ReadinessRequireDB && d.pool == nil {
			http.Error(w, "db not configured", http.StatusServiceUnavailable)
			return
		}

		if d.pool != nil {
			if err := PingDB(r.Context(), d.pool, 2*time.Second); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				d.log.Info("readyz.db.not_ready", "err", err)
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready\n"))
	}
}
