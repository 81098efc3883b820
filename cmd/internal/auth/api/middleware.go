package authapi

import (
	"net/http"

	"github.com/0xORB/blog-website/cmd/internal/auth/session"
	"github.com/0xORB/blog-website/cmd/internal/httpx"
)

// WithIdentity resolves the caller once per request and binds the identity
// to the request context. Authenticated callers get last_seen refreshed.
func (h *Handler) WithIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		now := h.now().UTC()

		id, err := h.sessions.Resolve(ctx, r, now)
		if err != nil {
			h.log.Error("auth.resolve.fail", "err", err)
			httpx.WriteInternal(w)
			return
		}

		if id.Authenticated() {
			if err := h.dir.TouchLastSeen(ctx, id.User.ID, now); err != nil {
				h.log.Warn("auth.last_seen.fail", "user_id", id.User.ID, "err", err)
			} else {
				id.User.LastSeen = &now
			}
		}

		next.ServeHTTP(w, r.WithContext(session.NewContext(ctx, id)))
	})
}

// RequireUser answers 401 for anonymous callers.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !session.FromContext(r.Context()).Authenticated() {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "Please log in to access this page.")
			return
		}
		next.ServeHTTP(w, r)
	})
}
