package authapi

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/0xORB/blog-website/cmd/identity"
	"github.com/0xORB/blog-website/cmd/internal/auth/session"
	"github.com/0xORB/blog-website/cmd/internal/httpx"
	"github.com/0xORB/blog-website/cmd/internal/validation"
)

// Handler wires HTTP auth endpoints to the user directory and session service.
type Handler struct {
	log *slog.Logger
	cfg Config

	dir      *identity.Directory
	sessions *session.Service
	metrics  *Metrics

	now func() time.Time
}

// HandlerOption configures optional auth handler dependencies.
type HandlerOption func(*Handler)

// WithMetrics attaches auth counters.
func WithMetrics(m *Metrics) HandlerOption {
	return func(h *Handler) {
		if h == nil || m == nil {
			return
		}
		h.metrics = m
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		if h == nil || now == nil {
			return
		}
		h.now = now
	}
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, cfg Config, dir *identity.Directory, sessions *session.Service, opts ...HandlerOption) (*Handler, error) {
	if dir == nil {
		return nil, errors.New("auth: nil directory")
	}
	if sessions == nil {
		return nil, errors.New("auth: nil session service")
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = httpx.DefaultMaxBodyBytes
	}
	if cfg.DefaultNext == "" {
		cfg.DefaultNext = "/index"
	}

	h := &Handler{
		log:      log,
		cfg:      cfg,
		dir:      dir,
		sessions: sessions,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(h)
	}
	return h, nil
}

// Routes mounts the /auth endpoints. r must already run WithIdentity.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.handleRegister)
		r.Post("/login", h.handleLogin)
		r.Post("/logout", h.handleLogout)
		r.With(RequireUser).Get("/me", h.handleMe)
	})
}

// ---- handlers ----

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if session.FromContext(r.Context()).Authenticated() {
		httpx.WriteError(w, http.StatusConflict, "already_authenticated", "already logged in")
		return
	}

	var req registerRequest
	if err := httpx.DecodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	u, err := h.dir.Register(r.Context(), identity.RegisterInput{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
		Now:             h.now().UTC(),
	})
	if err != nil {
		h.metrics.registration(outcome(err))
		h.writeDirectoryError(w, "auth.register.fail", err)
		return
	}

	h.metrics.registration("ok")
	h.log.Info("auth.register.ok", "user_id", u.ID)
	httpx.WriteJSON(w, http.StatusCreated, registerResponse{
		Message: "Registration completed!",
		User:    toUserResponse(u),
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if session.FromContext(r.Context()).Authenticated() {
		httpx.WriteError(w, http.StatusConflict, "already_authenticated", "already logged in")
		return
	}

	var req loginRequest
	if err := httpx.DecodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	if errs := validation.Login(req.Username, req.Password); len(errs) > 0 {
		h.metrics.login("invalid")
		httpx.WriteFieldErrors(w, http.StatusUnprocessableEntity, "validation_failed", "invalid input", errs.Fields())
		return
	}

	ctx := r.Context()
	now := h.now().UTC()

	user, ok, err := h.dir.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		h.metrics.login("error")
		h.log.Error("auth.login.lookup.fail", "err", err)
		httpx.WriteInternal(w)
		return
	}
	if !ok {
		// Same answer for an unknown user and a wrong password.
		h.metrics.login("invalid_credentials")
		h.log.Info("auth.login.fail")
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid username or password.")
		return
	}

	iss, err := h.sessions.Login(ctx, user, session.LoginMeta{
		Remember:  req.RememberMe,
		UserAgent: strings.TrimSpace(r.UserAgent()),
		IP:        httpx.ClientIP(r, h.cfg.TrustProxy),
	}, now)
	if err != nil {
		h.metrics.login("error")
		h.log.Error("auth.login.session.fail", "user_id", user.ID, "err", err)
		httpx.WriteInternal(w)
		return
	}

	h.sessions.SetCookie(w, iss)
	h.metrics.login("ok")
	h.log.Info("auth.login.ok", "user_id", user.ID, "session_id", iss.SessionID, "remember", iss.Remember)

	httpx.WriteJSON(w, http.StatusOK, loginResponse{
		User:    toUserResponse(user),
		Session: toSessionResponse(iss),
		Next:    h.safeNext(req.Next),
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	id := session.FromContext(r.Context())
	if id.Authenticated() {
		if err := h.sessions.Logout(r.Context(), id.SessionID, h.now()); err != nil {
			h.log.Error("auth.logout.fail", "session_id", id.SessionID, "err", err)
			httpx.WriteInternal(w)
			return
		}
		h.log.Info("auth.logout.ok", "user_id", id.User.ID, "session_id", id.SessionID)
	}
	h.sessions.ClearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	id := session.FromContext(r.Context())
	httpx.WriteJSON(w, http.StatusOK, meResponse{
		User:      toUserResponse(id.User),
		SessionID: id.SessionID,
	})
}

// writeDirectoryError maps Directory failures onto the error envelope.
func (h *Handler) writeDirectoryError(w http.ResponseWriter, event string, err error) {
	if errs, ok := validation.AsErrors(err); ok {
		httpx.WriteFieldErrors(w, http.StatusUnprocessableEntity, "validation_failed", "invalid input", errs.Fields())
		return
	}
	if field, ok := identity.ConflictField(err); ok {
		httpx.WriteFieldErrors(w, http.StatusConflict, "conflict", "already in use", map[string]string{
			field: conflictMessage(field),
		})
		return
	}
	h.log.Error(event, "err", err)
	httpx.WriteInternal(w)
}

// conflictMessage is the user-facing text for a taken username or email.
func conflictMessage(field string) string {
	if field == "email" {
		return "Email is already in use."
	}
	return "Username already exists."
}

// safeNext honours next only when it stays on this site.
func (h *Handler) safeNext(next string) string {
	next = strings.TrimSpace(next)
	if next == "" || !isLocalPath(next) {
		return h.cfg.DefaultNext
	}
	return next
}

func isLocalPath(s string) bool {
	// Browsers treat a leading backslash like a slash.
	if strings.HasPrefix(s, `\`) || strings.HasPrefix(s, `/\`) {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.Host == "" && u.Scheme == "" && u.User == nil
}

func outcome(err error) string {
	switch {
	case validation.IsInvalid(err):
		return "invalid"
	case identity.IsConflict(err):
		return "conflict"
	default:
		return "error"
	}
}
