package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/0xORB/blog-website/cmd/identity"
	"github.com/0xORB/blog-website/cmd/identity/ids"
	"github.com/0xORB/blog-website/cmd/security/token"
)

// UserLookup resolves the user behind a session. identity.Store satisfies it.
type UserLookup interface {
	GetUserByID(ctx context.Context, id int64) (identity.User, error)
}

// LoginMeta describes the client a session is created for.
type LoginMeta struct {
	Remember  bool
	UserAgent string
	IP        netip.Addr
}

// Issued is the result of a login: the cookie token plus an access token.
type Issued struct {
	SessionID string
	UserID    int64
	Remember  bool

	// Token is the opaque cookie value. It is never stored.
	Token     string
	ExpiresAt time.Time

	AccessToken string
	AccessExp   time.Time
}

// Identity is the per-request view of who is calling.
type Identity struct {
	User      identity.User
	SessionID string
	Anonymous bool
}

// Anonymous is the identity of a caller with no active session.
func Anonymous() Identity { return Identity{Anonymous: true} }

// Authenticated reports whether the identity names a user.
func (i Identity) Authenticated() bool { return !i.Anonymous && i.User.ID != 0 }

// Service implements login, per-request resolution and logout.
type Service struct {
	cfg    Config
	store  Store
	tokens AccessTokenManager
	users  UserLookup
	log    *slog.Logger
}

// NewService constructs a Service. log may be nil.
func NewService(cfg Config, store Store, tokens AccessTokenManager, users UserLookup, log *slog.Logger) (*Service, error) {
	if store == nil || tokens == nil || users == nil {
		return nil, fmt.Errorf("session: missing dependency")
	}
	if cfg.CookieName == "" || cfg.SessionTTL <= 0 || cfg.RememberTTL <= 0 {
		return nil, ErrConfig
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{cfg: cfg, store: store, tokens: tokens, users: users, log: log}, nil
}

// Config returns the service configuration.
func (s *Service) Config() Config { return s.cfg }

// Login creates a session for user and returns fresh tokens.
// The caller has already checked the credentials.
func (s *Service) Login(ctx context.Context, user identity.User, meta LoginMeta, now time.Time) (Issued, error) {
	if user.ID <= 0 {
		return Issued{}, fmt.Errorf("session.Login: user has no id")
	}
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	id, err := ids.NewULID(now)
	if err != nil {
		return Issued{}, err
	}
	plain, err := token.NewOpaque()
	if err != nil {
		return Issued{}, err
	}

	ttl := s.cfg.SessionTTL
	if meta.Remember {
		ttl = s.cfg.RememberTTL
	}

	row, err := s.store.Create(ctx, CreateInput{
		ID:        id,
		UserID:    user.ID,
		TokenHash: token.HashSessionTokenHex(plain),
		Remember:  meta.Remember,
		UserAgent: truncate(meta.UserAgent, 512),
		IP:        meta.IP,
		Now:       now,
		ExpiresAt: now.Add(ttl),
	})
	if err != nil {
		return Issued{}, err
	}

	access, accessExp, err := s.tokens.Issue(user.ID, row.ID, now)
	if err != nil {
		return Issued{}, err
	}

	return Issued{
		SessionID:   row.ID,
		UserID:      user.ID,
		Remember:    row.Remember,
		Token:       plain,
		ExpiresAt:   row.ExpiresAt,
		AccessToken: access,
		AccessExp:   accessExp,
	}, nil
}

// Resolve binds r to an identity: a bearer access token first, then the
// session cookie. Anything that does not lead to an active session yields
// Anonymous with a nil error; only store failures are returned.
func (s *Service) Resolve(ctx context.Context, r *http.Request, now time.Time) (Identity, error) {
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	if bearer, ok := bearerToken(r); ok {
		id, err := s.resolveAccessToken(ctx, bearer, now)
		if err == nil {
			return id, nil
		}
		if !isAuthFailure(err) {
			return Anonymous(), err
		}
	}

	if c, err := r.Cookie(s.cfg.CookieName); err == nil && c.Value != "" {
		id, err := s.resolveCookieToken(ctx, c.Value, now)
		if err == nil {
			return id, nil
		}
		if !isAuthFailure(err) {
			return Anonymous(), err
		}
	}

	return Anonymous(), nil
}

func (s *Service) resolveAccessToken(ctx context.Context, raw string, now time.Time) (Identity, error) {
	claims, err := s.tokens.Verify(raw, now)
	if err != nil {
		return Identity{}, ErrInvalidToken
	}

	// The session row stays authoritative so logout revokes access tokens too.
	row, err := s.store.GetByID(ctx, claims.SessionID)
	if err != nil {
		return Identity{}, err
	}
	if row.UserID != claims.UserID {
		return Identity{}, ErrInvalidToken
	}
	return s.bind(ctx, row, now)
}

func (s *Service) resolveCookieToken(ctx context.Context, raw string, now time.Time) (Identity, error) {
	if len(raw) > 512 {
		return Identity{}, ErrSessionNotFound
	}
	row, err := s.store.GetByTokenHash(ctx, token.HashSessionTokenHex(raw))
	if err != nil {
		return Identity{}, err
	}
	return s.bind(ctx, row, now)
}

func (s *Service) bind(ctx context.Context, row Row, now time.Time) (Identity, error) {
	if err := row.Check(now); err != nil {
		return Identity{}, err
	}

	user, err := s.users.GetUserByID(ctx, row.UserID)
	if err != nil {
		if identity.IsNotFound(err) {
			return Identity{}, ErrSessionNotFound
		}
		return Identity{}, err
	}

	if err := s.store.Touch(ctx, now, row.ID); err != nil {
		s.log.Warn("session.touch.fail", "session_id", row.ID, "err", err)
	}

	return Identity{User: user, SessionID: row.ID}, nil
}

// Logout revokes the session. Unknown and already revoked sessions are not errors.
func (s *Service) Logout(ctx context.Context, sessionID string, now time.Time) error {
	if sessionID == "" {
		return nil
	}
	if now.IsZero() {
		now = time.Now()
	}
	return s.store.Revoke(ctx, now.UTC(), sessionID)
}

// SetCookie writes the session cookie for iss. Remember-me sessions get a
// persistent cookie; others last until the browser closes.
func (s *Service) SetCookie(w http.ResponseWriter, iss Issued) {
	c := &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    iss.Token,
		Path:     s.cfg.CookiePath,
		Domain:   s.cfg.CookieDomain,
		Secure:   s.cfg.CookieSecure,
		HttpOnly: true,
		SameSite: s.cfg.CookieSameSite,
	}
	if iss.Remember {
		c.Expires = iss.ExpiresAt
		c.MaxAge = int(time.Until(iss.ExpiresAt).Seconds())
	}
	http.SetCookie(w, c)
}

// ClearCookie expires the session cookie.
func (s *Service) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    "",
		Path:     s.cfg.CookiePath,
		Domain:   s.cfg.CookieDomain,
		Secure:   s.cfg.CookieSecure,
		HttpOnly: true,
		SameSite: s.cfg.CookieSameSite,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})
}

func bearerToken(r *http.Request) (string, bool) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if h == "" {
		return "", false
	}
	scheme, rest, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	rest = strings.TrimSpace(rest)
	return rest, rest != ""
}

func isAuthFailure(err error) bool {
	return errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrSessionExpired) ||
		errors.Is(err, ErrSessionRevoked)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.ToValidUTF8(s[:n], "")
}
