package session

import (
	"context"
	"errors"
	"net/netip"
	"testing"
	"time"

	"github.com/0xORB/blog-website/cmd/identity"
	"github.com/0xORB/blog-website/cmd/internal/pgtest"
)

func mustPostgresService(t *testing.T) (*Service, *PostgresStore, identity.User) {
	t.Helper()

	pool := pgtest.OpenPool(t)
	schema := pgtest.NewSchema(t, pool)

	users, err := identity.NewPostgresStore(pool, identity.WithSchema(schema))
	if err != nil {
		t.Fatalf("identity.NewPostgresStore: %v", err)
	}
	st, err := NewPostgresStore(pool, WithSchema(schema))
	if err != nil {
		t.Fatalf("NewPostgresStore: %v", err)
	}

	cfg := testConfig()
	tokens, err := NewJWTManager(cfg)
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}
	svc, err := NewService(cfg, st, tokens, users, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	u, err := users.CreateUser(context.Background(), identity.CreateUserInput{
		Username:     "alice",
		Email:        "a@x.com",
		PasswordHash: "h",
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return svc, st, u
}

func TestPostgresSession_LoginResolveLogout(t *testing.T) {
	svc, st, alice := mustPostgresService(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	iss, err := svc.Login(ctx, alice, LoginMeta{
		Remember:  true,
		UserAgent: "blog-test/1.0",
		IP:        netip.MustParseAddr("192.0.2.10"),
	}, now)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	row, err := st.GetByID(ctx, iss.SessionID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !row.Remember || row.UserAgent != "blog-test/1.0" || row.UserID != alice.ID {
		t.Fatalf("unexpected row: %+v", row)
	}
	if row.IP != netip.MustParseAddr("192.0.2.10") {
		t.Fatalf("expected ip 192.0.2.10, got %v", row.IP)
	}

	id, err := svc.resolveCookieToken(ctx, iss.Token, now.Add(time.Second))
	if err != nil {
		t.Fatalf("resolveCookieToken: %v", err)
	}
	if id.User.ID != alice.ID {
		t.Fatalf("expected alice, got %+v", id.User)
	}

	if err := svc.Logout(ctx, iss.SessionID, now.Add(2*time.Second)); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if err := svc.Logout(ctx, iss.SessionID, now.Add(3*time.Second)); err != nil {
		t.Fatalf("second Logout: %v", err)
	}

	row, err = st.GetByID(ctx, iss.SessionID)
	if err != nil {
		t.Fatalf("GetByID after logout: %v", err)
	}
	if row.RevokedAt == nil || !row.RevokedAt.Equal(now.Add(2*time.Second)) {
		t.Fatalf("expected first revocation time kept, got %v", row.RevokedAt)
	}

	if _, err := svc.resolveCookieToken(ctx, iss.Token, now.Add(4*time.Second)); !errors.Is(err, ErrSessionRevoked) {
		t.Fatalf("expected ErrSessionRevoked, got %v", err)
	}
}

func TestPostgresSession_NotFound(t *testing.T) {
	_, st, _ := mustPostgresService(t)
	ctx := context.Background()

	if _, err := st.GetByID(ctx, "01HZZZZZZZZZZZZZZZZZZZZZZZ"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := st.GetByTokenHash(ctx, "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestPostgresSession_NullIP(t *testing.T) {
	svc, st, alice := mustPostgresService(t)
	ctx := context.Background()

	iss, err := svc.Login(ctx, alice, LoginMeta{}, time.Now().UTC())
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	row, err := st.GetByID(ctx, iss.SessionID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if row.IP.IsValid() || row.UserAgent != "" {
		t.Fatalf("expected empty ip and user agent, got %+v", row)
	}
}
