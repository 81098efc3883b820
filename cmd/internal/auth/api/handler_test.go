package authapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xORB/blog-website/cmd/identity"
	"github.com/0xORB/blog-website/cmd/internal/auth/session"
	"github.com/0xORB/blog-website/cmd/internal/httpx"
	"github.com/0xORB/blog-website/cmd/security/password"
)

type testEnv struct {
	router http.Handler
	dir    *identity.Directory
	users  *identity.MemoryStore
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()

	creds, err := identity.NewCredentials(password.LightConfig())
	require.NoError(t, err)
	users := identity.NewMemoryStore()
	dir, err := identity.NewDirectory(users, creds, nil)
	require.NoError(t, err)

	cfg := session.DefaultConfig()
	cfg.SigningKey = []byte(strings.Repeat("k", session.MinSigningKeyBytes))
	tokens, err := session.NewJWTManager(cfg)
	require.NoError(t, err)
	sessions, err := session.NewService(cfg, session.NewMemoryStore(), tokens, users, nil)
	require.NoError(t, err)

	m, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	h, err := NewHandler(nil, Config{}, dir, sessions, WithMetrics(m))
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(h.WithIdentity)
	h.Routes(r)
	return testEnv{router: r, dir: dir, users: users}
}

func (e testEnv) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) httpx.APIError {
	t.Helper()
	var body struct {
		Error httpx.APIError `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == "blog_session" {
			return c
		}
	}
	t.Fatalf("no session cookie set")
	return nil
}

func (e testEnv) register(t *testing.T, username, email, pw string) {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/auth/register", registerRequest{
		Username: username, Email: email, Password: pw, PasswordConfirm: pw,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestRegister(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/auth/register", registerRequest{
		Username: "alice", Email: "a@x.com", Password: "pw1", PasswordConfirm: "pw1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var body registerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Registration completed!", body.Message)
	assert.Equal(t, "alice", body.User.Username)
	assert.Contains(t, body.User.Avatar, "gravatar.com")

	t.Run("username taken", func(t *testing.T) {
		rec := e.do(t, http.MethodPost, "/auth/register", registerRequest{
			Username: "alice", Email: "other@x.com", Password: "pw", PasswordConfirm: "pw",
		})
		require.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "Username already exists.", decodeError(t, rec).Fields["username"])
	})

	t.Run("email taken", func(t *testing.T) {
		rec := e.do(t, http.MethodPost, "/auth/register", registerRequest{
			Username: "bob", Email: "a@x.com", Password: "pw", PasswordConfirm: "pw",
		})
		require.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "Email is already in use.", decodeError(t, rec).Fields["email"])
	})

	t.Run("validation", func(t *testing.T) {
		rec := e.do(t, http.MethodPost, "/auth/register", registerRequest{
			Username: "", Email: "nope", Password: "a", PasswordConfirm: "b",
		})
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		fields := decodeError(t, rec).Fields
		assert.Contains(t, fields, "username")
		assert.Contains(t, fields, "email")
		assert.Contains(t, fields, "password_confirmed")
	})

	t.Run("unknown json field", func(t *testing.T) {
		rec := e.do(t, http.MethodPost, "/auth/register", map[string]any{"username": "x", "admin": true})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestLogin_NoEnumeration(t *testing.T) {
	e := newTestEnv(t)
	e.register(t, "alice", "a@x.com", "pw1")

	unknown := e.do(t, http.MethodPost, "/auth/login", loginRequest{Username: "mallory", Password: "pw1"})
	wrong := e.do(t, http.MethodPost, "/auth/login", loginRequest{Username: "alice", Password: "nope"})

	require.Equal(t, http.StatusUnauthorized, unknown.Code)
	require.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, unknown.Body.String(), wrong.Body.String())
	assert.Equal(t, "Invalid username or password.", decodeError(t, wrong).Message)
}

func TestLogin_MeLogout(t *testing.T) {
	e := newTestEnv(t)
	e.register(t, "alice", "a@x.com", "pw1")

	rec := e.do(t, http.MethodPost, "/auth/login", loginRequest{Username: "alice", Password: "pw1", Next: "/users/alice"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "/users/alice", body.Next)
	assert.NotEmpty(t, body.Session.AccessToken)
	cookie := sessionCookie(t, rec)

	rec = e.do(t, http.MethodGet, "/auth/me", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var me meResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "alice", me.User.Username)
	assert.NotNil(t, me.User.LastSeen, "requests by a logged-in user refresh last_seen")

	u, err := e.users.GetUserByUsername(t.Context(), "alice")
	require.NoError(t, err)
	require.NotNil(t, u.LastSeen)

	rec = e.do(t, http.MethodPost, "/auth/login", loginRequest{Username: "alice", Password: "pw1"}, cookie)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = e.do(t, http.MethodPost, "/auth/logout", nil, cookie)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = e.do(t, http.MethodGet, "/auth/me", nil, cookie)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Logging out again is harmless.
	rec = e.do(t, http.MethodPost, "/auth/logout", nil, cookie)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestLogin_NextMustBeLocal(t *testing.T) {
	e := newTestEnv(t)
	e.register(t, "alice", "a@x.com", "pw1")

	for _, next := range []string{"https://evil.example/", "//evil.example/x", `/\evil.example`, ""} {
		rec := e.do(t, http.MethodPost, "/auth/login", loginRequest{Username: "alice", Password: "pw1", Next: next})
		require.Equal(t, http.StatusOK, rec.Code)
		var body loginResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "/index", body.Next, "next=%q", next)
	}
}

func TestLogin_RememberMeCookie(t *testing.T) {
	e := newTestEnv(t)
	e.register(t, "alice", "a@x.com", "pw1")

	rec := e.do(t, http.MethodPost, "/auth/login", loginRequest{Username: "alice", Password: "pw1", RememberMe: true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Positive(t, sessionCookie(t, rec).MaxAge)

	rec = e.do(t, http.MethodPost, "/auth/login", loginRequest{Username: "alice", Password: "pw1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, sessionCookie(t, rec).MaxAge)
}

func TestLogin_Validation(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodPost, "/auth/login", loginRequest{})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	fields := decodeError(t, rec).Fields
	assert.Contains(t, fields, "username")
	assert.Contains(t, fields, "password")
}

func TestRequireUser_Anonymous(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/auth/me", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decodeError(t, rec).Code)
}

func TestIsLocalPath(t *testing.T) {
	cases := map[string]bool{
		"/index":              true,
		"/users/alice?page=2": true,
		"relative":            true,
		"http://evil.example": false,
		"//evil.example":      false,
		`\\evil.example`:      false,
		"javascript:alert(1)": false,
	}
	for in, want := range cases {
		assert.Equal(t, want, isLocalPath(in), in)
	}
}
