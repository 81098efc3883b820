package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xORB/blog-website/cmd/identity"
	"github.com/0xORB/blog-website/cmd/internal/auth/session"
	"github.com/0xORB/blog-website/cmd/internal/social"
)

// withTestIdentity stands in for the session middleware: X-Test-User-ID
// names the caller.
func withTestIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := session.Anonymous()
		if r.Header.Get("X-Test-User-ID") == "2" {
			id = session.Identity{User: identity.User{ID: 2, Username: "bob"}, SessionID: "s"}
		}
		next.ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), id)))
	})
}

func startGateway(t *testing.T, cfg Config) (*WSGateway, *httptest.Server) {
	t.Helper()
	gw := NewWSGateway(nil, nil, cfg)
	ts := httptest.NewServer(withTestIdentity(gw))
	t.Cleanup(ts.Close)
	return gw, ts
}

func dial(t *testing.T, ts *httptest.Server, origin string, authed bool) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	t.Cleanup(cancel)

	h := http.Header{}
	if origin != "" {
		h.Set("Origin", origin)
	}
	if authed {
		h.Set("X-Test-User-ID", "2")
	}
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	return websocket.Dial(ctx, url, &websocket.DialOptions{
		Subprotocols: []string{Subprotocol},
		HTTPHeader:   h,
	})
}

func readEnv(t *testing.T, c *websocket.Conn) Envelope {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_, data, err := c.Read(ctx)
	require.NoError(t, err)
	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func TestWSGateway_Anonymous401(t *testing.T) {
	_, ts := startGateway(t, DefaultConfig())

	_, resp, err := dial(t, ts, "http://localhost", false)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWSGateway_OriginPolicy(t *testing.T) {
	_, ts := startGateway(t, DefaultConfig())

	_, resp, err := dial(t, ts, "https://evil.example", true)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	_, resp, err = dial(t, ts, "", true)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "origin required by default")
}

func TestWSGateway_ReadyThenFollowEvent(t *testing.T) {
	gw, ts := startGateway(t, DefaultConfig())

	c, _, err := dial(t, ts, "http://localhost", true)
	require.NoError(t, err)
	defer func() { _ = c.Close(websocket.StatusNormalClosure, "") }()
	assert.Equal(t, Subprotocol, c.Subprotocol())

	ready := readEnv(t, c)
	require.Equal(t, TypeReady, ready.Type)
	var rp ReadyPayload
	require.NoError(t, json.Unmarshal(ready.Payload, &rp))
	assert.Equal(t, int64(2), rp.UserID)
	assert.Equal(t, "bob", rp.Username)

	require.Eventually(t, func() bool { return gw.Hub().Connections(2) == 1 }, 2*time.Second, 10*time.Millisecond)

	gw.Hub().Publish(2, social.Event{
		Type:             social.EventFollowCreated,
		FollowerID:       1,
		FollowerUsername: "alice",
		TargetID:         2,
		At:               time.Now().UTC(),
	})

	ev := readEnv(t, c)
	assert.Equal(t, TypeFollowCreated, ev.Type)
	var fp FollowPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &fp))
	assert.Equal(t, "alice", fp.FollowerUsername)
}

func TestWSGateway_PingPongAndErrors(t *testing.T) {
	_, ts := startGateway(t, DefaultConfig())

	c, _, err := dial(t, ts, "http://localhost", true)
	require.NoError(t, err)
	defer func() { _ = c.Close(websocket.StatusNormalClosure, "") }()
	require.Equal(t, TypeReady, readEnv(t, c).Type)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	require.NoError(t, c.Write(ctx, websocket.MessageText, []byte(`{"v":1,"type":"ping"}`)))
	assert.Equal(t, TypePong, readEnv(t, c).Type)

	require.NoError(t, c.Write(ctx, websocket.MessageText, []byte(`{not json`)))
	env := readEnv(t, c)
	require.Equal(t, TypeError, env.Type)
	var ep ErrorPayload
	require.NoError(t, json.Unmarshal(env.Payload, &ep))
	assert.Equal(t, "bad_json", ep.Code)

	require.NoError(t, c.Write(ctx, websocket.MessageText, []byte(`{"v":1,"type":"message.send"}`)))
	env = readEnv(t, c)
	require.NoError(t, json.Unmarshal(env.Payload, &ep))
	assert.Equal(t, "unsupported", ep.Code)
}

func TestWSGateway_UnregistersOnClose(t *testing.T) {
	gw, ts := startGateway(t, DefaultConfig())

	c, _, err := dial(t, ts, "http://localhost", true)
	require.NoError(t, err)
	require.Equal(t, TypeReady, readEnv(t, c).Type)
	require.Eventually(t, func() bool { return gw.Hub().Connections(2) == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, c.Close(websocket.StatusNormalClosure, "done"))
	require.Eventually(t, func() bool { return gw.Hub().Connections(2) == 0 }, 2*time.Second, 10*time.Millisecond)
}
