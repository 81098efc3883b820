// Package main provides a CI-friendly end-to-end smoke test for a running blog server.
//
// It validates:
//   - register + login for two fresh users (cookie sessions)
//   - websocket handshake + subprotocol selection + ready frame
//   - follow -> follow.created delivered to the followed user
//   - profile stats reflect the edge
//   - unfollow -> follow.removed
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"
)

const (
	defaultSubprotocol = "blog.events.v1"
	maxReadBytes       = 1 << 20 // 1MiB
)

// envelope mirrors the server frame; cmd/internal is not importable from here.
type envelope struct {
	V       int             `json:"v"`
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	TS      time.Time       `json:"ts"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type followPayload struct {
	FollowerID       int64  `json:"follower_id"`
	FollowerUsername string `json:"follower_username"`
}

type smokeUser struct {
	name   string
	client *http.Client
}

func main() {
	var (
		baseURL = flag.String("url", "http://127.0.0.1:8080", "Server base URL")
		origin  = flag.String("origin", "http://localhost", "Origin header for the websocket handshake")
		timeout = flag.Duration("timeout", 7*time.Second, "Per-step timeout")
		verbose = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	base, err := validateBaseURL(*baseURL)
	if err != nil {
		fatalf("invalid -url: %v", err)
	}

	root := context.Background()
	suffix := fmt.Sprintf("%d", time.Now().UnixNano()%1_000_000_000)

	a := mustSignup(root, base, "smoke_a"+suffix, *timeout)
	b := mustSignup(root, base, "smoke_b"+suffix, *timeout)
	if *verbose {
		fmt.Printf("signed up: A=%s B=%s\n", a.name, b.name)
	}

	conn := mustConnect(root, base, *origin, b, *timeout)
	defer closeWS(conn)

	msg := mustPost(root, base, a, "/users/"+b.name+"/follow", *timeout)
	if want := fmt.Sprintf("You are following %s!", b.name); msg != want {
		fatalf("follow message=%q want %q", msg, want)
	}

	ev := mustReadUntilType(root, conn, "follow.created", *timeout)
	mustFollower(ev, a.name)

	mustStats(root, base, a, b.name, 1, true, *timeout)

	msg = mustPost(root, base, a, "/users/"+b.name+"/unfollow", *timeout)
	if want := fmt.Sprintf("You are not following %s.", b.name); msg != want {
		fatalf("unfollow message=%q want %q", msg, want)
	}

	ev = mustReadUntilType(root, conn, "follow.removed", *timeout)
	mustFollower(ev, a.name)

	mustStats(root, base, a, b.name, 0, false, *timeout)

	fmt.Println("OK: blog smoke passed")
}

func validateBaseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return nil, errors.New("missing host")
	}
	u.Path = strings.TrimRight(u.Path, "/")
	return u, nil
}

func wsURL(base *url.URL) string {
	u := *base
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path += "/ws"
	return u.String()
}

func mustSignup(parent context.Context, base *url.URL, name string, stepTimeout time.Duration) *smokeUser {
	jar, err := cookiejar.New(nil)
	if err != nil {
		fatalf("cookie jar: %v", err)
	}
	u := &smokeUser{name: name, client: &http.Client{Jar: jar}}

	status, body := mustDo(parent, u, http.MethodPost, base.String()+"/auth/register", map[string]string{
		"username":           name,
		"email":              name + "@smoke.test",
		"password":           "smoke-pass",
		"password_confirmed": "smoke-pass",
	}, stepTimeout)
	if status != http.StatusCreated {
		fatalf("register %s: status=%d body=%s", name, status, body)
	}

	status, body = mustDo(parent, u, http.MethodPost, base.String()+"/auth/login", map[string]any{
		"username": name,
		"password": "smoke-pass",
	}, stepTimeout)
	if status != http.StatusOK {
		fatalf("login %s: status=%d body=%s", name, status, body)
	}
	return u
}

func mustConnect(parent context.Context, base *url.URL, origin string, u *smokeUser, stepTimeout time.Duration) *websocket.Conn {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	h := http.Header{}
	if strings.TrimSpace(origin) != "" {
		h.Set("Origin", origin)
	}

	conn, resp, err := websocket.Dial(ctx, wsURL(base), &websocket.DialOptions{
		HTTPClient:   u.client,
		Subprotocols: []string{defaultSubprotocol},
		HTTPHeader:   h,
	})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		fatalf("connect %s: %v", u.name, err)
	}
	if got := conn.Subprotocol(); got != defaultSubprotocol {
		fatalf("subprotocol mismatch: got=%q want=%q", got, defaultSubprotocol)
	}

	conn.SetReadLimit(maxReadBytes)

	mustReadUntilType(parent, conn, "ready", stepTimeout)
	return conn
}

func mustPost(parent context.Context, base *url.URL, u *smokeUser, path string, stepTimeout time.Duration) string {
	status, body := mustDo(parent, u, http.MethodPost, base.String()+path, nil, stepTimeout)
	if status != http.StatusOK {
		fatalf("POST %s as %s: status=%d body=%s", path, u.name, status, body)
	}
	var out struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		fatalf("POST %s: decode: %v", path, err)
	}
	return out.Message
}

func mustStats(parent context.Context, base *url.URL, viewer *smokeUser, target string, followers int, following bool, stepTimeout time.Duration) {
	status, body := mustDo(parent, viewer, http.MethodGet, base.String()+"/users/"+target, nil, stepTimeout)
	if status != http.StatusOK {
		fatalf("GET profile %s: status=%d body=%s", target, status, body)
	}
	var out struct {
		Stats struct {
			Followers   int  `json:"followers"`
			IsFollowing bool `json:"is_following"`
		} `json:"stats"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		fatalf("GET profile %s: decode: %v", target, err)
	}
	if out.Stats.Followers != followers || out.Stats.IsFollowing != following {
		fatalf("profile %s stats=%+v want followers=%d is_following=%v", target, out.Stats, followers, following)
	}
}

func mustDo(parent context.Context, u *smokeUser, method, rawURL string, body any, stepTimeout time.Duration) (int, []byte) {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			fatalf("marshal: %v", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, rdr)
	if err != nil {
		fatalf("request %s %s: %v", method, rawURL, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := u.client.Do(req)
	if err != nil {
		fatalf("%s %s: %v", method, rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	out, err := io.ReadAll(io.LimitReader(resp.Body, maxReadBytes))
	if err != nil {
		fatalf("%s %s: read body: %v", method, rawURL, err)
	}
	return resp.StatusCode, out
}

func mustReadUntilType(parent context.Context, conn *websocket.Conn, wantType string, stepTimeout time.Duration) envelope {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			fatalf("waiting for %q: %v", wantType, err)
		}
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			fatalf("decode frame: %v", err)
		}
		switch env.Type {
		case wantType:
			return env
		case "error":
			fatalf("server error frame while waiting for %q: %s", wantType, string(env.Payload))
		}
	}
}

func mustFollower(env envelope, want string) {
	var p followPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		fatalf("decode %s payload: %v", env.Type, err)
	}
	if p.FollowerUsername != want {
		fatalf("%s follower=%q want %q", env.Type, p.FollowerUsername, want)
	}
}

func closeWS(conn *websocket.Conn) {
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FAIL: "+format+"\n", args...)
	os.Exit(1)
}
