// Package session binds requests to users.
//
// A login creates a server-side session row keyed by a ULID. The browser
// carries an opaque random token in a cookie; only its hash is stored
// (HMAC-SHA256 when BLOG_TOKEN_HMAC_KEY is set, SHA-256 otherwise). API
// clients may instead present a short-lived HS256 JWT access token naming
// the session. Either way the session row stays authoritative, so logout
// and expiry take effect immediately.
package session
