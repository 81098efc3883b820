// Package token generates opaque session tokens and hashes them for storage.
//
// Only the hex digest of a token is persisted. With BLOG_TOKEN_HMAC_KEY set the
// digest is HMAC-SHA256 keyed by that secret; otherwise plain SHA-256 is used
// for local development. Both produce 64 hex characters.
package token
