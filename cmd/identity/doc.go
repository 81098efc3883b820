// Package identity is the user directory: user records, their credentials,
// and the lookups and mutations the HTTP layer performs on them.
//
// Usernames and emails are unique and matched exactly (case-sensitive).
// Uniqueness is enforced by the store (a unique constraint in Postgres, a
// locked index in memory); Directory pre-checks it through the validation
// package so callers get a ConflictError naming the field either way.
package identity
