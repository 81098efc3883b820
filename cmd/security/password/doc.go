// Package password hashes and verifies user passwords.
//
// New hashes are Argon2id in PHC string form. Verification also accepts
// bcrypt hashes imported from older deployments; NeedsRehash reports when a
// stored hash should be replaced after a successful login.
//
// Encoded hashes are untrusted input: Verify refuses parameters far above the
// configured cost so a tampered row cannot pin a CPU.
package password
