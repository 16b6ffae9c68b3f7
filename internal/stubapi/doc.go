// Package stubapi is an in-memory stand-in for the authentication backend's
// forgot-password endpoints. Tests and cmd/recovery-stub use it; it is not a
// production backend.
//
// Accounts keep Argon2id hashes of their default password. A successful
// verify issues a signed reset token (see package jwt); the ledger limits
// repeated verify failures and records consumed token ids so a token works
// once.
package stubapi
