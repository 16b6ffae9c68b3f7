// Package jwt issues and verifies short-lived password reset tokens.
//
// Reset tokens carry the account identifier, a purpose claim and a unique
// jti so the issuer can refuse a second use. Ed25519 and HS256 are supported.
package jwt
