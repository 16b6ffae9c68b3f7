package goRecovery

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ResetToken is the opaque credential issued by a successful verification.
// It lives only in Flow memory; String redacts it so it never reaches logs.
type ResetToken struct {
	raw string
}

// NewResetToken wraps a raw token value.
func NewResetToken(raw string) ResetToken {
	return ResetToken{raw: raw}
}

// Value returns the raw token for transmission to the backend.
func (t ResetToken) Value() string { return t.raw }

// Empty reports whether no token is held.
func (t ResetToken) Empty() bool { return t.raw == "" }

func (t ResetToken) String() string {
	if t.raw == "" {
		return "<none>"
	}
	if len(t.raw) <= 8 {
		return "****"
	}
	return t.raw[:4] + "****"
}

// ExpiresAt reads the exp claim when the token happens to be a JWT. The
// signature is not checked: the backend remains the authority on validity,
// this only feeds UI countdowns.
func (t ResetToken) ExpiresAt() (time.Time, bool) {
	if t.raw == "" {
		return time.Time{}, false
	}

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(t.raw, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
