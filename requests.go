package goRecovery

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// VerificationRequest is the identity proof submitted in the first step.
type VerificationRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	DefaultPassword string `json:"default_password"`
}

// ResetRequest is the second step. The token is supplied by the Flow.
type ResetRequest struct {
	Token           ResetToken `json:"-"`
	NewPassword     string     `json:"new_password"`
	ConfirmPassword string     `json:"confirm_password"`
}

var verificationFieldOrder = []string{"name", "email", "default_password"}

func (r VerificationRequest) normalized() VerificationRequest {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	return r
}

// Validate checks that every field is present.
func (r VerificationRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required),
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.DefaultPassword, validation.Required),
	)
}

// firstMissingField returns the first failing field in form order.
func firstMissingField(err error) string {
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return ""
	}
	for _, field := range verificationFieldOrder {
		if _, ok := verrs[field]; ok {
			return field
		}
	}
	return ""
}

// checkResetPolicy runs the local reset checks. Mismatch is reported before length.
func checkResetPolicy(newPassword, confirmPassword string, minLength int) Kind {
	if newPassword != confirmPassword {
		return KindPasswordMismatch
	}
	if err := validation.Validate(newPassword, validation.RuneLength(minLength, 0)); err != nil || newPassword == "" {
		return KindPasswordTooShort
	}
	return KindUnknown
}
