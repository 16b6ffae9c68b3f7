package goRecovery

import (
	"errors"
	"fmt"
)

// Kind classifies a recovery failure so the rendering layer can tell failures
// apart independently of the (possibly localized) message text.
type Kind uint8

const (
	// KindUnknown is reported for errors that did not originate from the flow.
	KindUnknown Kind = iota
	// KindNotFound means no account matched the submitted name and email.
	KindNotFound
	// KindInvalidCredential means the default password was rejected.
	KindInvalidCredential
	// KindNoDefaultPasswordConfigured means the account has no default password set.
	KindNoDefaultPasswordConfigured
	// KindNetworkUnavailable covers transport failures and request timeouts.
	KindNetworkUnavailable
	// KindPasswordMismatch is a local check: new and confirm passwords differ.
	KindPasswordMismatch
	// KindPasswordTooShort is a local check: the new password is below the policy minimum.
	KindPasswordTooShort
	// KindServerRejected means the backend refused the request with a message.
	KindServerRejected
	// KindMissingField is a local check: a required verification field is empty.
	KindMissingField
	// KindRateLimited means the backend throttled the request.
	KindRateLimited
)

var kindNames = [...]string{
	KindUnknown:                     "unknown",
	KindNotFound:                    "not_found",
	KindInvalidCredential:           "invalid_credential",
	KindNoDefaultPasswordConfigured: "no_default_password_configured",
	KindNetworkUnavailable:          "network_unavailable",
	KindPasswordMismatch:            "password_mismatch",
	KindPasswordTooShort:            "password_too_short",
	KindServerRejected:              "server_rejected",
	KindMissingField:                "missing_field",
	KindRateLimited:                 "rate_limited",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Local reports whether the kind is produced by pre-flight validation and never
// involves the backend.
func (k Kind) Local() bool {
	switch k {
	case KindPasswordMismatch, KindPasswordTooShort, KindMissingField:
		return true
	default:
		return false
	}
}

var (
	// ErrNotFound matches any FlowError of KindNotFound.
	ErrNotFound = errors.New("no matching account")
	// ErrInvalidCredential matches any FlowError of KindInvalidCredential.
	ErrInvalidCredential = errors.New("default password incorrect")
	// ErrNoDefaultPasswordConfigured matches any FlowError of KindNoDefaultPasswordConfigured.
	ErrNoDefaultPasswordConfigured = errors.New("no default password configured")
	// ErrNetworkUnavailable matches any FlowError of KindNetworkUnavailable.
	ErrNetworkUnavailable = errors.New("network unavailable")
	// ErrPasswordMismatch matches any FlowError of KindPasswordMismatch.
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrPasswordTooShort matches any FlowError of KindPasswordTooShort.
	ErrPasswordTooShort = errors.New("password too short")
	// ErrServerRejected matches any FlowError of KindServerRejected.
	ErrServerRejected = errors.New("rejected by server")
	// ErrMissingField matches any FlowError of KindMissingField.
	ErrMissingField = errors.New("required field missing")
	// ErrRateLimited matches any FlowError of KindRateLimited.
	ErrRateLimited = errors.New("too many attempts")

	// ErrSubmissionInFlight is returned when a submission arrives while another is loading.
	// It is not recorded as the flow's user-visible error.
	ErrSubmissionInFlight = errors.New("submission already in flight")
	// ErrWrongPhase is returned when a submission does not match the current flow state.
	ErrWrongPhase = errors.New("submission not valid in current phase")
	// ErrFlowClosed is returned after Close.
	ErrFlowClosed = errors.New("flow closed")
	// ErrFlowCompleted is returned once the password has been reset.
	ErrFlowCompleted = errors.New("flow already completed")
	// ErrFlowExited is returned after ReturnToLogin.
	ErrFlowExited = errors.New("flow exited")
	// ErrInvalidResetToken is returned when constructing a Resetting state without a token.
	ErrInvalidResetToken = errors.New("empty reset token")
)

var kindSentinels = map[Kind]error{
	KindNotFound:                    ErrNotFound,
	KindInvalidCredential:           ErrInvalidCredential,
	KindNoDefaultPasswordConfigured: ErrNoDefaultPasswordConfigured,
	KindNetworkUnavailable:          ErrNetworkUnavailable,
	KindPasswordMismatch:            ErrPasswordMismatch,
	KindPasswordTooShort:            ErrPasswordTooShort,
	KindServerRejected:              ErrServerRejected,
	KindMissingField:                ErrMissingField,
	KindRateLimited:                 ErrRateLimited,
}

// FlowError is the single user-visible failure of one submission.
type FlowError struct {
	Kind    Kind
	Message string
	// Status is the HTTP status of the backend response, zero for local and
	// transport failures.
	Status int
	// Field names the offending input for KindMissingField.
	Field string
	Err   error
}

func (e *FlowError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Message != "" {
		return e.Kind.String() + ": " + e.Message
	}
	return e.Kind.String()
}

func (e *FlowError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches the sentinel error of the same kind.
func (e *FlowError) Is(target error) bool {
	if e == nil {
		return false
	}
	sentinel, ok := kindSentinels[e.Kind]
	return ok && target == sentinel
}

// KindOf extracts the Kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var fe *FlowError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	for kind, sentinel := range kindSentinels {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return KindUnknown
}

func newFlowError(kind Kind, message string, cause error) *FlowError {
	return &FlowError{Kind: kind, Message: message, Err: cause}
}
