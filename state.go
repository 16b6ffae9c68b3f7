package goRecovery

import "time"

// Phase names the step a Flow is in.
type Phase uint8

const (
	PhaseVerifying Phase = iota
	PhaseResetting
)

func (p Phase) String() string {
	switch p {
	case PhaseVerifying:
		return "verifying"
	case PhaseResetting:
		return "resetting"
	default:
		return "unknown"
	}
}

// FlowState is the tagged union of the two flow steps. The only implementations
// are Verifying and Resetting; a Resetting value always carries a non-empty token.
type FlowState interface {
	Phase() Phase
	flowState()
}

// Verifying is the initial state: no token is held.
type Verifying struct{}

func (Verifying) Phase() Phase { return PhaseVerifying }
func (Verifying) flowState()   {}

// Resetting is entered after a successful verification.
type Resetting struct {
	token ResetToken
}

func newResetting(token ResetToken) (Resetting, error) {
	if token.Empty() {
		return Resetting{}, ErrInvalidResetToken
	}
	return Resetting{token: token}, nil
}

func (Resetting) Phase() Phase { return PhaseResetting }
func (Resetting) flowState()   {}

// Token returns the reset token authorizing the pending reset.
func (r Resetting) Token() ResetToken { return r.token }

// View is an immutable snapshot of a Flow for the rendering layer.
type View struct {
	Phase   Phase
	Loading bool
	// Err is the error of the most recent submission, nil once a new submission starts.
	Err *FlowError
	// Name and Email are kept across failed verifications so the user can retry.
	Name  string
	Email string
	// Completed is set once the reset succeeded; Exited once ReturnToLogin was called.
	Completed bool
	Exited    bool
	// TokenExpiresAt is the reset token expiry when the backend issued a JWT.
	TokenExpiresAt time.Time
}
