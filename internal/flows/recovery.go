package flows

import (
	"context"
	"time"
)

type RecoveryMetrics struct {
	VerifyAttempt int
	VerifySuccess int
	VerifyFailure int
	ResetAttempt  int
	ResetSuccess  int
	ResetFailure  int
	LocalRejected int
	APILatency    int
}

type RecoveryEvents struct {
	Verify string
	Reset  string
}

type RecoveryErrors struct {
	NotReady error
}

type VerifyInput struct {
	Name            string
	Email           string
	DefaultPassword string
}

type ResetInput struct {
	Token           string
	NewPassword     string
	ConfirmPassword string
}

type RecoveryDeps struct {
	Now func() time.Time

	// Pre-flight checks. A non-nil error is returned as is and no call is made.
	CheckVerification func(VerifyInput) error
	CheckReset        func(ResetInput) error

	Verify func(context.Context, VerifyInput) (string, error)
	Reset  func(context.Context, ResetInput) error

	MapVerifyError func(error) error
	MapResetError  func(error) error

	MetricInc      func(int)
	ObserveLatency func(int, time.Duration)
	EmitAudit      func(context.Context, string, bool, error, func() map[string]string)

	Metrics RecoveryMetrics
	Events  RecoveryEvents
	Errors  RecoveryErrors
}

// RunVerify performs the first step and returns the raw reset token.
func RunVerify(ctx context.Context, in VerifyInput, deps RecoveryDeps) (string, error) {
	normalizeRecoveryDeps(&deps)

	if deps.Verify == nil {
		return "", deps.Errors.NotReady
	}

	if err := deps.CheckVerification(in); err != nil {
		deps.MetricInc(deps.Metrics.LocalRejected)
		deps.EmitAudit(ctx, deps.Events.Verify, false, err, func() map[string]string {
			return map[string]string{
				"email":  in.Email,
				"reason": "preflight",
			}
		})
		return "", err
	}

	deps.MetricInc(deps.Metrics.VerifyAttempt)
	start := deps.Now()
	token, err := deps.Verify(ctx, in)
	deps.ObserveLatency(deps.Metrics.APILatency, deps.Now().Sub(start))

	if err != nil {
		mapped := deps.MapVerifyError(err)
		deps.MetricInc(deps.Metrics.VerifyFailure)
		deps.EmitAudit(ctx, deps.Events.Verify, false, mapped, func() map[string]string {
			return map[string]string{
				"email": in.Email,
			}
		})
		return "", mapped
	}

	deps.MetricInc(deps.Metrics.VerifySuccess)
	deps.EmitAudit(ctx, deps.Events.Verify, true, nil, func() map[string]string {
		return map[string]string{
			"email": in.Email,
		}
	})
	return token, nil
}

// RunReset performs the second step with a token obtained from RunVerify.
func RunReset(ctx context.Context, in ResetInput, deps RecoveryDeps) error {
	normalizeRecoveryDeps(&deps)

	if deps.Reset == nil {
		return deps.Errors.NotReady
	}
	if in.Token == "" {
		return deps.Errors.NotReady
	}

	if err := deps.CheckReset(in); err != nil {
		deps.MetricInc(deps.Metrics.LocalRejected)
		deps.EmitAudit(ctx, deps.Events.Reset, false, err, func() map[string]string {
			return map[string]string{
				"reason": "preflight",
			}
		})
		return err
	}

	deps.MetricInc(deps.Metrics.ResetAttempt)
	start := deps.Now()
	err := deps.Reset(ctx, in)
	deps.ObserveLatency(deps.Metrics.APILatency, deps.Now().Sub(start))

	if err != nil {
		mapped := deps.MapResetError(err)
		deps.MetricInc(deps.Metrics.ResetFailure)
		deps.EmitAudit(ctx, deps.Events.Reset, false, mapped, nil)
		return mapped
	}

	deps.MetricInc(deps.Metrics.ResetSuccess)
	deps.EmitAudit(ctx, deps.Events.Reset, true, nil, nil)
	return nil
}

func normalizeRecoveryDeps(deps *RecoveryDeps) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.CheckVerification == nil {
		deps.CheckVerification = func(VerifyInput) error { return nil }
	}
	if deps.CheckReset == nil {
		deps.CheckReset = func(ResetInput) error { return nil }
	}
	if deps.MapVerifyError == nil {
		deps.MapVerifyError = func(err error) error { return err }
	}
	if deps.MapResetError == nil {
		deps.MapResetError = func(err error) error { return err }
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.ObserveLatency == nil {
		deps.ObserveLatency = func(int, time.Duration) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, error, func() map[string]string) {}
	}
}
