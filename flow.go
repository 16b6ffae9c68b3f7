package goRecovery

import (
	"context"
	"sync"
	"time"

	internalflows "github.com/MrEthical07/goRecovery/internal/flows"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Flow is the password recovery controller. It starts in Verifying, moves to
// Resetting after a successful verification and never goes back.
//
// All methods are safe for concurrent use. Submit methods block until the
// backend answers; a rendering layer typically calls them from a goroutine and
// re-renders from the OnChange listener. At most one submission is in flight:
// a second one observed while loading returns ErrSubmissionInFlight without
// reaching the backend.
type Flow struct {
	id         string
	config     Config
	backend    Backend
	logger     *zap.Logger
	metrics    *Metrics
	audit      *auditDispatcher
	onComplete func()
	onExit     func()
	onChange   func(View)

	mu          sync.Mutex
	state       FlowState
	tokenExpiry time.Time
	loading     bool
	lastErr     *FlowError
	name        string
	email       string
	completed   bool
	exited      bool
	closed      bool
}

func newFlow(cfg Config, backend Backend, logger *zap.Logger, sink AuditSink, hooks flowHooks) *Flow {
	return &Flow{
		id:         uuid.NewString(),
		config:     cfg,
		backend:    backend,
		logger:     logger,
		metrics:    NewMetrics(cfg.Metrics),
		audit:      newAuditDispatcher(cfg.Audit, sink),
		onComplete: hooks.onComplete,
		onExit:     hooks.onExit,
		onChange:   hooks.onChange,
		state:      Verifying{},
	}
}

// ID identifies this flow instance in logs and audit events.
func (f *Flow) ID() string { return f.id }

// SubmitVerification sends the identity proof. On success the flow moves to
// Resetting; on failure it stays in Verifying with Err set and the entered
// name and email retained.
func (f *Flow) SubmitVerification(ctx context.Context, req VerificationRequest) (err error) {
	req = req.normalized()
	if err := f.begin(PhaseVerifying, func() {
		f.name = req.Name
		f.email = req.Email
	}); err != nil {
		return err
	}

	var outcome func()
	defer func() {
		if !f.settle(outcome) {
			err = ErrFlowClosed
		}
	}()

	ctx, requestID := f.requestContext(ctx)
	locale := localeFromContext(ctx, f.config.Locale)
	log := f.logger.With(zap.String("flow_id", f.id), zap.String("request_id", requestID))
	log.Debug("verification submitted", zap.String("email", req.Email))

	raw, runErr := internalflows.RunVerify(ctx, internalflows.VerifyInput{
		Name:            req.Name,
		Email:           req.Email,
		DefaultPassword: req.DefaultPassword,
	}, f.recoveryDeps(requestID, locale))
	if runErr != nil {
		fe := f.toFlowError(stepVerify, locale, runErr)
		log.Warn("verification failed", zap.Stringer("kind", fe.Kind), zap.Int("status", fe.Status))
		outcome = func() { f.lastErr = fe }
		return fe
	}

	token := NewResetToken(raw)
	next, stateErr := newResetting(token)
	if stateErr != nil {
		fe := &FlowError{Kind: KindServerRejected, Message: defaultMessage(locale, KindServerRejected, f.config.Policy.MinLength), Err: stateErr}
		outcome = func() { f.lastErr = fe }
		return fe
	}
	expiry, _ := token.ExpiresAt()

	log.Info("identity verified", zap.Stringer("token", token))
	outcome = func() {
		f.state = next
		f.tokenExpiry = expiry
		f.lastErr = nil
	}
	return nil
}

// SubmitReset checks the new password locally and, if it passes, sends it with
// the held token. Mismatch and too-short passwords never reach the backend. On
// success the completion callback runs exactly once.
func (f *Flow) SubmitReset(ctx context.Context, newPassword, confirmPassword string) (err error) {
	var token ResetToken
	if err := f.begin(PhaseResetting, func() {
		token = f.state.(Resetting).Token()
	}); err != nil {
		return err
	}

	var (
		outcome  func()
		finished bool
	)
	defer func() {
		if !f.settle(outcome) {
			err = ErrFlowClosed
			return
		}
		if finished {
			f.complete()
		}
	}()

	ctx, requestID := f.requestContext(ctx)
	locale := localeFromContext(ctx, f.config.Locale)
	log := f.logger.With(zap.String("flow_id", f.id), zap.String("request_id", requestID))
	log.Debug("reset submitted")

	runErr := internalflows.RunReset(ctx, internalflows.ResetInput{
		Token:           token.Value(),
		NewPassword:     newPassword,
		ConfirmPassword: confirmPassword,
	}, f.recoveryDeps(requestID, locale))
	if runErr != nil {
		fe := f.toFlowError(stepReset, locale, runErr)
		log.Warn("reset failed", zap.Stringer("kind", fe.Kind), zap.Int("status", fe.Status))
		outcome = func() { f.lastErr = fe }
		return fe
	}

	log.Info("password reset")
	finished = true
	outcome = func() {
		f.completed = true
		f.lastErr = nil
	}
	return nil
}

// ReturnToLogin signals the host to leave the flow (typically a logout). It
// makes no network call and is available in every state. The exit callback
// runs at most once.
func (f *Flow) ReturnToLogin() {
	f.mu.Lock()
	if f.exited || f.closed {
		f.mu.Unlock()
		return
	}
	f.exited = true
	view := f.viewLocked()
	f.mu.Unlock()

	f.metrics.Inc(MetricExit)
	f.emitAudit(context.Background(), auditEventExit, "", true, nil, nil)
	f.logger.Info("returning to login", zap.String("flow_id", f.id), zap.Stringer("phase", view.Phase))

	if f.onExit != nil {
		f.onExit()
	}
	f.notify(view)
}

// Close tears the flow down. Results of submissions still in flight are
// discarded when they arrive and no callback fires afterwards.
func (f *Flow) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	f.mu.Unlock()

	f.audit.Close()
}

// View returns a snapshot for rendering.
func (f *Flow) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.viewLocked()
}

// State returns the current tagged state.
func (f *Flow) State() FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Flow) Phase() Phase {
	return f.State().Phase()
}

func (f *Flow) Loading() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loading
}

// Err returns the error of the latest submission, or nil.
func (f *Flow) Err() *FlowError {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

// MetricsSnapshot exposes counters for the metrics exporters.
func (f *Flow) MetricsSnapshot() MetricsSnapshot {
	return f.metrics.Snapshot()
}

// AuditDropped reports events lost to a full audit buffer.
func (f *Flow) AuditDropped() uint64 {
	return f.audit.Dropped()
}

// begin claims the single in-flight slot. mutate runs under the lock.
func (f *Flow) begin(phase Phase, mutate func()) error {
	f.mu.Lock()

	var err error
	switch {
	case f.closed:
		err = ErrFlowClosed
	case f.exited:
		err = ErrFlowExited
	case f.completed:
		err = ErrFlowCompleted
	case f.loading:
		err = ErrSubmissionInFlight
	case f.state.Phase() != phase:
		err = ErrWrongPhase
	}
	if err != nil {
		f.mu.Unlock()
		if err == ErrSubmissionInFlight {
			f.metrics.Inc(MetricSubmissionIgnored)
		}
		return err
	}

	if mutate != nil {
		mutate()
	}
	f.lastErr = nil
	f.loading = true
	view := f.viewLocked()
	f.mu.Unlock()

	f.notify(view)
	return nil
}

// settle releases the in-flight slot and applies outcome unless the flow was
// closed meanwhile. It reports whether the outcome was applied. It runs from a
// deferred call so the loading flag is cleared even if the backend panics.
func (f *Flow) settle(outcome func()) bool {
	f.mu.Lock()
	f.loading = false
	if f.closed {
		f.mu.Unlock()
		f.metrics.Inc(MetricResultDiscarded)
		f.logger.Debug("result discarded after close", zap.String("flow_id", f.id))
		return false
	}
	if outcome != nil {
		outcome()
	}
	view := f.viewLocked()
	f.mu.Unlock()

	f.notify(view)
	return true
}

func (f *Flow) complete() {
	f.mu.Lock()
	exited := f.exited
	f.mu.Unlock()

	// The host already navigated away.
	if exited || f.onComplete == nil {
		return
	}
	f.onComplete()
}

func (f *Flow) notify(v View) {
	if f.onChange != nil {
		f.onChange(v)
	}
}

func (f *Flow) viewLocked() View {
	v := View{
		Phase:     f.state.Phase(),
		Loading:   f.loading,
		Err:       f.lastErr,
		Name:      f.name,
		Email:     f.email,
		Completed: f.completed,
		Exited:    f.exited,
	}
	if v.Phase == PhaseResetting {
		v.TokenExpiresAt = f.tokenExpiry
	}
	return v
}

func (f *Flow) requestContext(ctx context.Context) (context.Context, string) {
	if ctx == nil {
		ctx = context.Background()
	}
	if id := requestIDFromContext(ctx); id != "" {
		return ctx, id
	}
	id := uuid.NewString()
	return WithRequestID(ctx, id), id
}

func (f *Flow) toFlowError(s step, locale Locale, err error) *FlowError {
	return mapBackendError(s, locale, f.config.Policy.MinLength, err)
}

func (f *Flow) emitAudit(ctx context.Context, event, requestID string, success bool, err error, metadata func() map[string]string) {
	if f.audit == nil {
		return
	}

	ev := AuditEvent{
		Timestamp: time.Now(),
		EventType: event,
		FlowID:    f.id,
		RequestID: requestID,
		Success:   success,
	}
	if err != nil {
		ev.Kind = KindOf(err).String()
		ev.Error = err.Error()
	}
	if metadata != nil {
		ev.Metadata = metadata()
	}
	f.audit.Emit(ctx, ev)
}

func (f *Flow) recoveryDeps(requestID string, locale Locale) internalflows.RecoveryDeps {
	minLength := f.config.Policy.MinLength

	return internalflows.RecoveryDeps{
		Now: time.Now,
		CheckVerification: func(in internalflows.VerifyInput) error {
			req := VerificationRequest{Name: in.Name, Email: in.Email, DefaultPassword: in.DefaultPassword}
			if err := req.Validate(); err != nil {
				return &FlowError{
					Kind:    KindMissingField,
					Message: defaultMessage(locale, KindMissingField, minLength),
					Field:   firstMissingField(err),
					Err:     err,
				}
			}
			return nil
		},
		CheckReset: func(in internalflows.ResetInput) error {
			if kind := checkResetPolicy(in.NewPassword, in.ConfirmPassword, minLength); kind != KindUnknown {
				return newFlowError(kind, defaultMessage(locale, kind, minLength), nil)
			}
			return nil
		},
		Verify: func(ctx context.Context, in internalflows.VerifyInput) (string, error) {
			token, err := f.backend.Verify(ctx, VerificationRequest{
				Name:            in.Name,
				Email:           in.Email,
				DefaultPassword: in.DefaultPassword,
			})
			return token.Value(), err
		},
		Reset: func(ctx context.Context, in internalflows.ResetInput) error {
			return f.backend.Reset(ctx, ResetRequest{
				Token:           NewResetToken(in.Token),
				NewPassword:     in.NewPassword,
				ConfirmPassword: in.ConfirmPassword,
			})
		},
		MapVerifyError: func(err error) error {
			return mapBackendError(stepVerify, locale, minLength, err)
		},
		MapResetError: func(err error) error {
			return mapBackendError(stepReset, locale, minLength, err)
		},
		MetricInc: func(id int) {
			f.metrics.Inc(MetricID(id))
		},
		ObserveLatency: func(id int, d time.Duration) {
			f.metrics.Observe(MetricID(id), d)
		},
		EmitAudit: func(ctx context.Context, event string, success bool, err error, metadata func() map[string]string) {
			f.emitAudit(ctx, event, requestID, success, err, metadata)
		},
		Metrics: internalflows.RecoveryMetrics{
			VerifyAttempt: int(MetricVerifyAttempt),
			VerifySuccess: int(MetricVerifySuccess),
			VerifyFailure: int(MetricVerifyFailure),
			ResetAttempt:  int(MetricResetAttempt),
			ResetSuccess:  int(MetricResetSuccess),
			ResetFailure:  int(MetricResetFailure),
			LocalRejected: int(MetricLocalRejected),
			APILatency:    int(MetricAPILatency),
		},
		Events: internalflows.RecoveryEvents{
			Verify: auditEventVerify,
			Reset:  auditEventReset,
		},
		Errors: internalflows.RecoveryErrors{
			NotReady: ErrFlowClosed,
		},
	}
}
