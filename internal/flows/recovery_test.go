package flows

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errNotReady = errors.New("not ready")

type recorder struct {
	metrics []int
	events  []string
	success []bool
	latency []time.Duration
}

func testDeps(r *recorder) RecoveryDeps {
	now := time.Unix(0, 0)
	return RecoveryDeps{
		Now: func() time.Time {
			now = now.Add(25 * time.Millisecond)
			return now
		},
		MetricInc:      func(id int) { r.metrics = append(r.metrics, id) },
		ObserveLatency: func(_ int, d time.Duration) { r.latency = append(r.latency, d) },
		EmitAudit: func(_ context.Context, event string, success bool, _ error, metadata func() map[string]string) {
			if metadata != nil {
				_ = metadata()
			}
			r.events = append(r.events, event)
			r.success = append(r.success, success)
		},
		Metrics: RecoveryMetrics{
			VerifyAttempt: 1, VerifySuccess: 2, VerifyFailure: 3,
			ResetAttempt: 4, ResetSuccess: 5, ResetFailure: 6,
			LocalRejected: 7, APILatency: 8,
		},
		Events: RecoveryEvents{Verify: "verify", Reset: "reset"},
		Errors: RecoveryErrors{NotReady: errNotReady},
	}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRunVerifySuccess(t *testing.T) {
	r := &recorder{}
	deps := testDeps(r)
	deps.Verify = func(_ context.Context, in VerifyInput) (string, error) {
		if in.Email != "jean@example.com" {
			t.Fatalf("unexpected input %+v", in)
		}
		return "abc123", nil
	}

	token, err := RunVerify(context.Background(), VerifyInput{Name: "Jean", Email: "jean@example.com", DefaultPassword: "x"}, deps)
	if err != nil || token != "abc123" {
		t.Fatalf("RunVerify = %q, %v", token, err)
	}
	if !equalInts(r.metrics, []int{1, 2}) {
		t.Fatalf("unexpected metrics %v", r.metrics)
	}
	if len(r.latency) != 1 || r.latency[0] != 25*time.Millisecond {
		t.Fatalf("unexpected latency %v", r.latency)
	}
	if len(r.events) != 1 || !r.success[0] {
		t.Fatalf("unexpected audit %v %v", r.events, r.success)
	}
}

func TestRunVerifyMapsBackendError(t *testing.T) {
	r := &recorder{}
	deps := testDeps(r)
	raw := errors.New("401")
	mapped := errors.New("invalid credential")
	deps.Verify = func(context.Context, VerifyInput) (string, error) { return "", raw }
	deps.MapVerifyError = func(err error) error {
		if err != raw {
			t.Fatalf("expected raw backend error, got %v", err)
		}
		return mapped
	}

	if _, err := RunVerify(context.Background(), VerifyInput{}, deps); err != mapped {
		t.Fatalf("expected mapped error, got %v", err)
	}
	if !equalInts(r.metrics, []int{1, 3}) || r.success[0] {
		t.Fatalf("unexpected metrics %v audit %v", r.metrics, r.success)
	}
}

func TestRunVerifyPreflightSkipsBackend(t *testing.T) {
	r := &recorder{}
	deps := testDeps(r)
	missing := errors.New("missing")
	deps.CheckVerification = func(VerifyInput) error { return missing }
	deps.Verify = func(context.Context, VerifyInput) (string, error) {
		t.Fatal("backend must not be called")
		return "", nil
	}

	if _, err := RunVerify(context.Background(), VerifyInput{}, deps); err != missing {
		t.Fatalf("expected preflight error, got %v", err)
	}
	if !equalInts(r.metrics, []int{7}) || len(r.latency) != 0 {
		t.Fatalf("unexpected metrics %v latency %v", r.metrics, r.latency)
	}
}

func TestRunResetPaths(t *testing.T) {
	r := &recorder{}
	deps := testDeps(r)
	calls := 0
	deps.Reset = func(_ context.Context, in ResetInput) error {
		calls++
		if in.Token != "tok" {
			t.Fatalf("unexpected token %q", in.Token)
		}
		return nil
	}
	deps.CheckReset = func(in ResetInput) error {
		if in.NewPassword != in.ConfirmPassword {
			return errors.New("mismatch")
		}
		return nil
	}

	if err := RunReset(context.Background(), ResetInput{Token: "tok", NewPassword: "a", ConfirmPassword: "b"}, deps); err == nil {
		t.Fatal("expected preflight rejection")
	}
	if calls != 0 {
		t.Fatal("backend must not be called on preflight failure")
	}
	if err := RunReset(context.Background(), ResetInput{Token: "tok", NewPassword: "abcdef", ConfirmPassword: "abcdef"}, deps); err != nil {
		t.Fatalf("RunReset: %v", err)
	}
	if calls != 1 || !equalInts(r.metrics, []int{7, 4, 5}) {
		t.Fatalf("unexpected calls %d metrics %v", calls, r.metrics)
	}

	deps.Reset = func(context.Context, ResetInput) error { return errors.New("410") }
	if err := RunReset(context.Background(), ResetInput{Token: "tok", NewPassword: "abcdef", ConfirmPassword: "abcdef"}, deps); err == nil {
		t.Fatal("expected backend failure")
	}
	if !equalInts(r.metrics[3:], []int{4, 6}) {
		t.Fatalf("unexpected failure metrics %v", r.metrics)
	}
}

func TestRunResetWithoutTokenOrBackend(t *testing.T) {
	deps := testDeps(&recorder{})
	if err := RunReset(context.Background(), ResetInput{Token: "tok"}, deps); err != errNotReady {
		t.Fatalf("expected not ready without backend, got %v", err)
	}
	deps.Reset = func(context.Context, ResetInput) error { return nil }
	if err := RunReset(context.Background(), ResetInput{}, deps); err != errNotReady {
		t.Fatalf("expected not ready without token, got %v", err)
	}
	if _, err := RunVerify(context.Background(), VerifyInput{}, RecoveryDeps{Errors: RecoveryErrors{NotReady: errNotReady}}); err != errNotReady {
		t.Fatalf("expected not ready without verify backend, got %v", err)
	}
}
