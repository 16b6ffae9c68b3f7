package internaldefs

import (
	goRecovery "github.com/MrEthical07/goRecovery"
)

// Def names one exported series.
type Def struct {
	ID   goRecovery.MetricID
	Name string
	Help string
}

// AuditDropped is exported alongside the flow counters.
var AuditDropped = Def{Name: "recovery_audit_dropped_total", Help: "Audit events dropped because the dispatcher buffer was full."}

var CounterDefs = []Def{
	{ID: goRecovery.MetricVerifyAttempt, Name: "recovery_verify_attempt_total", Help: "Verify calls sent to the backend."},
	{ID: goRecovery.MetricVerifySuccess, Name: "recovery_verify_success_total", Help: "Verifications that returned a reset token."},
	{ID: goRecovery.MetricVerifyFailure, Name: "recovery_verify_failure_total", Help: "Verifications rejected by the backend or lost to the network."},
	{ID: goRecovery.MetricResetAttempt, Name: "recovery_reset_attempt_total", Help: "Reset calls sent to the backend."},
	{ID: goRecovery.MetricResetSuccess, Name: "recovery_reset_success_total", Help: "Completed password resets."},
	{ID: goRecovery.MetricResetFailure, Name: "recovery_reset_failure_total", Help: "Resets rejected by the backend or lost to the network."},
	{ID: goRecovery.MetricLocalRejected, Name: "recovery_local_rejected_total", Help: "Submissions stopped by local checks before any request."},
	{ID: goRecovery.MetricSubmissionIgnored, Name: "recovery_submission_ignored_total", Help: "Submissions refused while another was in flight."},
	{ID: goRecovery.MetricResultDiscarded, Name: "recovery_result_discarded_total", Help: "Backend results that arrived after the flow was closed."},
	{ID: goRecovery.MetricExit, Name: "recovery_exit_total", Help: "Return-to-login requests."},
}

var HistogramDefs = []Def{
	{ID: goRecovery.MetricAPILatency, Name: "recovery_api_latency_seconds", Help: "Backend round-trip latency."},
}

// HistogramBounds are the upper bounds, in seconds, of the flow latency
// buckets. HistogramBoundSuffix spells them for instrument names.
var (
	HistogramBounds      = [BucketCount]string{"0.05", "0.1", "0.25", "0.5", "1", "2.5", "5", "+Inf"}
	HistogramBoundSuffix = [BucketCount]string{"0_05", "0_1", "0_25", "0_5", "1", "2_5", "5", "inf"}
)

const BucketCount = 8

// Cumulative converts per-bucket counts (missing trailing buckets read as
// zero) into the cumulative form both exposition formats use.
func Cumulative(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i := 0; i < BucketCount; i++ {
		if i < len(raw) {
			running += raw[i]
		}
		out[i] = running
	}
	return out
}
