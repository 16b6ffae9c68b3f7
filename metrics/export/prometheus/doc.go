// Package prometheus renders goRecovery flow metrics in the Prometheus text
// exposition format.
//
// Series are named recovery_*_total plus the recovery_api_latency_seconds
// histogram. Nothing is registered globally; callers mount [Exporter.Handler]
// or call [Exporter.Render] themselves.
package prometheus
