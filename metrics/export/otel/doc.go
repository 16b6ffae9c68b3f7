// Package otel publishes goRecovery flow metrics through an OpenTelemetry
// Meter supplied by the caller.
//
// Each counter becomes an Int64ObservableCounter. The latency histogram is
// exposed as one Int64ObservableGauge per cumulative bucket plus count and
// sum gauges. A single callback reads the snapshot on every collection.
package otel
