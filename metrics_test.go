package goRecovery

import (
	"testing"
	"time"
)

func TestMetricsCountersAndHistogram(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	m.Inc(MetricVerifyAttempt)
	m.Inc(MetricVerifyAttempt)
	m.Inc(metricIDCount)
	m.Observe(MetricAPILatency, 20*time.Millisecond)
	m.Observe(MetricAPILatency, 300*time.Millisecond)
	m.Observe(MetricAPILatency, -time.Second)
	m.Observe(MetricVerifyAttempt, time.Second)

	snap := m.Snapshot()
	if snap.Counters[MetricVerifyAttempt] != 2 {
		t.Fatalf("expected 2 verify attempts, got %d", snap.Counters[MetricVerifyAttempt])
	}
	if _, ok := snap.Counters[MetricAPILatency]; ok {
		t.Fatal("histogram should not appear as a counter")
	}
	buckets := snap.Histograms[MetricAPILatency]
	if len(buckets) != histBucketCount || buckets[0] != 2 || buckets[3] != 1 {
		t.Fatalf("unexpected buckets %v", buckets)
	}
	if sum := snap.HistogramSums[MetricAPILatency]; sum != 320*time.Millisecond {
		t.Fatalf("expected sum 320ms, got %v", sum)
	}
}

func TestMetricsDisabled(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false, EnableLatencyHistograms: true})
	m.Inc(MetricExit)
	m.Observe(MetricAPILatency, time.Millisecond)
	if m.Enabled() || m.Value(MetricExit) != 0 {
		t.Fatal("disabled metrics should record nothing")
	}
	if snap := m.Snapshot(); len(snap.Counters) != 0 || len(snap.Histograms) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}

	var nilMetrics *Metrics
	nilMetrics.Inc(MetricExit)
	if nilMetrics.Value(MetricExit) != 0 || nilMetrics.Snapshot().Counters == nil {
		t.Fatal("nil metrics should be usable")
	}
}

func TestMetricsWithoutHistograms(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Observe(MetricAPILatency, time.Millisecond)
	if _, ok := m.Snapshot().Histograms[MetricAPILatency]; ok {
		t.Fatal("expected no histogram when latency histograms are off")
	}
}

func TestBucketIndexBoundaries(t *testing.T) {
	tests := map[time.Duration]int{
		0:                      0,
		50 * time.Millisecond:  0,
		51 * time.Millisecond:  1,
		250 * time.Millisecond: 2,
		time.Second:            4,
		5 * time.Second:        6,
		time.Minute:            7,
	}
	for d, want := range tests {
		if got := bucketIndex(d); got != want {
			t.Fatalf("bucketIndex(%v) = %d, want %d", d, got, want)
		}
	}
}

func BenchmarkMetricsInc(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Inc(MetricVerifyAttempt)
		}
	})
}
