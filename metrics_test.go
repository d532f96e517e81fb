package authsession

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledIsNoOp(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricLoginSuccess)
	m.Observe(MetricRefreshLatency, time.Millisecond)

	if m.Value(MetricLoginSuccess) != 0 {
		t.Fatal("disabled metrics must not count")
	}
	s := m.Snapshot()
	if len(s.Counters) != 0 || len(s.Histograms) != 0 {
		t.Fatalf("snapshot = %+v", s)
	}

	var nilMetrics *Metrics
	nilMetrics.Inc(MetricLoginSuccess)
	if nilMetrics.Enabled() {
		t.Fatal("nil metrics must report disabled")
	}
}

func TestMetricsCountersAndSnapshot(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricRefreshSuccess)
	m.Inc(MetricRefreshSuccess)
	m.Inc(MetricSessionExpired)

	if m.Value(MetricRefreshSuccess) != 2 {
		t.Fatalf("value = %d", m.Value(MetricRefreshSuccess))
	}
	s := m.Snapshot()
	if s.Counters[MetricRefreshSuccess] != 2 || s.Counters[MetricSessionExpired] != 1 {
		t.Fatalf("snapshot counters = %+v", s.Counters)
	}
	if len(s.Histograms) != 0 {
		t.Fatal("histograms must be absent without latency enabled")
	}
}

func TestMetricsLatencyBuckets(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})

	samples := []time.Duration{
		3 * time.Millisecond,   // bucket 0
		8 * time.Millisecond,   // bucket 1
		90 * time.Millisecond,  // bucket 4
		400 * time.Millisecond, // bucket 6
		2 * time.Second,        // bucket 7
	}
	for _, d := range samples {
		m.Observe(MetricRefreshLatency, d)
	}

	buckets := m.Snapshot().Histograms[MetricRefreshLatency]
	want := []uint64{1, 1, 0, 0, 1, 0, 1, 1}
	for i := range want {
		if buckets[i] != want[i] {
			t.Fatalf("buckets = %v, want %v", buckets, want)
		}
	}

	// Only the refresh latency ID records histogram samples.
	m.Observe(MetricLoginSuccess, time.Millisecond)
	if got := m.Snapshot().Histograms[MetricRefreshLatency]; got[0] != 1 {
		t.Fatalf("unexpected bucket mutation: %v", got)
	}
}

func TestMetricsConcurrentInc(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				m.Inc(MetricRefreshShortCircuit)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricRefreshShortCircuit); got != 8000 {
		t.Fatalf("value = %d, want 8000", got)
	}
}
