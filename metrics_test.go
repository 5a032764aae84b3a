package panelGate

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledNoIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricGatePassThrough)

	if got := m.Value(MetricGatePassThrough); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if snap := m.Snapshot(); len(snap.Counters) != 0 {
		t.Fatalf("expected empty snapshot, got %v", snap.Counters)
	}
}

func TestMetricsEnabledIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricGateCitizenLockout)
	m.Inc(MetricGateCitizenLockout)
	m.Inc(metricIDCount)

	if got := m.Value(MetricGateCitizenLockout); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
}

func TestMetricsConcurrentIncrementSafe(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const goroutines = 32
	const perG = 4000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				m.Inc(MetricGateLoginRedirect)
			}
		}()
	}
	wg.Wait()

	want := uint64(goroutines * perG)
	if got := m.Value(MetricGateLoginRedirect); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestMetricsHistogramBuckets(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})

	observations := []time.Duration{
		500 * time.Nanosecond,
		5 * time.Microsecond,
		10 * time.Microsecond,
		50 * time.Microsecond,
		100 * time.Microsecond,
		500 * time.Microsecond,
		time.Millisecond,
		3 * time.Millisecond,
	}
	for _, d := range observations {
		m.Observe(MetricGateDecisionLatency, d)
	}
	m.Observe(MetricGatePassThrough, time.Second)

	buckets := m.Snapshot().Histograms[MetricGateDecisionLatency]
	if len(buckets) != histBucketCount {
		t.Fatalf("expected %d buckets, got %d", histBucketCount, len(buckets))
	}
	for i, v := range buckets {
		if v != 1 {
			t.Fatalf("bucket %d = %d, want 1", i, v)
		}
	}
}

func TestMetricsHistogramDisabled(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Observe(MetricGateDecisionLatency, time.Microsecond)

	if _, ok := m.Snapshot().Histograms[MetricGateDecisionLatency]; ok {
		t.Fatal("histogram must be absent when latency is disabled")
	}
	if m.LatencyEnabled() {
		t.Fatal("LatencyEnabled should be false")
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.Inc(MetricGatePassThrough)
	m.Observe(MetricGateDecisionLatency, time.Second)
	if m.Enabled() || m.Value(MetricGatePassThrough) != 0 {
		t.Fatal("nil metrics must be inert")
	}
}

func BenchmarkMetricsInc(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Inc(MetricGatePassThrough)
		}
	})
}
