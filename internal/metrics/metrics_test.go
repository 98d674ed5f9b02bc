package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestNewMetrics(t *testing.T) {
	m := New()

	if m.TotalRequests() != 0 {
		t.Errorf("expected 0 total requests, got %d", m.TotalRequests())
	}
	if m.SuccessRequests() != 0 {
		t.Errorf("expected 0 success requests, got %d", m.SuccessRequests())
	}
}

func TestMetricsRecord(t *testing.T) {
	m := New()

	m.Record(10*time.Millisecond, true)
	m.Record(20*time.Millisecond, false)
	m.RecordSuccess(30 * time.Millisecond)

	if m.TotalRequests() != 3 {
		t.Errorf("expected 3 total requests, got %d", m.TotalRequests())
	}
	if m.SuccessRequests() != 2 {
		t.Errorf("expected 2 success requests, got %d", m.SuccessRequests())
	}
	if m.FailedRequests() != 1 {
		t.Errorf("expected 1 failed request, got %d", m.FailedRequests())
	}
	if m.AverageLatency() != 20*time.Millisecond {
		t.Errorf("expected average latency 20ms, got %v", m.AverageLatency())
	}
}

func TestMetricsErrorRate(t *testing.T) {
	m := New()

	m.RecordSuccess(10 * time.Millisecond)
	m.RecordFailure(10 * time.Millisecond)

	if rate := m.ErrorRate(); rate != 0.5 {
		t.Errorf("expected error rate 0.5, got %f", rate)
	}
}

func TestMetricsBeginResets(t *testing.T) {
	m := New()
	m.Begin("PUT")
	m.RecordSuccess(time.Millisecond)
	m.RecordFailure(time.Millisecond)

	m.Begin("GET")

	if m.TotalRequests() != 0 || m.FailedRequests() != 0 {
		t.Errorf("expected counters reset, got total=%d failed=%d", m.TotalRequests(), m.FailedRequests())
	}
	if m.Operation() != "GET" {
		t.Errorf("expected operation GET, got %q", m.Operation())
	}
}

func TestMetricsSampleLimit(t *testing.T) {
	m := NewWithMaxSamples(10)

	for i := 1; i <= 100; i++ {
		m.RecordSuccess(time.Duration(i) * time.Millisecond)
	}

	snap := m.Snapshot()
	// percentiles come from the 10 most recent samples (91ms..100ms)
	if snap.P50Latency != 96*time.Millisecond {
		t.Errorf("expected p50 96ms from the latest samples, got %v", snap.P50Latency)
	}
	if snap.P99Latency != 100*time.Millisecond {
		t.Errorf("expected p99 100ms from the latest samples, got %v", snap.P99Latency)
	}
	if m.TotalRequests() != 100 {
		t.Errorf("expected 100 requests counted, got %d", m.TotalRequests())
	}
}

func TestMetricsSamplesFollowLatencyShift(t *testing.T) {
	tests := []struct {
		name    string
		fast    int
		slow    int
		wantP50 time.Duration
	}{
		{"not full", 1, 2, 50 * time.Millisecond},
		{"exactly full", 2, 2, 50 * time.Millisecond},
		{"wrapped once", 6, 4, 50 * time.Millisecond},
		{"wrapped many times", 1000, 4, 50 * time.Millisecond},
		{"mostly fast", 1000, 1, time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewWithMaxSamples(4)
			for i := 0; i < tt.fast; i++ {
				m.RecordSuccess(time.Millisecond)
			}
			for i := 0; i < tt.slow; i++ {
				m.RecordSuccess(50 * time.Millisecond)
			}
			if got := m.Snapshot().P50Latency; got != tt.wantP50 {
				t.Errorf("expected p50 %v, got %v", tt.wantP50, got)
			}
		})
	}
}

func TestMetricsBeginResetsSamples(t *testing.T) {
	m := NewWithMaxSamples(3)
	for i := 0; i < 7; i++ {
		m.RecordSuccess(time.Second)
	}
	m.Begin("GET")
	m.RecordSuccess(time.Millisecond)
	m.RecordSuccess(2 * time.Millisecond)

	snap := m.Snapshot()
	if snap.P99Latency != 2*time.Millisecond {
		t.Errorf("expected samples from the new workload only, got p99 %v", snap.P99Latency)
	}
}

func TestMetricsConcurrent(t *testing.T) {
	m := New()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				m.RecordSuccess(time.Millisecond)
			}
		}()
	}

	wg.Wait()

	if m.TotalRequests() != 10000 {
		t.Errorf("expected 10000 requests, got %d", m.TotalRequests())
	}
}

func TestMetricsSnapshot(t *testing.T) {
	m := New()
	m.Begin("MIXED (80% reads)")

	m.RecordSuccess(10 * time.Millisecond)
	m.RecordFailure(20 * time.Millisecond)

	snap := m.Snapshot()

	if snap.Operation != "MIXED (80% reads)" {
		t.Errorf("unexpected operation %q", snap.Operation)
	}
	if snap.TotalRequests != 2 {
		t.Errorf("expected 2 total, got %d", snap.TotalRequests)
	}
	if snap.SuccessRequests != 1 {
		t.Errorf("expected 1 success, got %d", snap.SuccessRequests)
	}
	if snap.FailedRequests != 1 {
		t.Errorf("expected 1 failed, got %d", snap.FailedRequests)
	}
	if snap.P50Latency != 20*time.Millisecond {
		t.Errorf("expected p50 20ms, got %v", snap.P50Latency)
	}
}
