// Package metrics aggregates benchmark latency samples.
//
// Summarize reduces a latency sample sequence to its mean, p50 and p99.
// Percentiles are picked from the sorted samples, never interpolated, and an
// empty sequence yields all-zero statistics.
//
// # Per-run samples
//
// A Recorder owns the samples of exactly one run:
//
//	rec := metrics.NewRecorder(opCount)
//	start := time.Now()
//	// ... issue one operation ...
//	rec.Record(time.Since(start), ok)
//
//	samples := rec.Finish() // the Recorder cannot be used again
//	s := metrics.Summarize(samples)
//	fmt.Printf("p50 %.3f ms, p99 %.3f ms\n",
//	    metrics.Milliseconds(s.P50), metrics.Milliseconds(s.P99))
//
// # Live progress
//
// Metrics keeps atomic counters and a bounded sample set that the API server
// and progress logging read while a run is still going:
//
//	m := metrics.New()
//	m.Begin("PUT")
//	m.Record(latency, ok)
//	snap := m.Snapshot()
//
// # Thread Safety
//
// Metrics is safe for concurrent access. Recorder is not; each sequential
// runner owns its own.
package metrics
