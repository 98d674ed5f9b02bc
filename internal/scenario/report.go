package scenario

import (
	"fmt"
	"strings"

	"kvbench/internal/bench"
	"kvbench/internal/events"
)

// ResultSummary は1ワークロードの結果の出力用表現
type ResultSummary struct {
	Operation    string  `json:"operation"`
	TotalOps     int     `json:"total_ops"`
	Failed       int     `json:"failed"`
	DurationSec  float64 `json:"duration_sec"`
	OpsPerSec    float64 `json:"ops_per_sec"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
	P50LatencyMs float64 `json:"p50_latency_ms"`
	P99LatencyMs float64 `json:"p99_latency_ms"`
}

// Summarize は結果を出力用表現に変換する
func Summarize(results []*bench.Result) []ResultSummary {
	out := make([]ResultSummary, 0, len(results))
	for _, r := range results {
		if r == nil {
			continue
		}
		out = append(out, ResultSummary{
			Operation:    r.Operation,
			TotalOps:     r.TotalOps,
			Failed:       r.Failed,
			DurationSec:  r.DurationSec(),
			OpsPerSec:    r.OpsPerSec(),
			AvgLatencyMs: r.AvgLatencyMs(),
			P50LatencyMs: r.P50LatencyMs(),
			P99LatencyMs: r.P99LatencyMs(),
		})
	}
	return out
}

func resultEventData(r *bench.Result, connections int) events.EventData {
	return events.EventData{
		Operation:    r.Operation,
		Ops:          r.TotalOps,
		Connections:  connections,
		Failed:       r.Failed,
		DurationSec:  r.DurationSec(),
		OpsPerSec:    r.OpsPerSec(),
		AvgLatencyMs: r.AvgLatencyMs(),
		P50LatencyMs: r.P50LatencyMs(),
		P99LatencyMs: r.P99LatencyMs(),
	}
}

const rule = "================================================================================"

// Report は結果をフォーマットして返す
func Report(config Config, results []*bench.Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "\n%s\n", rule)
	fmt.Fprintf(&b, "                         BENCHMARK REPORT: %s\n", config.Name)
	fmt.Fprintf(&b, "%s\n\n", rule)

	b.WriteString("CONFIGURATION\n")
	b.WriteString("-------------\n")
	fmt.Fprintf(&b, "  Target:         %s\n", config.Target())
	fmt.Fprintf(&b, "  Operations:     %d\n", config.Ops)
	fmt.Fprintf(&b, "  Key Size:       %d bytes\n", config.KeySize)
	fmt.Fprintf(&b, "  Value Size:     %d bytes\n", config.ValueSize)
	fmt.Fprintf(&b, "  Mode:           %s\n", config.Mode)
	fmt.Fprintf(&b, "  Connections:    %d\n", config.Connections)

	for _, s := range Summarize(results) {
		fmt.Fprintf(&b, "\n%s\n", s.Operation)
		b.WriteString(strings.Repeat("-", len(s.Operation)) + "\n")
		fmt.Fprintf(&b, "  Total Operations: %d\n", s.TotalOps)
		if s.Failed > 0 {
			fmt.Fprintf(&b, "  Failed:           %d\n", s.Failed)
		}
		fmt.Fprintf(&b, "  Duration:         %.3f s\n", s.DurationSec)
		fmt.Fprintf(&b, "  Throughput:       %.2f ops/sec\n", s.OpsPerSec)
		fmt.Fprintf(&b, "  Avg Latency:      %.3f ms\n", s.AvgLatencyMs)
		fmt.Fprintf(&b, "  P50 Latency:      %.3f ms\n", s.P50LatencyMs)
		fmt.Fprintf(&b, "  P99 Latency:      %.3f ms\n", s.P99LatencyMs)
	}

	fmt.Fprintf(&b, "\n%s", rule)
	return b.String()
}
