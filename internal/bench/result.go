package bench

import (
	"fmt"
	"time"

	"kvbench/internal/metrics"
)

// Result は1ワークロード実行の結果
//
// 統計値は Latencies から都度計算する。Latencies は実行ごとに新しく確保され、
// 他の実行と共有されない。
type Result struct {
	Operation string          // ワークロードのラベル（"PUT", "GET", "MIXED (80% reads)"）
	TotalOps  int             // 実際に発行した操作数
	Duration  time.Duration   // 最初の操作開始から最後の操作完了まで
	Failed    int             // サーバーが失敗ステータスを返した操作数
	Latencies []time.Duration // 発行順の操作ごとのレイテンシ
}

// DurationSec は実行時間を秒で返す
func (r *Result) DurationSec() float64 {
	return r.Duration.Seconds()
}

// OpsPerSec はスループットを返す。実行時間が0なら0
func (r *Result) OpsPerSec() float64 {
	secs := r.DurationSec()
	if secs <= 0 {
		return 0
	}
	return float64(r.TotalOps) / secs
}

// Summary はレイテンシ統計を返す
func (r *Result) Summary() metrics.Summary {
	return metrics.Summarize(r.Latencies)
}

// AvgLatencyMs は平均レイテンシをミリ秒で返す
func (r *Result) AvgLatencyMs() float64 {
	return metrics.Milliseconds(r.Summary().Mean)
}

// P50LatencyMs は中央値レイテンシをミリ秒で返す
func (r *Result) P50LatencyMs() float64 {
	return metrics.Milliseconds(r.Summary().P50)
}

// P99LatencyMs は99パーセンタイルレイテンシをミリ秒で返す
func (r *Result) P99LatencyMs() float64 {
	return metrics.Milliseconds(r.Summary().P99)
}

// String は1行の要約を返す
func (r *Result) String() string {
	s := r.Summary()
	return fmt.Sprintf("%s: %d ops in %.3fs (%.2f ops/sec, avg %.3fms, p50 %.3fms, p99 %.3fms)",
		r.Operation, r.TotalOps, r.DurationSec(), r.OpsPerSec(),
		metrics.Milliseconds(s.Mean), metrics.Milliseconds(s.P50), metrics.Milliseconds(s.P99))
}

// MergeResults は並列実行の結果を1つにまとめる
//
// 操作数・失敗数・サンプルは合算し、実行時間は最も長いものを採る。
// ラベルは最初の結果のものを使う。nil は無視する。
func MergeResults(results ...*Result) *Result {
	merged := &Result{}
	total := 0
	for _, r := range results {
		if r != nil {
			total += len(r.Latencies)
		}
	}
	merged.Latencies = make([]time.Duration, 0, total)

	for _, r := range results {
		if r == nil {
			continue
		}
		if merged.Operation == "" {
			merged.Operation = r.Operation
		}
		merged.TotalOps += r.TotalOps
		merged.Failed += r.Failed
		merged.Duration = max(merged.Duration, r.Duration)
		merged.Latencies = append(merged.Latencies, r.Latencies...)
	}
	return merged
}
