package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultMaxSamples はライブ集計で保持するレイテンシサンプルの上限
const DefaultMaxSamples = 1000

// Metrics は実行中のベンチマークの進捗を集計する
//
// Recorder が1実行の全サンプルを保持するのに対し、Metrics は API や
// ログに出す途中経過用で、サンプルは直近 maxLatencySamples 件をリングバッファに
// 保持する。p50/p99 は実行の後半に入っても現在の傾向を表す。
// 複数の並列ランナーから同時に更新できる。
type Metrics struct {
	totalRequests   atomic.Uint64
	successRequests atomic.Uint64
	failedRequests  atomic.Uint64
	totalLatencyNs  atomic.Uint64

	mu                sync.RWMutex
	operation         string
	startTime         time.Time
	latencies         []time.Duration
	next              int // 満杯後に上書きする位置（最古のサンプル）
	maxLatencySamples int
}

// New は新しいメトリクスを作成する
func New() *Metrics {
	return NewWithMaxSamples(DefaultMaxSamples)
}

// NewWithMaxSamples はサンプル上限を指定してメトリクスを作成する
func NewWithMaxSamples(maxSamples int) *Metrics {
	if maxSamples <= 0 {
		maxSamples = DefaultMaxSamples
	}
	return &Metrics{
		startTime:         time.Now(),
		latencies:         make([]time.Duration, 0, maxSamples),
		maxLatencySamples: maxSamples,
	}
}

// Begin は新しいワークロードの集計を開始する（カウンタはリセットされる）
func (m *Metrics) Begin(operation string) {
	m.totalRequests.Store(0)
	m.successRequests.Store(0)
	m.failedRequests.Store(0)
	m.totalLatencyNs.Store(0)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.operation = operation
	m.startTime = time.Now()
	m.latencies = m.latencies[:0]
	m.next = 0
}

// Record は1操作の結果を記録する
func (m *Metrics) Record(latency time.Duration, ok bool) {
	if ok {
		m.RecordSuccess(latency)
	} else {
		m.RecordFailure(latency)
	}
}

// RecordSuccess は成功した操作を記録する
func (m *Metrics) RecordSuccess(latency time.Duration) {
	m.successRequests.Add(1)
	m.add(latency)
}

// RecordFailure はサーバーが拒否した操作を記録する
// 往復は完了しているのでレイテンシも集計に含める
func (m *Metrics) RecordFailure(latency time.Duration) {
	m.failedRequests.Add(1)
	m.add(latency)
}

func (m *Metrics) add(latency time.Duration) {
	m.totalRequests.Add(1)
	m.totalLatencyNs.Add(uint64(latency.Nanoseconds()))

	m.mu.Lock()
	if len(m.latencies) < m.maxLatencySamples {
		m.latencies = append(m.latencies, latency)
	} else {
		m.latencies[m.next] = latency
		m.next = (m.next + 1) % m.maxLatencySamples
	}
	m.mu.Unlock()
}

// Operation は集計中のワークロード名を返す
func (m *Metrics) Operation() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.operation
}

// TotalRequests は総リクエスト数を返す
func (m *Metrics) TotalRequests() uint64 {
	return m.totalRequests.Load()
}

// SuccessRequests は成功リクエスト数を返す
func (m *Metrics) SuccessRequests() uint64 {
	return m.successRequests.Load()
}

// FailedRequests は失敗リクエスト数を返す
func (m *Metrics) FailedRequests() uint64 {
	return m.failedRequests.Load()
}

// OpsPerSec は Begin からの平均スループットを返す
func (m *Metrics) OpsPerSec() float64 {
	m.mu.RLock()
	elapsed := time.Since(m.startTime).Seconds()
	m.mu.RUnlock()

	if elapsed == 0 {
		return 0
	}
	return float64(m.totalRequests.Load()) / elapsed
}

// AverageLatency は全操作の平均レイテンシを返す
func (m *Metrics) AverageLatency() time.Duration {
	total := m.totalRequests.Load()
	if total == 0 {
		return 0
	}
	return time.Duration(m.totalLatencyNs.Load() / total)
}

// sampleSummary は保持しているサンプルの統計値を返す
func (m *Metrics) sampleSummary() Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Summarize(m.latencies)
}

// ErrorRate は失敗率を返す（0.0〜1.0）
func (m *Metrics) ErrorRate() float64 {
	total := m.totalRequests.Load()
	if total == 0 {
		return 0
	}
	return float64(m.failedRequests.Load()) / float64(total)
}

// Snapshot はメトリクスのスナップショット
type Snapshot struct {
	Operation       string        `json:"operation"`
	TotalRequests   uint64        `json:"total_requests"`
	SuccessRequests uint64        `json:"success_requests"`
	FailedRequests  uint64        `json:"failed_requests"`
	OpsPerSec       float64       `json:"ops_per_sec"`
	AverageLatency  time.Duration `json:"average_latency"`
	P50Latency      time.Duration `json:"p50_latency"`
	P99Latency      time.Duration `json:"p99_latency"`
	ErrorRate       float64       `json:"error_rate"`
	Elapsed         time.Duration `json:"elapsed"`
}

// Snapshot は現在のメトリクスのスナップショットを返す
func (m *Metrics) Snapshot() Snapshot {
	summary := m.sampleSummary()

	m.mu.RLock()
	operation := m.operation
	elapsed := time.Since(m.startTime)
	m.mu.RUnlock()

	return Snapshot{
		Operation:       operation,
		TotalRequests:   m.TotalRequests(),
		SuccessRequests: m.SuccessRequests(),
		FailedRequests:  m.FailedRequests(),
		OpsPerSec:       m.OpsPerSec(),
		AverageLatency:  m.AverageLatency(),
		P50Latency:      summary.P50,
		P99Latency:      summary.P99,
		ErrorRate:       m.ErrorRate(),
		Elapsed:         elapsed,
	}
}
