package metrics

import "time"

// Recorder は1回のベンチマーク実行に閉じたレイテンシサンプルのビルダー
//
// サンプルは追記のみで、Finish で一度だけ取り出せる。取り出し後の Record は
// panic する。実行をまたいだ再利用を防ぐため、実行ごとに新しく作ること。
// 並行利用には対応しない（1セッション・逐次実行が前提）。
type Recorder struct {
	samples  []time.Duration
	failed   int
	finished bool
}

// NewRecorder は容量を予約した Recorder を作成する
func NewRecorder(capacity int) *Recorder {
	if capacity < 0 {
		capacity = 0
	}
	return &Recorder{
		samples: make([]time.Duration, 0, capacity),
	}
}

// Record は完了した1操作のレイテンシを追加する
// ok が false の場合はアプリケーションレベルの失敗として数える
func (r *Recorder) Record(latency time.Duration, ok bool) {
	if r.finished {
		panic("metrics: Record called on a finished Recorder")
	}
	r.samples = append(r.samples, latency)
	if !ok {
		r.failed++
	}
}

// Len は記録済みのサンプル数を返す
func (r *Recorder) Len() int {
	return len(r.samples)
}

// Failed はアプリケーションレベルで失敗した操作数を返す
func (r *Recorder) Failed() int {
	return r.failed
}

// Finish はサンプル列を取り出して Recorder を閉じる
func (r *Recorder) Finish() []time.Duration {
	if r.finished {
		panic("metrics: Finish called twice")
	}
	r.finished = true
	samples := r.samples
	r.samples = nil
	return samples
}
