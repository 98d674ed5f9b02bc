package bench

import (
	"context"
	"fmt"
	"time"

	"kvbench/internal/logger"
	"kvbench/internal/metrics"
	"kvbench/internal/protocol"
	"kvbench/internal/workload"
)

// Session はランナーが操作を発行する相手
// *client.Session が満たす
// ctx のキャンセルは応答待ちで止まった操作も中断できること
type Session interface {
	Put(ctx context.Context, key, value string) (bool, error)
	Get(ctx context.Context, key string) (string, bool, error)
	Delete(ctx context.Context, key string) (bool, error)
}

// maxPreallocSamples は Recorder に先行予約するサンプル数の上限
// これを超える分は append で伸ばす
const maxPreallocSamples = 1 << 16

// Runner はワークロードを1セッション上で逐次実行し、操作ごとの時間を計測する
type Runner struct {
	live  *metrics.Metrics
	scope string
	// shared のランナーは live を共有する子で、集計をリセットしない
	shared bool
}

// NewRunner は新しいランナーを作成する
// live が nil でなければ実行中の進捗をそこへも記録する
func NewRunner(live *metrics.Metrics) *Runner {
	return &Runner{live: live, scope: "bench"}
}

// Live は進捗集計を返す（未設定なら nil）
func (r *Runner) Live() *metrics.Metrics {
	return r.live
}

// Run は gen から最大 opCount 件を取り出して sess に発行する
//
// 各操作のレイテンシは呼び出し直前から直後まで（エンコード・往復・デコード）。
// 接続・プロトコル・タイムアウトのいずれかのエラー、または ctx のキャンセルで
// 中断し、結果は返さない（途中のサンプルは破棄される）。サーバーが失敗
// ステータスを返した操作はエラーではなく、Failed に数えてサンプルも残す。
// gen が opCount 件に満たず尽きた場合、TotalOps は実際に発行した件数になる。
func (r *Runner) Run(ctx context.Context, sess Session, gen workload.Generator, opCount int) (*Result, error) {
	if opCount < 0 {
		return nil, fmt.Errorf("operation count must be non-negative, got %d", opCount)
	}

	label := gen.Label()
	if r.live != nil && !r.shared {
		r.live.Begin(label)
	}
	logger.Debug(r.scope, "Running %s workload: %d ops", label, opCount)

	rec := metrics.NewRecorder(min(opCount, maxPreallocSamples))
	start := time.Now()

	for i := 0; i < opCount; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%s aborted after %d ops: %w", label, i, err)
		}

		item, ok := gen.Next()
		if !ok {
			break
		}

		opStart := time.Now()
		accepted, err := issue(ctx, sess, item)
		latency := time.Since(opStart)
		if err != nil {
			return nil, fmt.Errorf("%s op %d (%s %s): %w", label, i, item.Op, item.Key, err)
		}

		rec.Record(latency, accepted)
		if r.live != nil {
			r.live.Record(latency, accepted)
		}
	}

	duration := time.Since(start)
	failed := rec.Failed()
	total := rec.Len()
	if failed > 0 {
		logger.Debug(r.scope, "%s: %d of %d ops rejected by server", label, failed, total)
	}

	return &Result{
		Operation: label,
		TotalOps:  total,
		Duration:  duration,
		Failed:    failed,
		Latencies: rec.Finish(),
	}, nil
}

// issue は1件を発行し、サーバーが受理したかを返す
// GET はヒットを受理とみなす
func issue(ctx context.Context, sess Session, item workload.Item) (bool, error) {
	switch item.Op {
	case protocol.OpPut:
		return sess.Put(ctx, item.Key, item.Value)
	case protocol.OpGet:
		_, found, err := sess.Get(ctx, item.Key)
		return found, err
	case protocol.OpDelete:
		return sess.Delete(ctx, item.Key)
	default:
		return false, fmt.Errorf("workload item with unsupported opcode %s", item.Op)
	}
}
