package bench

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kvbench/internal/logger"
	"kvbench/internal/worker"
	"kvbench/internal/workload"
)

// ClosableSession は並列実行でランナーが所有するセッション
type ClosableSession interface {
	Session
	Close() error
}

// Part は並列実行で1接続が受け持つ範囲
type Part struct {
	Conn  int // 接続番号
	Start int // 担当するキー番号の先頭
	Count int // 担当する操作数
}

// Split は total 件を n 接続に分ける。余りは先頭の接続から1件ずつ配る
func Split(total, n int) []Part {
	if n < 1 {
		return nil
	}
	parts := make([]Part, n)
	start := 0
	for i := range parts {
		count := total / n
		if i < total%n {
			count++
		}
		parts[i] = Part{Conn: i, Start: start, Count: count}
		start += count
	}
	return parts
}

// ParallelConfig は並列実行の設定
type ParallelConfig struct {
	Connections int // 接続数（1以上）
	// Dial は接続ごとに新しいセッションを開く
	Dial func(ctx context.Context) (ClosableSession, error)
	// NewGenerator は担当範囲ごとのジェネレータを作る
	NewGenerator func(part Part) workload.Generator
}

// RunParallel は totalOps 件を Connections 本のセッションに分けて実行する
//
// セッションは共有しない。各接続は独立した逐次ランナーで、ワーカープールの
// ジョブとして動く。いずれかの接続が失敗すれば残りも止めて全体を失敗とし、
// 結果は返さない。結果の Duration は全体の壁時計時間で、スループットは
// 全接続の合算になる。
func (r *Runner) RunParallel(ctx context.Context, config ParallelConfig, totalOps int) (*Result, error) {
	if config.Connections < 1 {
		return nil, fmt.Errorf("connections must be at least 1, got %d", config.Connections)
	}
	if config.Dial == nil || config.NewGenerator == nil {
		return nil, errors.New("parallel run needs Dial and NewGenerator")
	}
	if totalOps < 0 {
		return nil, fmt.Errorf("operation count must be non-negative, got %d", totalOps)
	}

	// 1接続の失敗で残りの接続も止める
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	parts := Split(totalOps, config.Connections)
	results := make([]*Result, len(parts))
	jobs := make([]worker.Job, len(parts))
	label := ""

	for i, part := range parts {
		i, part := i, part
		gen := config.NewGenerator(part)
		if label == "" {
			label = gen.Label()
		}
		jobs[i] = func(context.Context) error {
			sess, err := config.Dial(runCtx)
			if err != nil {
				cancel()
				return fmt.Errorf("conn %d: %w", part.Conn, err)
			}
			defer sess.Close()

			child := &Runner{live: r.live, scope: fmt.Sprintf("bench-%d", part.Conn), shared: true}
			res, err := child.Run(runCtx, sess, gen, part.Count)
			if err != nil {
				cancel()
				return fmt.Errorf("conn %d: %w", part.Conn, err)
			}
			results[i] = res
			return nil
		}
	}

	if r.live != nil {
		r.live.Begin(label)
	}
	logger.Debug(r.scope, "Running %s workload on %d connections: %d ops total", label, config.Connections, totalOps)

	start := time.Now()
	if err := worker.Run(ctx, config.Connections, jobs...); err != nil {
		return nil, err
	}

	merged := MergeResults(results...)
	merged.Operation = label
	merged.Duration = time.Since(start)
	return merged, nil
}
