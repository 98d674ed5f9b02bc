package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"kvbench/internal/logger"
)

// Job はワーカーが実行するジョブを表す
// プールのコンテキストが渡され、キャンセル後に取り出されたジョブもすぐ返れるようにする
type Job func(ctx context.Context) error

// PoolConfig はワーカープールの設定
type PoolConfig struct {
	NumWorkers  int // ワーカー数（0でCPU数）
	QueueFactor int // キューサイズ = NumWorkers * QueueFactor
}

// DefaultPoolConfig はデフォルト設定を返す
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		NumWorkers:  0,
		QueueFactor: 4,
	}
}

// Pool は固定数のゴルーチンでジョブを実行し、エラーを集約する
type Pool struct {
	numWorkers int
	queueSize  int

	mu       sync.RWMutex
	jobs     chan Job
	ctx      context.Context
	cancel   context.CancelFunc
	started  bool
	stopping atomic.Bool

	workers sync.WaitGroup
	pending sync.WaitGroup

	errMu sync.Mutex
	errs  []error
}

// NewPool は新しいワーカープールを作成する
// numWorkers が 0 以下の場合は CPU 数を使用
func NewPool(numWorkers int) *Pool {
	config := DefaultPoolConfig()
	config.NumWorkers = numWorkers
	return NewPoolWithConfig(config)
}

// NewPoolWithConfig は設定を指定してワーカープールを作成する
func NewPoolWithConfig(config PoolConfig) *Pool {
	numWorkers := config.NumWorkers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	queueFactor := config.QueueFactor
	if queueFactor <= 0 {
		queueFactor = DefaultPoolConfig().QueueFactor
	}
	return &Pool{
		numWorkers: numWorkers,
		queueSize:  numWorkers * queueFactor,
	}
}

// Start はワーカープールを起動する。起動済みなら何もしない
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return
	}

	p.ctx, p.cancel = context.WithCancel(ctx)
	p.jobs = make(chan Job, p.queueSize)
	p.started = true

	for i := 0; i < p.numWorkers; i++ {
		p.workers.Add(1)
		go p.worker(p.jobs)
	}

	logger.Debug("pool", "WorkerPool started with %d workers", p.numWorkers)
}

func (p *Pool) worker(jobs <-chan Job) {
	defer p.workers.Done()
	for job := range jobs {
		p.run(job)
	}
}

func (p *Pool) run(job Job) {
	defer p.pending.Done()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("pool", "Job panicked: %v", r)
			p.record(fmt.Errorf("job panicked: %v", r))
		}
	}()

	if err := job(p.ctx); err != nil {
		p.record(err)
	}
}

func (p *Pool) record(err error) {
	p.errMu.Lock()
	defer p.errMu.Unlock()
	p.errs = append(p.errs, err)
}

// Submit はジョブをキューに入れる。キューが満杯、未起動、停止中なら false
func (p *Pool) Submit(job Job) bool {
	return p.submit(job, false)
}

// SubmitWait はジョブを送信し、キューに空きがなければブロックする
func (p *Pool) SubmitWait(job Job) bool {
	return p.submit(job, true)
}

func (p *Pool) submit(job Job, wait bool) bool {
	if p.stopping.Load() {
		return false
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.started || p.ctx.Err() != nil {
		return false
	}

	p.pending.Add(1)
	if wait {
		select {
		case <-p.ctx.Done():
		case p.jobs <- job:
			return true
		}
	} else {
		select {
		case p.jobs <- job:
			return true
		default:
		}
	}
	p.pending.Done()
	return false
}

// Wait は受け付けた全ジョブの完了を待ち、ジョブのエラーをまとめて返す
// 返したエラーはクリアされる
func (p *Pool) Wait() error {
	p.pending.Wait()

	p.errMu.Lock()
	defer p.errMu.Unlock()
	err := errors.Join(p.errs...)
	p.errs = nil
	return err
}

// Stop はワーカープールを停止する
// キャンセル済みのコンテキストでキュー内のジョブを流し切ってから返る
func (p *Pool) Stop() {
	p.stopping.Store(true)
	defer p.stopping.Store(false)

	p.mu.RLock()
	if !p.started {
		p.mu.RUnlock()
		return
	}
	p.cancel()
	p.mu.RUnlock()

	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	close(p.jobs)
	p.started = false
	p.mu.Unlock()

	p.workers.Wait()
	logger.Debug("pool", "WorkerPool stopped")
}

// NumWorkers はワーカー数を返す
func (p *Pool) NumWorkers() int {
	return p.numWorkers
}

// QueueSize は現在キューに積まれているジョブ数を返す
func (p *Pool) QueueSize() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.jobs)
}

// Run は numWorkers 個のワーカーで jobs を全て実行し、完了を待つ
// ctx がキャンセルされると未投入のジョブは実行されず、ctx のエラーも返す
func Run(ctx context.Context, numWorkers int, jobs ...Job) error {
	pool := NewPoolWithConfig(PoolConfig{NumWorkers: numWorkers, QueueFactor: 1})
	pool.Start(ctx)
	defer pool.Stop()

	for _, job := range jobs {
		if !pool.SubmitWait(job) {
			break
		}
	}

	err := pool.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return errors.Join(err, ctxErr)
	}
	return err
}
