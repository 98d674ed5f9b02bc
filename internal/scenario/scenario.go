package scenario

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"kvbench/internal/bench"
	"kvbench/internal/client"
	"kvbench/internal/events"
	"kvbench/internal/logger"
	"kvbench/internal/metrics"
	"kvbench/internal/protocol"
	"kvbench/internal/workload"
)

// Mode はどのワークロードを実行するか
type Mode string

const (
	ModePut   Mode = "put"
	ModeGet   Mode = "get"
	ModeMixed Mode = "mixed"
	ModeAll   Mode = "all"
)

// ParseMode は文字列をモードに変換する（大文字小文字は区別しない）
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModePut, ModeGet, ModeMixed, ModeAll:
		return m, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want put, get, mixed or all)", s)
	}
}

// Phases はモードで実行するワークロードを実行順に返す
func (m Mode) Phases() []Mode {
	if m == ModeAll {
		return []Mode{ModePut, ModeGet, ModeMixed}
	}
	return []Mode{m}
}

// Config はベンチマークの設定
type Config struct {
	Name        string // ベンチマーク名
	Description string // 説明

	// 接続先
	Host        string
	Port        int
	Connections int              // 並列接続数（1で逐次）
	Timeout     time.Duration    // 1操作あたりのタイムアウト（0で無制限）
	DialTimeout time.Duration    // 接続タイムアウト
	Framing     protocol.Framing // 応答の区切り方

	// ワークロード
	Ops       int  // ワークロードごとの操作数
	KeySize   int  // キーサイズ（レポート用。キーは bench_key_ 形式で固定）
	ValueSize int  // PUT の値サイズ
	Mode      Mode // put, get, mixed, all

	// 混合ワークロード
	ReadRatio      float64 // 読み込み比率
	MixedValueSize int     // 混合ワークロードでの値サイズ
	MixedKeyRange  int     // キー番号の範囲 [0, MixedKeyRange)、0で Ops+1

	Seed int64 // 値生成のシード（0で時刻から）
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() Config {
	return Config{
		Name:           "default",
		Description:    "PUT, GET and mixed workloads on one connection",
		Host:           "localhost",
		Port:           6379,
		Connections:    1,
		DialTimeout:    5 * time.Second,
		Ops:            10000,
		KeySize:        16,
		ValueSize:      100,
		Mode:           ModeAll,
		ReadRatio:      workload.DefaultReadRatio,
		MixedValueSize: workload.DefaultMixedValueSize,
	}
}

// Validate は設定を検証する
func (c Config) Validate() error {
	if c.Host == "" {
		return errors.New("host must not be empty")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.Ops < 0 {
		return fmt.Errorf("ops must be non-negative, got %d", c.Ops)
	}
	if c.KeySize < 0 || c.ValueSize < 0 || c.MixedValueSize < 0 {
		return errors.New("sizes must be non-negative")
	}
	if _, err := ParseMode(string(c.Mode)); err != nil {
		return err
	}
	if c.ReadRatio < 0 || c.ReadRatio > 1 {
		return fmt.Errorf("read ratio must be between 0 and 1, got %g", c.ReadRatio)
	}
	if c.MixedKeyRange < 0 {
		return fmt.Errorf("mixed key range must be non-negative, got %d", c.MixedKeyRange)
	}
	if c.Connections < 1 {
		return fmt.Errorf("connections must be at least 1, got %d", c.Connections)
	}
	if c.Timeout < 0 || c.DialTimeout < 0 {
		return errors.New("timeouts must be non-negative")
	}
	if c.Framing != protocol.FramingMessage && c.Framing != protocol.FramingStatusOnly {
		return fmt.Errorf("unknown framing %s", c.Framing)
	}
	return nil
}

// Target は接続先アドレスを返す
func (c Config) Target() string {
	return client.Addr(c.Host, c.Port)
}

func (c Config) clientConfig() client.Config {
	cc := client.DefaultConfig()
	cc.Timeout = c.Timeout
	cc.DialTimeout = c.DialTimeout
	cc.Framing = c.Framing
	return cc
}

// Engine はベンチマーク実行エンジン
type Engine struct {
	config   Config
	eventBus *events.Bus
	live     *metrics.Metrics

	mu      sync.RWMutex
	running bool
	results []*bench.Result
}

// New は新しいEngineを作成する
func New(config Config) *Engine {
	return &Engine{
		config: config,
		live:   metrics.New(),
	}
}

// SetEventBus はイベントバスを設定する
func (e *Engine) SetEventBus(bus *events.Bus) {
	e.eventBus = bus
}

// Config は設定を返す
func (e *Engine) Config() Config {
	return e.config
}

// Run は接続、PING による疎通確認、各ワークロードの実行を順に行う
//
// PING が失敗すると計測を始める前に中断する。どのワークロードが失敗しても
// 以降は実行せず、結果は返さない。
func (e *Engine) Run(ctx context.Context) ([]*bench.Result, error) {
	if err := e.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil, errors.New("benchmark is already running")
	}
	e.running = true
	e.results = nil
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	target := e.config.Target()
	logger.Info("", "=== Benchmark '%s' against %s ===", e.config.Name, target)
	logger.Info("", "Ops: %d, key size: %d, value size: %d, mode: %s, connections: %d",
		e.config.Ops, e.config.KeySize, e.config.ValueSize, e.config.Mode, e.config.Connections)

	sess, err := client.Connect(ctx, e.config.Host, e.config.Port, e.config.clientConfig())
	if err != nil {
		e.publish(events.NewRunFailedEvent(target, "", err))
		return nil, err
	}
	defer sess.Close()

	if err := e.ping(ctx, sess); err != nil {
		e.publish(events.NewRunFailedEvent(target, "PING", err))
		return nil, err
	}

	runner := bench.NewRunner(e.live)
	results := make([]*bench.Result, 0, 3)

	for _, phase := range e.config.Mode.Phases() {
		res, err := e.runPhase(ctx, runner, sess, phase)
		if err != nil {
			logger.Error("", "%s workload failed: %v", phase, err)
			e.publish(events.NewRunFailedEvent(target, string(phase), err))
			return nil, err
		}

		logger.Info("", "%s", res)
		e.publish(events.NewRunCompleteEvent(target, resultEventData(res, e.config.Connections)))
		results = append(results, res)

		e.mu.Lock()
		e.results = append(e.results, res)
		e.mu.Unlock()
	}

	e.publish(events.NewSuiteCompleteEvent(target, len(results)))
	logger.Info("", "=== Benchmark '%s' completed ===", e.config.Name)
	return results, nil
}

// ping は疎通確認を行う。通信エラーはその分類のまま ErrPingFailed でも包む
func (e *Engine) ping(ctx context.Context, sess *client.Session) error {
	start := time.Now()
	ok, err := sess.Ping(ctx)
	latency := time.Since(start)
	e.publish(events.NewPingEvent(sess.Addr(), err == nil && ok, latency))

	if err != nil {
		return fmt.Errorf("%w: %w", ErrPingFailed, err)
	}
	if !ok {
		return fmt.Errorf("%w: server at %s rejected PING", ErrPingFailed, sess.Addr())
	}
	logger.Debug("", "PING ok in %v", latency)
	return nil
}

func (e *Engine) runPhase(ctx context.Context, runner *bench.Runner, sess *client.Session, phase Mode) (*bench.Result, error) {
	cfg := e.config
	target := cfg.Target()

	if cfg.Connections <= 1 {
		gen := e.generator(phase, bench.Part{Start: 0, Count: cfg.Ops})
		e.publish(events.NewRunStartEvent(target, gen.Label(), cfg.Ops, 1))
		return runner.Run(ctx, sess, gen, cfg.Ops)
	}

	pc := bench.ParallelConfig{
		Connections: cfg.Connections,
		Dial: func(ctx context.Context) (bench.ClosableSession, error) {
			return client.Connect(ctx, cfg.Host, cfg.Port, cfg.clientConfig())
		},
		NewGenerator: func(part bench.Part) workload.Generator {
			return e.generator(phase, part)
		},
	}
	e.publish(events.NewRunStartEvent(target, e.generator(phase, bench.Part{}).Label(), cfg.Ops, cfg.Connections))
	return runner.RunParallel(ctx, pc, cfg.Ops)
}

// generator は担当範囲のジェネレータを作る
// シードを指定した場合、接続ごとにシードをずらして再現性を保つ
func (e *Engine) generator(phase Mode, part bench.Part) workload.Generator {
	cfg := e.config
	seed := cfg.Seed
	if seed != 0 {
		seed += int64(part.Conn)
	}
	rnd := workload.NewSource(seed)

	switch phase {
	case ModeGet:
		return workload.NewGetRange(part.Start, part.Count)
	case ModeMixed:
		keyRange := cfg.MixedKeyRange
		if keyRange <= 0 {
			keyRange = cfg.Ops + 1
		}
		return workload.NewMixed(part.Count, workload.MixedConfig{
			ReadRatio: cfg.ReadRatio,
			ValueSize: cfg.MixedValueSize,
			KeyRange:  keyRange,
		}, rnd)
	default:
		return workload.NewPutRange(part.Start, part.Count, cfg.ValueSize, rnd)
	}
}

func (e *Engine) publish(ev events.Event) {
	if e.eventBus != nil {
		e.eventBus.Publish(ev)
	}
}

// IsRunning は実行中かどうかを返す
func (e *Engine) IsRunning() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.running
}

// Results は完了したワークロードの結果を返す
func (e *Engine) Results() []*bench.Result {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*bench.Result, len(e.results))
	copy(out, e.results)
	return out
}

// Metrics は実行中のワークロードの途中経過を返す
func (e *Engine) Metrics() *metrics.Snapshot {
	snapshot := e.live.Snapshot()
	return &snapshot
}

// RunBenchmark は既定値に host, port, 操作数, サイズ, モードを上書きして実行する
func RunBenchmark(ctx context.Context, host string, port, opCount, keySize, valueSize int, mode Mode) ([]*bench.Result, error) {
	config := DefaultConfig()
	config.Name = "benchmark"
	config.Host = host
	config.Port = port
	config.Ops = opCount
	config.KeySize = keySize
	config.ValueSize = valueSize
	config.Mode = mode
	return New(config).Run(ctx)
}
