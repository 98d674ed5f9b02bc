// Package main is the entry point for kvbench.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kvbench/internal/config"
	"kvbench/internal/events"
	"kvbench/internal/logger"
	"kvbench/internal/protocol"
	"kvbench/internal/scenario"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
)

// options はコマンドラインフラグの値
type options struct {
	configFile string
	preset     string
	logLevel   string
	jsonOutput bool

	host           string
	port           int
	connections    int
	timeout        time.Duration
	dialTimeout    time.Duration
	framing        string
	ops            int
	keySize        int
	valueSize      int
	mode           string
	readRatio      float64
	mixedValueSize int
	keyRange       int
	seed           int64
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout))
}

// run はコマンドを実行し、プロセスの終了コードを返す
func run(ctx context.Context, args []string, stdout io.Writer) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)

	if err := cmd.ExecuteContext(ctx); err != nil {
		class := scenario.Classify(err)
		logger.Error("", "%s error: %v", class, err)
		return class.ExitCode()
	}
	return 0
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "kvbench",
		Short: "Benchmark a key-value server over its binary protocol",
		Long: `kvbench drives a key-value server with PUT, GET and mixed workloads,
measures client-observed latency and reports throughput with p50/p99 latency.

Settings are resolved in order: preset, then config file, then flags.

Exit codes:
  0  success
  1  other error (bad flags, invalid config)
  2  connection error
  3  protocol error
  4  timeout
  5  liveness check (PING) failed`,
		Example: `  # 全ワークロードを既定値で実行
  kvbench --host 127.0.0.1 --port 6379

  # 混合ワークロードのみ、読み込み95%
  kvbench --mode mixed --read-ratio 0.95 --ops 50000

  # プリセットと設定ファイル
  kvbench --preset parallel --connections 16
  kvbench --config bench.yaml --json`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBenchmark(cmd, opts)
		},
	}

	defaults := scenario.DefaultConfig()
	f := cmd.PersistentFlags()
	f.StringVar(&opts.configFile, "config", "", "Config file path (YAML/JSON)")
	f.StringVar(&opts.preset, "preset", "", fmt.Sprintf("Preset name %v", scenario.ListPresets()))
	f.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	f.StringVar(&opts.host, "host", defaults.Host, "Server host")
	f.IntVar(&opts.port, "port", defaults.Port, "Server port")
	f.IntVar(&opts.connections, "connections", defaults.Connections, "Parallel connections per workload")
	f.DurationVar(&opts.timeout, "timeout", defaults.Timeout, "Per-operation timeout (0 = none)")
	f.DurationVar(&opts.dialTimeout, "dial-timeout", defaults.DialTimeout, "Connect timeout")
	f.StringVar(&opts.framing, "framing", defaults.Framing.String(), "Reply framing: message, status-only")
	f.IntVar(&opts.ops, "ops", defaults.Ops, "Operations per workload")
	f.IntVar(&opts.keySize, "key-size", defaults.KeySize, "Key size in bytes (reported only)")
	f.IntVar(&opts.valueSize, "value-size", defaults.ValueSize, "PUT value size in bytes")
	f.StringVar(&opts.mode, "mode", string(defaults.Mode), "Workload: put, get, mixed, all")
	f.Float64Var(&opts.readRatio, "read-ratio", defaults.ReadRatio, "Fraction of GETs in the mixed workload")
	f.IntVar(&opts.mixedValueSize, "mixed-value-size", defaults.MixedValueSize, "PUT value size in the mixed workload")
	f.IntVar(&opts.keyRange, "key-range", defaults.MixedKeyRange, "Mixed GET key range (0 = ops+1)")
	f.Int64Var(&opts.seed, "seed", defaults.Seed, "Value generator seed (0 = time based)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print results as JSON")

	cmd.AddCommand(newServeCmd(opts), newPresetsCmd(), newVersionCmd())
	return cmd
}

// resolve はプリセット、設定ファイル、フラグの順に設定を重ねる
func (o *options) resolve(cmd *cobra.Command) (scenario.Config, logger.Level, error) {
	cfg := scenario.DefaultConfig()
	level := logger.LevelInfo

	if o.preset != "" {
		preset, ok := scenario.GetPreset(o.preset)
		if !ok {
			return cfg, level, fmt.Errorf("unknown preset: %s (available: %v)", o.preset, scenario.ListPresets())
		}
		cfg = preset
	}

	if o.configFile != "" {
		fileConfig, err := config.LoadFile(o.configFile)
		if err != nil {
			return cfg, level, err
		}
		if err := fileConfig.Validate(); err != nil {
			return cfg, level, fmt.Errorf("invalid config file: %w", err)
		}
		// ファイルにプリセット指定がなければフラグのプリセットを土台にする
		if fileConfig.Benchmark.Preset == "" {
			fileConfig.Benchmark.Preset = o.preset
		}
		if cfg, err = fileConfig.ToScenarioConfig(); err != nil {
			return cfg, level, err
		}
		if level, err = fileConfig.Level(); err != nil {
			return cfg, level, err
		}
	}

	// 明示的に指定されたフラグのみオーバーライド
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		l, err := logger.ParseLevel(o.logLevel)
		if err != nil {
			return cfg, level, err
		}
		level = l
	}
	if flags.Changed("host") {
		cfg.Host = o.host
	}
	if flags.Changed("port") {
		cfg.Port = o.port
	}
	if flags.Changed("connections") {
		cfg.Connections = o.connections
	}
	if flags.Changed("timeout") {
		cfg.Timeout = o.timeout
	}
	if flags.Changed("dial-timeout") {
		cfg.DialTimeout = o.dialTimeout
	}
	if flags.Changed("framing") {
		framing, err := protocol.ParseFraming(o.framing)
		if err != nil {
			return cfg, level, err
		}
		cfg.Framing = framing
	}
	if flags.Changed("ops") {
		cfg.Ops = o.ops
	}
	if flags.Changed("key-size") {
		cfg.KeySize = o.keySize
	}
	if flags.Changed("value-size") {
		cfg.ValueSize = o.valueSize
	}
	if flags.Changed("mode") {
		mode, err := scenario.ParseMode(o.mode)
		if err != nil {
			return cfg, level, err
		}
		cfg.Mode = mode
	}
	if flags.Changed("read-ratio") {
		cfg.ReadRatio = o.readRatio
	}
	if flags.Changed("mixed-value-size") {
		cfg.MixedValueSize = o.mixedValueSize
	}
	if flags.Changed("key-range") {
		cfg.MixedKeyRange = o.keyRange
	}
	if flags.Changed("seed") {
		cfg.Seed = o.seed
	}

	return cfg, level, cfg.Validate()
}

func runBenchmark(cmd *cobra.Command, opts *options) error {
	cfg, level, err := opts.resolve(cmd)
	if err != nil {
		return err
	}
	logger.Default.SetLevel(level)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := events.NewBus()
	done := make(chan struct{})
	go func() {
		defer close(done)
		logEvents(bus.Subscribe())
	}()

	engine := scenario.New(cfg)
	engine.SetEventBus(bus)
	results, err := engine.Run(ctx)

	bus.Close()
	<-done
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(scenario.Summarize(results))
	}
	_, err = fmt.Fprintln(out, scenario.Report(cfg, results))
	return err
}

// logEvents はエンジンのイベントをデバッグログに流す
func logEvents(ch <-chan events.Event) {
	for ev := range ch {
		switch ev.Type {
		case events.EventRunStart:
			logger.Debug("event", "%s started: %d ops on %d connections", ev.Data.Operation, ev.Data.Ops, ev.Data.Connections)
		case events.EventRunFailed:
			logger.Debug("event", "%s failed: %s", ev.Data.Operation, ev.Data.Error)
		default:
			logger.Debug("event", "%s %s", ev.Type, ev.Target)
		}
	}
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Available presets:")
			fmt.Fprintln(out)
			for _, name := range scenario.ListPresets() {
				p, _ := scenario.GetPreset(name)
				fmt.Fprintf(out, "  %-14s %s (%d ops, mode %s, %d conn)\n", name, p.Description, p.Ops, p.Mode, p.Connections)
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Usage: kvbench --preset quick")
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "kvbench version %s\n", version)
		},
	}
}
