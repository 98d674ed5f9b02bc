package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"kvbench/internal/logger"
	"kvbench/internal/protocol"
	"kvbench/internal/scenario"

	"gopkg.in/yaml.v3"
)

// FileConfig は設定ファイルの構造
type FileConfig struct {
	Benchmark BenchmarkConfig `yaml:"benchmark" json:"benchmark"`
}

// BenchmarkConfig はベンチマーク設定
type BenchmarkConfig struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Preset      string `yaml:"preset" json:"preset"`
	LogLevel    string `yaml:"log_level" json:"log_level"`

	Target   TargetConfig   `yaml:"target" json:"target"`
	Workload WorkloadConfig `yaml:"workload" json:"workload"`
	Mixed    MixedConfig    `yaml:"mixed" json:"mixed"`
}

// TargetConfig は接続先の設定
type TargetConfig struct {
	Host        string `yaml:"host" json:"host"`
	Port        int    `yaml:"port" json:"port"`
	Connections int    `yaml:"connections" json:"connections"`
	Timeout     string `yaml:"timeout" json:"timeout"`
	DialTimeout string `yaml:"dial_timeout" json:"dial_timeout"`
	Framing     string `yaml:"framing" json:"framing"` // message または status-only
}

// WorkloadConfig はワークロードの設定
type WorkloadConfig struct {
	Ops       int    `yaml:"ops" json:"ops"`
	KeySize   int    `yaml:"key_size" json:"key_size"`
	ValueSize int    `yaml:"value_size" json:"value_size"`
	Mode      string `yaml:"mode" json:"mode"`
	Seed      int64  `yaml:"seed" json:"seed"`
}

// MixedConfig は混合ワークロードの設定
// ReadRatio は 0 も有効な値なのでポインタで未指定を区別する
type MixedConfig struct {
	ReadRatio *float64 `yaml:"read_ratio" json:"read_ratio"`
	ValueSize int      `yaml:"value_size" json:"value_size"`
	KeyRange  int      `yaml:"key_range" json:"key_range"`
}

// LoadFile は設定ファイルを読み込む
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config FileConfig
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}

	return &config, nil
}

// ToScenarioConfig はFileConfigをscenario.Configに変換する
// preset を指定した場合はそのプリセットを土台にする
func (f *FileConfig) ToScenarioConfig() (scenario.Config, error) {
	bc := f.Benchmark

	config := scenario.DefaultConfig()
	if bc.Preset != "" {
		preset, ok := scenario.GetPreset(bc.Preset)
		if !ok {
			return config, fmt.Errorf("unknown preset: %s", bc.Preset)
		}
		config = preset
	}

	if bc.Name != "" {
		config.Name = bc.Name
	}
	if bc.Description != "" {
		config.Description = bc.Description
	}

	// Target設定
	if bc.Target.Host != "" {
		config.Host = bc.Target.Host
	}
	if bc.Target.Port > 0 {
		config.Port = bc.Target.Port
	}
	if bc.Target.Connections > 0 {
		config.Connections = bc.Target.Connections
	}
	if bc.Target.Timeout != "" {
		d, err := time.ParseDuration(bc.Target.Timeout)
		if err != nil {
			return config, fmt.Errorf("invalid timeout: %w", err)
		}
		config.Timeout = d
	}
	if bc.Target.DialTimeout != "" {
		d, err := time.ParseDuration(bc.Target.DialTimeout)
		if err != nil {
			return config, fmt.Errorf("invalid dial timeout: %w", err)
		}
		config.DialTimeout = d
	}
	if bc.Target.Framing != "" {
		framing, err := protocol.ParseFraming(bc.Target.Framing)
		if err != nil {
			return config, err
		}
		config.Framing = framing
	}

	// Workload設定
	if bc.Workload.Ops > 0 {
		config.Ops = bc.Workload.Ops
	}
	if bc.Workload.KeySize > 0 {
		config.KeySize = bc.Workload.KeySize
	}
	if bc.Workload.ValueSize > 0 {
		config.ValueSize = bc.Workload.ValueSize
	}
	if bc.Workload.Mode != "" {
		mode, err := scenario.ParseMode(bc.Workload.Mode)
		if err != nil {
			return config, err
		}
		config.Mode = mode
	}
	if bc.Workload.Seed != 0 {
		config.Seed = bc.Workload.Seed
	}

	// Mixed設定
	if bc.Mixed.ReadRatio != nil {
		config.ReadRatio = *bc.Mixed.ReadRatio
	}
	if bc.Mixed.ValueSize > 0 {
		config.MixedValueSize = bc.Mixed.ValueSize
	}
	if bc.Mixed.KeyRange > 0 {
		config.MixedKeyRange = bc.Mixed.KeyRange
	}

	return config, nil
}

// Level はログレベルを返す。未指定なら Info
func (f *FileConfig) Level() (logger.Level, error) {
	if f.Benchmark.LogLevel == "" {
		return logger.LevelInfo, nil
	}
	return logger.ParseLevel(f.Benchmark.LogLevel)
}

// Validate は設定を検証する
func (f *FileConfig) Validate() error {
	bc := f.Benchmark

	if bc.Target.Port < 0 || bc.Target.Port > 65535 {
		return fmt.Errorf("target.port must be between 0 and 65535")
	}

	if bc.Target.Connections < 0 {
		return fmt.Errorf("target.connections must be non-negative")
	}

	if _, err := protocol.ParseFraming(bc.Target.Framing); err != nil {
		return fmt.Errorf("invalid target.framing: %w", err)
	}

	if bc.Workload.Ops < 0 {
		return fmt.Errorf("workload.ops must be non-negative")
	}

	if bc.Workload.KeySize < 0 || bc.Workload.ValueSize < 0 {
		return fmt.Errorf("workload sizes must be non-negative")
	}

	if bc.Mixed.ReadRatio != nil && (*bc.Mixed.ReadRatio < 0 || *bc.Mixed.ReadRatio > 1) {
		return fmt.Errorf("mixed.read_ratio must be between 0 and 1")
	}

	if bc.Mixed.ValueSize < 0 || bc.Mixed.KeyRange < 0 {
		return fmt.Errorf("mixed.value_size and mixed.key_range must be non-negative")
	}

	if _, err := f.Level(); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}

	return nil
}
