package scenario

// QuickScenario は短時間での動作確認用
func QuickScenario() Config {
	config := DefaultConfig()
	config.Name = "quick"
	config.Description = "Short run of all workloads for verification"
	config.Ops = 1000
	return config
}

// DefaultScenario は既定のベンチマーク
func DefaultScenario() Config {
	return DefaultConfig()
}

// ReadHeavyScenario は読み込み中心の混合ワークロード
// 事前に PUT でキーを埋めてから実行する
func ReadHeavyScenario() Config {
	config := DefaultConfig()
	config.Name = "read-heavy"
	config.Description = "Mixed workload with 95% reads after a PUT sweep"
	config.Ops = 20000
	config.ReadRatio = 0.95
	config.MixedKeyRange = 20000
	return config
}

// WriteHeavyScenario は書き込み中心の混合ワークロード
func WriteHeavyScenario() Config {
	config := DefaultConfig()
	config.Name = "write-heavy"
	config.Description = "Mixed workload with 20% reads"
	config.Ops = 20000
	config.Mode = ModeMixed
	config.ReadRatio = 0.2
	return config
}

// LargeValuesScenario は大きな値でのPUT/GET
// 応答が読み込みバッファを超えるためフレーム組み立ても検証できる
func LargeValuesScenario() Config {
	config := DefaultConfig()
	config.Name = "large-values"
	config.Description = "PUT and GET with 16 KiB values"
	config.Ops = 2000
	config.ValueSize = 16 * 1024
	config.MixedValueSize = 16 * 1024
	return config
}

// ParallelScenario は複数接続での高スループット計測
func ParallelScenario() Config {
	config := DefaultConfig()
	config.Name = "parallel"
	config.Description = "All workloads spread over 8 connections"
	config.Ops = 80000
	config.Connections = 8
	return config
}

var presets = map[string]func() Config{
	"quick":        QuickScenario,
	"default":      DefaultScenario,
	"read-heavy":   ReadHeavyScenario,
	"write-heavy":  WriteHeavyScenario,
	"large-values": LargeValuesScenario,
	"parallel":     ParallelScenario,
}

// GetPreset は名前からプリセットを取得する
func GetPreset(name string) (Config, bool) {
	if fn, ok := presets[name]; ok {
		return fn(), true
	}
	return Config{}, false
}

// ListPresets は利用可能なプリセット名を返す
func ListPresets() []string {
	return []string{"quick", "default", "read-heavy", "write-heavy", "large-values", "parallel"}
}
