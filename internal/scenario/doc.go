// Package scenario はベンチマークスイートの実行機能を提供する。
//
// エンジンは接続、PING による疎通確認、PUT・GET・混合ワークロードの
// 実行を順に行い、結果とイベントを出す。
//
// # 機能
//
// - 設定とモード（put, get, mixed, all）
// - 定義済みプリセット
// - 複数接続での並列実行
// - エラー分類と終了コード
// - 結果のレポート生成
//
// # プリセット
//
// - quick: 1000件の動作確認
// - default: 10000件、全ワークロード
// - read-heavy: 読み込み95%の混合
// - write-heavy: 読み込み20%の混合
// - large-values: 16 KiB の値
// - parallel: 8接続
//
// # 使用例
//
//	config := scenario.QuickScenario()
//	config.Host, config.Port = "127.0.0.1", 7379
//	engine := scenario.New(config)
//	results, err := engine.Run(ctx)
//	if err != nil {
//	    os.Exit(scenario.Classify(err).ExitCode())
//	}
//	fmt.Println(scenario.Report(config, results))
//
// # エラー分類
//
// - ClassConnection (2): 接続・送受信の失敗
// - ClassProtocol (3): 応答のフレームが壊れている
// - ClassTimeout (4): 1操作のタイムアウト
// - ClassPing (5): サーバーが PING を拒否した
// - ClassOther (1): 上記以外
package scenario
