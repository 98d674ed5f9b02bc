package metrics

import (
	"slices"
	"time"
)

// Summary はレイテンシサンプル列の統計値
type Summary struct {
	Count int
	Mean  time.Duration
	P50   time.Duration
	P99   time.Duration
	Min   time.Duration
	Max   time.Duration
}

// Summarize はサンプル列から平均・P50・P99を計算する
// 空のサンプル列では全ての値が0になる（エラーにはしない）
//
// P50 はソート済み列の len/2 番目（補間しない）、P99 は floor(len*0.99) 番目を
// len-1 で頭打ちにした要素。どちらも必ずサンプル列の要素になる。
func Summarize(samples []time.Duration) Summary {
	n := len(samples)
	if n == 0 {
		return Summary{}
	}

	// コピーしてソート（呼び出し側の順序は保持する）
	sorted := slices.Clone(samples)
	slices.Sort(sorted)

	var total time.Duration
	for _, s := range sorted {
		total += s
	}

	return Summary{
		Count: n,
		Mean:  total / time.Duration(n),
		P50:   sorted[n/2],
		P99:   sorted[percentileIndex(n, 0.99)],
		Min:   sorted[0],
		Max:   sorted[n-1],
	}
}

// percentileIndex は floor(n*p) を n-1 で頭打ちにしたインデックスを返す
func percentileIndex(n int, p float64) int {
	idx := int(float64(n) * p)
	if idx >= n {
		idx = n - 1
	}
	return idx
}

// Milliseconds は Duration をミリ秒（小数）に変換する
func Milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
