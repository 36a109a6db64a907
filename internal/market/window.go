package market

import "iter"

// Prefixes 依次产出 series[0..i]（i 从 minLen-1 到 len-1）。
// 每个窗口的 cap 被截断到 i+1，调用方 append 不会覆盖后续数据；序列惰性求值，可重复遍历。
func Prefixes(series []Candle, minLen int) iter.Seq2[int, []Candle] {
	if minLen < 1 {
		minLen = 1
	}
	return func(yield func(int, []Candle) bool) {
		for i := minLen - 1; i < len(series); i++ {
			if !yield(i, series[:i+1:i+1]) {
				return
			}
		}
	}
}
