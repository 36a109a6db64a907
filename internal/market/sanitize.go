package market

import "time"

// DefaultKlineGrace 为判定最后一根 K 线是否收盘时的容忍时间。
const DefaultKlineGrace = 2 * time.Second

// DropUnclosed 去掉尚未收盘的最后一根 K 线，交易所实时返回的最后一行通常仍在变化。
func DropUnclosed(klines []Candle, interval Interval, now time.Time) []Candle {
	if len(klines) == 0 || interval.Seconds() <= 0 {
		return klines
	}
	last := klines[len(klines)-1]
	if last.OpenTime <= 0 {
		return klines
	}
	cutoff := last.OpenTime + interval.Duration().Milliseconds() + DefaultKlineGrace.Milliseconds()
	if now.UnixMilli() < cutoff {
		return klines[:len(klines)-1]
	}
	return klines
}
