package market

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle 为一根 K 线，时间均为 Unix ms。
type Candle struct {
	OpenTime  int64   `json:"open_time"`
	CloseTime int64   `json:"close_time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	Trades    int64   `json:"trades"`
}

func (c Candle) OpenAt() time.Time  { return time.UnixMilli(c.OpenTime).UTC() }
func (c Candle) CloseAt() time.Time { return time.UnixMilli(c.CloseTime).UTC() }

// ClosePrice 以 decimal 返回收盘价，供账本计算使用。
func (c Candle) ClosePrice() decimal.Decimal {
	return decimal.NewFromFloat(c.Close)
}

func (c Candle) TimeString() string {
	ts := c.CloseTime
	if ts == 0 {
		ts = c.OpenTime
	}
	if ts <= 0 {
		return "-"
	}
	return time.UnixMilli(ts).UTC().Format("2006-01-02 15:04:05")
}

// Closes 按顺序提取收盘价。
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// Last 返回窗口中最后一根 K 线。
func Last(candles []Candle) (Candle, bool) {
	if len(candles) == 0 {
		return Candle{}, false
	}
	return candles[len(candles)-1], true
}
