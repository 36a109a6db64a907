package market

import (
	"fmt"
	"math"

	"tradepilot/internal/apperr"
)

// ValidateSeries 校验窗口可用：至少 minLen 根，收盘价为正且 open_time 严格递增。
func ValidateSeries(req KlineRequest, series []Candle, minLen int) error {
	unavailable := func(reason string, args ...any) error {
		return &apperr.DataUnavailable{
			Symbol:   req.Symbol,
			Interval: req.Interval.Code,
			Reason:   fmt.Sprintf(reason, args...),
		}
	}
	if len(series) < minLen {
		return unavailable("仅 %d 根 K 线，至少需要 %d", len(series), minLen)
	}
	for i, c := range series {
		if math.IsNaN(c.Close) || math.IsInf(c.Close, 0) || c.Close <= 0 {
			return unavailable("第 %d 根 K 线收盘价非法: %v", i, c.Close)
		}
		if i > 0 && c.OpenTime <= series[i-1].OpenTime {
			return unavailable("第 %d 根 K 线乱序 (open_time %d <= %d)", i, c.OpenTime, series[i-1].OpenTime)
		}
	}
	return nil
}
