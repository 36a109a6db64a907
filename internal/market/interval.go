package market

import (
	"sort"
	"strings"
	"time"

	"tradepilot/internal/apperr"
)

// Interval 为交易所支持的 K 线周期。
type Interval struct {
	Code    string
	seconds int64
}

var supportedIntervals = map[string]int64{
	"1s":  1,
	"1m":  60,
	"3m":  3 * 60,
	"5m":  5 * 60,
	"15m": 15 * 60,
	"30m": 30 * 60,
	"1h":  3600,
	"2h":  2 * 3600,
	"4h":  4 * 3600,
	"6h":  6 * 3600,
	"8h":  8 * 3600,
	"12h": 12 * 3600,
	"1d":  86400,
	"3d":  3 * 86400,
	"1w":  7 * 86400,
	"1M":  30 * 86400,
}

// ParseInterval 精确匹配周期代码；"1M"(月) 与 "1m"(分钟) 仅大小写不同，不做大小写转换。
func ParseInterval(code string) (Interval, error) {
	code = strings.TrimSpace(code)
	secs, ok := supportedIntervals[code]
	if !ok {
		return Interval{}, apperr.Configuration("run.interval", "不支持的周期 %q", code)
	}
	return Interval{Code: code, seconds: secs}, nil
}

// MustInterval 用于常量场景，解析失败直接 panic。
func MustInterval(code string) Interval {
	iv, err := ParseInterval(code)
	if err != nil {
		panic(err)
	}
	return iv
}

func (i Interval) Seconds() int64 { return i.seconds }

func (i Interval) Duration() time.Duration {
	return time.Duration(i.seconds) * time.Second
}

func (i Interval) String() string { return i.Code }

// SupportedIntervals 按周期长度升序返回全部代码。
func SupportedIntervals() []string {
	keys := make([]string, 0, len(supportedIntervals))
	for k := range supportedIntervals {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(a, b int) bool {
		return supportedIntervals[keys[a]] < supportedIntervals[keys[b]]
	})
	return keys
}

// PollDelay = weight × interval，实盘轮询间隔。
func (i Interval) PollDelay(weight float64) time.Duration {
	if weight <= 0 {
		return 0
	}
	return time.Duration(weight * float64(i.Duration()))
}
