// Package strategy 定义策略能力与静态注册表。
package strategy

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"tradepilot/internal/apperr"
	"tradepilot/internal/config"
	"tradepilot/internal/market"
	"tradepilot/internal/types"
)

// Strategy 每次对一个 K 线前缀窗口给出至多一个信号。
// Analyze 只能读取 window，不得修改。
type Strategy interface {
	Name() string
	Initialize(cfg *config.Config) error
	Analyze(window []market.Candle) (types.Signal, bool)
}

// Constructor 创建一个未初始化的策略实例。
type Constructor func() Strategy

var registry = map[string]Constructor{
	"rsi":  func() Strategy { return NewRSI() },
	"macd": func() Strategy { return NewMACD() },
}

// Lookup 精确匹配注册名。
func Lookup(name string) (Constructor, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, apperr.Configuration("strategies.enabled", "未注册的策略 %q (可选: %s)", name, strings.Join(Names(), ", "))
	}
	return ctor, nil
}

// Build 按配置顺序创建策略实例。
func Build(names []string) ([]Strategy, error) {
	out := make([]Strategy, 0, len(names))
	for _, name := range names {
		ctor, err := Lookup(name)
		if err != nil {
			return nil, err
		}
		out = append(out, ctor())
	}
	return out, nil
}

// Names 返回全部注册名（排序后）。
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// roundPrice 保留两位小数（银行家舍入）。
func roundPrice(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).RoundBank(2)
}

func candleTime(c market.Candle) int64 {
	if c.CloseTime != 0 {
		return c.CloseTime
	}
	return c.OpenTime
}
