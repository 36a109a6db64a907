package types

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Side 表示信号或订单方向。
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

func (s Side) String() string { return string(s) }

// ParseSide 解析 BUY/SELL（大小写不敏感）。
func ParseSide(raw string) (Side, error) {
	switch Side(strings.ToUpper(strings.TrimSpace(raw))) {
	case SideBuy:
		return SideBuy, nil
	case SideSell:
		return SideSell, nil
	default:
		return "", fmt.Errorf("未知 side %q", raw)
	}
}

// Signal 是策略在某一参考价给出的买卖建议，生成后不再修改。
type Signal struct {
	StrategyName    string              `json:"strategy_name"`
	Reason          string              `json:"reason"`
	Action          Side                `json:"action"`
	Symbol          string              `json:"symbol"`
	Price           decimal.Decimal     `json:"price"`
	StopPrice       decimal.NullDecimal `json:"stop_price"`
	TakeProfitPrice decimal.NullDecimal `json:"take_profit_price"`
}

func (s Signal) Validate() error {
	if strings.TrimSpace(s.Symbol) == "" {
		return fmt.Errorf("signal(%s): symbol 不能为空", s.StrategyName)
	}
	if !s.Action.Valid() {
		return fmt.Errorf("signal(%s): 未知 action %q", s.StrategyName, s.Action)
	}
	if !s.Price.IsPositive() {
		return fmt.Errorf("signal(%s): price 需 > 0，当前 %s", s.StrategyName, s.Price)
	}
	return nil
}

func (s Signal) String() string {
	out := fmt.Sprintf("%s %s @ %s [%s: %s]", s.Action, s.Symbol, s.Price.StringFixed(2), s.StrategyName, s.Reason)
	if s.StopPrice.Valid {
		out += " SL=" + s.StopPrice.Decimal.StringFixed(2)
	}
	if s.TakeProfitPrice.Valid {
		out += " TP=" + s.TakeProfitPrice.Decimal.StringFixed(2)
	}
	return out
}
