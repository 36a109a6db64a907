package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position 表示一笔未平仓持仓，仅由 ledger 持有和修改。
type Position struct {
	PositionID      string              `json:"position_id"`
	Symbol          string              `json:"symbol"`
	EntryPrice      decimal.Decimal     `json:"entry_price"`
	Quantity        decimal.Decimal     `json:"quantity"`
	StopLossPrice   decimal.NullDecimal `json:"stop_loss_price"`
	TakeProfitPrice decimal.NullDecimal `json:"take_profit_price"`
	OpeningOrderID  string              `json:"opening_order_id"`
	OpenedAt        time.Time           `json:"opened_at"`
}

// Cost 返回开仓时占用的计价资产数量。
func (p Position) Cost() decimal.Decimal {
	return p.Quantity.Mul(p.EntryPrice)
}

// MarkValue 按给定价格估值。
func (p Position) MarkValue(mark decimal.Decimal) decimal.Decimal {
	return p.Quantity.Mul(mark)
}
