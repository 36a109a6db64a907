package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderType string

const (
	OrderTypeMarket          OrderType = "MARKET"
	OrderTypeLimit           OrderType = "LIMIT"
	OrderTypeStopLoss        OrderType = "STOP_LOSS"
	OrderTypeStopLossLimit   OrderType = "STOP_LOSS_LIMIT"
	OrderTypeTakeProfit      OrderType = "TAKE_PROFIT"
	OrderTypeTakeProfitLimit OrderType = "TAKE_PROFIT_LIMIT"
)

type TimeInForce string

const (
	TimeInForceGTC TimeInForce = "GTC" // good till cancelled
	TimeInForceIOC TimeInForce = "IOC" // immediate or cancel
	TimeInForceFOK TimeInForce = "FOK" // fill or kill
)

type OrderStatus string

const (
	OrderStatusNew      OrderStatus = "NEW"
	OrderStatusFilled   OrderStatus = "FILLED"
	OrderStatusRejected OrderStatus = "REJECTED"
)

// OrderRequest 为执行器交给实盘通道的下单请求。
type OrderRequest struct {
	ClientOrderID string              `json:"client_order_id"`
	Symbol        string              `json:"symbol"`
	Side          Side                `json:"side"`
	Type          OrderType           `json:"type"`
	TimeInForce   TimeInForce         `json:"time_in_force"`
	Quantity      decimal.Decimal     `json:"quantity"`
	Price         decimal.Decimal     `json:"price"`
	StopPrice     decimal.NullDecimal `json:"stop_price"`
	TrailingDelta decimal.NullDecimal `json:"trailing_delta"`
}

// Order 记录一次模拟或实盘成交，按值传递，创建后不再修改。
type Order struct {
	OrderID          string              `json:"order_id"`
	ClientOrderID    string              `json:"client_order_id"`
	Symbol           string              `json:"symbol"`
	Side             Side                `json:"side"`
	Type             OrderType           `json:"type"`
	TimeInForce      TimeInForce         `json:"time_in_force"`
	Quantity         decimal.Decimal     `json:"quantity"`
	Price            decimal.Decimal     `json:"price"`
	StopPrice        decimal.NullDecimal `json:"stop_price"`
	Status           OrderStatus         `json:"status"`
	ExecutedQuantity decimal.Decimal     `json:"executed_quantity"`
	CreatedAt        time.Time           `json:"created_at"`
}

// Filled 判断是否完全成交。
func (o Order) Filled() bool {
	return o.Status == OrderStatusFilled && o.ExecutedQuantity.Equal(o.Quantity)
}

// Notional = 成交数量 × 价格。
func (o Order) Notional() decimal.Decimal {
	return o.ExecutedQuantity.Mul(o.Price)
}
