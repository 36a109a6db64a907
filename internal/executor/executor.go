// Package executor 将账本的下单意图转换为订单：回测/无通道时直接合成成交，
// 配置了实盘通道时委托给 ExecutionClient，并记录全部订单用于统计。
package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jpillora/backoff"
	"github.com/shopspring/decimal"

	"tradepilot/internal/apperr"
	"tradepilot/internal/logger"
	"tradepilot/internal/pkg/circuit"
	"tradepilot/internal/types"
)

// ExecutionClient 为实盘下单通道，返回的订单视为立即完全成交。
type ExecutionClient interface {
	CreateOrder(ctx context.Context, req types.OrderRequest) (types.Order, error)
}

// OrderParams 为一次市价单的输入。
type OrderParams struct {
	Symbol        string
	Side          types.Side
	Quantity      decimal.Decimal
	Price         decimal.Decimal
	StopPrice     decimal.NullDecimal
	TrailingDelta decimal.NullDecimal
}

type Options struct {
	Backtest      bool
	Client        ExecutionClient
	RetryAttempts int
	RetryMin      time.Duration
	RetryMax      time.Duration
	Breaker       *circuit.Breaker
	Now           func() time.Time
}

// Stats 为订单计数。
type Stats struct {
	Total int `json:"total" yaml:"total"`
	Buy   int `json:"buy" yaml:"buy"`
	Sell  int `json:"sell" yaml:"sell"`
}

type Executor struct {
	backtest bool
	client   ExecutionClient
	attempts int
	minDelay time.Duration
	maxDelay time.Duration
	breaker  *circuit.Breaker
	now      func() time.Time

	mu     sync.RWMutex
	orders []types.Order
	stats  Stats
}

func New(opts Options) *Executor {
	e := &Executor{
		backtest: opts.Backtest,
		client:   opts.Client,
		attempts: opts.RetryAttempts,
		minDelay: opts.RetryMin,
		maxDelay: opts.RetryMax,
		breaker:  opts.Breaker,
		now:      opts.Now,
	}
	if e.attempts <= 0 {
		e.attempts = 1
	}
	if e.minDelay <= 0 {
		e.minDelay = 200 * time.Millisecond
	}
	if e.maxDelay < e.minDelay {
		e.maxDelay = e.minDelay
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// Simulated 表示订单不会经过实盘通道。
func (e *Executor) Simulated() bool {
	return e.backtest || e.client == nil
}

func (e *Executor) Submit(ctx context.Context, p OrderParams) (types.Order, error) {
	clientOrderID := uuid.NewString()
	fail := func(err error) error {
		return &apperr.ExecutionFailure{Symbol: p.Symbol, Side: p.Side.String(), ClientOrderID: clientOrderID, Err: err}
	}
	if !p.Side.Valid() {
		return types.Order{}, fail(fmt.Errorf("未知 side %q", p.Side))
	}
	if !p.Quantity.IsPositive() || !p.Price.IsPositive() {
		return types.Order{}, fail(fmt.Errorf("quantity/price 需 > 0 (quantity=%s price=%s)", p.Quantity, p.Price))
	}

	var (
		order types.Order
		err   error
	)
	if e.Simulated() {
		order = e.simulate(clientOrderID, p)
	} else {
		order, err = e.route(ctx, clientOrderID, p)
		if err != nil {
			return types.Order{}, fail(err)
		}
	}
	e.record(order)
	logger.Debugf("[executor] %s %s qty=%s price=%s status=%s", order.Side, order.Symbol, order.Quantity, order.Price, order.Status)
	return order, nil
}

func (e *Executor) simulate(clientOrderID string, p OrderParams) types.Order {
	return types.Order{
		OrderID:          uuid.NewString(),
		ClientOrderID:    clientOrderID,
		Symbol:           p.Symbol,
		Side:             p.Side,
		Type:             types.OrderTypeMarket,
		TimeInForce:      types.TimeInForceGTC,
		Quantity:         p.Quantity,
		Price:            p.Price,
		StopPrice:        p.StopPrice,
		Status:           types.OrderStatusFilled,
		ExecutedQuantity: p.Quantity,
		CreatedAt:        e.now().UTC(),
	}
}

func (e *Executor) route(ctx context.Context, clientOrderID string, p OrderParams) (types.Order, error) {
	req := types.OrderRequest{
		ClientOrderID: clientOrderID,
		Symbol:        p.Symbol,
		Side:          p.Side,
		Type:          types.OrderTypeMarket,
		TimeInForce:   types.TimeInForceGTC,
		Quantity:      p.Quantity,
		Price:         p.Price,
		StopPrice:     p.StopPrice,
		TrailingDelta: p.TrailingDelta,
	}
	b := &backoff.Backoff{Min: e.minDelay, Max: e.maxDelay, Factor: 2, Jitter: true}
	var lastErr error
	for attempt := 1; attempt <= e.attempts; attempt++ {
		order, err := e.createOnce(ctx, req)
		if err == nil {
			if order.Status == types.OrderStatusRejected {
				return types.Order{}, fmt.Errorf("订单被拒绝 (order_id=%s)", order.OrderID)
			}
			if order.ClientOrderID == "" {
				order.ClientOrderID = clientOrderID
			}
			return order, nil
		}
		lastErr = err
		if errors.Is(err, circuit.ErrOpen) || ctx.Err() != nil || attempt == e.attempts {
			break
		}
		delay := b.Duration()
		logger.Warnf("[executor] %s %s 第 %d/%d 次下单失败: %v，%s 后重试", p.Side, p.Symbol, attempt, e.attempts, err, delay)
		if err := sleepWithContext(ctx, delay); err != nil {
			return types.Order{}, err
		}
	}
	return types.Order{}, lastErr
}

func (e *Executor) createOnce(ctx context.Context, req types.OrderRequest) (types.Order, error) {
	if e.breaker == nil {
		return e.client.CreateOrder(ctx, req)
	}
	var order types.Order
	err := e.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		order, err = e.client.CreateOrder(ctx, req)
		return err
	})
	return order, err
}

func (e *Executor) record(order types.Order) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.orders = append(e.orders, order)
	e.stats.Total++
	switch order.Side {
	case types.SideBuy:
		e.stats.Buy++
	case types.SideSell:
		e.stats.Sell++
	}
}

// Orders 按下单顺序返回订单副本。
func (e *Executor) Orders() []types.Order {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]types.Order, len(e.orders))
	copy(out, e.orders)
	return out
}

func (e *Executor) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stats
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
