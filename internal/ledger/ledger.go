// Package ledger 维护资金、持仓与按标的汇总的数量，是唯一的状态所有者。
package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tradepilot/internal/executor"
	"tradepilot/internal/logger"
	"tradepilot/internal/types"
)

// Submitter 为下单能力，executor.Executor 实现该接口。
type Submitter interface {
	Submit(ctx context.Context, p executor.OrderParams) (types.Order, error)
}

type Config struct {
	StartingBalance  decimal.Decimal
	Notional         decimal.Decimal
	MaxOpenPositions int
}

// Ledger 的所有修改都经过 Handle。handleMu 串行化 Handle（检查约束到落账之间不会被插入），
// mu 只保护状态本身，读者在下单期间不会被阻塞。
type Ledger struct {
	cfg       Config
	submitter Submitter
	now       func() time.Time

	handleMu sync.Mutex

	mu        sync.RWMutex
	balance   decimal.Decimal
	portfolio map[string]decimal.Decimal
	positions []types.Position
	counters  Counters
}

func New(cfg Config, submitter Submitter) *Ledger {
	return &Ledger{
		cfg:       cfg,
		submitter: submitter,
		now:       time.Now,
		balance:   cfg.StartingBalance,
		portfolio: make(map[string]decimal.Decimal),
	}
}

func (l *Ledger) Config() Config { return l.cfg }

// Handle 处理一个信号。拒绝/忽略通过 Result 返回；仅下单失败返回 error，且此时状态不变。
func (l *Ledger) Handle(ctx context.Context, sig types.Signal) (Result, error) {
	l.handleMu.Lock()
	defer l.handleMu.Unlock()

	if err := sig.Validate(); err != nil {
		return l.reject(sig, OutcomeRejected, ReasonInvalidSignal, "signal", err.Error()), nil
	}
	l.mu.Lock()
	switch sig.Action {
	case types.SideBuy:
		l.counters.BuySignals++
	case types.SideSell:
		l.counters.SellSignals++
	}
	l.mu.Unlock()

	if sig.Action == types.SideBuy {
		return l.open(ctx, sig)
	}
	return l.close(ctx, sig)
}

func (l *Ledger) open(ctx context.Context, sig types.Signal) (Result, error) {
	l.mu.RLock()
	openCount := len(l.positions)
	balance := l.balance
	l.mu.RUnlock()

	if openCount >= l.cfg.MaxOpenPositions {
		return l.reject(sig, OutcomeRejected, ReasonPositionLimit, "max_open_positions",
			fmt.Sprintf("已有 %d 个持仓，上限 %d", openCount, l.cfg.MaxOpenPositions)), nil
	}
	notional := l.cfg.Notional
	if notional.GreaterThan(balance) {
		return l.reject(sig, OutcomeRejected, ReasonInsufficientBalance, "balance",
			fmt.Sprintf("余额 %s 不足以支付 %s", balance, notional)), nil
	}

	quantity := notional.Div(sig.Price)
	order, err := l.submitter.Submit(ctx, executor.OrderParams{
		Symbol:    sig.Symbol,
		Side:      types.SideBuy,
		Quantity:  quantity,
		Price:     sig.Price,
		StopPrice: sig.StopPrice,
	})
	if err != nil {
		return Result{}, err
	}

	pos := types.Position{
		PositionID:      uuid.NewString(),
		Symbol:          sig.Symbol,
		EntryPrice:      order.Price,
		Quantity:        order.ExecutedQuantity,
		StopLossPrice:   sig.StopPrice,
		TakeProfitPrice: sig.TakeProfitPrice,
		OpeningOrderID:  order.OrderID,
		OpenedAt:        l.now().UTC(),
	}

	l.mu.Lock()
	l.portfolio[sig.Symbol] = l.portfolio[sig.Symbol].Add(pos.Quantity)
	l.balance = l.balance.Sub(notional)
	l.positions = append(l.positions, pos)
	l.counters.Trades++
	balance = l.balance
	l.mu.Unlock()

	logger.Infof("[ledger] 开仓 %s qty=%s @ %s，余额 %s", sig.Symbol, pos.Quantity, pos.EntryPrice, balance.StringFixed(2))
	return Result{Outcome: OutcomeOpened, Signal: sig, Order: &order, Position: &pos}, nil
}

func (l *Ledger) close(ctx context.Context, sig types.Signal) (Result, error) {
	l.mu.RLock()
	idx := -1
	for i := range l.positions {
		if l.positions[i].Symbol == sig.Symbol {
			idx = i
			break
		}
	}
	var pos types.Position
	if idx >= 0 {
		pos = l.positions[idx]
	}
	l.mu.RUnlock()

	if idx < 0 {
		return l.reject(sig, OutcomeIgnored, ReasonNoOpenPosition, "positions",
			fmt.Sprintf("%s 无持仓", sig.Symbol)), nil
	}

	order, err := l.submitter.Submit(ctx, executor.OrderParams{
		Symbol:   sig.Symbol,
		Side:     types.SideSell,
		Quantity: pos.Quantity,
		Price:    sig.Price,
	})
	if err != nil {
		return Result{}, err
	}
	proceeds := order.Notional()
	pnl := proceeds.Sub(pos.Cost())

	l.mu.Lock()
	l.balance = l.balance.Add(proceeds)
	remaining := l.portfolio[sig.Symbol].Sub(pos.Quantity)
	if remaining.Sign() <= 0 {
		delete(l.portfolio, sig.Symbol)
	} else {
		l.portfolio[sig.Symbol] = remaining
	}
	// handleMu 保证 idx 仍指向同一持仓
	l.positions = append(l.positions[:idx:idx], l.positions[idx+1:]...)
	l.counters.Trades++
	l.counters.ClosedPositions++
	l.counters.RealizedPnL = l.counters.RealizedPnL.Add(pnl)
	balance := l.balance
	l.mu.Unlock()

	logger.Infof("[ledger] 平仓 %s qty=%s @ %s，盈亏 %s，余额 %s", sig.Symbol, pos.Quantity, order.Price, pnl.StringFixed(2), balance.StringFixed(2))
	return Result{Outcome: OutcomeClosed, Signal: sig, Order: &order, Position: &pos, RealizedPnL: pnl}, nil
}

func (l *Ledger) reject(sig types.Signal, outcome Outcome, reason Reason, constraint, detail string) Result {
	l.mu.Lock()
	if outcome == OutcomeIgnored {
		l.counters.Ignored++
	} else {
		l.counters.Rejected++
	}
	l.mu.Unlock()
	rej := &Rejection{Reason: reason, Constraint: constraint, Detail: detail}
	logger.Debugf("[ledger] %s %s: %s", outcome, sig, rej)
	return Result{Outcome: outcome, Signal: sig, Reject: rej}
}

// Inspect 返回当前状态的深拷贝。
func (l *Ledger) Inspect() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	portfolio := make(map[string]decimal.Decimal, len(l.portfolio))
	for k, v := range l.portfolio {
		portfolio[k] = v
	}
	positions := make([]types.Position, len(l.positions))
	copy(positions, l.positions)
	return Snapshot{
		Balance:           l.balance,
		Portfolio:         portfolio,
		Positions:         positions,
		OpenPositionCount: len(l.positions),
		Counters:          l.counters,
	}
}

// Reconciled 校验 portfolio[s] 等于该标的所有持仓数量之和。
func (l *Ledger) Reconciled() bool {
	snap := l.Inspect()
	sums := make(map[string]decimal.Decimal)
	for _, p := range snap.Positions {
		sums[p.Symbol] = sums[p.Symbol].Add(p.Quantity)
	}
	if len(sums) != len(snap.Portfolio) {
		return false
	}
	for sym, qty := range sums {
		if !snap.Portfolio[sym].Equal(qty) {
			return false
		}
	}
	return true
}

// Report 以 mark 对全部持仓估值（单标的场景）。
func (l *Ledger) Report(mark decimal.Decimal) Report {
	snap := l.Inspect()
	openCost := decimal.Zero
	value := decimal.Zero
	for _, p := range snap.Positions {
		openCost = openCost.Add(p.Cost())
		value = value.Add(p.MarkValue(mark))
	}
	equity := snap.Balance.Add(value)
	profit := equity.Sub(l.cfg.StartingBalance)
	rep := Report{
		StartingBalance: l.cfg.StartingBalance,
		Balance:         snap.Balance,
		MarkPrice:       mark,
		OpenCost:        openCost,
		MarketValue:     value,
		Equity:          equity,
		Profit:          profit,
		ProfitPct:       decimal.Zero,
		ProfitPerTrade:  decimal.Zero,
		OpenPositions:   snap.OpenPositionCount,
		Counters:        snap.Counters,
	}
	if l.cfg.StartingBalance.IsPositive() {
		rep.ProfitPct = profit.Div(l.cfg.StartingBalance).Mul(decimal.NewFromInt(100))
	}
	if snap.Counters.Trades > 0 {
		rep.ProfitPerTrade = snap.Counters.RealizedPnL.Div(decimal.NewFromInt(int64(snap.Counters.Trades)))
	}
	return rep
}
