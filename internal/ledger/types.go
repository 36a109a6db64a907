package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"tradepilot/internal/types"
)

// Outcome 为一次信号处理的结果类别。
type Outcome string

const (
	OutcomeOpened   Outcome = "opened"
	OutcomeClosed   Outcome = "closed"
	OutcomeRejected Outcome = "rejected"
	OutcomeIgnored  Outcome = "ignored"
)

type Reason string

const (
	ReasonPositionLimit       Reason = "position_limit"
	ReasonInsufficientBalance Reason = "insufficient_balance"
	ReasonNoOpenPosition      Reason = "no_open_position"
	ReasonInvalidSignal       Reason = "invalid_signal"
)

// Rejection 说明信号未被执行的原因，Constraint 为触发的约束。
type Rejection struct {
	Reason     Reason `json:"reason"`
	Constraint string `json:"constraint"`
	Detail     string `json:"detail"`
}

func (r Rejection) String() string {
	return fmt.Sprintf("%s (%s): %s", r.Reason, r.Constraint, r.Detail)
}

// Result 为 Handle 的返回值；Rejected/Ignored 不是错误。
type Result struct {
	Outcome     Outcome         `json:"outcome"`
	Signal      types.Signal    `json:"signal"`
	Reject      *Rejection      `json:"reject,omitempty"`
	Order       *types.Order    `json:"order,omitempty"`
	Position    *types.Position `json:"position,omitempty"`
	RealizedPnL decimal.Decimal `json:"realized_pnl"`
}

// Counters 为运行期累计统计。
type Counters struct {
	Trades          int             `json:"trades" yaml:"trades"`
	BuySignals      int             `json:"buy_signals" yaml:"buy_signals"`
	SellSignals     int             `json:"sell_signals" yaml:"sell_signals"`
	Rejected        int             `json:"rejected" yaml:"rejected"`
	Ignored         int             `json:"ignored" yaml:"ignored"`
	ClosedPositions int             `json:"closed_positions" yaml:"closed_positions"`
	RealizedPnL     decimal.Decimal `json:"realized_pnl" yaml:"realized_pnl"`
}

// Snapshot 为账本的深拷贝，可安全在其他 goroutine 中读取。
type Snapshot struct {
	Balance           decimal.Decimal            `json:"balance"`
	Portfolio         map[string]decimal.Decimal `json:"portfolio"`
	Positions         []types.Position           `json:"positions"`
	OpenPositionCount int                        `json:"open_position_count"`
	Counters          Counters                   `json:"counters"`
}

// Report 为按某一标记价格估值后的账户汇总。
type Report struct {
	StartingBalance decimal.Decimal `json:"starting_balance" yaml:"starting_balance"`
	Balance         decimal.Decimal `json:"balance" yaml:"balance"`
	MarkPrice       decimal.Decimal `json:"mark_price" yaml:"mark_price"`
	OpenCost        decimal.Decimal `json:"open_cost" yaml:"open_cost"`
	MarketValue     decimal.Decimal `json:"market_value" yaml:"market_value"`
	Equity          decimal.Decimal `json:"equity" yaml:"equity"`
	Profit          decimal.Decimal `json:"profit" yaml:"profit"`
	ProfitPct       decimal.Decimal `json:"profit_pct" yaml:"profit_pct"`
	ProfitPerTrade  decimal.Decimal `json:"profit_per_trade" yaml:"profit_per_trade"`
	OpenPositions   int             `json:"open_positions" yaml:"open_positions"`
	Counters        Counters        `json:"counters" yaml:"counters"`
}
