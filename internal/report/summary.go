// Package report 输出运行结果：日志汇总、净值曲线 HTML 与 YAML 汇总文件。
package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tradepilot/internal/engine"
	"tradepilot/internal/ledger"
	"tradepilot/internal/logger"
)

// LogSink 将每轮结果打到 debug 日志，运行结束时输出汇总块。
type LogSink struct{}

var _ engine.Sink = LogSink{}

func (LogSink) Step(_ context.Context, step engine.Step) error {
	for _, res := range step.Results {
		switch res.Outcome {
		case ledger.OutcomeOpened, ledger.OutcomeClosed:
			logger.Infof("[report] #%d %s %s pnl=%s", step.Index, res.Outcome, res.Signal, res.RealizedPnL.StringFixed(2))
		case ledger.OutcomeRejected, ledger.OutcomeIgnored:
			logger.Debugf("[report] #%d %s %s: %s", step.Index, res.Outcome, res.Signal, res.Reject)
		}
	}
	logger.Debugf("[report] #%d close=%.2f balance=%s open=%d",
		step.Index, step.Candle.Close, step.Snapshot.Balance.StringFixed(2), step.Snapshot.OpenPositionCount)
	return nil
}

func (LogSink) Summary(_ context.Context, sum engine.Summary) error {
	logger.InfoBlock(FormatSummary(sum))
	return nil
}

// FormatSummary 渲染多行汇总文本。
func FormatSummary(sum engine.Summary) string {
	r := sum.Report
	c := r.Counters
	var b strings.Builder
	fmt.Fprintf(&b, "========== run %s (%s) ==========\n", sum.RunID, sum.Mode)
	fmt.Fprintf(&b, "symbol: %s@%s  rows: %d  iterations: %d\n", sum.Symbol, sum.Interval, sum.Rows, sum.Iterations)
	if !sum.LastTime.IsZero() {
		fmt.Fprintf(&b, "last close: %s @ %s\n", sum.LastClose.StringFixed(2), sum.LastTime.Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "orders: total=%d buy=%d sell=%d\n", sum.Orders.Total, sum.Orders.Buy, sum.Orders.Sell)
	fmt.Fprintf(&b, "open positions value: %s (%d)\n", r.OpenCost.StringFixed(2), r.OpenPositions)
	fmt.Fprintf(&b, "final balance: %s\n", r.Balance.StringFixed(2))
	fmt.Fprintf(&b, "equity @ mark: %s\n", r.Equity.StringFixed(2))
	fmt.Fprintf(&b, "total profit: %s\n", r.Profit.StringFixed(2))
	fmt.Fprintf(&b, "total trades: %d\n", c.Trades)
	fmt.Fprintf(&b, "buy signals: %d  sell signals: %d  rejected: %d  ignored: %d\n",
		c.BuySignals, c.SellSignals, c.Rejected, c.Ignored)
	if c.Trades > 0 && !r.Profit.IsZero() {
		fmt.Fprintf(&b, "profit per trade: %s\n", r.ProfitPerTrade.StringFixed(4))
		fmt.Fprintf(&b, "profit percentage: %s%%\n", r.ProfitPct.StringFixed(4))
	}
	if sum.Err != "" {
		fmt.Fprintf(&b, "error: %s\n", sum.Err)
	}
	fmt.Fprintf(&b, "elapsed: %s", sum.FinishedAt.Sub(sum.StartedAt).Round(time.Millisecond))
	return b.String()
}

func pct(v decimal.Decimal) string {
	return v.StringFixed(2) + "%"
}
