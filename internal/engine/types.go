package engine

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"tradepilot/internal/config"
	"tradepilot/internal/executor"
	"tradepilot/internal/ledger"
	"tradepilot/internal/logger"
	"tradepilot/internal/market"
	"tradepilot/internal/types"
)

type State int32

const (
	StateInit State = iota
	StateRunning
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateRunning:
		return "RUNNING"
	case StateTerminated:
		return "TERMINATED"
	default:
		return "UNKNOWN"
	}
}

type Mode string

const (
	ModeReplay Mode = "replay"
	ModeLive   Mode = "live"
)

var ErrAlreadyStarted = errors.New("engine 已启动")

// SignalSource 为信号聚合能力，signals.Aggregator 实现该接口。
type SignalSource interface {
	InitializeStrategies(cfg *config.Config) error
	GenerateSignals(window []market.Candle) []types.Signal
}

// Book 为账本能力，ledger.Ledger 实现该接口。
type Book interface {
	Handle(ctx context.Context, sig types.Signal) (ledger.Result, error)
	Inspect() ledger.Snapshot
	Report(mark decimal.Decimal) ledger.Report
}

// OrderLog 提供订单统计，可选。
type OrderLog interface {
	Orders() []types.Order
	Stats() executor.Stats
}

// Step 为每轮迭代的统计。
type Step struct {
	RunID    string
	Mode     Mode
	Symbol   string
	Interval string
	Index    int
	Candle   market.Candle
	Signals  []types.Signal
	Results  []ledger.Result
	Snapshot ledger.Snapshot
	At       time.Time
}

// Summary 在运行结束时输出一次。
type Summary struct {
	RunID      string          `json:"run_id" yaml:"run_id"`
	Mode       Mode            `json:"mode" yaml:"mode"`
	Symbol     string          `json:"symbol" yaml:"symbol"`
	Interval   string          `json:"interval" yaml:"interval"`
	Rows       int             `json:"rows" yaml:"rows"`
	Iterations int             `json:"iterations" yaml:"iterations"`
	LastClose  decimal.Decimal `json:"last_close" yaml:"last_close"`
	LastTime   time.Time       `json:"last_time" yaml:"last_time"`
	Report     ledger.Report   `json:"report" yaml:"report"`
	Orders     executor.Stats  `json:"orders" yaml:"orders"`
	StartedAt  time.Time       `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time       `json:"finished_at" yaml:"finished_at"`
	Err        string          `json:"error,omitempty" yaml:"error,omitempty"`
}

// Sink 接收统计输出；失败只记日志，不影响运行。
type Sink interface {
	Step(ctx context.Context, step Step) error
	Summary(ctx context.Context, summary Summary) error
}

// MultiSink 按顺序扇出到多个 Sink。
type MultiSink []Sink

func (m MultiSink) Step(ctx context.Context, step Step) error {
	var errs []error
	for _, s := range m {
		if err := s.Step(ctx, step); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiSink) Summary(ctx context.Context, summary Summary) error {
	var errs []error
	for _, s := range m {
		if err := s.Summary(ctx, summary); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type nopSink struct{}

func (nopSink) Step(context.Context, Step) error       { return nil }
func (nopSink) Summary(context.Context, Summary) error { return nil }

func emitStep(ctx context.Context, sink Sink, step Step) {
	if err := sink.Step(ctx, step); err != nil {
		logger.Warnf("[engine] 写入 step %d 失败: %v", step.Index, err)
	}
}
