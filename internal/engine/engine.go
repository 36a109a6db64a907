// Package engine 驱动 拉取 -> 生成信号 -> 落账 -> 统计 的循环，分回放与实盘两种模式。
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tradepilot/internal/apperr"
	"tradepilot/internal/config"
	"tradepilot/internal/logger"
	"tradepilot/internal/market"
	"tradepilot/internal/types"
)

type Options struct {
	Config   *config.Config
	Provider market.Provider
	Signals  SignalSource
	Book     Book
	Orders   OrderLog
	Sink     Sink
	Sleep    func(ctx context.Context, d time.Duration) error
	Now      func() time.Time
}

type Engine struct {
	cfg      *config.Config
	provider market.Provider
	signals  SignalSource
	book     Book
	orders   OrderLog
	sink     Sink
	sleep    func(ctx context.Context, d time.Duration) error
	now      func() time.Time
	runID    string

	state atomic.Int32

	mu        sync.RWMutex
	summary   *Summary
	lastClose decimal.Decimal
	hasClose  bool
}

func New(opts Options) (*Engine, error) {
	if opts.Config == nil {
		return nil, apperr.Configuration("", "engine 缺少配置")
	}
	if opts.Provider == nil || opts.Signals == nil || opts.Book == nil {
		return nil, fmt.Errorf("engine 依赖不完整 (provider/signals/book)")
	}
	e := &Engine{
		cfg:      opts.Config,
		provider: opts.Provider,
		signals:  opts.Signals,
		book:     opts.Book,
		orders:   opts.Orders,
		sink:     opts.Sink,
		sleep:    opts.Sleep,
		now:      opts.Now,
		runID:    uuid.NewString(),
	}
	if e.sink == nil {
		e.sink = nopSink{}
	}
	if e.sleep == nil {
		e.sleep = sleepWithContext
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e, nil
}

func (e *Engine) RunID() string { return e.runID }

func (e *Engine) State() State { return State(e.state.Load()) }

func (e *Engine) Mode() Mode {
	if e.cfg.Run.Backtest {
		return ModeReplay
	}
	return ModeLive
}

// LastSummary 返回最近一次运行的汇总（未结束时为 nil）。
func (e *Engine) LastSummary() *Summary {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.summary == nil {
		return nil
	}
	s := *e.summary
	return &s
}

// LastClose 返回最近一轮处理的 K 线收盘价，尚未处理任何窗口时 ok 为 false。
func (e *Engine) LastClose() (decimal.Decimal, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastClose, e.hasClose
}

// Run 只能调用一次。回放模式跑完序列后返回；实盘模式直到 ctx 取消。
func (e *Engine) Run(ctx context.Context) error {
	if !e.state.CompareAndSwap(int32(StateInit), int32(StateRunning)) {
		return ErrAlreadyStarted
	}
	defer e.state.Store(int32(StateTerminated))

	interval, err := e.cfg.Run.ParsedInterval()
	if err != nil {
		return err
	}
	if err := e.signals.InitializeStrategies(e.cfg); err != nil {
		return err
	}
	logger.Infof("[engine] run %s 启动 mode=%s symbol=%s interval=%s", e.runID, e.Mode(), e.cfg.Run.Symbol, interval)
	if e.cfg.Run.Backtest {
		return e.replay(ctx, interval)
	}
	return e.live(ctx, interval)
}

func (e *Engine) request(interval market.Interval, historical bool) market.KlineRequest {
	req := market.KlineRequest{
		Symbol:   e.cfg.Run.Symbol,
		Interval: interval,
		Limit:    e.cfg.Run.Limit,
	}
	if historical {
		req.Start = e.cfg.Run.StartTime()
		req.End = e.cfg.Run.EndTime()
	}
	return req
}

func (e *Engine) fetch(ctx context.Context, req market.KlineRequest) ([]market.Candle, error) {
	series, err := e.provider.Klines(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &apperr.DataUnavailable{Symbol: req.Symbol, Interval: req.Interval.Code, Reason: "拉取失败", Err: err}
	}
	if err := market.ValidateSeries(req, series, 2); err != nil {
		return nil, err
	}
	return series, nil
}

func (e *Engine) replay(ctx context.Context, interval market.Interval) error {
	started := e.now().UTC()
	req := e.request(interval, true)
	series, err := e.fetch(ctx, req)
	if err != nil {
		return err
	}
	logger.Infof("[engine] 回放 %s 共 %d 根 K 线", req, len(series))

	iterations := 0
	for i, window := range market.Prefixes(series, 2) {
		if err := ctx.Err(); err != nil {
			return err
		}
		step, err := e.process(ctx, ModeReplay, i, window)
		if err != nil {
			e.finish(ctx, ModeReplay, series, iterations, started, err)
			return err
		}
		iterations++
		emitStep(ctx, e.sink, step)
	}
	e.finish(ctx, ModeReplay, series, iterations, started, nil)
	return nil
}

func (e *Engine) live(ctx context.Context, interval market.Interval) error {
	started := e.now().UTC()
	delay := interval.PollDelay(e.cfg.Run.PollingIntervalWeight)
	req := e.request(interval, false)
	logger.Infof("[engine] 实盘轮询 %s，间隔 %s", req, delay)

	var last []market.Candle
	iterations := 0
	for {
		if ctx.Err() != nil {
			break
		}
		series, err := e.fetch(ctx, req)
		switch {
		case err != nil && ctx.Err() != nil:
		case err != nil:
			logger.Warnf("[engine] 第 %d 轮拉取失败: %v", iterations, err)
		default:
			last = series
			c := series[len(series)-1]
			logger.Infof("[engine] %s 最新 K 线 open=%s O=%.2f H=%.2f L=%.2f C=%.2f V=%.4f",
				req.Symbol, c.OpenAt().Format(time.RFC3339), c.Open, c.High, c.Low, c.Close, c.Volume)
			step, err := e.process(ctx, ModeLive, iterations, series)
			if err != nil {
				logger.Errorf("[engine] 第 %d 轮执行失败: %v", iterations, err)
			}
			emitStep(ctx, e.sink, step)
		}
		iterations++
		if err := e.sleep(ctx, delay); err != nil {
			break
		}
	}
	e.finish(context.WithoutCancel(ctx), ModeLive, last, iterations, started, nil)
	logger.Infof("[engine] run %s 已停止，共 %d 轮", e.runID, iterations)
	return nil
}

// process 将窗口内生成的信号按顺序交给账本。回放模式下第一次下单失败即返回；
// 实盘模式下记录失败并继续处理剩余信号。
func (e *Engine) process(ctx context.Context, mode Mode, index int, window []market.Candle) (Step, error) {
	last, ok := market.Last(window)
	if ok {
		e.mu.Lock()
		e.lastClose, e.hasClose = last.ClosePrice(), true
		e.mu.Unlock()
	}
	sigs := e.signals.GenerateSignals(window)
	step := Step{
		RunID:    e.runID,
		Mode:     mode,
		Symbol:   e.cfg.Run.Symbol,
		Interval: e.cfg.Run.Interval,
		Index:    index,
		Candle:   last,
		Signals:  sigs,
		At:       e.now().UTC(),
	}
	var errs []error
	for _, sig := range sigs {
		res, err := e.book.Handle(ctx, sig)
		if err != nil {
			if mode == ModeReplay {
				return step, err
			}
			errs = append(errs, err)
			continue
		}
		step.Results = append(step.Results, res)
	}
	step.Snapshot = e.book.Inspect()
	return step, errors.Join(errs...)
}

func (e *Engine) finish(ctx context.Context, mode Mode, series []market.Candle, iterations int, started time.Time, runErr error) {
	summary := Summary{
		RunID:      e.runID,
		Mode:       mode,
		Symbol:     e.cfg.Run.Symbol,
		Interval:   e.cfg.Run.Interval,
		Rows:       len(series),
		Iterations: iterations,
		StartedAt:  started,
		FinishedAt: e.now().UTC(),
	}
	mark := decimal.Zero
	if c, ok := market.Last(series); ok {
		mark = c.ClosePrice()
		summary.LastClose = mark
		summary.LastTime = c.CloseAt()
	}
	summary.Report = e.book.Report(mark)
	if e.orders != nil {
		summary.Orders = e.orders.Stats()
	}
	if runErr != nil {
		summary.Err = runErr.Error()
	}
	e.mu.Lock()
	e.summary = &summary
	e.mu.Unlock()
	if err := e.sink.Summary(ctx, summary); err != nil {
		logger.Warnf("[engine] 写入 summary 失败: %v", err)
	}
}

// Orders 返回订单日志（未配置时为空）。
func (e *Engine) Orders() []types.Order {
	if e.orders == nil {
		return nil
	}
	return e.orders.Orders()
}

// Book 返回账本，供只读接口使用。
func (e *Engine) Book() Book { return e.book }

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
