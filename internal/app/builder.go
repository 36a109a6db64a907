package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tradepilot/internal/config"
	"tradepilot/internal/engine"
	"tradepilot/internal/executor"
	"tradepilot/internal/gateway/binance"
	"tradepilot/internal/ledger"
	"tradepilot/internal/logger"
	"tradepilot/internal/market"
	"tradepilot/internal/pkg/circuit"
	"tradepilot/internal/report"
	"tradepilot/internal/signals"
	"tradepilot/internal/store/candlecache"
	"tradepilot/internal/store/gormstore"
	"tradepilot/internal/strategy"
	httpapi "tradepilot/internal/transport/http"
)

// Builder 按配置组装 数据源 -> 策略 -> 执行器 -> 账本 -> 引擎，可通过 Option 覆盖任意一环。
type Builder struct {
	cfg *config.Config

	provider   market.Provider
	client     executor.ExecutionClient
	strategies []strategy.Strategy
	sinks      []engine.Sink
	sleep      func(ctx context.Context, d time.Duration) error
	now        func() time.Time
}

type Option func(*Builder)

// WithProvider 替换 K 线数据源（不再套用重试与缓存）。
func WithProvider(p market.Provider) Option {
	return func(b *Builder) { b.provider = p }
}

// WithExecutionClient 指定实盘下单通道；回测模式下忽略。
func WithExecutionClient(c executor.ExecutionClient) Option {
	return func(b *Builder) { b.client = c }
}

// WithStrategies 直接指定策略实例，跳过 strategies.enabled。
func WithStrategies(s ...strategy.Strategy) Option {
	return func(b *Builder) { b.strategies = append(b.strategies, s...) }
}

// WithSinks 追加统计输出。
func WithSinks(s ...engine.Sink) Option {
	return func(b *Builder) { b.sinks = append(b.sinks, s...) }
}

func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(b *Builder) {
		b.now = now
		b.sleep = sleep
	}
}

func NewBuilder(cfg *config.Config, opts ...Option) *Builder {
	b := &Builder{cfg: cfg}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *Builder) Build(ctx context.Context) (_ *App, err error) {
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	a := &App{cfg: cfg}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	provider, err := b.buildProvider(a)
	if err != nil {
		return nil, err
	}
	exec, err := b.buildExecutor()
	if err != nil {
		return nil, err
	}
	book := ledger.New(ledger.Config{
		StartingBalance:  cfg.Trading.StartingBalance,
		Notional:         cfg.Trading.Notional,
		MaxOpenPositions: cfg.Trading.MaxOpenPositions,
	}, exec)

	agg, err := b.buildSignals()
	if err != nil {
		return nil, err
	}

	sinks, runs, err := b.buildSinks(a)
	if err != nil {
		return nil, err
	}

	eng, err := engine.New(engine.Options{
		Config:   cfg,
		Provider: provider,
		Signals:  agg,
		Book:     book,
		Orders:   exec,
		Sink:     sinks,
		Sleep:    b.sleep,
		Now:      b.now,
	})
	if err != nil {
		return nil, err
	}
	a.engine = eng

	if cfg.App.HTTPEnabled {
		srv, err := httpapi.NewServer(httpapi.ServerConfig{Addr: cfg.App.HTTPAddr, Engine: eng, Runs: runs})
		if err != nil {
			return nil, err
		}
		a.http = srv
	}

	a.Summary = &StartupSummary{
		RunID:      eng.RunID(),
		Mode:       eng.Mode(),
		Symbol:     cfg.Run.Symbol,
		Interval:   cfg.Run.Interval,
		Provider:   provider.Name(),
		Strategies: agg.Names(),
		Execution:  executionLabel(cfg, exec),
		Sinks:      sinkNames(sinks),
		HTTPAddr:   a.httpAddr(),
	}
	return a, nil
}

func (b *Builder) buildProvider(a *App) (market.Provider, error) {
	if b.provider != nil {
		return b.provider, nil
	}
	m := b.cfg.Market
	var cache *candlecache.Store
	if strings.TrimSpace(m.CachePath) != "" {
		store, err := candlecache.Open(m.CachePath)
		if err != nil {
			return nil, fmt.Errorf("打开 K 线缓存失败: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		cache = store
	}
	if m.Source == "static" {
		return candlecache.Offline{Store: cache}, nil
	}
	var p market.Provider = binance.NewKlineProvider(binance.Config{
		RESTBaseURL: m.RESTBaseURL,
		APIKey:      m.APIKey,
		APISecret:   m.APISecret,
		HTTPTimeout: m.Timeout(),
	})
	p = market.NewRetryProvider(p, m.RetryAttempts,
		time.Duration(m.RetryMinMillis)*time.Millisecond,
		time.Duration(m.RetryMaxMillis)*time.Millisecond)
	if cache != nil {
		p = candlecache.NewProvider(p, cache)
	}
	return p, nil
}

func (b *Builder) buildExecutor() (*executor.Executor, error) {
	e := b.cfg.Execution
	client := b.client
	if client == nil && e.Mode == config.ExecutionModeBinanceTest && !b.cfg.Run.Backtest {
		c, err := binance.NewTestOrderClient(binance.Config{
			RESTBaseURL: b.cfg.Market.RESTBaseURL,
			APIKey:      e.APIKey,
			APISecret:   e.APISecret,
			HTTPTimeout: b.cfg.Market.Timeout(),
		})
		if err != nil {
			return nil, err
		}
		client = c
	}
	breaker := circuit.New("execution", e.BreakerThreshold, time.Duration(e.BreakerCooldownSeconds)*time.Second)
	breaker.OnStateChange(func(name string, from, to circuit.State) {
		logger.Warnf("[executor] 熔断器 %s: %s -> %s", name, from, to)
	})
	return executor.New(executor.Options{
		Backtest:      b.cfg.Run.Backtest,
		Client:        client,
		RetryAttempts: e.RetryAttempts,
		RetryMin:      time.Duration(e.RetryMinMillis) * time.Millisecond,
		RetryMax:      time.Duration(e.RetryMaxMillis) * time.Millisecond,
		Breaker:       breaker,
		Now:           b.now,
	}), nil
}

func (b *Builder) buildSignals() (*signals.Aggregator, error) {
	if len(b.strategies) > 0 {
		return signals.NewAggregator(b.strategies...), nil
	}
	return signals.FromConfig(b.cfg)
}

func (b *Builder) buildSinks(a *App) (engine.MultiSink, httpapi.RunReader, error) {
	sinks := engine.MultiSink{report.LogSink{}}
	if strings.TrimSpace(b.cfg.App.JournalPath) != "" {
		sinks = append(sinks, report.JournalSink{})
	}
	var runs httpapi.RunReader
	if b.cfg.Store.Enabled {
		store, err := gormstore.Open(b.cfg.Store.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("打开运行记录库失败: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		sinks = append(sinks, store)
		runs = store
	}
	if path := strings.TrimSpace(b.cfg.Report.ChartPath); path != "" {
		sinks = append(sinks, report.NewChartSink(path))
	}
	if path := strings.TrimSpace(b.cfg.Report.SummaryPath); path != "" {
		sinks = append(sinks, report.YAMLSink{Path: path})
	}
	sinks = append(sinks, b.sinks...)
	return sinks, runs, nil
}

func executionLabel(cfg *config.Config, exec *executor.Executor) string {
	if exec.Simulated() {
		return "simulated"
	}
	return cfg.Execution.Mode
}

func sinkNames(sinks engine.MultiSink) []string {
	out := make([]string, 0, len(sinks))
	for _, s := range sinks {
		out = append(out, fmt.Sprintf("%T", s))
	}
	return out
}
