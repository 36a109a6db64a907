package config

import (
	"strings"

	"github.com/shopspring/decimal"

	"tradepilot/internal/pkg/symbol"
)

// 默认值常量
const (
	defaultAppEnv           = "dev"
	defaultAppLogLevel      = "info"
	defaultAppHTTPAddr      = ":9991"
	defaultMarketSource     = "binance"
	defaultMarketREST       = "https://api.binance.com"
	defaultMarketTimeout    = 15
	defaultRetryAttempts    = 3
	defaultRetryMinMillis   = 200
	defaultRetryMaxMillis   = 5000
	defaultRunSymbol        = "BTCUSDT"
	defaultRunInterval      = "1h"
	defaultRunLimit         = 1000
	defaultPollingWeight    = 0.5
	defaultMaxOpenPositions = 10
	defaultRSIPeriod        = 14
	defaultRSIOversold      = 30
	defaultRSIOverbought    = 70
	defaultRSICooldown      = 300
	defaultMACDFast         = 12
	defaultMACDSlow         = 26
	defaultMACDSignal       = 9
	defaultBreakerThreshold = 5
	defaultBreakerCooldown  = 30
	defaultStorePath        = "data/tradepilot.db"
	defaultStartingBalance  = "10000"
	defaultNotional         = "100"
	defaultStopLossPct      = "0.95"
	defaultTakeProfitPct    = "1.10"
)

var defaultStrategies = []string{"rsi", "macd"}

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Market.applyDefaults(keys)
	c.Run.applyDefaults(keys)
	c.Trading.applyDefaults(keys)
	c.Strategies.applyDefaults(keys)
	c.Execution.applyDefaults(keys)
	c.Store.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
	)
}

func (m *MarketConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("market.source", &m.Source, defaultMarketSource),
		stringFieldDefault("market.rest_base_url", &m.RESTBaseURL, defaultMarketREST),
		intFieldDefault("market.timeout_seconds", &m.TimeoutSeconds, defaultMarketTimeout),
		intFieldDefault("market.retry_attempts", &m.RetryAttempts, defaultRetryAttempts),
		intFieldDefault("market.retry_min_ms", &m.RetryMinMillis, defaultRetryMinMillis),
		intFieldDefault("market.retry_max_ms", &m.RetryMaxMillis, defaultRetryMaxMillis),
	)
	m.Source = strings.ToLower(strings.TrimSpace(m.Source))
}

func (r *RunConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("run.symbol", &r.Symbol, defaultRunSymbol),
		stringFieldDefault("run.interval", &r.Interval, defaultRunInterval),
		intFieldDefault("run.limit", &r.Limit, defaultRunLimit),
		boolFieldDefault("run.backtest", &r.Backtest, true),
		fieldDefault{
			key:   "run.polling_interval_weight",
			need:  func() bool { return r.PollingIntervalWeight <= 0 },
			apply: func() { r.PollingIntervalWeight = defaultPollingWeight },
		},
	)
	r.Symbol = symbol.Normalize(r.Symbol)
	r.Interval = strings.TrimSpace(r.Interval)
}

func (t *TradingConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		decimalFieldDefault("trading.starting_balance", &t.StartingBalance, defaultStartingBalance),
		decimalFieldDefault("trading.notional", &t.Notional, defaultNotional),
		intFieldDefault("trading.max_open_positions", &t.MaxOpenPositions, defaultMaxOpenPositions),
		optionalDecimalDefault("trading.stop_loss_percentage", &t.StopLossPercentage, defaultStopLossPct),
		optionalDecimalDefault("trading.take_profit_percentage", &t.TakeProfitPercentage, defaultTakeProfitPct),
	)
	// 显式配置为 0 视为关闭止损/止盈
	if t.StopLossPercentage != nil && t.StopLossPercentage.IsZero() {
		t.StopLossPercentage = nil
	}
	if t.TakeProfitPercentage != nil && t.TakeProfitPercentage.IsZero() {
		t.TakeProfitPercentage = nil
	}
}

func (s *StrategiesConfig) applyDefaults(keys keySet) {
	if !keys.isSet("strategies.enabled") && len(s.Enabled) == 0 {
		s.Enabled = append([]string(nil), defaultStrategies...)
	}
	s.Enabled = normalizeNameList(s.Enabled)
	applyFieldDefaults(keys,
		intFieldDefault("strategies.rsi.period", &s.RSI.Period, defaultRSIPeriod),
		floatFieldDefault("strategies.rsi.oversold", &s.RSI.Oversold, defaultRSIOversold),
		floatFieldDefault("strategies.rsi.overbought", &s.RSI.Overbought, defaultRSIOverbought),
		intFieldDefault("strategies.rsi.cooldown_seconds", &s.RSI.CooldownSeconds, defaultRSICooldown),
		intFieldDefault("strategies.macd.fast", &s.MACD.Fast, defaultMACDFast),
		intFieldDefault("strategies.macd.slow", &s.MACD.Slow, defaultMACDSlow),
		intFieldDefault("strategies.macd.signal", &s.MACD.Signal, defaultMACDSignal),
	)
}

func (e *ExecutionConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("execution.mode", &e.Mode, ExecutionModeSimulated),
		intFieldDefault("execution.retry_attempts", &e.RetryAttempts, defaultRetryAttempts),
		intFieldDefault("execution.retry_min_ms", &e.RetryMinMillis, defaultRetryMinMillis),
		intFieldDefault("execution.retry_max_ms", &e.RetryMaxMillis, defaultRetryMaxMillis),
		intFieldDefault("execution.breaker_threshold", &e.BreakerThreshold, defaultBreakerThreshold),
		intFieldDefault("execution.breaker_cooldown_seconds", &e.BreakerCooldownSeconds, defaultBreakerCooldown),
	)
	e.Mode = strings.ToLower(strings.TrimSpace(e.Mode))
}

func (s *StoreConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("store.path", &s.Path, defaultStorePath),
	)
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return strings.TrimSpace(*target) == "" },
		apply: func() { *target = def },
	}
}

func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return *target <= 0 },
		apply: func() { *target = def },
	}
}

func floatFieldDefault(key string, target *float64, def float64) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return *target <= 0 },
		apply: func() { *target = def },
	}
}

func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:   key,
		apply: func() { *target = def },
	}
}

func decimalFieldDefault(key string, target *decimal.Decimal, def string) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return target.IsZero() },
		apply: func() { *target = decimal.RequireFromString(def) },
	}
}

func optionalDecimalDefault(key string, target **decimal.Decimal, def string) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return *target == nil },
		apply: func() {
			d := decimal.RequireFromString(def)
			*target = &d
		},
	}
}

func normalizeNameList(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	out := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
