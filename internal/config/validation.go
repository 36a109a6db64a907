package config

import (
	"strings"

	"tradepilot/internal/apperr"
	"tradepilot/internal/market"
)

// validate 对配置进行基础校验，失败统一返回 *apperr.ConfigurationError。
func validate(c *Config) error {
	if err := c.Run.validate(); err != nil {
		return err
	}
	if err := c.Trading.validate(); err != nil {
		return err
	}
	if err := c.Strategies.validate(); err != nil {
		return err
	}
	if err := c.Market.validate(); err != nil {
		return err
	}
	if err := c.Execution.validate(); err != nil {
		return err
	}
	if c.Store.Enabled && strings.TrimSpace(c.Store.Path) == "" {
		return apperr.Configuration("store.path", "启用 store 时不能为空")
	}
	return nil
}

func (r *RunConfig) validate() error {
	if r.Symbol == "" {
		return apperr.Configuration("run.symbol", "不能为空")
	}
	if _, err := market.ParseInterval(r.Interval); err != nil {
		return err
	}
	if r.Limit < 2 {
		return apperr.Configuration("run.limit", "至少为 2，当前 %d", r.Limit)
	}
	if r.PollingIntervalWeight <= 0 {
		return apperr.Configuration("run.polling_interval_weight", "需 > 0")
	}
	for _, d := range []struct{ key, raw string }{{"run.start_date", r.StartDate}, {"run.end_date", r.EndDate}} {
		if strings.TrimSpace(d.raw) != "" && parseDate(d.raw).IsZero() {
			return apperr.Configuration(d.key, "日期格式应为 YYYY-MM-DD，当前 %q", d.raw)
		}
	}
	start, end := r.StartTime(), r.EndTime()
	if !start.IsZero() && !end.IsZero() && !start.Before(end) {
		return apperr.Configuration("run.end_date", "需晚于 start_date")
	}
	return nil
}

func (t *TradingConfig) validate() error {
	if t.StartingBalance.IsNegative() {
		return apperr.Configuration("trading.starting_balance", "不能为负数")
	}
	if !t.Notional.IsPositive() {
		return apperr.Configuration("trading.notional", "需 > 0")
	}
	if t.MaxOpenPositions < 0 {
		return apperr.Configuration("trading.max_open_positions", "不能为负数")
	}
	if t.StopLossPercentage != nil && t.StopLossPercentage.IsNegative() {
		return apperr.Configuration("trading.stop_loss_percentage", "不能为负数")
	}
	if t.TakeProfitPercentage != nil && t.TakeProfitPercentage.IsNegative() {
		return apperr.Configuration("trading.take_profit_percentage", "不能为负数")
	}
	return nil
}

func (s *StrategiesConfig) validate() error {
	if len(s.Enabled) == 0 {
		return apperr.Configuration("strategies.enabled", "至少启用一个策略")
	}
	if s.RSI.Period < 2 {
		return apperr.Configuration("strategies.rsi.period", "至少为 2")
	}
	if s.RSI.Oversold >= s.RSI.Overbought {
		return apperr.Configuration("strategies.rsi.oversold", "需小于 overbought")
	}
	if s.MACD.Fast >= s.MACD.Slow {
		return apperr.Configuration("strategies.macd.fast", "需小于 slow")
	}
	return nil
}

func (m *MarketConfig) validate() error {
	switch m.Source {
	case "binance":
	case "static":
		if strings.TrimSpace(m.CachePath) == "" {
			return apperr.Configuration("market.cache_path", "static 数据源需要 cache_path")
		}
	default:
		return apperr.Configuration("market.source", "不支持的数据源 %q", m.Source)
	}
	if m.RetryMaxMillis < m.RetryMinMillis {
		return apperr.Configuration("market.retry_max_ms", "不能小于 retry_min_ms")
	}
	return nil
}

func (e *ExecutionConfig) validate() error {
	switch e.Mode {
	case ExecutionModeSimulated:
	case ExecutionModeBinanceTest:
		if strings.TrimSpace(e.APIKey) == "" || strings.TrimSpace(e.APISecret) == "" {
			return apperr.Configuration("execution.api_key", "binance_test 模式需要 api_key/api_secret")
		}
	default:
		return apperr.Configuration("execution.mode", "不支持的模式 %q", e.Mode)
	}
	if e.RetryMaxMillis < e.RetryMinMillis {
		return apperr.Configuration("execution.retry_max_ms", "不能小于 retry_min_ms")
	}
	return nil
}
