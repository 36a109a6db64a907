package config

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tradepilot/internal/market"
)

// Config 是 tradepilot 的主配置载体。
type Config struct {
	App        AppConfig        `toml:"app"`
	Market     MarketConfig     `toml:"market"`
	Run        RunConfig        `toml:"run"`
	Trading    TradingConfig    `toml:"trading"`
	Strategies StrategiesConfig `toml:"strategies"`
	Execution  ExecutionConfig  `toml:"execution"`
	Store      StoreConfig      `toml:"store"`
	Report     ReportConfig     `toml:"report"`
}

type AppConfig struct {
	Env         string `toml:"env"`
	LogLevel    string `toml:"log_level"`
	LogPath     string `toml:"log_path"`
	JournalPath string `toml:"journal_path"` // 成交流水，空表示关闭
	HTTPAddr    string `toml:"http_addr"`
	HTTPEnabled bool   `toml:"http_enabled"`
}

// MarketConfig 描述 K 线数据源。
type MarketConfig struct {
	Source         string `toml:"source"`
	RESTBaseURL    string `toml:"rest_base_url"`
	APIKey         string `toml:"api_key"`
	APISecret      string `toml:"api_secret"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	RetryAttempts  int    `toml:"retry_attempts"`
	RetryMinMillis int    `toml:"retry_min_ms"`
	RetryMaxMillis int    `toml:"retry_max_ms"`
	CachePath      string `toml:"cache_path"` // 空表示不缓存历史 K 线
}

func (m MarketConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutSeconds) * time.Second
}

// RunConfig 对应一次运行的标的、周期与模式。
type RunConfig struct {
	Symbol                string  `toml:"symbol"`
	Interval              string  `toml:"interval"`
	Limit                 int     `toml:"limit"`
	StartDate             string  `toml:"start_date"` // YYYY-MM-DD
	EndDate               string  `toml:"end_date"`
	Backtest              bool    `toml:"backtest"`
	PollingIntervalWeight float64 `toml:"polling_interval_weight"`
}

const dateLayout = "2006-01-02"

// ParsedInterval 返回校验过的周期。
func (r RunConfig) ParsedInterval() (market.Interval, error) {
	return market.ParseInterval(r.Interval)
}

// StartTime 解析 start_date，未配置返回零值。
func (r RunConfig) StartTime() time.Time {
	return parseDate(r.StartDate)
}

func (r RunConfig) EndTime() time.Time {
	return parseDate(r.EndDate)
}

func parseDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	t, err := time.ParseInLocation(dateLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}

// TradingConfig 控制资金、单笔名义金额与持仓上限。
type TradingConfig struct {
	StartingBalance      decimal.Decimal  `toml:"starting_balance"`
	Notional             decimal.Decimal  `toml:"notional"`
	MaxOpenPositions     int              `toml:"max_open_positions"`
	StopLossPercentage   *decimal.Decimal `toml:"stop_loss_percentage"`
	TakeProfitPercentage *decimal.Decimal `toml:"take_profit_percentage"`
}

type StrategiesConfig struct {
	Enabled []string   `toml:"enabled"`
	RSI     RSIConfig  `toml:"rsi"`
	MACD    MACDConfig `toml:"macd"`
}

type RSIConfig struct {
	Period          int     `toml:"period"`
	Oversold        float64 `toml:"oversold"`
	Overbought      float64 `toml:"overbought"`
	CooldownSeconds int     `toml:"cooldown_seconds"`
}

type MACDConfig struct {
	Fast   int `toml:"fast"`
	Slow   int `toml:"slow"`
	Signal int `toml:"signal"`
}

// ExecutionConfig 控制下单通道、重试与熔断。
type ExecutionConfig struct {
	Mode                   string `toml:"mode"` // simulated / binance_test
	APIKey                 string `toml:"api_key"`
	APISecret              string `toml:"api_secret"`
	RetryAttempts          int    `toml:"retry_attempts"`
	RetryMinMillis         int    `toml:"retry_min_ms"`
	RetryMaxMillis         int    `toml:"retry_max_ms"`
	BreakerThreshold       int    `toml:"breaker_threshold"`
	BreakerCooldownSeconds int    `toml:"breaker_cooldown_seconds"`
}

const (
	ExecutionModeSimulated   = "simulated"
	ExecutionModeBinanceTest = "binance_test"
)

type StoreConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type ReportConfig struct {
	ChartPath   string `toml:"chart_path"`
	SummaryPath string `toml:"summary_path"`
}

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	_, ok := k[strings.ToLower(strings.TrimSpace(path))]
	return ok
}

type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
