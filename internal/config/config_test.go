package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradepilot/internal/apperr"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, "BTCUSDT", cfg.Run.Symbol)
	assert.Equal(t, "1h", cfg.Run.Interval)
	assert.Equal(t, 1000, cfg.Run.Limit)
	assert.True(t, cfg.Run.Backtest)
	assert.Equal(t, 0.5, cfg.Run.PollingIntervalWeight)
	assert.True(t, cfg.Trading.StartingBalance.Equal(decimal.NewFromInt(10000)))
	assert.True(t, cfg.Trading.Notional.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, 10, cfg.Trading.MaxOpenPositions)
	require.NotNil(t, cfg.Trading.StopLossPercentage)
	assert.Equal(t, "0.95", cfg.Trading.StopLossPercentage.String())
	assert.Equal(t, []string{"rsi", "macd"}, cfg.Strategies.Enabled)
	assert.Equal(t, ExecutionModeSimulated, cfg.Execution.Mode)
}

func TestLoadWithIncludeAndDecimals(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
trading:
  starting_balance: "250.10"
  notional: 25
run:
  symbol: ethusdt
`)
	path := writeFile(t, dir, "config.yaml", `
include:
  - base.yaml
run:
  interval: 15m
  backtest: false
  start_date: "2024-01-01"
  end_date: "2024-02-01"
trading:
  max_open_positions: 3
  stop_loss_percentage: 0
strategies:
  enabled: [" RSI ", "rsi"]
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ETHUSDT", cfg.Run.Symbol)
	assert.Equal(t, "15m", cfg.Run.Interval)
	assert.False(t, cfg.Run.Backtest)
	assert.Equal(t, "250.1", cfg.Trading.StartingBalance.String())
	assert.True(t, cfg.Trading.Notional.Equal(decimal.NewFromInt(25)))
	assert.Equal(t, 3, cfg.Trading.MaxOpenPositions)
	assert.Nil(t, cfg.Trading.StopLossPercentage)
	require.NotNil(t, cfg.Trading.TakeProfitPercentage)
	assert.Equal(t, []string{"rsi"}, cfg.Strategies.Enabled)
	assert.Equal(t, 2024, cfg.Run.StartTime().Year())
	assert.Equal(t, 2, int(cfg.Run.EndTime().Month()))
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]struct {
		body  string
		field string
	}{
		"interval":  {"run:\n  interval: 7m\n", "run.interval"},
		"notional":  {"trading:\n  notional: \"-1\"\n", "trading.notional"},
		"dates":     {"run:\n  start_date: \"2024-03-01\"\n  end_date: \"2024-01-01\"\n", "run.end_date"},
		"mode":      {"execution:\n  mode: paper\n", "execution.mode"},
		"test keys": {"execution:\n  mode: binance_test\n", "execution.api_key"},
		"source":    {"market:\n  source: kraken\n", "market.source"},
		"static":    {"market:\n  source: static\n", "market.cache_path"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "config.yaml", tc.body)
			_, err := Load(path)
			require.Error(t, err)
			var ce *apperr.ConfigurationError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tc.field, ce.Field)
			assert.ErrorIs(t, err, apperr.ErrConfiguration)
		})
	}
}

func TestIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "include: [b.yaml]\n")
	writeFile(t, dir, "b.yaml", "include: [a.yaml]\n")
	_, err := Load(filepath.Join(dir, "a.yaml"))
	assert.ErrorContains(t, err, "循环引用")
}

func TestPathFromEnv(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	assert.Equal(t, DefaultConfigPath, PathFromEnv())
	t.Setenv(EnvConfigPath, "/etc/tradepilot.yaml")
	assert.Equal(t, "/etc/tradepilot.yaml", PathFromEnv())
}

func TestLoadNormalizesSymbol(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", "run:\n  symbol: eth/usdt\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ETHUSDT", cfg.Run.Symbol)
}
