package report

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"tradepilot/internal/engine"
	"tradepilot/internal/executor"
	"tradepilot/internal/ledger"
	"tradepilot/internal/logger"
	"tradepilot/internal/market"
	"tradepilot/internal/types"
)

func sampleSummary() engine.Summary {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return engine.Summary{
		RunID:      "run-1",
		Mode:       engine.ModeReplay,
		Symbol:     "BTCUSDT",
		Interval:   "1h",
		Rows:       3,
		Iterations: 2,
		LastClose:  decimal.NewFromInt(110),
		LastTime:   start.Add(3 * time.Hour),
		Report: ledger.Report{
			StartingBalance: decimal.NewFromInt(1000),
			Balance:         decimal.NewFromInt(1010),
			Equity:          decimal.NewFromInt(1010),
			Profit:          decimal.NewFromInt(10),
			ProfitPct:       decimal.NewFromInt(1),
			ProfitPerTrade:  decimal.NewFromInt(5),
			Counters:        ledger.Counters{Trades: 2, BuySignals: 1, SellSignals: 1},
		},
		Orders:     executor.Stats{Total: 2, Buy: 1, Sell: 1},
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
	}
}

func TestFormatSummary(t *testing.T) {
	out := FormatSummary(sampleSummary())
	assert.Contains(t, out, "run run-1 (replay)")
	assert.Contains(t, out, "final balance: 1010.00")
	assert.Contains(t, out, "total trades: 2")
	assert.Contains(t, out, "orders: total=2 buy=1 sell=1")
	assert.Contains(t, out, "profit per trade: 5.0000")
	assert.Contains(t, out, "profit percentage: 1.0000%")
	assert.Contains(t, out, "elapsed: 1.5s")
	assert.NotContains(t, out, "error:")

	sum := sampleSummary()
	sum.Report.Profit = decimal.Zero
	sum.Err = "boom"
	out = FormatSummary(sum)
	assert.NotContains(t, out, "profit per trade")
	assert.Contains(t, out, "error: boom")
}

func step(index int, close float64, side types.Side) engine.Step {
	st := engine.Step{
		RunID:    "run-1",
		Index:    index,
		Candle:   market.Candle{OpenTime: int64(index) * 3_600_000, CloseTime: int64(index+1)*3_600_000 - 1, Open: close, High: close, Low: close, Close: close},
		Snapshot: ledger.Snapshot{Balance: decimal.NewFromInt(1000)},
	}
	if side != "" {
		o := types.Order{Side: side, Price: decimal.NewFromFloat(close)}
		st.Results = []ledger.Result{{Outcome: ledger.OutcomeOpened, Order: &o}}
	}
	return st
}

func TestChartSinkRendersHTML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "equity.html")
	sink := NewChartSink(path)
	ctx := context.Background()
	require.NoError(t, sink.Step(ctx, step(0, 100, types.SideBuy)))
	require.NoError(t, sink.Step(ctx, step(1, 105, "")))
	require.NoError(t, sink.Step(ctx, step(2, 110, types.SideSell)))
	require.NoError(t, sink.Summary(ctx, sampleSummary()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	html := string(raw)
	assert.Contains(t, html, "BTCUSDT 1h")
	assert.Contains(t, html, "Equity")
	assert.Contains(t, html, "echarts")
}

func TestChartSinkMergesRepeatedCandle(t *testing.T) {
	sink := NewChartSink("")
	ctx := context.Background()
	require.NoError(t, sink.Step(ctx, step(0, 100, types.SideBuy)))
	require.NoError(t, sink.Step(ctx, step(0, 101, "")))
	require.NoError(t, sink.Step(ctx, step(1, 102, types.SideSell)))

	require.Len(t, sink.points, 2)
	assert.Equal(t, 101.0, sink.points[0].candle[1])
	assert.Equal(t, 100.0, sink.points[0].buy)
	assert.Equal(t, 102.0, sink.points[1].sell)
}

func TestChartSinkKeepsLatestPoints(t *testing.T) {
	sink := &ChartSink{MaxPoints: 3}
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		require.NoError(t, sink.Step(ctx, step(i, float64(100+i), "")))
	}
	require.Len(t, sink.points, 3)
	assert.Equal(t, 107.0, sink.points[0].candle[1])
	assert.Equal(t, 109.0, sink.points[2].candle[1])
}

func TestChartSinkWithoutPoints(t *testing.T) {
	var buf bytes.Buffer
	err := NewChartSink("").Render(&buf, sampleSummary())
	assert.Error(t, err)
	// empty path disables output
	assert.NoError(t, NewChartSink("").Summary(context.Background(), sampleSummary()))
}

func TestYAMLSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.yaml")
	require.NoError(t, YAMLSink{Path: path}.Summary(context.Background(), sampleSummary()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(raw, &doc))
	assert.Equal(t, "run-1", doc["run_id"])
	assert.Equal(t, "replay", doc["mode"])
	rep, ok := doc["report"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "1010", rep["balance"])
	orders, ok := doc["orders"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 2, orders["total"])
}

func TestJournalSink(t *testing.T) {
	var buf bytes.Buffer
	logger.SetJournalWriter(&buf)
	defer logger.SetJournalWriter(nil)

	ctx := context.Background()
	st := step(0, 100, types.SideBuy)
	st.Results = append(st.Results, ledger.Result{Outcome: ledger.OutcomeRejected})
	require.NoError(t, JournalSink{}.Step(ctx, st))
	require.NoError(t, JournalSink{}.Summary(ctx, sampleSummary()))

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "[JOURNAL]"))
	assert.Contains(t, out, "[run-1][opened]")
	assert.Contains(t, out, "--- ORDER ---")
	assert.Contains(t, out, "[run-1][summary]")
	assert.NotContains(t, out, "[rejected]")
}
