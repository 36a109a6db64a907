package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tradepilot/internal/engine"
	"tradepilot/internal/executor"
	"tradepilot/internal/ledger"
	"tradepilot/internal/store/gormstore"
	"tradepilot/internal/types"
)

type MockEngine struct {
	mock.Mock
	book *ledger.Ledger
	exec *executor.Executor
}

func (m *MockEngine) RunID() string       { return m.Called().String(0) }
func (m *MockEngine) State() engine.State { return m.Called().Get(0).(engine.State) }
func (m *MockEngine) Mode() engine.Mode   { return m.Called().Get(0).(engine.Mode) }
func (m *MockEngine) LastSummary() *engine.Summary {
	sum, _ := m.Called().Get(0).(*engine.Summary)
	return sum
}
func (m *MockEngine) LastClose() (decimal.Decimal, bool) {
	args := m.Called()
	return args.Get(0).(decimal.Decimal), args.Bool(1)
}
func (m *MockEngine) Orders() []types.Order { return m.exec.Orders() }
func (m *MockEngine) Book() engine.Book     { return m.book }

func newMockEngine(t *testing.T) *MockEngine {
	t.Helper()
	exec := executor.New(executor.Options{Backtest: true})
	book := ledger.New(ledger.Config{
		StartingBalance:  decimal.NewFromInt(1000),
		Notional:         decimal.NewFromInt(100),
		MaxOpenPositions: 2,
	}, exec)
	ctx := context.Background()
	for _, side := range []types.Side{types.SideBuy, types.SideBuy, types.SideSell} {
		_, err := book.Handle(ctx, types.Signal{StrategyName: "t", Action: side, Symbol: "BTCUSDT", Price: decimal.NewFromInt(50)})
		require.NoError(t, err)
	}
	return &MockEngine{book: book, exec: exec}
}

func get(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestStatusLedgerAndOrders(t *testing.T) {
	eng := newMockEngine(t)
	eng.On("RunID").Return("run-1")
	eng.On("State").Return(engine.StateRunning)
	eng.On("Mode").Return(engine.ModeLive)
	srv, err := NewServer(ServerConfig{Engine: eng})
	require.NoError(t, err)
	h := srv.Handler()

	rec, body := get(t, h, "/api/status")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "run-1", body["run_id"])
	assert.Equal(t, "RUNNING", body["state"])
	assert.Equal(t, "live", body["mode"])

	rec, body = get(t, h, "/api/ledger")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "900", body["balance"])
	assert.EqualValues(t, 1, body["open_position_count"])

	rec, body = get(t, h, "/api/orders")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 3, body["count"])

	_, body = get(t, h, "/api/orders?side=sell")
	assert.EqualValues(t, 1, body["count"])

	rec, _ = get(t, h, "/api/orders?side=hold")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = get(t, h, "/api/runs")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "/api/runs", body["path"])
}

func TestReportAndSummary(t *testing.T) {
	eng := newMockEngine(t)
	eng.On("State").Return(engine.StateRunning)
	eng.On("LastSummary").Return((*engine.Summary)(nil)).Once()
	srv, err := NewServer(ServerConfig{Engine: eng})
	require.NoError(t, err)
	h := srv.Handler()

	rec, _ := get(t, h, "/api/summary")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body := get(t, h, "/api/ledger/report?mark=60")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "60", body["mark_price"])
	assert.Equal(t, "120", body["market_value"])
	assert.Equal(t, "1020", body["equity"])
	rec, _ = get(t, h, "/api/ledger/report?mark=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	eng.On("LastSummary").Return(&engine.Summary{RunID: "run-1", LastClose: decimal.NewFromInt(70)})
	rec, body = get(t, h, "/api/summary")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "run-1", body["run_id"])

	eng.On("LastClose").Return(decimal.NewFromInt(70), true)
	_, body = get(t, h, "/api/ledger/report")
	assert.Equal(t, "70", body["mark_price"])
	assert.Equal(t, "140", body["market_value"])
}

func TestReportWithoutMarkBeforeFirstCandle(t *testing.T) {
	eng := newMockEngine(t)
	eng.On("LastClose").Return(decimal.Zero, false)
	srv, err := NewServer(ServerConfig{Engine: eng})
	require.NoError(t, err)

	rec, body := get(t, srv.Handler(), "/api/ledger/report")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body, "error")
	eng.AssertNotCalled(t, "LastSummary")
}

func TestRunRoutes(t *testing.T) {
	runs, err := gormstore.Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = runs.Close() })
	ctx := context.Background()
	require.NoError(t, runs.Summary(ctx, engine.Summary{RunID: "run-9", Mode: engine.ModeReplay, Symbol: "BTCUSDT"}))

	srv, err := NewServer(ServerConfig{Engine: newMockEngine(t), Runs: runs})
	require.NoError(t, err)
	h := srv.Handler()

	rec, body := get(t, h, "/api/runs")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["runs"], 1)

	rec, _ = get(t, h, "/api/runs/run-9")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = get(t, h, "/api/runs/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = get(t, h, "/api/runs?limit=-1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = get(t, h, "/api/runs/run-9/snapshots")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body, "snapshots")
}

func TestNewServerRequiresEngine(t *testing.T) {
	_, err := NewServer(ServerConfig{})
	assert.Error(t, err)
}
