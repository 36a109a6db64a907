package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tradepilot/internal/apperr"
	"tradepilot/internal/executor"
	"tradepilot/internal/types"
)

type MockSubmitter struct {
	mock.Mock
}

func (m *MockSubmitter) Submit(ctx context.Context, p executor.OrderParams) (types.Order, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(types.Order), args.Error(1)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func signal(side types.Side, symbol, price string) types.Signal {
	return types.Signal{StrategyName: "test", Reason: "unit", Action: side, Symbol: symbol, Price: dec(price)}
}

func newLedger(balance, notional string, maxOpen int) *Ledger {
	return New(Config{StartingBalance: dec(balance), Notional: dec(notional), MaxOpenPositions: maxOpen},
		executor.New(executor.Options{Backtest: true}))
}

func TestCapacityLimit(t *testing.T) {
	l := newLedger("100000", "10000", 3)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		res, err := l.Handle(ctx, signal(types.SideBuy, "BTCUSDT", "100"))
		require.NoError(t, err)
		assert.Equal(t, OutcomeOpened, res.Outcome)
	}
	res, err := l.Handle(ctx, signal(types.SideBuy, "BTCUSDT", "100"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeRejected, res.Outcome)
	require.NotNil(t, res.Reject)
	assert.Equal(t, ReasonPositionLimit, res.Reject.Reason)
	assert.Equal(t, "max_open_positions", res.Reject.Constraint)

	snap := l.Inspect()
	assert.Equal(t, 3, snap.OpenPositionCount)
	assert.Len(t, snap.Positions, 3)
	assert.True(t, snap.Balance.Equal(dec("70000")))
	assert.Equal(t, 1, snap.Counters.Rejected)
	assert.True(t, l.Reconciled())
}

func TestZeroMaxOpenRejectsEveryBuy(t *testing.T) {
	l := newLedger("1000", "10", 0)
	res, err := l.Handle(context.Background(), signal(types.SideBuy, "BTCUSDT", "100"))
	require.NoError(t, err)
	assert.Equal(t, ReasonPositionLimit, res.Reject.Reason)
}

func TestInsufficientBalance(t *testing.T) {
	l := newLedger("0", "100", 10)
	res, err := l.Handle(context.Background(), signal(types.SideBuy, "BTCUSDT", "100000000"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeRejected, res.Outcome)
	assert.Equal(t, ReasonInsufficientBalance, res.Reject.Reason)
	assert.True(t, l.Inspect().Balance.IsZero())
	assert.Equal(t, 0, l.Inspect().OpenPositionCount)
	assert.Empty(t, l.Inspect().Positions)
}

func TestNotionalEqualToBalanceIsAccepted(t *testing.T) {
	l := newLedger("100", "100", 10)
	res, err := l.Handle(context.Background(), signal(types.SideBuy, "BTCUSDT", "50"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeOpened, res.Outcome)
	assert.True(t, l.Inspect().Balance.IsZero())

	res, err = l.Handle(context.Background(), signal(types.SideBuy, "BTCUSDT", "50"))
	require.NoError(t, err)
	assert.Equal(t, ReasonInsufficientBalance, res.Reject.Reason)
}

func TestSellOnEmptyBookIsIgnored(t *testing.T) {
	l := newLedger("10000", "100", 10)
	res, err := l.Handle(context.Background(), signal(types.SideSell, "BTCUSDT", "100"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, res.Outcome)
	assert.Equal(t, ReasonNoOpenPosition, res.Reject.Reason)
	snap := l.Inspect()
	assert.True(t, snap.Balance.Equal(dec("10000")))
	assert.Empty(t, snap.Portfolio)
	assert.Equal(t, 1, snap.Counters.Ignored)
}

func TestSellOtherSymbolIsIgnored(t *testing.T) {
	l := newLedger("10000", "100", 10)
	_, err := l.Handle(context.Background(), signal(types.SideBuy, "ETHUSDT", "2000"))
	require.NoError(t, err)
	res, err := l.Handle(context.Background(), signal(types.SideSell, "BTCUSDT", "100"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, res.Outcome)
	assert.Equal(t, 1, l.Inspect().OpenPositionCount)
}

func TestRoundTrip(t *testing.T) {
	l := newLedger("10000", "100", 10)
	ctx := context.Background()

	res, err := l.Handle(ctx, signal(types.SideBuy, "BTCUSDT", "10000"))
	require.NoError(t, err)
	require.Equal(t, OutcomeOpened, res.Outcome)
	require.NotNil(t, res.Position)
	assert.True(t, res.Position.Quantity.Equal(dec("0.01")))
	assert.Equal(t, res.Order.OrderID, res.Position.OpeningOrderID)

	snap := l.Inspect()
	assert.True(t, snap.Balance.Equal(dec("9900")))
	assert.True(t, snap.Portfolio["BTCUSDT"].Equal(dec("0.01")))

	res, err = l.Handle(ctx, signal(types.SideSell, "BTCUSDT", "11000"))
	require.NoError(t, err)
	require.Equal(t, OutcomeClosed, res.Outcome)
	assert.True(t, res.RealizedPnL.Equal(dec("10")))
	assert.True(t, res.Order.Quantity.Equal(dec("0.01")))

	snap = l.Inspect()
	assert.True(t, snap.Balance.Equal(dec("10010")), snap.Balance.String())
	assert.Empty(t, snap.Portfolio)
	assert.Empty(t, snap.Positions)
	assert.Equal(t, 0, snap.OpenPositionCount)
	assert.Equal(t, 2, snap.Counters.Trades)
	assert.Equal(t, 1, snap.Counters.BuySignals)
	assert.Equal(t, 1, snap.Counters.SellSignals)
	assert.True(t, snap.Counters.RealizedPnL.Equal(dec("10")))
}

func TestSellClosesOldestPositionFirst(t *testing.T) {
	l := newLedger("10000", "100", 10)
	ctx := context.Background()
	first, err := l.Handle(ctx, signal(types.SideBuy, "BTCUSDT", "100"))
	require.NoError(t, err)
	_, err = l.Handle(ctx, signal(types.SideBuy, "ETHUSDT", "50"))
	require.NoError(t, err)
	second, err := l.Handle(ctx, signal(types.SideBuy, "BTCUSDT", "200"))
	require.NoError(t, err)

	res, err := l.Handle(ctx, signal(types.SideSell, "BTCUSDT", "150"))
	require.NoError(t, err)
	assert.Equal(t, first.Position.PositionID, res.Position.PositionID)
	assert.True(t, res.Order.Quantity.Equal(dec("1")))
	assert.True(t, res.RealizedPnL.Equal(dec("50")))

	snap := l.Inspect()
	require.Len(t, snap.Positions, 2)
	assert.Equal(t, "ETHUSDT", snap.Positions[0].Symbol)
	assert.Equal(t, second.Position.PositionID, snap.Positions[1].PositionID)
	assert.True(t, snap.Portfolio["BTCUSDT"].Equal(dec("0.5")))
	assert.True(t, l.Reconciled())
}

func TestExecutorFailureLeavesStateUntouched(t *testing.T) {
	sub := new(MockSubmitter)
	failure := &apperr.ExecutionFailure{Symbol: "BTCUSDT", Side: "BUY", ClientOrderID: "c", Err: errors.New("down")}
	sub.On("Submit", mock.Anything, mock.Anything).Return(types.Order{}, failure).Once()

	l := New(Config{StartingBalance: dec("1000"), Notional: dec("100"), MaxOpenPositions: 5}, sub)
	before := l.Inspect()
	_, err := l.Handle(context.Background(), signal(types.SideBuy, "BTCUSDT", "100"))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrExecution)

	after := l.Inspect()
	assert.True(t, after.Balance.Equal(before.Balance))
	assert.Empty(t, after.Positions)
	assert.Empty(t, after.Portfolio)
	assert.Equal(t, 0, after.Counters.Trades)
	sub.AssertExpectations(t)
}

func TestSellFailureKeepsPosition(t *testing.T) {
	sub := new(MockSubmitter)
	sub.On("Submit", mock.Anything, mock.MatchedBy(func(p executor.OrderParams) bool { return p.Side == types.SideBuy })).
		Return(types.Order{OrderID: "o1", Side: types.SideBuy, Status: types.OrderStatusFilled, Quantity: dec("1"), ExecutedQuantity: dec("1"), Price: dec("100")}, nil)
	sub.On("Submit", mock.Anything, mock.MatchedBy(func(p executor.OrderParams) bool { return p.Side == types.SideSell })).
		Return(types.Order{}, &apperr.ExecutionFailure{Err: errors.New("timeout")})

	l := New(Config{StartingBalance: dec("1000"), Notional: dec("100"), MaxOpenPositions: 5}, sub)
	_, err := l.Handle(context.Background(), signal(types.SideBuy, "BTCUSDT", "100"))
	require.NoError(t, err)
	_, err = l.Handle(context.Background(), signal(types.SideSell, "BTCUSDT", "120"))
	require.ErrorIs(t, err, apperr.ErrExecution)

	snap := l.Inspect()
	assert.Len(t, snap.Positions, 1)
	assert.True(t, snap.Balance.Equal(dec("900")))
	assert.True(t, l.Reconciled())
}

func TestInvalidSignalRejected(t *testing.T) {
	l := newLedger("1000", "100", 5)
	res, err := l.Handle(context.Background(), types.Signal{Action: types.SideBuy, Symbol: "BTCUSDT"})
	require.NoError(t, err)
	assert.Equal(t, ReasonInvalidSignal, res.Reject.Reason)
	assert.Equal(t, 0, l.Inspect().Counters.BuySignals)
}

func TestStopAndTakeProfitCarriedToPosition(t *testing.T) {
	l := newLedger("1000", "100", 5)
	sig := signal(types.SideBuy, "BTCUSDT", "100")
	sig.StopPrice = decimal.NewNullDecimal(dec("95"))
	sig.TakeProfitPrice = decimal.NewNullDecimal(dec("110"))
	res, err := l.Handle(context.Background(), sig)
	require.NoError(t, err)
	assert.True(t, res.Position.StopLossPrice.Decimal.Equal(dec("95")))
	assert.True(t, res.Position.TakeProfitPrice.Decimal.Equal(dec("110")))
	assert.True(t, res.Order.StopPrice.Valid)
}

func TestReport(t *testing.T) {
	l := newLedger("10000", "100", 10)
	ctx := context.Background()
	_, _ = l.Handle(ctx, signal(types.SideBuy, "BTCUSDT", "100"))
	_, _ = l.Handle(ctx, signal(types.SideSell, "BTCUSDT", "110"))
	_, _ = l.Handle(ctx, signal(types.SideBuy, "BTCUSDT", "200"))

	rep := l.Report(dec("250"))
	// balance = 10000 - 100 + 110 - 100
	assert.True(t, rep.Balance.Equal(dec("9910")))
	assert.True(t, rep.OpenCost.Equal(dec("100")))
	assert.True(t, rep.MarketValue.Equal(dec("125")))
	assert.True(t, rep.Equity.Equal(dec("10035")))
	assert.True(t, rep.Profit.Equal(dec("35")))
	assert.True(t, rep.ProfitPct.Equal(dec("0.35")))
	assert.Equal(t, 3, rep.Counters.Trades)
	assert.True(t, rep.ProfitPerTrade.Mul(dec("3")).Round(8).Equal(dec("10")))
	assert.Equal(t, 1, rep.OpenPositions)
}

func TestInspectIsDeepCopy(t *testing.T) {
	l := newLedger("1000", "100", 5)
	_, _ = l.Handle(context.Background(), signal(types.SideBuy, "BTCUSDT", "100"))
	snap := l.Inspect()
	snap.Portfolio["BTCUSDT"] = dec("999")
	snap.Positions[0].Symbol = "X"
	again := l.Inspect()
	assert.True(t, again.Portfolio["BTCUSDT"].Equal(dec("1")))
	assert.Equal(t, "BTCUSDT", again.Positions[0].Symbol)
}

func TestConcurrentHandleKeepsInvariants(t *testing.T) {
	l := newLedger("1000000", "100", 50)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			_, _ = l.Handle(context.Background(), signal(types.SideBuy, "BTCUSDT", "100"))
		}()
		go func() {
			defer wg.Done()
			_, _ = l.Handle(context.Background(), signal(types.SideSell, "BTCUSDT", "101"))
		}()
		go func() {
			defer wg.Done()
			snap := l.Inspect()
			assert.Equal(t, len(snap.Positions), snap.OpenPositionCount)
		}()
	}
	wg.Wait()
	snap := l.Inspect()
	assert.Equal(t, len(snap.Positions), snap.OpenPositionCount)
	assert.True(t, l.Reconciled())
	assert.LessOrEqual(t, snap.OpenPositionCount, 50)
}
