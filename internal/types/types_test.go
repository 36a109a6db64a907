package types

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalValidate(t *testing.T) {
	ok := Signal{StrategyName: "rsi", Action: SideBuy, Symbol: "BTCUSDT", Price: decimal.NewFromInt(100)}
	require.NoError(t, ok.Validate())

	cases := map[string]Signal{
		"missing symbol": {StrategyName: "rsi", Action: SideBuy, Price: decimal.NewFromInt(1)},
		"bad action":     {StrategyName: "rsi", Action: "HOLD", Symbol: "BTCUSDT", Price: decimal.NewFromInt(1)},
		"zero price":     {StrategyName: "rsi", Action: SideSell, Symbol: "BTCUSDT"},
	}
	for name, sig := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, sig.Validate())
		})
	}
}

func TestSignalString(t *testing.T) {
	sig := Signal{
		StrategyName:    "rsi",
		Reason:          "oversold",
		Action:          SideBuy,
		Symbol:          "BTCUSDT",
		Price:           decimal.RequireFromString("100.5"),
		StopPrice:       decimal.NewNullDecimal(decimal.RequireFromString("95")),
		TakeProfitPrice: decimal.NewNullDecimal(decimal.RequireFromString("110")),
	}
	assert.Equal(t, "BUY BTCUSDT @ 100.50 [rsi: oversold] SL=95.00 TP=110.00", sig.String())
}

func TestParseSide(t *testing.T) {
	s, err := ParseSide(" sell ")
	require.NoError(t, err)
	assert.Equal(t, SideSell, s)
	_, err = ParseSide("hold")
	assert.Error(t, err)
}

func TestOrderFilledAndNotional(t *testing.T) {
	o := Order{
		Status:           OrderStatusFilled,
		Quantity:         decimal.RequireFromString("0.01"),
		ExecutedQuantity: decimal.RequireFromString("0.01"),
		Price:            decimal.NewFromInt(11000),
	}
	assert.True(t, o.Filled())
	assert.True(t, o.Notional().Equal(decimal.NewFromInt(110)))

	o.Status = OrderStatusNew
	assert.False(t, o.Filled())
}

func TestPositionValues(t *testing.T) {
	p := Position{Quantity: decimal.RequireFromString("0.5"), EntryPrice: decimal.NewFromInt(200)}
	assert.True(t, p.Cost().Equal(decimal.NewFromInt(100)))
	assert.True(t, p.MarkValue(decimal.NewFromInt(300)).Equal(decimal.NewFromInt(150)))
}
