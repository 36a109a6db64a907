package strategy

import (
	"fmt"

	talib "github.com/markcheno/go-talib"
	"github.com/shopspring/decimal"

	"tradepilot/internal/apperr"
	"tradepilot/internal/config"
	"tradepilot/internal/market"
	"tradepilot/internal/types"
)

// RSIStrategy 在 RSI 低于超卖线时买入、高于超买线时卖出。
// 同方向信号之间至少间隔 cooldown（按 K 线收盘时间计算，回放结果可复现）。
type RSIStrategy struct {
	symbol     string
	period     int
	oversold   float64
	overbought float64
	cooldownMs int64
	stopPct    *decimal.Decimal
	takePct    *decimal.Decimal

	lastSignal map[types.Side]int64
}

func NewRSI() *RSIStrategy {
	return &RSIStrategy{lastSignal: make(map[types.Side]int64)}
}

func (s *RSIStrategy) Name() string { return "rsi" }

func (s *RSIStrategy) Initialize(cfg *config.Config) error {
	if cfg == nil {
		return apperr.Configuration("", "rsi: 配置为空")
	}
	rc := cfg.Strategies.RSI
	if rc.Period < 2 {
		return apperr.Configuration("strategies.rsi.period", "至少为 2")
	}
	s.symbol = cfg.Run.Symbol
	s.period = rc.Period
	s.oversold = rc.Oversold
	s.overbought = rc.Overbought
	s.cooldownMs = int64(rc.CooldownSeconds) * 1000
	s.stopPct = cfg.Trading.StopLossPercentage
	s.takePct = cfg.Trading.TakeProfitPercentage
	s.lastSignal = make(map[types.Side]int64)
	return nil
}

func (s *RSIStrategy) Analyze(window []market.Candle) (types.Signal, bool) {
	if len(window) <= s.period || s.period < 2 {
		return types.Signal{}, false
	}
	series := talib.Rsi(market.Closes(window), s.period)
	current := series[len(series)-1]
	last := window[len(window)-1]
	now := candleTime(last)

	switch {
	case current < s.oversold && s.cooledDown(types.SideBuy, now):
		s.lastSignal[types.SideBuy] = now
		price := roundPrice(last.Close)
		sig := s.signal(types.SideBuy, fmt.Sprintf("RSI %.2f 低于超卖线 %.0f", current, s.oversold), price)
		if s.stopPct != nil {
			sig.StopPrice = decimal.NewNullDecimal(price.Mul(*s.stopPct).RoundBank(2))
		}
		if s.takePct != nil {
			sig.TakeProfitPrice = decimal.NewNullDecimal(price.Mul(*s.takePct).RoundBank(2))
		}
		return sig, true
	case current > s.overbought && s.cooledDown(types.SideSell, now):
		s.lastSignal[types.SideSell] = now
		return s.signal(types.SideSell, fmt.Sprintf("RSI %.2f 高于超买线 %.0f", current, s.overbought), roundPrice(last.Close)), true
	}
	return types.Signal{}, false
}

func (s *RSIStrategy) cooledDown(side types.Side, now int64) bool {
	prev, ok := s.lastSignal[side]
	if !ok {
		return true
	}
	return now-prev > s.cooldownMs
}

func (s *RSIStrategy) signal(side types.Side, reason string, price decimal.Decimal) types.Signal {
	return types.Signal{
		StrategyName: s.Name(),
		Reason:       reason,
		Action:       side,
		Symbol:       s.symbol,
		Price:        price,
	}
}
