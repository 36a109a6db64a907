package strategy

import (
	"math"

	talib "github.com/markcheno/go-talib"

	"tradepilot/internal/apperr"
	"tradepilot/internal/config"
	"tradepilot/internal/market"
	"tradepilot/internal/types"
)

// MACDStrategy 在 MACD 线上穿信号线时买入，下穿时卖出。
type MACDStrategy struct {
	symbol string
	fast   int
	slow   int
	signal int
}

func NewMACD() *MACDStrategy { return &MACDStrategy{} }

func (s *MACDStrategy) Name() string { return "macd" }

func (s *MACDStrategy) Initialize(cfg *config.Config) error {
	if cfg == nil {
		return apperr.Configuration("", "macd: 配置为空")
	}
	mc := cfg.Strategies.MACD
	if mc.Fast <= 0 || mc.Slow <= 0 || mc.Signal <= 0 || mc.Fast >= mc.Slow {
		return apperr.Configuration("strategies.macd", "非法参数 fast=%d slow=%d signal=%d", mc.Fast, mc.Slow, mc.Signal)
	}
	s.symbol = cfg.Run.Symbol
	s.fast, s.slow, s.signal = mc.Fast, mc.Slow, mc.Signal
	return nil
}

// required 为得到两个有效 MACD/信号线点所需的最少 K 线数量。
func (s *MACDStrategy) required() int {
	return s.slow + s.signal
}

func (s *MACDStrategy) Analyze(window []market.Candle) (types.Signal, bool) {
	if s.slow == 0 || len(window) < s.required() {
		return types.Signal{}, false
	}
	macd, signal, _ := talib.Macd(market.Closes(window), s.fast, s.slow, s.signal)
	n := len(macd)
	if n < 2 {
		return types.Signal{}, false
	}
	cur, prev := macd[n-1], macd[n-2]
	curSig, prevSig := signal[n-1], signal[n-2]
	for _, v := range []float64{cur, prev, curSig, prevSig} {
		if math.IsNaN(v) {
			return types.Signal{}, false
		}
	}
	last := window[len(window)-1]
	switch {
	case cur > curSig && prev <= prevSig:
		return s.emit(types.SideBuy, "MACD 线上穿信号线", last), true
	case cur < curSig && prev >= prevSig:
		return s.emit(types.SideSell, "MACD 线下穿信号线", last), true
	}
	return types.Signal{}, false
}

func (s *MACDStrategy) emit(side types.Side, reason string, last market.Candle) types.Signal {
	return types.Signal{
		StrategyName: s.Name(),
		Reason:       reason,
		Action:       side,
		Symbol:       s.symbol,
		Price:        roundPrice(last.Close),
	}
}
