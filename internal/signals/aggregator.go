// Package signals 按注册顺序调用策略并收集信号。
package signals

import (
	"errors"
	"fmt"

	"tradepilot/internal/apperr"
	"tradepilot/internal/config"
	"tradepilot/internal/logger"
	"tradepilot/internal/market"
	"tradepilot/internal/strategy"
	"tradepilot/internal/types"
)

// Aggregator 持有有序的策略列表，顺序即信号输出顺序。
type Aggregator struct {
	strategies []strategy.Strategy
}

func NewAggregator(strategies ...strategy.Strategy) *Aggregator {
	list := make([]strategy.Strategy, 0, len(strategies))
	for _, s := range strategies {
		if s != nil {
			list = append(list, s)
		}
	}
	return &Aggregator{strategies: list}
}

// FromConfig 按 strategies.enabled 从注册表构建。
func FromConfig(cfg *config.Config) (*Aggregator, error) {
	list, err := strategy.Build(cfg.Strategies.Enabled)
	if err != nil {
		return nil, err
	}
	return NewAggregator(list...), nil
}

func (a *Aggregator) Len() int { return len(a.strategies) }

// Names 返回策略名（注册顺序）。
func (a *Aggregator) Names() []string {
	out := make([]string, len(a.strategies))
	for i, s := range a.strategies {
		out[i] = s.Name()
	}
	return out
}

// InitializeStrategies 每次运行调用一次，遇到第一个错误即中止。
func (a *Aggregator) InitializeStrategies(cfg *config.Config) error {
	for _, s := range a.strategies {
		if err := s.Initialize(cfg); err != nil {
			var ce *apperr.ConfigurationError
			if errors.As(err, &ce) {
				return err
			}
			return apperr.Configuration("strategies."+s.Name(), "初始化失败: %v", err)
		}
	}
	logger.Infof("[signals] 已初始化 %d 个策略: %v", len(a.strategies), a.Names())
	return nil
}

// GenerateSignals 依次分析窗口，只保留产出的合法信号，顺序与策略注册顺序一致。
func (a *Aggregator) GenerateSignals(window []market.Candle) []types.Signal {
	var out []types.Signal
	for _, s := range a.strategies {
		sig, ok := s.Analyze(window)
		if !ok {
			continue
		}
		if err := sig.Validate(); err != nil {
			logger.Warnf("[signals] 丢弃非法信号 %s: %v", s.Name(), err)
			continue
		}
		out = append(out, sig)
	}
	return out
}

func (a *Aggregator) String() string {
	return fmt.Sprintf("Aggregator%v", a.Names())
}
