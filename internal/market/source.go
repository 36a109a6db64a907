package market

import (
	"context"
	"fmt"
	"time"
)

// KlineRequest 描述一次 K 线拉取请求。
type KlineRequest struct {
	Symbol   string
	Interval Interval
	Limit    int
	Start    time.Time // 零值表示不限制
	End      time.Time // 零值表示不限制
}

func (r KlineRequest) String() string {
	return fmt.Sprintf("%s@%s limit=%d start=%s end=%s", r.Symbol, r.Interval, r.Limit, fmtTime(r.Start), fmtTime(r.End))
}

// Historical 表示起止时间都已固定，拉取结果不会再变化。
func (r KlineRequest) Historical() bool {
	return !r.Start.IsZero() && !r.End.IsZero()
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

// Provider 统一不同数据源的拉取行为，结果按 open_time 升序。
type Provider interface {
	Klines(ctx context.Context, req KlineRequest) ([]Candle, error)
	Name() string
}

type ProviderFunc func(ctx context.Context, req KlineRequest) ([]Candle, error)

func (f ProviderFunc) Klines(ctx context.Context, req KlineRequest) ([]Candle, error) {
	return f(ctx, req)
}

func (f ProviderFunc) Name() string { return "func" }

// StaticProvider 返回固定序列，用于离线回放与测试。
type StaticProvider struct {
	Candles []Candle
}

func (p *StaticProvider) Klines(_ context.Context, req KlineRequest) ([]Candle, error) {
	out := p.Candles
	if req.Limit > 0 && len(out) > req.Limit {
		out = out[len(out)-req.Limit:]
	}
	cp := make([]Candle, len(out))
	copy(cp, out)
	return cp, nil
}

func (p *StaticProvider) Name() string { return "static" }
