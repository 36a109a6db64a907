package candlecache

import (
	"context"
	"fmt"
	"strings"

	"tradepilot/internal/logger"
	"tradepilot/internal/market"
)

// Provider 在 Inner 之前查缓存。只有起止时间都固定的请求会被缓存，实时窗口直接透传。
type Provider struct {
	Inner market.Provider
	Store *Store
}

func NewProvider(inner market.Provider, store *Store) *Provider {
	return &Provider{Inner: inner, Store: store}
}

func (p *Provider) Name() string { return p.Inner.Name() + "+cache" }

func (p *Provider) Klines(ctx context.Context, req market.KlineRequest) ([]market.Candle, error) {
	if p.Store == nil || !req.Historical() {
		return p.Inner.Klines(ctx, req)
	}
	symbol := strings.ToUpper(req.Symbol)
	start, end := req.Start.UnixMilli(), req.End.UnixMilli()

	covered, err := p.Store.Covered(ctx, symbol, req.Interval.Code, start, end)
	if err != nil {
		logger.Warnf("[candlecache] 查询覆盖区间失败，直接拉取: %v", err)
	} else if covered {
		out, err := p.Store.Range(ctx, symbol, req.Interval.Code, start, end)
		if err == nil {
			logger.Infof("[candlecache] 命中 %s，%d 行", req, len(out))
			return out, nil
		}
		logger.Warnf("[candlecache] 读取缓存失败，直接拉取: %v", err)
	}

	out, err := p.Inner.Klines(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := p.Store.Insert(ctx, symbol, req.Interval.Code, start, end, out); err != nil {
		logger.Warnf("[candlecache] 写入缓存失败: %v", err)
	}
	return out, nil
}

// Offline 只从缓存读取，未覆盖的区间直接报错，用于断网回放。
type Offline struct {
	Store *Store
}

func (o Offline) Name() string { return "static" }

func (o Offline) Klines(ctx context.Context, req market.KlineRequest) ([]market.Candle, error) {
	if !req.Historical() {
		return nil, fmt.Errorf("static 数据源只支持固定区间回放: %s", req)
	}
	symbol := strings.ToUpper(req.Symbol)
	start, end := req.Start.UnixMilli(), req.End.UnixMilli()
	covered, err := o.Store.Covered(ctx, symbol, req.Interval.Code, start, end)
	if err != nil {
		return nil, err
	}
	if !covered {
		return nil, fmt.Errorf("缓存未覆盖 %s，请先用 binance 数据源回放一次", req)
	}
	return o.Store.Range(ctx, symbol, req.Interval.Code, start, end)
}
