package binance

import (
	"context"
	"fmt"
	"strconv"
	"time"

	sdk "github.com/adshao/go-binance/v2"

	"tradepilot/internal/logger"
	"tradepilot/internal/market"
)

// 现货 /api/v3/klines 单次最多返回 1000 行。
const maxKlinesPerRequest = 1000

// KlineProvider 基于 go-binance 现货接口实现 market.Provider。
type KlineProvider struct {
	cfg    Config
	client *sdk.Client
	now    func() time.Time
}

func NewKlineProvider(cfg Config) *KlineProvider {
	final := cfg.withDefaults()
	return &KlineProvider{cfg: final, client: final.newClient(), now: time.Now}
}

func (p *KlineProvider) Name() string { return "binance" }

// Klines 拉取 K 线。指定 Start 时按 1000 行分页拉满整个区间，否则只取最近 Limit 根并丢弃未收盘的一根。
func (p *KlineProvider) Klines(ctx context.Context, req market.KlineRequest) ([]market.Candle, error) {
	symbol := exchangeSymbol(req.Symbol)
	if symbol == "" {
		return nil, fmt.Errorf("symbol 不能为空")
	}
	if req.Interval.Code == "" {
		return nil, fmt.Errorf("interval 不能为空")
	}
	if req.Start.IsZero() {
		out, err := p.fetchPage(ctx, symbol, req.Interval, clampLimit(req.Limit), 0, endMillis(req.End))
		if err != nil {
			return nil, err
		}
		return market.DropUnclosed(out, req.Interval, p.now().UTC()), nil
	}

	end := req.End
	if end.IsZero() {
		end = p.now().UTC()
	}
	cursor := req.Start.UnixMilli()
	endMs := end.UnixMilli()
	var out []market.Candle
	for cursor < endMs {
		page, err := p.fetchPage(ctx, symbol, req.Interval, maxKlinesPerRequest, cursor, endMs)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		out = append(out, page...)
		next := page[len(page)-1].OpenTime + 1
		if next <= cursor {
			break
		}
		cursor = next
		if len(page) < maxKlinesPerRequest {
			break
		}
		logger.Debugf("[binance] %s@%s 已拉取 %d 行，继续分页", symbol, req.Interval, len(out))
	}
	return market.DropUnclosed(out, req.Interval, p.now().UTC()), nil
}

func (p *KlineProvider) fetchPage(ctx context.Context, symbol string, interval market.Interval, limit int, startMs, endMs int64) ([]market.Candle, error) {
	svc := p.client.NewKlinesService().Symbol(symbol).Interval(interval.Code).Limit(limit)
	if startMs > 0 {
		svc = svc.StartTime(startMs)
	}
	if endMs > 0 {
		svc = svc.EndTime(endMs)
	}
	kls, err := svc.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance klines %s@%s: %w", symbol, interval, err)
	}
	return convertKlines(kls), nil
}

func convertKlines(kls []*sdk.Kline) []market.Candle {
	out := make([]market.Candle, 0, len(kls))
	for _, kl := range kls {
		if kl == nil {
			continue
		}
		out = append(out, market.Candle{
			OpenTime:  kl.OpenTime,
			CloseTime: kl.CloseTime,
			Open:      parseFloat(kl.Open),
			High:      parseFloat(kl.High),
			Low:       parseFloat(kl.Low),
			Close:     parseFloat(kl.Close),
			Volume:    parseFloat(kl.Volume),
			Trades:    kl.TradeNum,
		})
	}
	return out
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 500
	}
	if limit > maxKlinesPerRequest {
		return maxKlinesPerRequest
	}
	return limit
}

func endMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func parseFloat(v string) float64 {
	f, _ := strconv.ParseFloat(v, 64)
	return f
}
