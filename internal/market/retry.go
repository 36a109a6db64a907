package market

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jpillora/backoff"

	"tradepilot/internal/logger"
)

// RetryProvider 对拉取失败做指数退避重试。
type RetryProvider struct {
	Inner    Provider
	Attempts int
	Min      time.Duration
	Max      time.Duration
}

func NewRetryProvider(inner Provider, attempts int, min, max time.Duration) *RetryProvider {
	if attempts <= 0 {
		attempts = 1
	}
	if min <= 0 {
		min = 200 * time.Millisecond
	}
	if max < min {
		max = min
	}
	return &RetryProvider{Inner: inner, Attempts: attempts, Min: min, Max: max}
}

func (p *RetryProvider) Name() string { return p.Inner.Name() }

func (p *RetryProvider) Klines(ctx context.Context, req KlineRequest) ([]Candle, error) {
	b := &backoff.Backoff{Min: p.Min, Max: p.Max, Factor: 2, Jitter: true}
	var lastErr error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		candles, err := p.Inner.Klines(ctx, req)
		if err == nil {
			return candles, nil
		}
		lastErr = err
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		if attempt == p.Attempts {
			break
		}
		delay := b.Duration()
		logger.Warnf("[market] 拉取 %s 第 %d/%d 次失败: %v，%s 后重试", req, attempt, p.Attempts, err, delay)
		if err := sleepWithContext(ctx, delay); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("拉取 K 线 %s 重试 %d 次仍失败: %w", req, p.Attempts, lastErr)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
