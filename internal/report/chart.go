package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"tradepilot/internal/engine"
	"tradepilot/internal/logger"
	tptypes "tradepilot/internal/types"
)

const (
	colorBackground    = "#060c1b"
	colorTextPrimary   = "#eceff4"
	colorTextSecondary = "#9ca3af"
	colorBull          = "#34d399"
	colorBear          = "#f87171"
	colorEquity        = "#fbbf24"

	chartWidthPx  = 1600
	priceHeightPx = 560
	equityHeight  = 320

	defaultMaxPoints = 5000
)

type point struct {
	closeTime int64
	label     string
	candle    [4]float64
	equity    float64
	buy       float64
	sell      float64
}

// ChartSink 累积每轮的 K 线、成交与净值，运行结束时渲染成 HTML。
// 同一根 K 线重复出现时合并为一个点；超过 MaxPoints 时丢弃最早的点。
type ChartSink struct {
	Path      string
	MaxPoints int

	mu     sync.Mutex
	points []point
}

var _ engine.Sink = (*ChartSink)(nil)

func NewChartSink(path string) *ChartSink {
	return &ChartSink{Path: path}
}

func (s *ChartSink) Step(_ context.Context, step engine.Step) error {
	c := step.Candle
	mark := c.ClosePrice()
	equity := step.Snapshot.Balance
	for _, p := range step.Snapshot.Positions {
		equity = equity.Add(p.MarkValue(mark))
	}
	pt := point{
		closeTime: c.CloseTime,
		label:     c.CloseAt().Format("01-02 15:04"),
		candle:    [4]float64{c.Open, c.Close, c.Low, c.High},
		equity:    equity.InexactFloat64(),
	}
	for _, res := range step.Results {
		if res.Order == nil {
			continue
		}
		switch res.Order.Side {
		case tptypes.SideBuy:
			pt.buy = res.Order.Price.InexactFloat64()
		case tptypes.SideSell:
			pt.sell = res.Order.Price.InexactFloat64()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.points); n > 0 && s.points[n-1].closeTime == pt.closeTime {
		prev := s.points[n-1]
		if pt.buy == 0 {
			pt.buy = prev.buy
		}
		if pt.sell == 0 {
			pt.sell = prev.sell
		}
		s.points[n-1] = pt
		return nil
	}
	s.points = append(s.points, pt)
	limit := s.MaxPoints
	if limit <= 0 {
		limit = defaultMaxPoints
	}
	if over := len(s.points) - limit; over > 0 {
		s.points = append(s.points[:0:0], s.points[over:]...)
	}
	return nil
}

func (s *ChartSink) Summary(_ context.Context, sum engine.Summary) error {
	if strings.TrimSpace(s.Path) == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(s.Path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := s.Render(f, sum); err != nil {
		return fmt.Errorf("渲染净值曲线失败: %w", err)
	}
	logger.Infof("[report] 净值曲线已写入 %s", s.Path)
	return nil
}

// Render 输出包含价格与净值两张图的页面。
func (s *ChartSink) Render(w io.Writer, sum engine.Summary) error {
	s.mu.Lock()
	points := make([]point, len(s.points))
	copy(points, s.points)
	s.mu.Unlock()
	if len(points) == 0 {
		return fmt.Errorf("run %s 没有可绘制的数据", sum.RunID)
	}

	xAxis := make([]string, len(points))
	candles := make([]opts.KlineData, len(points))
	equity := make([]opts.LineData, len(points))
	buys := make([]opts.ScatterData, len(points))
	sells := make([]opts.ScatterData, len(points))
	for i, p := range points {
		xAxis[i] = p.label
		candles[i] = opts.KlineData{Value: p.candle}
		equity[i] = opts.LineData{Value: p.equity}
		buys[i] = marker(p.buy, "triangle")
		sells[i] = marker(p.sell, "pin")
	}

	kline := charts.NewKLine()
	kline.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts(priceHeightPx)),
		charts.WithTitleOpts(opts.Title{
			Title:         fmt.Sprintf("%s %s", strings.ToUpper(sum.Symbol), sum.Interval),
			Subtitle:      subtitle(sum),
			Left:          "left",
			TitleStyle:    &opts.TextStyle{Color: colorTextPrimary, FontSize: 18},
			SubtitleStyle: &opts.TextStyle{Color: colorTextSecondary},
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), TextStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", XAxisIndex: []int{0}}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale:     opts.Bool(true),
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
		}),
	)
	kline.SetSeriesOptions(
		charts.WithItemStyleOpts(opts.ItemStyle{
			Color:        colorBull,
			Color0:       colorBear,
			BorderColor:  colorBull,
			BorderColor0: colorBear,
		}),
	)
	kline.SetXAxis(xAxis)
	kline.AddSeries("Price", candles)

	fills := charts.NewScatter()
	fills.SetXAxis(xAxis)
	fills.AddSeries("BUY", buys, charts.WithItemStyleOpts(opts.ItemStyle{Color: colorBull}))
	fills.AddSeries("SELL", sells, charts.WithItemStyleOpts(opts.ItemStyle{Color: colorBear}))
	kline.Overlap(fills)

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts(equityHeight)),
		charts.WithTitleOpts(opts.Title{Title: "Equity", Left: "left", TitleStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale:     opts.Bool(true),
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.2)}},
		}),
	)
	line.SetXAxis(xAxis)
	line.AddSeries("Equity", equity,
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorEquity, Width: 2}),
	)

	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("tradepilot %s", sum.RunID)
	page.AddCharts(kline, line)
	return page.Render(w)
}

func initOpts(height int) opts.Initialization {
	return opts.Initialization{
		Theme:           types.ThemeWesteros,
		Width:           fmt.Sprintf("%dpx", chartWidthPx),
		Height:          fmt.Sprintf("%dpx", height),
		BackgroundColor: colorBackground,
	}
}

// 无成交的位置用 "-" 占位，echarts 视为空点。
func marker(price float64, symbol string) opts.ScatterData {
	if price == 0 {
		return opts.ScatterData{Value: "-"}
	}
	return opts.ScatterData{Value: price, Symbol: symbol, SymbolSize: 14}
}

func subtitle(sum engine.Summary) string {
	r := sum.Report
	return fmt.Sprintf("equity %s | profit %s (%s) | trades %d | %s",
		r.Equity.StringFixed(2), r.Profit.StringFixed(2), pct(r.ProfitPct), r.Counters.Trades,
		sum.FinishedAt.UTC().Format(time.RFC3339))
}
