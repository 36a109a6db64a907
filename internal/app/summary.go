package app

import (
	"fmt"
	"strings"

	"tradepilot/internal/engine"
	"tradepilot/internal/logger"
)

type StartupSummary struct {
	RunID      string
	Mode       engine.Mode
	Symbol     string
	Interval   string
	Provider   string
	Strategies []string
	Execution  string
	Sinks      []string
	HTTPAddr   string
}

func (s *StartupSummary) String() string {
	lines := []string{
		strings.Repeat("=", 60),
		"启动配置摘要 (STARTUP SUMMARY)",
		strings.Repeat("=", 60),
		fmt.Sprintf("  run:        %s (%s)", s.RunID, s.Mode),
		fmt.Sprintf("  标的:       %s@%s", s.Symbol, s.Interval),
		fmt.Sprintf("  数据源:     %s", s.Provider),
		fmt.Sprintf("  策略:       %s", formatList(s.Strategies)),
		fmt.Sprintf("  下单通道:   %s", s.Execution),
		fmt.Sprintf("  输出:       %s", formatList(s.Sinks)),
		fmt.Sprintf("  HTTP:       %s", orDash(s.HTTPAddr)),
	}
	return strings.Join(lines, "\n")
}

func (s *StartupSummary) Print() {
	logger.InfoBlock(s.String())
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

func orDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}
