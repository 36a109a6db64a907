package report

import (
	"context"
	"encoding/json"

	"tradepilot/internal/engine"
	"tradepilot/internal/ledger"
	"tradepilot/internal/logger"
)

// JournalSink 把每笔开/平仓写入成交流水（logger.SetJournalWriter 未设置时不输出）。
type JournalSink struct{}

var _ engine.Sink = JournalSink{}

func (JournalSink) Step(_ context.Context, step engine.Step) error {
	if !logger.JournalEnabled() {
		return nil
	}
	for _, res := range step.Results {
		if res.Outcome != ledger.OutcomeOpened && res.Outcome != ledger.OutcomeClosed {
			continue
		}
		sections := []logger.JournalSection{{Title: "SIGNAL", Body: res.Signal.String()}}
		if res.Order != nil {
			sections = append(sections, logger.JournalSection{Title: "ORDER", Body: mustJSON(res.Order)})
		}
		if res.Position != nil {
			sections = append(sections, logger.JournalSection{Title: "POSITION", Body: mustJSON(res.Position)})
		}
		if res.Outcome == ledger.OutcomeClosed {
			sections = append(sections, logger.JournalSection{Title: "PNL", Body: res.RealizedPnL.StringFixed(2)})
		}
		logger.Journal([]string{step.RunID, string(res.Outcome), res.Signal.Symbol}, sections...)
	}
	return nil
}

func (JournalSink) Summary(_ context.Context, sum engine.Summary) error {
	if !logger.JournalEnabled() {
		return nil
	}
	logger.Journal([]string{sum.RunID, "summary"}, logger.JournalSection{Title: "SUMMARY", Body: FormatSummary(sum)})
	return nil
}

func mustJSON(v any) string {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err.Error()
	}
	return string(raw)
}
