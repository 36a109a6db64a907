package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestSetLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)
	defer SetLevel("info")

	SetLevel("info")
	Debugf("hidden %d", 1)
	Infof("visible %d", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden 1")
	assert.Contains(t, out, "visible 2")

	SetLevel("debug")
	Debugf("now shown")
	assert.Contains(t, buf.String(), "now shown")
}

func TestInfoBlockSplitsLines(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)

	InfoBlock("first\nsecond\n")
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], "first")
	assert.Contains(t, lines[1], "second")
}

func TestWithAddsFields(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)

	With(zap.String("symbol", "BTCUSDT")).Info("tick")
	assert.Contains(t, buf.String(), "BTCUSDT")
}

func TestJournal(t *testing.T) {
	var buf bytes.Buffer
	SetJournalWriter(&buf)
	defer SetJournalWriter(nil)
	assert.True(t, JournalEnabled())

	Journal([]string{"opened", "", "BTCUSDT"},
		JournalSection{Title: "SIGNAL", Body: "BUY"},
		JournalSection{Body: "x\n"},
	)
	out := buf.String()
	assert.Contains(t, out, "[JOURNAL][opened][BTCUSDT]\n")
	assert.Contains(t, out, "--- SIGNAL ---\nBUY\n")
	assert.Contains(t, out, "--- CONTENT ---\nx\n=====")

	SetJournalWriter(nil)
	buf.Reset()
	Journal([]string{"closed"})
	assert.Empty(t, buf.String())
}
