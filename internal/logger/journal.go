package logger

import (
	"io"
	"log"
	"strings"
	"sync"
)

var (
	journalMu  sync.Mutex
	journalLog *log.Logger
)

// SetJournalWriter 设置成交流水的独立输出，nil 表示关闭。
func SetJournalWriter(w io.Writer) {
	journalMu.Lock()
	defer journalMu.Unlock()
	if w == nil {
		journalLog = nil
		return
	}
	journalLog = log.New(w, "", log.LstdFlags)
}

func JournalEnabled() bool {
	journalMu.Lock()
	defer journalMu.Unlock()
	return journalLog != nil
}

type JournalSection struct {
	Title string
	Body  string
}

// Journal 以 [JOURNAL][tag]... 开头写入一段分节文本。
func Journal(tags []string, sections ...JournalSection) {
	journalMu.Lock()
	out := journalLog
	journalMu.Unlock()
	if out == nil {
		return
	}
	var b strings.Builder
	b.WriteString("[JOURNAL]")
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			b.WriteString("[")
			b.WriteString(tag)
			b.WriteString("]")
		}
	}
	b.WriteString("\n")
	for _, sec := range sections {
		t := strings.TrimSpace(sec.Title)
		if t == "" {
			t = "CONTENT"
		}
		b.WriteString("--- ")
		b.WriteString(t)
		b.WriteString(" ---\n")
		b.WriteString(sec.Body)
		if !strings.HasSuffix(sec.Body, "\n") {
			b.WriteString("\n")
		}
	}
	b.WriteString("=====\n")
	out.Print(b.String())
}
