package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"tradepilot/internal/engine"
	"tradepilot/internal/logger"
)

// YAMLSink 在运行结束时把 Summary 写成 YAML 文件。
type YAMLSink struct {
	Path string
}

var _ engine.Sink = YAMLSink{}

func (YAMLSink) Step(context.Context, engine.Step) error { return nil }

func (s YAMLSink) Summary(_ context.Context, sum engine.Summary) error {
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
	if err := WriteYAML(f, sum); err != nil {
		return fmt.Errorf("写入 summary %s 失败: %w", s.Path, err)
	}
	logger.Infof("[report] summary 已写入 %s", s.Path)
	return nil
}

func WriteYAML(w io.Writer, sum engine.Summary) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(sum); err != nil {
		return err
	}
	return enc.Close()
}
