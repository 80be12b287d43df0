package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"go.uber.org/zap/zapcore"
)

func TestInit_LevelParsing(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "warning", "error", ""} {
		if err := Init(level, false); err != nil {
			t.Errorf("Init(%q) error: %v", level, err)
		}
	}
	if err := Init("loud", false); err == nil {
		t.Error("expected error for unknown level")
	}
	SetLogger(nil)
}

func TestGet_CategoryNaming(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	Get(CategoryGates).Infow("verdict issued", "layer", "ethics")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].LoggerName != "gates" {
		t.Errorf("logger name = %q, want gates", entries[0].LoggerName)
	}
}

func TestGet_BeforeInitIsNoop(t *testing.T) {
	SetLogger(nil)
	// Must not panic.
	Get(CategoryBench).Debugw("ignored")
	Sync()
}
