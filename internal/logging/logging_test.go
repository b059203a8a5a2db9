package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"":        zapcore.InfoLevel,
		"INFO":    zapcore.InfoLevel,
		"debug":   zapcore.DebugLevel,
		"Warning": zapcore.WarnLevel,
		"ERROR":   zapcore.ErrorLevel,
	}
	for name, want := range tests {
		got, err := ParseLevel(name)
		if err != nil {
			t.Errorf("ParseLevel(%q): unexpected error: %v", name, err)
		}
		if got != want {
			t.Errorf("ParseLevel(%q): expected %s, got %s", name, want, got)
		}
	}

	if _, err := ParseLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestNewReplacesGlobal(t *testing.T) {
	prev := zap.L()
	t.Cleanup(func() { zap.ReplaceGlobals(prev) })

	logger, err := New("WARN", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if zap.L() != logger {
		t.Error("expected global logger to be replaced")
	}
	if logger.Core().Enabled(zapcore.InfoLevel) {
		t.Error("expected info to be disabled at WARN")
	}

	verbose, err := New("ERROR", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !verbose.Core().Enabled(zapcore.DebugLevel) {
		t.Error("expected verbose logger to enable debug")
	}
}
