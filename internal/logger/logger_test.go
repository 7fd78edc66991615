package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Yates-Labs/sleuth/internal/config"
)

func TestOrNop(t *testing.T) {
	nop := OrNop(nil)
	if nop == nil {
		t.Fatal("expected a logger for nil input")
	}
	nop.Info("discarded")

	core, logs := observer.New(zapcore.InfoLevel)
	l := zap.New(core)
	if OrNop(l) != l {
		t.Error("a non-nil logger should be returned unchanged")
	}
	OrNop(l).Info("kept")
	if logs.Len() != 1 {
		t.Errorf("expected one entry, got %d", logs.Len())
	}
}

func TestNew_Level(t *testing.T) {
	tests := []struct {
		name  string
		cfg   config.LogConfig
		debug bool
	}{
		{"default", config.LogConfig{}, false},
		{"debug console", config.LogConfig{Level: "debug"}, true},
		{"production json", config.LogConfig{Level: "info", Env: "production"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New(tt.cfg)
			if got := l.Core().Enabled(zapcore.DebugLevel); got != tt.debug {
				t.Errorf("debug enabled = %v, want %v", got, tt.debug)
			}
			if !l.Core().Enabled(zapcore.InfoLevel) {
				t.Error("info should always be enabled")
			}
		})
	}
}
