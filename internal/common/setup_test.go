package common

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestBootstrapLoggerReplacesGlobal(t *testing.T) {
	restore := zap.ReplaceGlobals(zap.NewNop())
	defer restore()

	if zap.L().Core().Enabled(zapcore.ErrorLevel) {
		t.Fatal("Expected the no-op logger before bootstrap")
	}

	logger := BootstrapLogger()
	if zap.L() != logger {
		t.Error("Expected the bootstrap logger to be the global logger")
	}
	if !zap.L().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("Expected errors to be logged after bootstrap")
	}
}

func TestWithDefault(t *testing.T) {
	tests := []struct {
		value, def, want int
	}{
		{0, 100, 100},
		{-1, 3, 3},
		{50, 100, 50},
	}
	for _, tt := range tests {
		if got := withDefault(tt.value, tt.def); got != tt.want {
			t.Errorf("withDefault(%d, %d) = %d, want %d", tt.value, tt.def, got, tt.want)
		}
	}
}
