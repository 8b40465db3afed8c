package observability

import (
	"context"
	"log/slog"
	"strings"
	"testing"
)

// SetTestDebugLogging assigns DEBUG level to slog Default logger for test duration
func SetTestDebugLogging(t *testing.T) {
	oldLevel := slog.SetLogLoggerLevel(slog.LevelDebug)
	if oldLevel != slog.LevelDebug {
		t.Logf("Setting slog level to %s", slog.LevelDebug)
		t.Cleanup(func() {
			t.Logf("Restoring slog level to %s", oldLevel)
			slog.SetLogLoggerLevel(oldLevel)
		})
	}
}

// TestContext returns t.Context() carrying a DEBUG Logger that writes to t.Log.
func TestContext(t *testing.T) context.Context {
	log := NewLogger(testWriter{t: t}, slog.LevelDebug)
	return SetObservability(t.Context(), &Observability{Logger: log})
}

type testWriter struct {
	t *testing.T
}

func (self testWriter) Write(p []byte) (int, error) {
	self.t.Helper()
	self.t.Log(strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}
