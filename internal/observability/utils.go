package observability

import (
	"context"
	"io"
	"log/slog"
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

// TestContext returns a Context whose Observability logs at DEBUG level through a RedactingHandler to w.
// If w is nil, records are forwarded to t.Log.
func TestContext(t *testing.T, w io.Writer, metrics *Metrics) context.Context {
	if nil == w {
		w = testWriter{t: t}
	}
	hdlr := slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	obs := Observability{Logger: slog.New(NewRedactingHandler(hdlr)), Metrics: metrics}

	return SetObservability(t.Context(), &obs)
}

type testWriter struct {
	t *testing.T
}

func (self testWriter) Write(p []byte) (int, error) {
	self.t.Helper()
	self.t.Log(string(p))
	return len(p), nil
}
