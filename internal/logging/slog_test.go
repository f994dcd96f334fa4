package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func newTestLogger(t *testing.T) (*SlogLogger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug, // capture Debug lines too
	})
	return NewSlogLogger(slog.New(h)), &buf
}

func TestSlogLogger_Levels_WriteExpectedOutput(t *testing.T) {
	log, buf := newTestLogger(t)
	ctx := context.Background()

	log.Debug(ctx, "content already uploaded", "asset", "a.jpg")
	log.Info(ctx, "run complete", "uploaded", 3)
	log.Warn(ctx, "failed to clear checkpoint", "attempt", 1)
	log.Error(ctx, "ledger write failed", "code", 5)

	out := buf.String()

	tests := []struct {
		level string
		msg   string
		attr  string
	}{
		{"DEBUG", "content already uploaded", "asset=a.jpg"},
		{"INFO", "run complete", "uploaded=3"},
		{"WARN", "failed to clear checkpoint", "attempt=1"},
		{"ERROR", "ledger write failed", "code=5"},
	}

	for _, tc := range tests {
		if !strings.Contains(out, "level="+tc.level) {
			t.Fatalf("expected line with level=%s in output:\n%s", tc.level, out)
		}
		if !strings.Contains(out, "msg="+quoteIfNeeded(tc.msg)) {
			t.Fatalf("expected line with msg=%q in output:\n%s", tc.msg, out)
		}
		if !strings.Contains(out, tc.attr) {
			t.Fatalf("expected attribute %s in output:\n%s", tc.attr, out)
		}
	}
}

// The text handler quotes messages containing spaces.
func quoteIfNeeded(s string) string {
	if strings.ContainsAny(s, " ") {
		return `"` + s + `"`
	}
	return s
}

func TestSlogLogger_With_AddsAttributes(t *testing.T) {
	log, buf := newTestLogger(t)
	ctx := context.Background()

	runLog := log.With("run_id", "r-123", "simulate", false)
	runLog.Info(ctx, "scanning", "total", 42)

	out := buf.String()
	wantSubs := []string{
		"level=INFO",
		"msg=scanning",
		"run_id=r-123",
		"simulate=false",
		"total=42",
	}
	for _, s := range wantSubs {
		if !strings.Contains(out, s) {
			t.Fatalf("expected %q in output, got:\n%s", s, out)
		}
	}
}

func TestSlogLogger_ContextDoesNotPanic(t *testing.T) {
	log, _ := newTestLogger(t)

	ctx := context.TODO()
	log.Info(ctx, "ctx-ok")
	log.Debug(ctx, "ctx-ok")
	log.Warn(ctx, "ctx-ok")
	log.Error(ctx, "ctx-ok")
}
