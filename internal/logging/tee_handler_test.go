package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

type failingHandler struct{ slog.Handler }

func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("disk full") }

func TestTeeHandlerCollapses(t *testing.T) {
	if _, ok := TeeHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler when every member is nil")
	}
	inner := slog.NewTextHandler(&bytes.Buffer{}, nil)
	if got := TeeHandler(nil, inner); got != inner {
		t.Fatalf("expected the single handler unwrapped, got %T", got)
	}
}

func TestTeeHandlerRoutesByLevel(t *testing.T) {
	var console, file bytes.Buffer
	logger := slog.New(TeeHandler(
		slog.NewTextHandler(&console, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewTextHandler(&file, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)).With("task", "t1").WithGroup("tool")

	logger.Debug("fragment renamed", "name", "tmp.0.ncch")
	logger.Info("build finished")

	if strings.Contains(console.String(), "fragment renamed") {
		t.Fatalf("console received a debug record: %q", console.String())
	}
	for _, want := range []string{"fragment renamed", "build finished", "task=t1", "tool.name=tmp.0.ncch"} {
		if !strings.Contains(file.String(), want) {
			t.Fatalf("file log missing %q: %q", want, file.String())
		}
	}
	if !strings.Contains(console.String(), "build finished") {
		t.Fatalf("console missing info record: %q", console.String())
	}
}

func TestTeeHandlerJoinsErrors(t *testing.T) {
	var buf bytes.Buffer
	ok := slog.NewTextHandler(&buf, nil)
	h := TeeHandler(failingHandler{ok}, ok)

	err := h.Handle(context.Background(), slog.NewRecord(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), slog.LevelInfo, "hello", 0))
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected member error, got %v", err)
	}
	if !strings.Contains(buf.String(), "hello") {
		t.Fatal("healthy member should still receive the record")
	}
}
