package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestLoggerInit(t *testing.T) {
	err := Init()
	if err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	logger := Get()
	if logger == nil {
		t.Fatal("logger is nil after initialization")
	}
}

func TestLoggerBasic(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	ctx := context.Background()
	Get().Info(ctx, "test message", String("k", "v"), Bool("ok", true), Duration("took", time.Millisecond))
}

func TestLoggerNamed(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	namedLogger := Named("test")
	if namedLogger == nil {
		t.Fatal("named logger is nil")
	}
	namedLogger.Info(context.Background(), "test message")
}

func TestInitWithFormatJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWithFormat("debug", "json", &buf); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() { _ = Init() }()

	ctx := ContextWithRequestID(context.Background(), "req-42")
	Get().Debug(ctx, "scored", String("team", "t1"), Float64("total", 80))

	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("expected one json line, got %q: %v", buf.String(), err)
	}
	if line["msg"] != "scored" || line["team"] != "t1" || line["request_id"] != "req-42" {
		t.Errorf("unexpected log line: %v", line)
	}
	if src, _ := line["source"].(string); !strings.Contains(src, "logger_test.go") {
		t.Errorf("expected caller to point at the test, got %q", src)
	}
}

func TestInitWithFormatLevel(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWithFormat("warn", "text", &buf); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() { _ = Init() }()

	Get().Info(context.Background(), "hidden")
	Get().Warn(context.Background(), "shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Errorf("level filter not applied: %q", out)
	}
}

func TestInitWithFormatErrors(t *testing.T) {
	if err := InitWithFormat("info", "xml", nil); err == nil {
		t.Error("expected error for unknown format")
	}
	if err := InitWithFormat("loud", "text", nil); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestRequestIDFromContext(t *testing.T) {
	if _, ok := RequestIDFromContext(context.Background()); ok {
		t.Error("expected no request id")
	}
	if _, ok := RequestIDFromContext(ContextWithRequestID(context.Background(), "")); ok {
		t.Error("expected empty request id to be ignored")
	}
	id, ok := RequestIDFromContext(ContextWithRequestID(context.Background(), "abc"))
	if !ok || id != "abc" {
		t.Errorf("expected abc, got %q", id)
	}
}
