package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestDetectEnv(t *testing.T) {
	t.Setenv("APP_ENV", "")
	if got := DetectEnv(); got != EnvDev {
		t.Fatalf("default should be dev, got %q", got)
	}

	t.Setenv("APP_ENV", "staging")
	if got := DetectEnv(); got != EnvStage {
		t.Fatalf("expected stage, got %q", got)
	}

	t.Setenv("APP_ENV", "production")
	if got := DetectEnv(); got != EnvProd {
		t.Fatalf("expected prod, got %q", got)
	}
}

func TestInit_DevStd_TextOutput(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{
		Service: "chat",
		Env:     EnvDev,
		Backend: BackendStd,
		Level:   slog.LevelDebug,
		Output:  &buf,
	})
	slog.Debug("hello world")

	out := buf.String()
	if strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Fatalf("expected text output in dev/std, got JSON: %s", out)
	}
	for _, want := range []string{"hello world", "service=chat", "env=dev"} {
		if !strings.Contains(out, want) {
			t.Fatalf("%q missing: %s", want, out)
		}
	}
}

func TestInit_ProdZap_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{
		Service:          "chat",
		Version:          "1.2.3",
		Env:              EnvProd,
		Level:            slog.LevelInfo,
		Output:           &buf,
		SampleInitial:    100000,
		SampleThereafter: 100000,
	})
	slog.Debug("dropped")
	slog.Info("booted", slog.String("k", "v"))
	if err := Sync(); err != nil {
		t.Fatalf("sync: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &m); err != nil {
		t.Fatalf("expected one JSON line, got %s, err=%v", buf.String(), err)
	}
	if m["msg"] != "booted" || m["level"] != "INFO" || m["k"] != "v" {
		t.Fatalf("unexpected record: %v", m)
	}
	if m["service"] != "chat" || m["env"] != "prod" || m["version"] != "1.2.3" {
		t.Fatalf("attrs missing: %v", m)
	}
}

func TestTraceHandler_AddsSpanIDs(t *testing.T) {
	var buf bytes.Buffer
	log := Init(Config{Service: "chat", Env: EnvStage, Backend: BackendStd, Output: &buf})

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	log.InfoContext(ctx, "with trace")
	span.End()

	var m map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &m); err != nil {
		t.Fatalf("expected JSON in stage/std, got %s, err=%v", buf.String(), err)
	}
	if m["trace_id"] != span.SpanContext().TraceID().String() || m["span_id"] == nil {
		t.Fatalf("trace ids missing: %v", m)
	}
	if AttrsFromCtx(context.Background()) != nil {
		t.Fatal("expected no attrs without span")
	}
}

func TestParseLevel(t *testing.T) {
	if l, err := ParseLevel("WARN"); err != nil || l != slog.LevelWarn {
		t.Fatalf("warn: %v %v", l, err)
	}
	if l, err := ParseLevel(""); err != nil || l != slog.LevelInfo {
		t.Fatalf("empty: %v %v", l, err)
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatal("expected error")
	}
}

func TestRequestID_InEveryContextRecord(t *testing.T) {
	var buf bytes.Buffer
	log := Init(Config{Service: "chat", Env: EnvProd, Backend: BackendStd, Output: &buf})

	ctx := WithRequestID(context.Background(), "r-1")
	log.WarnContext(ctx, "session.notify failed")

	var m map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &m); err != nil {
		t.Fatalf("bad json: %s, err=%v", buf.String(), err)
	}
	if m["req_id"] != "r-1" {
		t.Fatalf("req_id missing: %v", m)
	}
	if RequestID(WithRequestID(context.Background(), "")) != "" {
		t.Fatal("empty id must not be stored")
	}
}
