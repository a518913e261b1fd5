package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

// resetAfter restores the package-level logger to a known state once the
// test completes, since logger state is process-global.
func resetAfter(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		InitWithWriter(&bytes.Buffer{}, "INFO", "text")
	})
}

func TestLevelStringCoversEveryConstant(t *testing.T) {
	cases := map[Level]string{
		LevelDebug: "DEBUG",
		LevelInfo:  "INFO",
		LevelWarn:  "WARN",
		LevelError: "ERROR",
		Level(99):  "UNKNOWN",
	}
	for lvl, want := range cases {
		if got := lvl.String(); got != want {
			t.Errorf("Level(%d).String() = %q, want %q", lvl, got, want)
		}
	}
}

func TestInitWithWriterRoutesOutput(t *testing.T) {
	resetAfter(t)
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "json")

	Info("hello", "k", "v")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected valid JSON output, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "hello" || entry["k"] != "v" {
		t.Errorf("entry = %v, want msg=hello and k=v", entry)
	}
}

func TestSetLevelSuppressesLowerSeverity(t *testing.T) {
	resetAfter(t)
	var buf bytes.Buffer
	InitWithWriter(&buf, "WARN", "text")

	Debug("should not appear")
	Info("should not appear either")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below WARN, got %q", buf.String())
	}

	Warn("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("expected Warn output to appear, got %q", buf.String())
	}
}

func TestSetLevelIgnoresInvalidValue(t *testing.T) {
	resetAfter(t)
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "text")
	SetLevel("NOT_A_LEVEL")

	Info("still info")
	if !strings.Contains(buf.String(), "still info") {
		t.Error("an invalid SetLevel value must leave the previous level in place")
	}
}

func TestSetFormatIgnoresInvalidValue(t *testing.T) {
	resetAfter(t)
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "json")
	SetFormat("xml")

	Info("msg")
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Errorf("an invalid SetFormat value must leave JSON output in place, got %q", buf.String())
	}
}

func TestInitAppliesOnlyNonEmptyFields(t *testing.T) {
	resetAfter(t)
	var buf bytes.Buffer
	InitWithWriter(&buf, "ERROR", "json")

	if err := Init(Config{Level: "INFO"}); err != nil {
		t.Fatal(err)
	}
	buf.Reset()
	Info("now visible")
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected format to remain json after a partial Init, got %q: %v", buf.String(), err)
	}
}

func TestErrorAlwaysLogsRegardlessOfLevel(t *testing.T) {
	resetAfter(t)
	var buf bytes.Buffer
	InitWithWriter(&buf, "ERROR", "text")

	Error("boom")
	if !strings.Contains(buf.String(), "boom") {
		t.Error("Error must log even at the strictest configured level")
	}
}

func TestCtxVariantsInjectLogContextFields(t *testing.T) {
	resetAfter(t)
	var buf bytes.Buffer
	InitWithWriter(&buf, "DEBUG", "json")

	ctx := WithContext(context.Background(), &LogContext{TraceID: "abc-123", CID: 7, ProfileID: "UDP"})
	InfoCtx(ctx, "flow event")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if entry[KeyTraceID] != "abc-123" {
		t.Errorf("%s = %v, want abc-123", KeyTraceID, entry[KeyTraceID])
	}
	if entry[KeyProfile] != "UDP" {
		t.Errorf("%s = %v, want UDP", KeyProfile, entry[KeyProfile])
	}
}

func TestCtxVariantsWithoutLogContextOmitFields(t *testing.T) {
	resetAfter(t)
	var buf bytes.Buffer
	InitWithWriter(&buf, "DEBUG", "json")

	InfoCtx(context.Background(), "plain event")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if _, ok := entry[KeyTraceID]; ok {
		t.Error("expected no trace_id field without an attached LogContext")
	}
}

func TestFromContextReturnsNilWhenUnset(t *testing.T) {
	if FromContext(context.Background()) != nil {
		t.Error("FromContext on a plain context must return nil")
	}
	if FromContext(nil) != nil {
		t.Error("FromContext(nil) must return nil, not panic")
	}
}
