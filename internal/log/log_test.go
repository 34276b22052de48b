package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestInfoProducesLogfmtWithTimestamp(t *testing.T) {
	buf := new(bytes.Buffer)
	original := Logger()
	ReplaceLogger(slog.New(newHandler(buf, "text")))
	t.Cleanup(func() {
		ReplaceLogger(original)
	})

	Info(context.Background(), "hello", "user", "test")

	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatalf("expected log output, got empty string")
	}
	if !strings.Contains(line, "ts=") {
		t.Fatalf("expected timestamp field in log line, got %q", line)
	}
	if !strings.Contains(line, "level=info") {
		t.Fatalf("expected level field in log line, got %q", line)
	}
	if !strings.Contains(line, "msg=hello") {
		t.Fatalf("expected message field in log line, got %q", line)
	}
	if !strings.Contains(line, "user=test") {
		t.Fatalf("expected structured field in log line, got %q", line)
	}
}

func TestJSONHandlerEmitsRenamedKeys(t *testing.T) {
	buf := new(bytes.Buffer)
	original := Logger()
	ReplaceLogger(slog.New(newHandler(buf, "json")))
	t.Cleanup(func() {
		ReplaceLogger(original)
	})

	Error(context.Background(), "boom", "recipe", 12)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected json output, got %q: %v", buf.String(), err)
	}
	if entry["level"] != "error" {
		t.Fatalf("level = %v, want error", entry["level"])
	}
	if entry["msg"] != "boom" {
		t.Fatalf("msg = %v, want boom", entry["msg"])
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts field in %v", entry)
	}
}

func TestSetLevelFiltersOutput(t *testing.T) {
	buf := new(bytes.Buffer)
	original := Logger()
	ReplaceLogger(slog.New(newHandler(buf, "text")))
	t.Cleanup(func() {
		ReplaceLogger(original)
		if err := SetLevel("info"); err != nil {
			t.Fatalf("restore level: %v", err)
		}
	})

	if err := SetLevel("warn"); err != nil {
		t.Fatalf("SetLevel(warn) error = %v", err)
	}

	Info(context.Background(), "quiet")
	Warn(context.Background(), "loud")

	output := buf.String()
	if strings.Contains(output, "msg=quiet") {
		t.Fatalf("info line should have been filtered, got %q", output)
	}
	if !strings.Contains(output, "msg=loud") {
		t.Fatalf("expected warn line in output, got %q", output)
	}
}

func TestSetLevelAndFormatRejectUnknownValues(t *testing.T) {
	if err := SetLevel("verbose"); err == nil {
		t.Fatal("expected error for unknown level")
	}
	if err := SetFormat("xml"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
