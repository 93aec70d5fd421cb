package log

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

// recordingOutput captures formatted entries for assertions.
type recordingOutput struct {
	lines []string
}

func (o *recordingOutput) Write(_ *Entry, formatted []byte) error {
	o.lines = append(o.lines, string(formatted))
	return nil
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want Level
	}{
		{"", InfoLevel},
		{"debug", DebugLevel},
		{"INFO", InfoLevel},
		{"warn", WarnLevel},
		{"warning", WarnLevel},
		{"Error", ErrorLevel},
	}
	for _, tc := range cases {
		got, err := ParseLevel(tc.in)
		if err != nil || got != tc.want {
			t.Fatalf("ParseLevel(%q) = %v, %v", tc.in, got, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatal("accepted unknown level")
	}
}

func TestLevelFiltering(t *testing.T) {
	out := &recordingOutput{}
	logger := NewLogger(WithLevel(WarnLevel), WithOutput(out))

	logger.Debug("dropped")
	logger.Info("dropped")
	logger.Warn("kept")
	logger.Error("kept too")

	if len(out.lines) != 2 {
		t.Fatalf("emitted %d lines, want 2: %v", len(out.lines), out.lines)
	}

	logger.SetLevel(DebugLevel)
	logger.Debug("now visible")
	if len(out.lines) != 3 {
		t.Fatalf("SetLevel did not take effect: %v", out.lines)
	}
}

func TestWithFields(t *testing.T) {
	out := &recordingOutput{}
	logger := NewLogger(WithOutput(out))

	child := logger.With(Component("fetcher"), Int("shuffle", 7))
	child.Info("started", String("phase", "open"))

	if len(out.lines) != 1 {
		t.Fatalf("emitted %d lines", len(out.lines))
	}
	line := out.lines[0]
	for _, want := range []string{"component=fetcher", "shuffle=7", "phase=open", "started"} {
		if !strings.Contains(line, want) {
			t.Fatalf("line %q missing %q", line, want)
		}
	}

	// The parent logger does not inherit the child's fields.
	logger.Info("bare")
	if strings.Contains(out.lines[1], "component=") {
		t.Fatalf("parent line carries child fields: %q", out.lines[1])
	}
}

func TestTextFormatter(t *testing.T) {
	f := &TextFormatter{}
	ts := time.Date(2026, 3, 1, 12, 30, 45, 0, time.UTC)
	b, err := f.Format(&Entry{
		Level:     WarnLevel,
		Message:   "replica open failed",
		Fields:    []Field{String("worker", "w1:7337"), Err(errors.New("refused"))},
		Timestamp: ts,
	})
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	line := string(b)
	for _, want := range []string{"2026-03-01T12:30:45.000Z", "WARN", "replica open failed", "worker=w1:7337", "error=refused"} {
		if !strings.Contains(line, want) {
			t.Fatalf("line %q missing %q", line, want)
		}
	}
	if !strings.HasSuffix(line, "\n") {
		t.Fatal("missing trailing newline")
	}
}

func TestJSONFormatter(t *testing.T) {
	f := &JSONFormatter{}
	b, err := f.Format(&Entry{
		Level:   InfoLevel,
		Message: "batch opened",
		Fields: []Field{
			Int("entries", 4),
			Duration("took", 1500*time.Millisecond),
			Err(errors.New("partial")),
		},
		Timestamp: time.Now(),
	})
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if m["level"] != "INFO" || m["msg"] != "batch opened" {
		t.Fatalf("decoded = %v", m)
	}
	if m["entries"] != float64(4) || m["took"] != "1.5s" || m["error"] != "partial" {
		t.Fatalf("fields = %v", m)
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := NewNop()
	logger.Error("never seen", Err(errors.New("boom")))
	logger.With(Component("x")).Info("still quiet")
}
