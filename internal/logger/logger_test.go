// ABOUTME: Tests for slog logger configuration
// ABOUTME: Verifies level parsing, format selection, and debug log file routing

package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			if got := parseLevel(tc.input); got != tc.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tc.input, got, tc.expected)
			}
		})
	}
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "info", "json")
	l.Info("hello", "session_id", "s1")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "hello" || entry["session_id"] != "s1" {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "warn", "text")
	l.Info("hidden")
	l.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("expected info message to be filtered at warn level")
	}
	if !strings.Contains(out, "shown") {
		t.Error("expected warn message to be logged")
	}
}

func TestInitFile_WritesDebugLog(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	dir := filepath.Join(t.TempDir(), "tutor")
	closeFn, err := InitFile(dir)
	if err != nil {
		t.Fatalf("InitFile() error: %v", err)
	}
	slog.Error("boom", "error", "network down")
	closeFn()

	data, err := os.ReadFile(filepath.Join(dir, DebugLogName))
	if err != nil {
		t.Fatalf("expected debug log to exist: %v", err)
	}
	if !strings.Contains(string(data), "network down") {
		t.Errorf("expected log content, got %q", string(data))
	}
}

func TestInitFile_EmptyDirDiscards(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	closeFn, err := InitFile("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	closeFn()
	slog.Info("goes nowhere")
}
