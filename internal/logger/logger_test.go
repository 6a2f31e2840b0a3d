package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"Error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.expected {
			t.Errorf("parseLevel(%q) = %v, expected %v", tt.input, got, tt.expected)
		}
	}
}

func TestSetupJSON(t *testing.T) {
	var buf bytes.Buffer
	log := Setup(Config{Level: "info", Format: "json", Output: &buf})

	log.Debug("hidden")
	log.Info("visible", "thesis_id", 7)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("Expected 1 log line, got %d: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("Log line is not JSON: %v", err)
	}
	if entry["msg"] != "visible" {
		t.Errorf("Unexpected msg: %v", entry["msg"])
	}
	if ts, _ := entry["time"].(string); len(ts) != len("2006-01-02 15:04:05") {
		t.Errorf("Unexpected time format: %q", ts)
	}
}

func TestSetupText(t *testing.T) {
	var buf bytes.Buffer
	log := Setup(Config{Level: "debug", Format: "text", Output: &buf})

	log.Debug("details", "state", "Active")

	if !strings.Contains(buf.String(), "state=Active") {
		t.Errorf("Expected text output, got %q", buf.String())
	}
}
