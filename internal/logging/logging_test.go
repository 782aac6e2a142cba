package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{input: "debug", want: slog.LevelDebug},
		{input: " WARNING ", want: slog.LevelWarn},
		{input: "error", want: slog.LevelError},
		{input: "", want: slog.LevelInfo},
		{input: "verbose", want: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestNewWithWriterFormats(t *testing.T) {
	var jsonBuf bytes.Buffer
	NewWithWriter(&jsonBuf, "info", "json").Info("started", "port", "8090")

	var entry map[string]any
	if err := json.Unmarshal(jsonBuf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log line, got %q", jsonBuf.String())
	}
	if entry["msg"] != "started" || entry["port"] != "8090" {
		t.Fatalf("unexpected entry %v", entry)
	}

	var textBuf bytes.Buffer
	logger := NewWithWriter(&textBuf, "warn", "text")
	logger.Info("hidden")
	logger.Warn("shown")
	if strings.Contains(textBuf.String(), "hidden") || !strings.Contains(textBuf.String(), "msg=shown") {
		t.Fatalf("unexpected text output %q", textBuf.String())
	}
}
