package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogger_LevelGate(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf)

	l.Debug("hidden %d", 1)
	l.Info("shown %d", 2)
	if strings.Contains(buf.String(), "hidden") {
		t.Error("Debug should be dropped at info level")
	}
	if !strings.Contains(buf.String(), "INFO: shown 2") {
		t.Errorf("Expected info line, got %q", buf.String())
	}

	l.SetLevel(LevelDebug)
	l.Debug("now visible")
	if !strings.Contains(buf.String(), "DEBUG: now visible") {
		t.Errorf("Expected debug line after SetLevel, got %q", buf.String())
	}
}

func TestLogger_WritesToFile(t *testing.T) {
	t.Setenv("PULSEPC_LOG_STDOUT", "")
	path := filepath.Join(t.TempDir(), "pulsepc.log")

	l := New(path)
	l.Warning("sensor %s slow", "hwmon0")
	l.Close()
	l.Error("after close is dropped")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log: %v", err)
	}
	if !strings.HasPrefix(string(data), "[") || !strings.Contains(string(data), "WARNING: sensor hwmon0 slow") {
		t.Errorf("Unexpected log content: %q", data)
	}
	if strings.Contains(string(data), "after close") {
		t.Error("Writes after Close should be dropped")
	}
}

func TestParseLevel(t *testing.T) {
	if lvl, err := ParseLevel("DEBUG"); err != nil || lvl != LevelDebug {
		t.Errorf("Expected debug, got %v %v", lvl, err)
	}
	if _, err := ParseLevel("chatty"); err == nil {
		t.Error("Expected error for unknown level")
	}
}
