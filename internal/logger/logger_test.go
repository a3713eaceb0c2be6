package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLogger_CreatesLevelFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	l, err := NewLogger(dir)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	defer l.Close()

	l.Info("confirmed %s", "PLASTIC")
	l.Warning("serial %s", "missing")
	l.Error("boom %d", 1)

	tests := []struct {
		file string
		want string
	}{
		{"info.log", "confirmed PLASTIC"},
		{"warning.log", "serial missing"},
		{"error.log", "boom 1"},
	}

	for _, tt := range tests {
		data, err := os.ReadFile(filepath.Join(dir, tt.file))
		if err != nil {
			t.Fatalf("Failed to read %s: %v", tt.file, err)
		}
		if !strings.Contains(string(data), tt.want) {
			t.Errorf("%s = %q, expected to contain %q", tt.file, data, tt.want)
		}
	}
}

func TestCleanLogs_TruncatesFile(t *testing.T) {
	dir := t.TempDir()

	l, err := NewLogger(dir)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	defer l.Close()

	l.Warning("first warning")
	if err := l.CleanLogs("warning.log"); err != nil {
		t.Fatalf("CleanLogs failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "warning.log"))
	if err != nil {
		t.Fatalf("Failed to read warning.log: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("Expected empty warning.log, got %q", data)
	}
}

func TestNewWithWriter(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf)

	l.Info("hello %s", "world")

	if !strings.Contains(buf.String(), "INFO") || !strings.Contains(buf.String(), "hello world") {
		t.Errorf("Unexpected output: %q", buf.String())
	}
	if l.Dir() != "" {
		t.Errorf("Expected empty Dir, got %q", l.Dir())
	}
}
