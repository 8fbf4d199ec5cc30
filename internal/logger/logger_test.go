package logger

import (
	"authenta/internal/config"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLogger_WritesLevelFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	l, err := NewLogger(&config.Config{LogDirectory: dir})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	defer l.Close()

	l.Info("media %s created", "m1")
	l.Warning("participant %d skipped", 2)
	l.Error("upload failed with status %d", 403)

	tests := []struct {
		file     string
		contains string
		prefix   string
	}{
		{"info.log", "media m1 created", "INFO"},
		{"warning.log", "participant 2 skipped", "WARNING"},
		{"error.log", "upload failed with status 403", "ERROR"},
	}

	for _, tt := range tests {
		content, err := os.ReadFile(filepath.Join(dir, tt.file))
		if err != nil {
			t.Fatalf("ReadFile(%s) error = %v", tt.file, err)
		}
		if !strings.HasPrefix(string(content), tt.prefix) {
			t.Errorf("%s = %q, expected prefix %q", tt.file, content, tt.prefix)
		}
		if !strings.Contains(string(content), tt.contains) {
			t.Errorf("%s = %q, expected to contain %q", tt.file, content, tt.contains)
		}
		if !strings.Contains(string(content), "logger_test.go") {
			t.Errorf("%s = %q, expected caller file name", tt.file, content)
		}
	}

	if l.Dir() != dir {
		t.Errorf("Dir() = %q, expected %q", l.Dir(), dir)
	}
}

func TestCleanLogs(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogger(&config.Config{LogDirectory: dir})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	defer l.Close()

	l.Error("first failure")
	if err := l.CleanLogs("error.log"); err != nil {
		t.Fatalf("CleanLogs() error = %v", err)
	}

	content, _ := os.ReadFile(filepath.Join(dir, "error.log"))
	if len(content) != 0 {
		t.Errorf("error.log = %q, expected empty", content)
	}

	if err := l.CleanLogs("missing.log"); err == nil {
		t.Error("CleanLogs() of a missing file should fail")
	}
}

func TestDiscard(t *testing.T) {
	l := Discard()

	l.Info("ignored %d", 1)
	l.Warning("ignored")
	l.Error("ignored")

	if err := l.CleanLogs("info.log"); err != nil {
		t.Errorf("CleanLogs() error = %v", err)
	}
	if err := l.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
