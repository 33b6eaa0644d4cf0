package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLogger_WritesNamedFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	log, err := NewLogger(dir, "collector")
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	log.Info("test_message_from_logging_test")
	_ = log.Sync()

	b, err := os.ReadFile(filepath.Join(dir, "collector.log"))
	if err != nil {
		t.Fatalf("log file missing: %v", err)
	}
	if !strings.Contains(string(b), "test_message_from_logging_test") || !strings.Contains(string(b), `"component":"collector"`) {
		t.Fatalf("unexpected log content: %s", b)
	}
}

func TestNewLogger_DefaultName(t *testing.T) {
	dir := t.TempDir()
	log, err := NewLogger(dir, "")
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	log.Info("x")
	_ = log.Sync()
	if _, err := os.Stat(filepath.Join(dir, "linkwatch.log")); err != nil {
		t.Fatalf("default log file missing: %v", err)
	}
}
