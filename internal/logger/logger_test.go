package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_Levels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		if _, err := New(level, "text", ""); err != nil {
			t.Errorf("New(%q) error = %v", level, err)
		}
	}
	if _, err := New("verbose", "text", ""); err == nil {
		t.Error("New(verbose) should fail")
	}
}

func TestNew_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "download.log")

	log, err := New("info", "json", path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	log.Info("download completed")
	log.Debug("filtered out")
	log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"download completed"`) {
		t.Errorf("log file = %s, want info entry", data)
	}
	if strings.Contains(string(data), "filtered out") {
		t.Error("debug entry should be filtered at info level")
	}
}
