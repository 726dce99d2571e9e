package monitoring

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("test message")
	if !called {
		t.Error("Custom logger was not called")
	}

	// nil installs a no-op logger
	called = false
	SetLogger(nil)
	Logf("test")
	if called {
		t.Error("No-op logger should not have triggered callback")
	}
}

func TestLogf_Default(t *testing.T) {
	if Logf == nil {
		t.Error("Logf should not be nil by default")
	}
}

func TestSetupFileLogging(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rover.log")

	closer := SetupFileLogging(path, DefaultFileOptions())
	log.Printf("[TEST] hello from the rover")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "[TEST] hello from the rover") {
		t.Errorf("log file missing message, got %q", string(data))
	}
}
