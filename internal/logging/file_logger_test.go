package logging

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func readEntries(t *testing.T, path string) []LogEntry {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()

	var entries []LogEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e LogEntry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("line %q is not JSON: %v", scanner.Text(), err)
		}
		entries = append(entries, e)
	}
	return entries
}

func TestFileLogger_WritesJSONLines(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "gitdrive.log")
	logger, err := NewFileLogger(FileLoggerConfig{FilePath: logPath, Level: INFO})
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}

	logger.Debug("filtered")
	logger.Info("uploaded", F("path", "guides/setup.md"), F("bytes", 42))
	logger.WithTraceID("run-1").Error("trash failed")
	ctx := ContextWithTraceID(context.Background(), "run-2")
	logger.WithContext(ctx).Warn("slow listing")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	entries := readEntries(t, logPath)
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3: %+v", len(entries), entries)
	}
	if e := entries[0]; e.Level != "INFO" || e.Message != "uploaded" || e.Fields["path"] != "guides/setup.md" || e.TraceID != "" {
		t.Errorf("entry 0 = %+v", e)
	}
	if e := entries[1]; e.Level != "ERROR" || e.TraceID != "run-1" {
		t.Errorf("entry 1 = %+v", e)
	}
	if e := entries[2]; e.Level != "WARN" || e.TraceID != "run-2" {
		t.Errorf("entry 2 = %+v", e)
	}
}

func TestFileLogger_SetLevel(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "level.log")
	logger, err := NewFileLogger(FileLoggerConfig{FilePath: logPath, Level: ERROR})
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("before")
	logger.SetLevel(DEBUG)
	logger.Debug("after")
	_ = logger.Close()

	entries := readEntries(t, logPath)
	if len(entries) != 1 || entries[0].Message != "after" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestFileLogger_TracedCopiesShareRotation(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewFileLogger(FileLoggerConfig{
		FilePath:      filepath.Join(dir, "run.log"),
		Level:         INFO,
		MaxFileSize:   200,
		RotateEnabled: true,
	})
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}

	traced := logger.WithTraceID("run-1")
	for i := 0; i < 10; i++ {
		logger.Info("untraced line that is long enough to fill the file")
		traced.Info("traced line that is long enough to fill the file")
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	traced.Info("dropped after close")
	if err := traced.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	files, _ := filepath.Glob(filepath.Join(dir, "run.log*"))
	if len(files) < 2 {
		t.Errorf("expected rotated files, got %v", files)
	}
}
