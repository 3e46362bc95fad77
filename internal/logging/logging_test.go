package logging

import (
	"bytes"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// captureOutput redirects the standard logger into a buffer for the duration
// of the test.
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
	return &buf
}

// withLevel sets the level for one test and restores it afterwards.
func withLevel(t *testing.T, level LogLevel) {
	t.Helper()
	prev := GetLevel()
	SetLevel(level)
	t.Cleanup(func() { SetLevel(prev) })
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{" error ", LevelError},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLogLevelConstants(t *testing.T) {
	levels := []LogLevel{LevelDebug, LevelInfo, LevelWarn, LevelError}
	for i := 0; i < len(levels)-1; i++ {
		if levels[i] >= levels[i+1] {
			t.Errorf("Log levels should be in ascending order: %v >= %v", levels[i], levels[i+1])
		}
	}
}

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LevelDebug, "debug"},
		{LevelInfo, "info"},
		{LevelWarn, "warn"},
		{LevelError, "error"},
		{LogLevel(99), "unknown(99)"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.level.String(); got != tt.expected {
				t.Errorf("LogLevel.String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	buf := captureOutput(t)
	withLevel(t, LevelWarn)

	Debug("debug line")
	Info("info line")
	Warn("warn line %d", 1)
	Error("error line %s", "x")

	out := buf.String()
	if strings.Contains(out, "debug line") || strings.Contains(out, "info line") {
		t.Errorf("messages below warn should be filtered, got %q", out)
	}
	if !strings.Contains(out, "[WARN] warn line 1") {
		t.Errorf("missing warn line in %q", out)
	}
	if !strings.Contains(out, "[ERROR] error line x") {
		t.Errorf("missing error line in %q", out)
	}
	if IsDebugEnabled() {
		t.Error("IsDebugEnabled() should be false at warn level")
	}
}

// =============================================================================
// OperationLog
// =============================================================================

func TestOperationLogWriteAndSize(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "operations.log")
	oplog, err := OpenOperationLog(path)
	if err != nil {
		t.Fatalf("OpenOperationLog() error = %v", err)
	}
	defer oplog.Close()

	if oplog.Path() != path {
		t.Errorf("Path() = %q, want %q", oplog.Path(), path)
	}

	if _, err := oplog.Write([]byte("hello\n")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	size, err := oplog.Size()
	if err != nil {
		t.Fatalf("Size() error = %v", err)
	}
	if size != 6 {
		t.Errorf("Size() = %d, want 6", size)
	}
}

func TestOperationLogAppendsAcrossReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "operations.log")
	for _, line := range []string{"first\n", "second\n"} {
		oplog, err := OpenOperationLog(path)
		if err != nil {
			t.Fatalf("OpenOperationLog() error = %v", err)
		}
		if _, err := oplog.Write([]byte(line)); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		oplog.Close()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "first\nsecond\n" {
		t.Errorf("log contents = %q", data)
	}
}

func TestOperationLogRotate(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "operations.log")
	oplog, err := OpenOperationLog(path)
	if err != nil {
		t.Fatalf("OpenOperationLog() error = %v", err)
	}
	defer oplog.Close()

	oplog.Write([]byte("to be archived\n"))

	var archived []byte
	err = oplog.Rotate(func(p string) error {
		var readErr error
		archived, readErr = os.ReadFile(p)
		return readErr
	})
	if err != nil {
		t.Fatalf("Rotate() error = %v", err)
	}
	if string(archived) != "to be archived\n" {
		t.Errorf("archive callback saw %q", archived)
	}

	size, _ := oplog.Size()
	if size != 0 {
		t.Errorf("Size() after rotate = %d, want 0", size)
	}

	// O_APPEND keeps writing at the new end after truncation
	oplog.Write([]byte("after\n"))
	data, _ := os.ReadFile(path)
	if string(data) != "after\n" {
		t.Errorf("log after rotate = %q, want %q", data, "after\n")
	}
}

func TestOperationLogRotateFailureKeepsLog(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "operations.log")
	oplog, err := OpenOperationLog(path)
	if err != nil {
		t.Fatalf("OpenOperationLog() error = %v", err)
	}
	defer oplog.Close()

	oplog.Write([]byte("keep me\n"))

	boom := errors.New("boom")
	if err := oplog.Rotate(func(string) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("Rotate() error = %v, want %v", err, boom)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "keep me\n" {
		t.Errorf("log after failed rotate = %q", data)
	}
}

func TestOperationLogClosed(t *testing.T) {
	t.Parallel()

	oplog, err := OpenOperationLog(filepath.Join(t.TempDir(), "operations.log"))
	if err != nil {
		t.Fatalf("OpenOperationLog() error = %v", err)
	}
	if err := oplog.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := oplog.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if _, err := oplog.Write([]byte("x")); !errors.Is(err, os.ErrClosed) {
		t.Errorf("Write() after close error = %v, want os.ErrClosed", err)
	}
}

func TestAttachTeesIntoOperationLog(t *testing.T) {
	withLevel(t, LevelInfo)

	path := filepath.Join(t.TempDir(), "operations.log")
	oplog, err := OpenOperationLog(path)
	if err != nil {
		t.Fatalf("OpenOperationLog() error = %v", err)
	}
	defer oplog.Close()

	Attach(oplog)
	t.Cleanup(func() { Attach(nil) })

	Info("moved %s", "a.jpg")

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "[INFO] moved a.jpg") {
		t.Errorf("operation log = %q", data)
	}
}

// =============================================================================
// slog bridge
// =============================================================================

func TestSlogBridge(t *testing.T) {
	buf := captureOutput(t)
	withLevel(t, LevelInfo)

	logger := Slog().With("service", "ingest").WithGroup("job")
	logger.Info("started", "run", 3)
	logger.Debug("hidden")
	logger.Error("failed")

	out := buf.String()
	if !strings.Contains(out, "[INFO] started service=ingest job.run=3") {
		t.Errorf("info record not bridged: %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Errorf("debug record should be filtered: %q", out)
	}
	if !strings.Contains(out, "[ERROR] failed") {
		t.Errorf("error record not bridged: %q", out)
	}
}
