package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

type closeFailLogger struct {
	NoOpLogger
	err error
}

func (l *closeFailLogger) Close() error { return l.err }

func plainConsole(buf *bytes.Buffer, level LogLevel) *ConsoleLogger {
	return NewConsoleLogger(ConsoleLoggerConfig{Writer: buf, Level: level})
}

func TestMultiLogger_FansOut(t *testing.T) {
	var a, b bytes.Buffer
	multi := NewMultiLogger(plainConsole(&a, DEBUG), plainConsole(&b, DEBUG))

	multi.Debug("listing folder", F("folderId", "root"))
	multi.WithTraceID("run-0123456789").Warn("retrying upload")

	if a.String() != b.String() {
		t.Fatalf("sinks diverged:\n%s\n%s", a.String(), b.String())
	}
	out := a.String()
	if !strings.Contains(out, "listing folder folderId=root") {
		t.Errorf("fields missing: %q", out)
	}
	if !strings.Contains(out, "[run-0123] retrying upload") {
		t.Errorf("trace id not propagated: %q", out)
	}

	a.Reset()
	b.Reset()
	multi.SetLevel(ERROR)
	multi.Info("dropped")
	multi.Error("kept")
	if strings.Contains(a.String(), "dropped") || !strings.Contains(b.String(), "kept") {
		t.Errorf("SetLevel not applied to every sink: %q / %q", a.String(), b.String())
	}
}

func TestMultiLogger_CloseReturnsFirstError(t *testing.T) {
	first := errors.New("first")
	multi := NewMultiLogger(
		NewNoOpLogger(),
		&closeFailLogger{err: first},
		&closeFailLogger{err: errors.New("second")},
	)
	if err := multi.Close(); err != first {
		t.Errorf("Close() = %v, want %v", err, first)
	}
}

func TestNoOpLogger(t *testing.T) {
	n := NewNoOpLogger()
	n.Info("ignored", F("k", "v"))
	if n.WithTraceID("x") != Logger(n) {
		t.Error("WithTraceID should return the same logger")
	}
	if err := n.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}
