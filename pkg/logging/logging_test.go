package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestLogLevel_String(t *testing.T) {
	tests := map[LogLevel]string{
		LevelDebug:   "DEBUG",
		LevelInfo:    "INFO",
		LevelWarn:    "WARN",
		LevelError:   "ERROR",
		LogLevel(99): "UNKNOWN",
	}
	for level, want := range tests {
		if got := level.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}

func TestInitAndLog(t *testing.T) {
	var buf bytes.Buffer
	Init(LevelDebug, &buf)

	Debug("TestSubsystem", "debug %s", "message")
	Info("TestSubsystem", "info message")

	out := buf.String()
	if !strings.Contains(out, "debug message") {
		t.Errorf("output missing debug message:\n%s", out)
	}
	if !strings.Contains(out, "info message") {
		t.Errorf("output missing info message:\n%s", out)
	}
	if !strings.Contains(out, "subsystem=TestSubsystem") {
		t.Errorf("output missing subsystem attribute:\n%s", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Init(LevelWarn, &buf)

	Debug("Sub", "should be dropped")
	Info("Sub", "should be dropped too")
	Warn("Sub", "should appear")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("low-severity messages leaked through:\n%s", out)
	}
	if !strings.Contains(out, "should appear") {
		t.Errorf("warning was filtered out:\n%s", out)
	}
}

func TestErrorAttribute(t *testing.T) {
	var buf bytes.Buffer
	Init(LevelError, &buf)

	Error("Sub", errors.New("boom"), "operation failed")

	out := buf.String()
	if !strings.Contains(out, "error=boom") {
		t.Errorf("output missing error attribute:\n%s", out)
	}
}
