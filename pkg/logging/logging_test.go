package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestLogLevelString(t *testing.T) {
	cases := []struct {
		level LogLevel
		want  string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{LogLevel(99), "UNKNOWN"},
	}
	for _, tc := range cases {
		if got := tc.level.String(); got != tc.want {
			t.Errorf("LogLevel(%d).String() = %q, want %q", tc.level, got, tc.want)
		}
	}
}

func TestInfoIncludesSubsystem(t *testing.T) {
	var buf bytes.Buffer
	Init(LevelInfo, &buf)

	Info("Auth", "login for site %s", "datadoghq.com")

	out := buf.String()
	if !strings.Contains(out, "subsystem=Auth") {
		t.Errorf("output missing subsystem attribute: %s", out)
	}
	if !strings.Contains(out, "login for site datadoghq.com") {
		t.Errorf("output missing formatted message: %s", out)
	}
}

func TestDebugSuppressedAtInfoLevel(t *testing.T) {
	var buf bytes.Buffer
	Init(LevelInfo, &buf)

	Debug("Storage", "should not appear")

	if buf.Len() != 0 {
		t.Errorf("debug message was not suppressed: %s", buf.String())
	}
}

func TestErrorIncludesErrAttribute(t *testing.T) {
	var buf bytes.Buffer
	Init(LevelDebug, &buf)

	Error("Storage", errors.New("disk full"), "failed to persist tokens")

	out := buf.String()
	if !strings.Contains(out, "disk full") {
		t.Errorf("output missing error attribute: %s", out)
	}
	if !strings.Contains(out, "level=ERROR") {
		t.Errorf("output missing level: %s", out)
	}
}
