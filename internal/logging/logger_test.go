package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LevelInfo, &buf)

	logger.Debug("should not appear")
	if buf.Len() != 0 {
		t.Fatalf("debug line leaked at info level: %q", buf.String())
	}

	logger.Info("hello")
	if !strings.Contains(buf.String(), "hello") {
		t.Fatalf("info line missing: %q", buf.String())
	}
}

func TestSubloggerPrefix(t *testing.T) {
	var buf bytes.Buffer
	root := NewLogger(LevelTrace, &buf)
	child := root.Sublogger("server").Sublogger("handler")

	child.Trace("connected")
	if !strings.Contains(buf.String(), "[server.handler] connected") {
		t.Fatalf("missing prefixed line: %q", buf.String())
	}
}

func TestNilLoggerIsSilent(t *testing.T) {
	var logger *Logger
	logger.Info("noop")
	logger.Warnf("noop %d", 1)
	if logger.Level() != LevelDisabled {
		t.Fatalf("nil logger should report LevelDisabled")
	}
}

func TestLevelForVerbosity(t *testing.T) {
	cases := map[int]Level{0: LevelInfo, 1: LevelDebug, 2: LevelTrace, 5: LevelTrace}
	for count, want := range cases {
		if got := LevelForVerbosity(count); got != want {
			t.Errorf("LevelForVerbosity(%d) = %v, want %v", count, got, want)
		}
	}
}
