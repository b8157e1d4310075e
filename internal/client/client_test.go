package client

import (
	"strings"
	"testing"

	"github.com/dgehri/clcache/internal/lifecycle"
	"github.com/dgehri/clcache/internal/logging"
	"github.com/google/uuid"
)

func TestReadPathsStopsAtBlankLine(t *testing.T) {
	paths, err := readPaths(strings.NewReader("a.h\nb.h\n\nc.h\n"))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a.h", "b.h"}
	if len(paths) != len(want) {
		t.Fatalf("got %v want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Fatalf("got %v want %v", paths, want)
		}
	}
}

func TestReadPathsStopsAtEOF(t *testing.T) {
	paths, err := readPaths(strings.NewReader("a.h\nb.h"))
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 paths, got %v", paths)
	}
}

func TestDaemonRunningFalseWhenUnlocked(t *testing.T) {
	id := uuid.NewString()
	running, err := daemonRunning(id, logging.RootLogger)
	if err != nil {
		t.Fatal(err)
	}
	if running {
		t.Fatal("expected no daemon to be running")
	}

	// The transient acquire/release in daemonRunning must not leave the
	// singleton held.
	singleton, err := lifecycle.AcquireSingleton(id, logging.RootLogger)
	if err != nil {
		t.Fatalf("singleton should still be acquirable: %v", err)
	}
	singleton.Release()
}

func TestDaemonRunningTrueWhenLocked(t *testing.T) {
	id := uuid.NewString()
	singleton, err := lifecycle.AcquireSingleton(id, logging.RootLogger)
	if err != nil {
		t.Fatal(err)
	}
	defer singleton.Release()

	running, err := daemonRunning(id, logging.RootLogger)
	if err != nil {
		t.Fatal(err)
	}
	if !running {
		t.Fatal("expected daemon to be reported as running")
	}
}
