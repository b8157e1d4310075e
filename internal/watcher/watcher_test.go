package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatchDetectsModify(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(file, []byte("one"), 0600); err != nil {
		t.Fatal("unable to create file:", err)
	}

	evicted := make(chan string, 8)
	w, err := New(nil, func(path string) { evicted <- path })
	if err != nil {
		t.Fatal("unable to create watcher:", err)
	}
	defer w.Close()

	if err := w.Watch(dir); err != nil {
		t.Fatal("unable to watch directory:", err)
	}
	// Watching the same directory twice must be a no-op.
	if err := w.Watch(dir); err != nil {
		t.Fatal("re-watching should be idempotent:", err)
	}

	if err := os.WriteFile(file, []byte("two"), 0600); err != nil {
		t.Fatal("unable to modify file:", err)
	}

	select {
	case path := <-evicted:
		if filepath.Base(path) != "a.txt" {
			t.Errorf("unexpected evicted path: %s", path)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for modify event")
	}
}

func TestUnwatchIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	w, err := New(nil, func(string) {})
	if err != nil {
		t.Fatal("unable to create watcher:", err)
	}
	defer w.Close()

	if err := w.Unwatch(dir); err != nil {
		t.Fatal("unwatching an unwatched directory should be a no-op:", err)
	}
	if err := w.Watch(dir); err != nil {
		t.Fatal("unable to watch directory:", err)
	}
	if err := w.Unwatch(dir); err != nil {
		t.Fatal("unable to unwatch directory:", err)
	}
	if err := w.Unwatch(dir); err != nil {
		t.Fatal("re-unwatching should be idempotent:", err)
	}
}
