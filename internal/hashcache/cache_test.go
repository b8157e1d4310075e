package hashcache

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgehri/clcache/internal/digest"
)

func countingHasher() (func(string) (string, error), *int32) {
	var count int32
	return func(path string) (string, error) {
		atomic.AddInt32(&count, 1)
		return digest.File(path)
	}, &count
}

func TestGetCachesRepeatedReads(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.h")
	if err := os.WriteFile(file, []byte("foo"), 0600); err != nil {
		t.Fatal(err)
	}

	hasher, count := countingHasher()
	c, err := New(ModeTimestamp, nil, WithHashFunc(hasher))
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	first, err := c.Get(ctx, file)
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.Get(ctx, file)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Fatalf("digests differ across unmodified reads: %s != %s", first, second)
	}
	if got := atomic.LoadInt32(count); got != 1 {
		t.Fatalf("expected exactly one underlying hash computation, got %d", got)
	}
}

func TestGetDetectsModificationTimestampMode(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.h")
	if err := os.WriteFile(file, []byte("foo"), 0600); err != nil {
		t.Fatal(err)
	}

	c, err := New(ModeTimestamp, nil)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	first, err := c.Get(ctx, file)
	if err != nil {
		t.Fatal(err)
	}

	// Ensure a strictly later mtime on filesystems with coarse resolution.
	time.Sleep(10 * time.Millisecond)
	if err := os.WriteFile(file, []byte("bar"), 0600); err != nil {
		t.Fatal(err)
	}
	future := time.Now().Add(time.Second)
	if err := os.Chtimes(file, future, future); err != nil {
		t.Fatal(err)
	}

	second, err := c.Get(ctx, file)
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Fatal("expected digest to change after modification")
	}

	third, err := c.Get(ctx, file)
	if err != nil {
		t.Fatal(err)
	}
	if second != third {
		t.Fatal("expected digest to remain stable after re-read with unchanged content")
	}
}

func TestGetDetectsModificationWatchMode(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.h")
	if err := os.WriteFile(file, []byte("foo"), 0600); err != nil {
		t.Fatal(err)
	}

	c, err := New(ModeWatch, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	ctx := context.Background()
	first, err := c.Get(ctx, file)
	if err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(file, []byte("bar"), 0600); err != nil {
		t.Fatal(err)
	}

	// The watcher delivers eviction asynchronously; poll briefly for it to
	// land before asserting the new digest is returned.
	deadline := time.Now().Add(5 * time.Second)
	var second string
	for time.Now().Before(deadline) {
		second, err = c.Get(ctx, file)
		if err != nil {
			t.Fatal(err)
		}
		if second != first {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if second == first {
		t.Fatal("expected watcher to invalidate the modified file")
	}
}

func TestGetManyKnownVectorsBatch(t *testing.T) {
	paths := []string{
		filepath.Join("..", "..", "testdata", "known", "alpha.h"),
		filepath.Join("..", "..", "testdata", "known", "beta.h"),
		filepath.Join("..", "..", "testdata", "known", "gamma.h"),
	}
	want := []string{
		"d3b07384d113edec49eaa6238ad5ff00",
		"c157a79031e1c40f85931829bc5fc552",
		"258622b1688250cb619f3c9ccaefb7eb",
	}

	c, err := New(ModeTimestamp, nil)
	if err != nil {
		t.Fatal(err)
	}

	hashes, err := c.GetMany(context.Background(), paths)
	if err != nil {
		t.Fatal(err)
	}
	if len(hashes) != len(want) {
		t.Fatalf("expected %d hashes, got %d", len(want), len(hashes))
	}
	for i := range want {
		if hashes[i] != want[i] {
			t.Errorf("hash %d out of order or wrong: got %s want %s", i, hashes[i], want[i])
		}
	}
}

func TestGetManyPreservesOrder(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i, content := range []string{"foo", "bar", "baz", "qux"} {
		path := filepath.Join(dir, string(rune('a'+i))+".h")
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, path)
	}

	c, err := New(ModeTimestamp, nil)
	if err != nil {
		t.Fatal(err)
	}

	hashes, err := c.GetMany(context.Background(), paths)
	if err != nil {
		t.Fatal(err)
	}
	if len(hashes) != len(paths) {
		t.Fatalf("expected %d hashes, got %d", len(paths), len(hashes))
	}
	for i, path := range paths {
		want, err := digest.File(path)
		if err != nil {
			t.Fatal(err)
		}
		if hashes[i] != want {
			t.Errorf("hash %d out of order or wrong: got %s want %s", i, hashes[i], want)
		}
	}
}

func TestGetManyAllOrNothing(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.h")
	if err := os.WriteFile(good, []byte("foo"), 0600); err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(dir, "missing.h")

	c, err := New(ModeTimestamp, nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := c.GetMany(context.Background(), []string{good, missing}); err == nil {
		t.Fatal("expected an error for a request containing a missing file")
	}
}

func TestClearForcesRecompute(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.h")
	if err := os.WriteFile(file, []byte("foo"), 0600); err != nil {
		t.Fatal(err)
	}

	hasher, count := countingHasher()
	c, err := New(ModeTimestamp, nil, WithHashFunc(hasher))
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	if _, err := c.Get(ctx, file); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Get(ctx, file); err != nil {
		t.Fatal(err)
	}
	if got := atomic.LoadInt32(count); got != 1 {
		t.Fatalf("expected one computation before clear, got %d", got)
	}

	if err := c.Clear(ctx); err != nil {
		t.Fatal(err)
	}

	if _, err := c.Get(ctx, file); err != nil {
		t.Fatal(err)
	}
	if got := atomic.LoadInt32(count); got != 2 {
		t.Fatalf("expected a re-read after clear, got %d computations", got)
	}
}
