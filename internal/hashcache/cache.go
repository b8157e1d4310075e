// Package hashcache implements the daemon's concurrent, directory-indexed
// digest cache, grounded on spec §4.2/§4.3 and on the Rust original's
// DashMap-based HashCache (original_source/clcache_server/src/hash_cache.rs).
package hashcache

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/dgehri/clcache/internal/digest"
	"github.com/dgehri/clcache/internal/logging"
	"github.com/dgehri/clcache/internal/watcher"
)

// directoryWatcher is the subset of *watcher.Watcher the cache depends on.
// It exists so tests can substitute a fake without touching the real
// filesystem notification machinery.
type directoryWatcher interface {
	Watch(dir string) error
	Unwatch(dir string) error
	Close() error
}

// Cache is a concurrent mapping from canonical file path to CachedDigest. It
// permits many concurrent readers and writers keyed on distinct paths; no
// global lock is ever held across a hashing operation.
type Cache struct {
	mode   Mode
	logger *logging.Logger

	// entries is the primary index: canonical path -> *entry.
	entries sync.Map

	// dirMu guards dirs, the secondary parent-dir -> {basename: canonical
	// key} index used only by the watcher's eviction path. It is never held
	// during I/O or hashing.
	dirMu sync.Mutex
	dirs  map[string]map[string]string

	watcherMu sync.Mutex
	watcher   directoryWatcher

	hashFile func(path string) (string, error)
}

// New creates a Cache using the given invalidation mode. In ModeWatch it
// also creates and owns a directory watcher for the cache's lifetime.
func New(mode Mode, logger *logging.Logger, options ...Option) (*Cache, error) {
	c := &Cache{
		mode:     mode,
		logger:   logger,
		dirs:     make(map[string]map[string]string),
		hashFile: digest.File,
	}

	for _, option := range options {
		option(c)
	}

	if mode == ModeWatch {
		w, err := watcher.New(logger.Sublogger("watcher"), c.evict)
		if err != nil {
			return nil, errors.Wrap(err, "unable to create directory watcher")
		}
		c.watcher = w
	}

	return c, nil
}

// Get returns the digest of the file at path, computing and caching it if
// necessary.
func (c *Cache) Get(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	canon, err := canonicalize(path)
	if err != nil {
		return "", err
	}

	if v, ok := c.entries.Load(canon); ok {
		cached := v.(*entry)
		if c.mode == ModeWatch {
			// The watcher is authoritative for invalidation in this mode;
			// trust the cached digest without comparing mtimes.
			return cached.digest, nil
		}
		info, statErr := os.Stat(canon)
		if statErr != nil {
			return "", errors.Wrapf(statErr, "unable to stat '%s'", path)
		}
		if info.ModTime().Equal(cached.modTime) {
			return cached.digest, nil
		}
		c.logger.Tracef("file '%s' modified, recalculating digest", canon)
	} else {
		c.logger.Tracef("file '%s' not cached, calculating digest", canon)
	}

	hash, err := c.hashFile(canon)
	if err != nil {
		return "", err
	}

	var mtime time.Time
	if info, statErr := os.Stat(canon); statErr == nil {
		mtime = info.ModTime()
	}
	c.store(canon, hash, mtime)

	return hash, nil
}

// GetMany dispatches each path to Get on a Goroutine and returns the results
// in input order. It fails all-or-nothing: the first error encountered is
// returned and no partial results are provided, per spec §4.2.
func (c *Cache) GetMany(ctx context.Context, paths []string) ([]string, error) {
	results := make([]string, len(paths))
	errs := make([]error, len(paths))

	var wg sync.WaitGroup
	wg.Add(len(paths))
	for i, path := range paths {
		i, path := i, path
		go func() {
			defer wg.Done()
			results[i], errs[i] = c.Get(ctx, path)
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, errors.Wrapf(err, "unable to hash '%s'", paths[i])
		}
	}
	return results, nil
}

// Clear unwatches every currently watched directory (best-effort - errors
// are logged, not fatal) and drops every cached entry. Subsequent Get calls
// recompute from scratch.
func (c *Cache) Clear(ctx context.Context) error {
	c.dirMu.Lock()
	dirs := make([]string, 0, len(c.dirs))
	for dir := range c.dirs {
		dirs = append(dirs, dir)
	}
	c.dirs = make(map[string]map[string]string)
	c.dirMu.Unlock()

	c.watcherMu.Lock()
	w := c.watcher
	c.watcherMu.Unlock()
	if w != nil {
		for _, dir := range dirs {
			if err := w.Unwatch(dir); err != nil {
				c.logger.Warn(err)
			}
		}
	}

	c.entries.Range(func(key, _ interface{}) bool {
		c.entries.Delete(key)
		return true
	})

	return nil
}

// Close releases the cache's directory watcher, if any.
func (c *Cache) Close() error {
	c.watcherMu.Lock()
	w := c.watcher
	c.watcherMu.Unlock()
	if w == nil {
		return nil
	}
	return w.Close()
}

// store installs a freshly computed digest and, in ModeWatch, ensures the
// parent directory is watched.
func (c *Cache) store(canon, hash string, mtime time.Time) {
	c.entries.Store(canon, &entry{digest: hash, modTime: mtime})

	if c.mode != ModeWatch {
		return
	}

	dir, base := splitDirBase(canon)

	c.dirMu.Lock()
	basenames, exists := c.dirs[dir]
	if !exists {
		basenames = make(map[string]string)
		c.dirs[dir] = basenames
	}
	basenames[base] = canon
	c.dirMu.Unlock()

	if !exists {
		c.watcherMu.Lock()
		w := c.watcher
		c.watcherMu.Unlock()
		if w != nil {
			if err := w.Watch(dir); err != nil {
				// Registration failure is logged and non-fatal: the entry is
				// still cached, it just won't be invalidated by the watcher.
				c.logger.Warn(err)
			}
		}
	}
}

// evict is the Watcher EvictFunc: it drops the cache entry corresponding to
// a raw (possibly non-canonical) path reported by a filesystem event, and
// retires the directory's watch once its basename set is empty.
func (c *Cache) evict(rawPath string) {
	dir, base := splitDirBase(normalizeCase(rawPath))

	c.dirMu.Lock()
	basenames, ok := c.dirs[dir]
	if !ok {
		c.dirMu.Unlock()
		return
	}
	canon, ok := basenames[base]
	if !ok {
		c.dirMu.Unlock()
		return
	}
	delete(basenames, base)
	empty := len(basenames) == 0
	if empty {
		delete(c.dirs, dir)
	}
	c.dirMu.Unlock()

	c.entries.Delete(canon)
	c.logger.Tracef("evicted '%s'", canon)

	if empty {
		c.watcherMu.Lock()
		w := c.watcher
		c.watcherMu.Unlock()
		if w != nil {
			if err := w.Unwatch(dir); err != nil {
				c.logger.Warn(err)
			}
		}
	}
}
