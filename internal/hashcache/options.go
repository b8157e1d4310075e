package hashcache

// Option configures optional, non-default Cache behavior. The only current
// use is substituting the digest function in tests so that re-reads can be
// observed without touching the filesystem-backed digest.File directly.
type Option func(*Cache)

// WithHashFunc overrides the function used to compute a file's digest. It
// exists primarily for tests that need to observe (and count) re-reads.
func WithHashFunc(f func(path string) (string, error)) Option {
	return func(c *Cache) {
		c.hashFile = f
	}
}
