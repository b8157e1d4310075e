package hashcache

import "time"

// entry is a CachedDigest: the digest of a file's content as observed at a
// particular modification time.
type entry struct {
	digest  string
	modTime time.Time
}
