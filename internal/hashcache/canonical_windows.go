//go:build windows

package hashcache

import "strings"

// normalizeCase folds the path to lowercase, matching Windows' case
// -insensitive (but case-preserving) filesystem semantics.
func normalizeCase(path string) string {
	return strings.ToLower(path)
}
