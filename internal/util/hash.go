// Package util contains small shared helpers (deterministic hashing and
// cache key construction) used across reqmesh packages. Nothing here is part
// of the public API.
package util

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// ContentHash returns a short deterministic hex digest of s. Keys are not
// secrets, so a truncated sha256 is plenty; the only requirement is that the
// same content always hashes to the same key.
func ContentHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", sum)[:16]
}

// CacheKey builds a deterministic composite key from a prefix and parts,
// e.g. CacheKey("capability", "decomposition", ContentHash(req)).
func CacheKey(prefix string, parts ...string) string {
	if len(parts) == 0 {
		return prefix
	}
	return prefix + ":" + strings.Join(parts, ":")
}
