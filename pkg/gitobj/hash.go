// Package gitobj provides read-only typed access to a git object store:
// commits, trees, and blobs addressed by content hash.
//
// The same Store interface is served by a libgit2-backed store for on-disk
// repositories, an in-memory store for tests and synthetic histories, and
// decorators adding caching and I/O deadlines.
package gitobj

import (
	"encoding/hex"
	"fmt"
)

// HashSize is the size of a SHA-1 object hash in bytes.
const HashSize = 20

// HashHexSize is the length of a hex-encoded object hash.
const HashHexSize = 2 * HashSize

// Hash is a git object identifier (SHA-1 content hash).
type Hash [HashSize]byte

// ParseHash decodes a 40-character hex string into a Hash.
func ParseHash(s string) (Hash, error) {
	var h Hash

	if len(s) != HashHexSize {
		return h, fmt.Errorf("%w: hash %q has length %d, want %d", ErrObject, s, len(s), HashHexSize)
	}

	if _, err := hex.Decode(h[:], []byte(s)); err != nil {
		return h, fmt.Errorf("%w: hash %q: %v", ErrObject, s, err)
	}

	return h, nil
}

// String returns the hex representation of the hash.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Short returns the abbreviated hex form used in human-facing output.
func (h Hash) Short() string {
	return h.String()[:8]
}

// IsZero reports whether the hash is all zeros.
func (h Hash) IsZero() bool {
	return h == Hash{}
}
