package gitobj

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a reference or object does not exist.
	ErrNotFound = errors.New("gitobj: not found")

	// ErrObject is returned when an object exists but cannot be read or decoded.
	ErrObject = errors.New("gitobj: object error")

	// ErrStoreTimeout is returned when an object read exceeds its I/O deadline.
	ErrStoreTimeout = errors.New("gitobj: store timeout")

	// ErrBinary is returned by Blob.CountLines for binary content.
	ErrBinary = errors.New("gitobj: binary content")
)

// Store is read-only access to a content-addressed commit/tree/blob graph.
// Implementations must be safe for concurrent readers; no method mutates
// repository state.
type Store interface {
	// ResolveRef resolves a reference name (branch, tag, "HEAD", or a full
	// hex hash) to the commit it points at. Annotated tags are peeled.
	ResolveRef(ctx context.Context, name string) (Hash, error)

	// ReadCommit returns the commit with the given id.
	ReadCommit(ctx context.Context, id Hash) (*Commit, error)

	// ReadTree returns the tree with the given id, flattened to a
	// path -> blob mapping over all nested subtrees.
	ReadTree(ctx context.Context, id Hash) (*Tree, error)

	// ReadBlob returns the blob with the given id.
	ReadBlob(ctx context.Context, id Hash) (*Blob, error)
}

// Closer is implemented by stores holding external resources.
type Closer interface {
	Close()
}
