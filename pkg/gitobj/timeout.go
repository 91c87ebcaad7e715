package gitobj

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// TimeoutStore decorates a Store with a per-read I/O deadline. A read that
// exceeds the deadline fails with ErrStoreTimeout instead of blocking the
// run indefinitely. Caller cancellation passes through untouched.
type TimeoutStore struct {
	inner   Store
	timeout time.Duration
}

// NewTimeoutStore wraps inner with the given per-read timeout. A timeout of
// zero or less returns inner unwrapped.
func NewTimeoutStore(inner Store, timeout time.Duration) Store {
	if timeout <= 0 {
		return inner
	}

	return &TimeoutStore{inner: inner, timeout: timeout}
}

// ResolveRef applies the deadline to a reference resolution.
func (s *TimeoutStore) ResolveRef(ctx context.Context, name string) (Hash, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	id, err := s.inner.ResolveRef(ctx, name)
	if err != nil {
		return Hash{}, s.mapDeadline(err, "resolve "+name)
	}

	return id, nil
}

// ReadCommit applies the deadline to a commit read.
func (s *TimeoutStore) ReadCommit(ctx context.Context, id Hash) (*Commit, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	commit, err := s.inner.ReadCommit(ctx, id)
	if err != nil {
		return nil, s.mapDeadline(err, "commit "+id.Short())
	}

	return commit, nil
}

// ReadTree applies the deadline to a tree read.
func (s *TimeoutStore) ReadTree(ctx context.Context, id Hash) (*Tree, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tree, err := s.inner.ReadTree(ctx, id)
	if err != nil {
		return nil, s.mapDeadline(err, "tree "+id.Short())
	}

	return tree, nil
}

// ReadBlob applies the deadline to a blob read.
func (s *TimeoutStore) ReadBlob(ctx context.Context, id Hash) (*Blob, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	blob, err := s.inner.ReadBlob(ctx, id)
	if err != nil {
		return nil, s.mapDeadline(err, "blob "+id.Short())
	}

	return blob, nil
}

// Close closes the wrapped store when it holds external resources.
func (s *TimeoutStore) Close() {
	if closer, ok := s.inner.(Closer); ok {
		closer.Close()
	}
}

func (s *TimeoutStore) mapDeadline(err error, op string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s after %s", ErrStoreTimeout, op, s.timeout)
	}

	return err
}
