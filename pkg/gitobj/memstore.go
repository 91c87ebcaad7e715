package gitobj

import (
	"context"
	"crypto/sha1" //nolint:gosec // Git object ids are SHA-1 by format, not for security.
	"fmt"
	"hash"
	"sort"
	"strconv"
	"sync"
)

func newObjectHash() hash.Hash {
	return sha1.New() //nolint:gosec // Git object ids are SHA-1 by format.
}

// MemStore is an in-memory Store for tests and synthetic histories. Objects
// are content-addressed with the same SHA-1 scheme git uses for blobs; trees
// and commits hash a canonical encoding of their fields.
//
// Put methods are safe for concurrent use; returned objects are shared and
// must be treated as immutable.
type MemStore struct {
	mu      sync.RWMutex
	refs    map[string]Hash
	commits map[Hash]*Commit
	trees   map[Hash]*Tree
	blobs   map[Hash]*Blob
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		refs:    make(map[string]Hash),
		commits: make(map[Hash]*Commit),
		trees:   make(map[Hash]*Tree),
		blobs:   make(map[Hash]*Blob),
	}
}

// PutBlob stores data and returns its id (git blob hashing: idempotent for
// identical content).
func (s *MemStore) PutBlob(data []byte) Hash {
	h := newObjectHash()
	fmt.Fprintf(h, "blob %d", len(data))
	h.Write([]byte{0})
	h.Write(data)

	var id Hash
	copy(id[:], h.Sum(nil))

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blobs[id]; !ok {
		stored := make([]byte, len(data))
		copy(stored, data)
		s.blobs[id] = &Blob{ID: id, Data: stored}
	}

	return id
}

// PutTree stores a flattened path -> blob mapping and returns its id.
func (s *MemStore) PutTree(entries map[string]Hash) Hash {
	paths := make([]string, 0, len(entries))
	for p := range entries {
		paths = append(paths, p)
	}

	sort.Strings(paths)

	h := newObjectHash()
	h.Write([]byte("tree"))
	h.Write([]byte{0})

	for _, p := range paths {
		blobID := entries[p]
		h.Write([]byte(p))
		h.Write([]byte{0})
		h.Write(blobID[:])
	}

	var id Hash
	copy(id[:], h.Sum(nil))

	copied := make(map[string]Hash, len(entries))
	for p, b := range entries {
		copied[p] = b
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.trees[id]; !ok {
		s.trees[id] = &Tree{ID: id, Entries: copied}
	}

	return id
}

// PutCommit stores commit metadata and returns its id. The Committer defaults
// to the Author when left zero.
func (s *MemStore) PutCommit(c Commit) Hash {
	if c.Committer == (Signature{}) {
		c.Committer = c.Author
	}

	h := newObjectHash()
	h.Write([]byte("commit"))
	h.Write([]byte{0})
	h.Write(c.TreeID[:])

	for _, p := range c.Parents {
		h.Write(p[:])
	}

	h.Write([]byte(c.Author.Name))
	h.Write([]byte{0})
	h.Write([]byte(c.Author.Email))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(c.Author.When.Unix(), 10)))
	h.Write([]byte{0})
	h.Write([]byte(c.Message))

	copy(c.ID[:], h.Sum(nil))

	parents := make([]Hash, len(c.Parents))
	copy(parents, c.Parents)
	c.Parents = parents

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := c
	s.commits[c.ID] = &stored

	return c.ID
}

// SetRef points a reference name at a commit.
func (s *MemStore) SetRef(name string, id Hash) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.refs[name] = id
}

// ResolveRef resolves a reference name or full hex hash.
func (s *MemStore) ResolveRef(_ context.Context, name string) (Hash, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id, ok := s.refs[name]; ok {
		return id, nil
	}

	if len(name) == HashHexSize {
		if id, err := ParseHash(name); err == nil {
			if _, ok := s.commits[id]; ok {
				return id, nil
			}
		}
	}

	return Hash{}, fmt.Errorf("%w: ref %q", ErrNotFound, name)
}

// ReadCommit returns the commit with the given id.
func (s *MemStore) ReadCommit(_ context.Context, id Hash) (*Commit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.commits[id]
	if !ok {
		return nil, fmt.Errorf("%w: commit %s", ErrObject, id.Short())
	}

	return c, nil
}

// ReadTree returns the tree with the given id.
func (s *MemStore) ReadTree(_ context.Context, id Hash) (*Tree, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.trees[id]
	if !ok {
		return nil, fmt.Errorf("%w: tree %s", ErrObject, id.Short())
	}

	return t, nil
}

// ReadBlob returns the blob with the given id.
func (s *MemStore) ReadBlob(_ context.Context, id Hash) (*Blob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.blobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: blob %s", ErrObject, id.Short())
	}

	return b, nil
}

// DropObject removes an object of any kind, for corrupt-store test scenarios.
func (s *MemStore) DropObject(id Hash) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.commits, id)
	delete(s.trees, id)
	delete(s.blobs, id)
}
