package gitobj

import (
	"context"
	"fmt"
	"runtime"

	git2go "github.com/libgit2/git2go/v34"
)

// GitStore reads objects from an on-disk git repository through libgit2.
//
// libgit2 repository handles are not safe for concurrent object lookups, so
// the store keeps a pool of handles sized for the expected worker count and
// checks one out per call.
type GitStore struct {
	path    string
	handles chan *git2go.Repository
	size    int
}

// OpenGitStore opens the repository at path with a handle pool of the given
// size. A size of zero or less defaults to the number of CPUs.
func OpenGitStore(path string, poolSize int) (*GitStore, error) {
	if poolSize <= 0 {
		poolSize = runtime.NumCPU()
	}

	handles := make(chan *git2go.Repository, poolSize)

	for range poolSize {
		repo, err := git2go.OpenRepository(path)
		if err != nil {
			drainHandles(handles)

			return nil, fmt.Errorf("%w: open repository %s: %v", ErrObject, path, err)
		}

		handles <- repo
	}

	return &GitStore{path: path, handles: handles, size: poolSize}, nil
}

// Path returns the repository path.
func (s *GitStore) Path() string {
	return s.path
}

// Close frees all pooled repository handles. The store must not be used
// afterwards.
func (s *GitStore) Close() {
	for range s.size {
		repo := <-s.handles
		repo.Free()
	}
}

// ResolveRef resolves branch and tag names, "HEAD", and full hex hashes to
// the commit they identify. Annotated tags peel to their target commit.
func (s *GitStore) ResolveRef(ctx context.Context, name string) (Hash, error) {
	repo, err := s.acquire(ctx)
	if err != nil {
		return Hash{}, err
	}
	defer s.release(repo)

	if name == "HEAD" || name == "" {
		return headTarget(repo)
	}

	ref, dwimErr := repo.References.Dwim(name)
	if dwimErr == nil {
		defer ref.Free()

		return peelToCommit(ref)
	}

	// Fall back to a raw hash spelled out in full.
	if len(name) == HashHexSize {
		id, parseErr := ParseHash(name)
		if parseErr == nil {
			commit, lookupErr := repo.LookupCommit(oidOf(id))
			if lookupErr == nil {
				commit.Free()

				return id, nil
			}
		}
	}

	return Hash{}, fmt.Errorf("%w: ref %q", ErrNotFound, name)
}

// ReadCommit returns the commit with the given id, copied out of libgit2
// memory so the result is safe to share across goroutines.
func (s *GitStore) ReadCommit(ctx context.Context, id Hash) (*Commit, error) {
	repo, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer s.release(repo)

	commit, lookupErr := repo.LookupCommit(oidOf(id))
	if lookupErr != nil {
		return nil, fmt.Errorf("%w: commit %s: %v", ErrObject, id.Short(), lookupErr)
	}
	defer commit.Free()

	parents := make([]Hash, commit.ParentCount())
	for i := range parents {
		parents[i] = hashOf(commit.ParentId(uint(i)))
	}

	return &Commit{
		ID:        id,
		Parents:   parents,
		Author:    signatureOf(commit.Author()),
		Committer: signatureOf(commit.Committer()),
		Message:   commit.Message(),
		TreeID:    hashOf(commit.TreeId()),
	}, nil
}

// ReadTree returns the tree with the given id, flattened over all nested
// subtrees to a path -> blob mapping. Submodule entries are skipped.
func (s *GitStore) ReadTree(ctx context.Context, id Hash) (*Tree, error) {
	repo, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer s.release(repo)

	entries := make(map[string]Hash)

	walkErr := flattenTree(repo, id, "", entries)
	if walkErr != nil {
		return nil, walkErr
	}

	return &Tree{ID: id, Entries: entries}, nil
}

// ReadBlob returns the blob with the given id. Contents are copied out of
// libgit2 memory.
func (s *GitStore) ReadBlob(ctx context.Context, id Hash) (*Blob, error) {
	repo, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer s.release(repo)

	blob, lookupErr := repo.LookupBlob(oidOf(id))
	if lookupErr != nil {
		return nil, fmt.Errorf("%w: blob %s: %v", ErrObject, id.Short(), lookupErr)
	}
	defer blob.Free()

	return &Blob{ID: id, Data: blob.Contents()}, nil
}

func (s *GitStore) acquire(ctx context.Context) (*git2go.Repository, error) {
	select {
	case repo := <-s.handles:
		return repo, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("acquire repository handle: %w", ctx.Err())
	}
}

func (s *GitStore) release(repo *git2go.Repository) {
	s.handles <- repo
}

func drainHandles(handles chan *git2go.Repository) {
	for {
		select {
		case repo := <-handles:
			repo.Free()
		default:
			return
		}
	}
}

func headTarget(repo *git2go.Repository) (Hash, error) {
	ref, err := repo.Head()
	if err != nil {
		return Hash{}, fmt.Errorf("%w: HEAD: %v", ErrNotFound, err)
	}
	defer ref.Free()

	return peelToCommit(ref)
}

func peelToCommit(ref *git2go.Reference) (Hash, error) {
	obj, err := ref.Peel(git2go.ObjectCommit)
	if err != nil {
		return Hash{}, fmt.Errorf("%w: peel %s: %v", ErrNotFound, ref.Name(), err)
	}
	defer obj.Free()

	return hashOf(obj.Id()), nil
}

func flattenTree(repo *git2go.Repository, id Hash, prefix string, entries map[string]Hash) error {
	tree, err := repo.LookupTree(oidOf(id))
	if err != nil {
		return fmt.Errorf("%w: tree %s: %v", ErrObject, id.Short(), err)
	}
	defer tree.Free()

	for i := range tree.EntryCount() {
		entry := tree.EntryByIndex(i)
		if entry == nil {
			continue
		}

		path := entry.Name
		if prefix != "" {
			path = prefix + "/" + path
		}

		switch entry.Type {
		case git2go.ObjectBlob:
			entries[path] = hashOf(entry.Id)
		case git2go.ObjectTree:
			if subErr := flattenTree(repo, hashOf(entry.Id), path, entries); subErr != nil {
				return subErr
			}
		default:
			// Submodule (commit) entries carry no blob content.
		}
	}

	return nil
}

func signatureOf(sig *git2go.Signature) Signature {
	if sig == nil {
		return Signature{}
	}

	return Signature{Name: sig.Name, Email: sig.Email, When: sig.When}
}

func hashOf(oid *git2go.Oid) Hash {
	var h Hash
	if oid != nil {
		copy(h[:], oid[:])
	}

	return h
}

func oidOf(h Hash) *git2go.Oid {
	oid := new(git2go.Oid)
	copy(oid[:], h[:])

	return oid
}
