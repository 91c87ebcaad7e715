package gitobj_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitsleuth/gitsleuth/pkg/gitobj"
)

func testSignature(name string) gitobj.Signature {
	return gitobj.Signature{
		Name:  name,
		Email: name + "@example.com",
		When:  time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestMemStore_BlobRoundtrip(t *testing.T) {
	t.Parallel()

	store := gitobj.NewMemStore()
	ctx := t.Context()

	id := store.PutBlob([]byte("package main\n"))
	require.False(t, id.IsZero())

	// Identical content hashes identically.
	assert.Equal(t, id, store.PutBlob([]byte("package main\n")))
	assert.NotEqual(t, id, store.PutBlob([]byte("package other\n")))

	blob, err := store.ReadBlob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "package main\n", string(blob.Data))
	assert.Equal(t, id, blob.ID)
}

func TestMemStore_CommitTreeRoundtrip(t *testing.T) {
	t.Parallel()

	store := gitobj.NewMemStore()
	ctx := t.Context()

	blobID := store.PutBlob([]byte("x = 1\n"))
	treeID := store.PutTree(map[string]gitobj.Hash{"main.py": blobID})

	commitID := store.PutCommit(gitobj.Commit{
		Author:  testSignature("alice"),
		Message: "initial",
		TreeID:  treeID,
	})

	commit, err := store.ReadCommit(ctx, commitID)
	require.NoError(t, err)
	assert.Equal(t, treeID, commit.TreeID)
	assert.Equal(t, "alice", commit.Author.Name)
	assert.Equal(t, commit.Author, commit.Committer)
	assert.True(t, commit.IsRoot())

	tree, err := store.ReadTree(ctx, treeID)
	require.NoError(t, err)
	assert.Equal(t, map[string]gitobj.Hash{"main.py": blobID}, tree.Entries)
}

func TestMemStore_ResolveRef(t *testing.T) {
	t.Parallel()

	store := gitobj.NewMemStore()
	ctx := t.Context()

	treeID := store.PutTree(nil)
	commitID := store.PutCommit(gitobj.Commit{Author: testSignature("a"), TreeID: treeID})
	store.SetRef("HEAD", commitID)
	store.SetRef("main", commitID)

	for _, name := range []string{"HEAD", "main", commitID.String()} {
		got, err := store.ResolveRef(ctx, name)
		require.NoError(t, err, name)
		assert.Equal(t, commitID, got)
	}

	_, err := store.ResolveRef(ctx, "missing-branch")
	require.ErrorIs(t, err, gitobj.ErrNotFound)
}

func TestMemStore_MissingObjects(t *testing.T) {
	t.Parallel()

	store := gitobj.NewMemStore()
	ctx := t.Context()

	var unknown gitobj.Hash
	unknown[0] = 0xaa

	_, err := store.ReadCommit(ctx, unknown)
	require.ErrorIs(t, err, gitobj.ErrObject)

	_, err = store.ReadTree(ctx, unknown)
	require.ErrorIs(t, err, gitobj.ErrObject)

	_, err = store.ReadBlob(ctx, unknown)
	require.ErrorIs(t, err, gitobj.ErrObject)
}

func TestMemStore_DropObject(t *testing.T) {
	t.Parallel()

	store := gitobj.NewMemStore()
	ctx := t.Context()

	id := store.PutBlob([]byte("transient\n"))
	store.DropObject(id)

	_, err := store.ReadBlob(ctx, id)
	require.ErrorIs(t, err, gitobj.ErrObject)
}
