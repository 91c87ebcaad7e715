package diffcore_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitsleuth/gitsleuth/internal/diffcore"
	"github.com/gitsleuth/gitsleuth/pkg/gitobj"
)

// opTotals sums script lines per kind and checks both sides reconcile.
func opTotals(t *testing.T, d *diffcore.FileDiff) (equal, insert, del int) {
	t.Helper()

	for _, op := range d.Ops {
		switch op.Kind {
		case diffcore.EditEqual:
			equal += op.Lines
		case diffcore.EditInsert:
			insert += op.Lines
		case diffcore.EditDelete:
			del += op.Lines
		}
	}

	assert.Equal(t, d.OldLines, equal+del, "old side must be fully consumed")
	assert.Equal(t, d.NewLines, equal+insert, "new side must be fully produced")

	return equal, insert, del
}

func TestDiffContents_SingleLineReplacement(t *testing.T) {
	t.Parallel()

	e := diffcore.NewEngine(gitobj.NewMemStore(), diffcore.Options{})

	d := e.DiffContents([]byte("a\nb\nc\n"), []byte("a\nx\nc\n"))

	assert.Equal(t, 3, d.OldLines)
	assert.Equal(t, 3, d.NewLines)

	equal, insert, del := opTotals(t, d)
	assert.Equal(t, 2, equal)
	assert.Equal(t, 1, insert)
	assert.Equal(t, 1, del)
}

func TestDiffContents_AppendOnly(t *testing.T) {
	t.Parallel()

	e := diffcore.NewEngine(gitobj.NewMemStore(), diffcore.Options{})

	d := e.DiffContents([]byte("a\n"), []byte("a\nb\nc\n"))

	_, insert, del := opTotals(t, d)
	assert.Equal(t, 2, insert)
	assert.Zero(t, del)
}

func TestDiffContents_EmptyOldIsPureInsert(t *testing.T) {
	t.Parallel()

	e := diffcore.NewEngine(gitobj.NewMemStore(), diffcore.Options{})

	d := e.DiffContents(nil, []byte("a\nb\n"))

	assert.Zero(t, d.OldLines)
	assert.Equal(t, 2, d.NewLines)

	equal, insert, del := opTotals(t, d)
	assert.Zero(t, equal)
	assert.Equal(t, 2, insert)
	assert.Zero(t, del)
}

func TestDiffContents_IdenticalIsSingleEqualRun(t *testing.T) {
	t.Parallel()

	e := diffcore.NewEngine(gitobj.NewMemStore(), diffcore.Options{})

	d := e.DiffContents([]byte("a\nb"), []byte("a\nb"))

	require.Len(t, d.Ops, 1)
	assert.Equal(t, diffcore.EditEqual, d.Ops[0].Kind)
	assert.Equal(t, 2, d.Ops[0].Lines)
}

func TestDiffContents_IgnoreWhitespace(t *testing.T) {
	t.Parallel()

	e := diffcore.NewEngine(gitobj.NewMemStore(), diffcore.Options{IgnoreWhitespace: true})

	d := e.DiffContents([]byte("a b\n"), []byte("a   b\n"))

	_, insert, del := opTotals(t, d)
	assert.Zero(t, insert)
	assert.Zero(t, del)
}

func TestDiffBlobs_ZeroFromHashMeansEmptyFile(t *testing.T) {
	t.Parallel()

	store := gitobj.NewMemStore()
	blobID := store.PutBlob([]byte("x\ny\n"))
	e := diffcore.NewEngine(store, diffcore.Options{})

	d, err := e.DiffBlobs(context.Background(), gitobj.Hash{}, blobID)
	require.NoError(t, err)

	assert.Zero(t, d.OldLines)
	assert.Equal(t, 2, d.NewLines)

	_, insert, del := opTotals(t, d)
	assert.Equal(t, 2, insert)
	assert.Zero(t, del)
}

func TestDiffBlobs_ZeroToHashMeansDeletion(t *testing.T) {
	t.Parallel()

	store := gitobj.NewMemStore()
	blobID := store.PutBlob([]byte("x\ny\n"))
	e := diffcore.NewEngine(store, diffcore.Options{})

	d, err := e.DiffBlobs(context.Background(), blobID, gitobj.Hash{})
	require.NoError(t, err)

	_, insert, del := opTotals(t, d)
	assert.Zero(t, insert)
	assert.Equal(t, 2, del)
}

func TestDiffBlobs_BinaryFlaggedNotDiffed(t *testing.T) {
	t.Parallel()

	store := gitobj.NewMemStore()
	textID := store.PutBlob([]byte("text\n"))
	binaryID := store.PutBlob([]byte("ELF\x00\x01\x02"))
	e := diffcore.NewEngine(store, diffcore.Options{})

	d, err := e.DiffBlobs(context.Background(), textID, binaryID)
	require.NoError(t, err)

	assert.True(t, d.Binary)
	assert.Empty(t, d.Ops)
}

func TestDiffBlobs_OversizeFlaggedNotDiffed(t *testing.T) {
	t.Parallel()

	store := gitobj.NewMemStore()
	bigID := store.PutBlob(bytes.Repeat([]byte("line\n"), 100))
	e := diffcore.NewEngine(store, diffcore.Options{MaxFileSize: 64})

	d, err := e.DiffBlobs(context.Background(), gitobj.Hash{}, bigID)
	require.NoError(t, err)

	assert.True(t, d.Oversize)
	assert.Empty(t, d.Ops)
}

func TestDiffBlobs_MissingBlobSurfacesObjectError(t *testing.T) {
	t.Parallel()

	store := gitobj.NewMemStore()
	e := diffcore.NewEngine(store, diffcore.Options{})

	var missing gitobj.Hash
	missing[0] = 0xab

	_, err := e.DiffBlobs(context.Background(), missing, gitobj.Hash{})
	require.ErrorIs(t, err, gitobj.ErrObject)
}
