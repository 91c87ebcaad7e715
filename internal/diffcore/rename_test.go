package diffcore_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitsleuth/gitsleuth/internal/diffcore"
	"github.com/gitsleuth/gitsleuth/pkg/gitobj"
)

// numberedLines fabricates distinct line content for similarity scoring.
func numberedLines(prefix string, from, to int) string {
	var b strings.Builder

	for i := from; i <= to; i++ {
		fmt.Fprintf(&b, "%s line %d\n", prefix, i)
	}

	return b.String()
}

func findChange(t *testing.T, changes []diffcore.Change, kind diffcore.ChangeKind, path string) diffcore.Change {
	t.Helper()

	for _, c := range changes {
		if c.Kind == kind && c.Path() == path {
			return c
		}
	}

	t.Fatalf("no %v change for %q in %+v", kind, path, changes)

	return diffcore.Change{}
}

func TestCompareTrees_ExactBlobRename(t *testing.T) {
	t.Parallel()

	f := newTreeFixture(t)
	blob := f.blob("def main():\n    pass\n")
	oldTree := f.tree(map[string]gitobj.Hash{"a.py": blob})
	newTree := f.tree(map[string]gitobj.Hash{"b.py": blob})

	diff, err := f.engine(diffcore.Options{}).CompareTrees(context.Background(), oldTree, newTree)
	require.NoError(t, err)

	require.Len(t, diff.Changes, 1)
	c := diff.Changes[0]
	assert.Equal(t, diffcore.ChangeRename, c.Kind)
	assert.Equal(t, "a.py", c.FromPath)
	assert.Equal(t, "b.py", c.ToPath)
	assert.Equal(t, blob, c.FromBlob)
	assert.Equal(t, blob, c.ToBlob)
	assert.Equal(t, 100, c.Similarity)
}

func TestCompareTrees_ExactRenamePrefersClosestPath(t *testing.T) {
	t.Parallel()

	f := newTreeFixture(t)
	blob := f.blob("shared content\n")
	oldTree := f.tree(map[string]gitobj.Hash{
		"pkg/util.go":   blob,
		"other/util.go": blob,
	})
	newTree := f.tree(map[string]gitobj.Hash{"pkg/utils.go": blob})

	diff, err := f.engine(diffcore.Options{}).CompareTrees(context.Background(), oldTree, newTree)
	require.NoError(t, err)

	rename := findChange(t, diff.Changes, diffcore.ChangeRename, "pkg/utils.go")
	assert.Equal(t, "pkg/util.go", rename.FromPath)

	leftover := findChange(t, diff.Changes, diffcore.ChangeDelete, "other/util.go")
	assert.Equal(t, blob, leftover.FromBlob)
}

func TestCompareTrees_SimilarContentLinksAsRename(t *testing.T) {
	t.Parallel()

	f := newTreeFixture(t)
	oldBlob := f.blob(numberedLines("keep", 1, 10))
	newBlob := f.blob(numberedLines("keep", 1, 8) + numberedLines("fresh", 1, 2))
	oldTree := f.tree(map[string]gitobj.Hash{"old/name.txt": oldBlob})
	newTree := f.tree(map[string]gitobj.Hash{"new/name.txt": newBlob})

	diff, err := f.engine(diffcore.Options{}).CompareTrees(context.Background(), oldTree, newTree)
	require.NoError(t, err)

	require.Len(t, diff.Changes, 1)
	c := diff.Changes[0]
	assert.Equal(t, diffcore.ChangeRename, c.Kind)
	assert.Equal(t, "old/name.txt", c.FromPath)
	assert.Equal(t, "new/name.txt", c.ToPath)
	assert.Equal(t, 80, c.Similarity)
}

func TestCompareTrees_BelowThresholdStaysUnrelated(t *testing.T) {
	t.Parallel()

	f := newTreeFixture(t)
	oldTree := f.tree(map[string]gitobj.Hash{"gone.txt": f.blob(numberedLines("alpha", 1, 10))})
	newTree := f.tree(map[string]gitobj.Hash{"new.txt": f.blob(numberedLines("beta", 1, 10))})

	diff, err := f.engine(diffcore.Options{}).CompareTrees(context.Background(), oldTree, newTree)
	require.NoError(t, err)

	require.Len(t, diff.Changes, 2)
	findChange(t, diff.Changes, diffcore.ChangeDelete, "gone.txt")
	findChange(t, diff.Changes, diffcore.ChangeAdd, "new.txt")
}

func TestCompareTrees_MostSimilarCandidateWins(t *testing.T) {
	t.Parallel()

	f := newTreeFixture(t)
	oldBlob := f.blob(numberedLines("base", 1, 10))
	closeBlob := f.blob(numberedLines("base", 1, 9) + "tail\n")
	farBlob := f.blob(numberedLines("base", 1, 6) + numberedLines("novel", 1, 4))

	oldTree := f.tree(map[string]gitobj.Hash{"origin.txt": oldBlob})
	newTree := f.tree(map[string]gitobj.Hash{
		"close.txt": closeBlob,
		"far.txt":   farBlob,
	})

	diff, err := f.engine(diffcore.Options{}).CompareTrees(context.Background(), oldTree, newTree)
	require.NoError(t, err)

	rename := findChange(t, diff.Changes, diffcore.ChangeRename, "close.txt")
	assert.Equal(t, "origin.txt", rename.FromPath)
	assert.Equal(t, 90, rename.Similarity)

	findChange(t, diff.Changes, diffcore.ChangeAdd, "far.txt")
}

func TestCompareTrees_DisableRenames(t *testing.T) {
	t.Parallel()

	f := newTreeFixture(t)
	blob := f.blob("identical\n")
	oldTree := f.tree(map[string]gitobj.Hash{"a.txt": blob})
	newTree := f.tree(map[string]gitobj.Hash{"b.txt": blob})

	e := f.engine(diffcore.Options{DisableRenames: true})

	diff, err := e.CompareTrees(context.Background(), oldTree, newTree)
	require.NoError(t, err)

	require.Len(t, diff.Changes, 2)
	findChange(t, diff.Changes, diffcore.ChangeAdd, "b.txt")
	findChange(t, diff.Changes, diffcore.ChangeDelete, "a.txt")
}

func TestCompareTrees_BinaryCandidatesNeverLinkByContent(t *testing.T) {
	t.Parallel()

	f := newTreeFixture(t)
	oldTree := f.tree(map[string]gitobj.Hash{"img_old.png": f.blob("PNG\x00AAAA")})
	newTree := f.tree(map[string]gitobj.Hash{"img_new.png": f.blob("PNG\x00AAAB")})

	diff, err := f.engine(diffcore.Options{}).CompareTrees(context.Background(), oldTree, newTree)
	require.NoError(t, err)

	require.Len(t, diff.Changes, 2)
	findChange(t, diff.Changes, diffcore.ChangeAdd, "img_new.png")
	findChange(t, diff.Changes, diffcore.ChangeDelete, "img_old.png")
}
