package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gitsleuth/gitsleuth/internal/attribution"
	"github.com/gitsleuth/gitsleuth/internal/config"
	"github.com/gitsleuth/gitsleuth/pkg/gitobj"
)

var testTime = time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC)

// testRepo seeds a two-commit, two-author history:
//
//	c1 (Ada): x.py with 3 code lines, docs/guide.md with 1 line
//	c2 (Bob): appends 2 comment lines to x.py
//
// Surviving lines at HEAD: Python {code:3 comment:2}, Markdown {code:1}.
type testRepo struct {
	store *gitobj.MemStore
	c1    gitobj.Hash
	c2    gitobj.Hash
}

func seedRepo(t *testing.T) *testRepo {
	t.Helper()

	store := gitobj.NewMemStore()

	ada := gitobj.Signature{Name: "Ada", Email: "ada@example.com", When: testTime}
	bob := gitobj.Signature{Name: "Bob", Email: "bob@example.com", When: testTime.Add(time.Hour)}

	base := store.PutTree(map[string]gitobj.Hash{
		"x.py":          store.PutBlob([]byte("a = 1\nb = 2\nc = 3\n")),
		"docs/guide.md": store.PutBlob([]byte("# guide\n")),
	})
	c1 := store.PutCommit(gitobj.Commit{TreeID: base, Author: ada, Message: "initial"})

	next := store.PutTree(map[string]gitobj.Hash{
		"x.py":          store.PutBlob([]byte("a = 1\nb = 2\nc = 3\n# note\n# more\n")),
		"docs/guide.md": store.PutBlob([]byte("# guide\n")),
	})
	c2 := store.PutCommit(gitobj.Commit{TreeID: next, Parents: []gitobj.Hash{c1}, Author: bob, Message: "comments"})

	store.SetRef("HEAD", c2)

	return &testRepo{store: store, c1: c1, c2: c2}
}

// memEngines substitutes the git-backed engine source with the seeded store.
func (r *testRepo) memEngines() engineSource {
	return func(_ string, _ *config.Config, opts attribution.Options) (*attribution.Engine, func(), error) {
		return attribution.NewEngine(r.store, opts), func() {}, nil
	}
}

func TestContributorsCommand(t *testing.T) {
	t.Parallel()

	repo := seedRepo(t)

	command := newContributorsCommand(repo.memEngines())

	var out bytes.Buffer

	command.SetOut(&out)
	command.SetArgs([]string{"."})

	require.NoError(t, command.Execute())

	got := out.String()
	require.Contains(t, got, "CONTRIBUTOR")
	require.Contains(t, got, "Ada")
	require.Contains(t, got, "Bob")
	require.Contains(t, got, "66.7%")
	require.Contains(t, got, "33.3%")

	// Ranked by surviving lines: Ada (4) before Bob (2).
	require.Less(t, strings.Index(got, "Ada"), strings.Index(got, "Bob"))
}

func TestChurnCommand(t *testing.T) {
	t.Parallel()

	repo := seedRepo(t)

	command := newChurnCommand(repo.memEngines())

	var out bytes.Buffer

	command.SetOut(&out)
	command.SetArgs([]string{"."})

	require.NoError(t, command.Execute())

	got := out.String()
	require.Contains(t, got, "INSERTIONS")
	require.Contains(t, got, "DELETIONS")
	require.Contains(t, got, "Ada")
	require.Contains(t, got, "Bob")
	require.Contains(t, got, "TOTAL")
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	command := NewVersionCommand()

	var out bytes.Buffer

	command.SetOut(&out)
	command.SetArgs(nil)

	require.NoError(t, command.Execute())
	require.Contains(t, out.String(), "gitsleuth dev")
	require.Contains(t, out.String(), "commit: none")
}
