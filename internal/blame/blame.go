// Package blame tracks line provenance across a repository's history.
//
// The engine consumes commits in topological order and maintains, for every
// live branch of history, a map from file path to the ordered vector of
// commits that last touched each line. Branch states are shared between
// sibling commits copy-on-write, so forks cost one map clone and merges cost
// one map adoption. After the walk finishes, Snapshot resolves the surviving
// state of any head into per-file blame vectors.
package blame

import (
	"context"
	"errors"
	"fmt"

	"github.com/gitsleuth/gitsleuth/internal/diffcore"
	"github.com/gitsleuth/gitsleuth/pkg/gitobj"
)

// ErrUnreadableFile marks a file whose content could not be loaded or
// diffed. The engine records a diagnostic and drops the file from tracking
// instead of failing the run.
var ErrUnreadableFile = errors.New("blame: unreadable file")

// Diagnostic reasons attached by the engine itself. Tree-level exclusions
// pass through with the reason reported by the diff layer.
const (
	ReasonUnreadable = "unreadable"
	ReasonBinary     = "binary"
	ReasonOversize   = "oversize"
)

// Diagnostic records a file that was skipped without failing the run.
type Diagnostic struct {
	Path   string
	Reason string
	Detail string
}

// CommitOutcome reports what consuming one commit did to the tracked state.
// Insertions and Deletions stay zero for merge commits.
type CommitOutcome struct {
	Insertions  int
	Deletions   int
	Diagnostics []Diagnostic
}

// FileBlame is the resolved provenance of one file at a head: Owners[i] is
// the commit that last touched line i.
type FileBlame struct {
	Path   string
	Blob   gitobj.Hash
	Owners []gitobj.Hash
}

// Options tunes the engine.
type Options struct {
	// HibernationThreshold packs parked branch states once more than this
	// many are held in memory. Zero disables hibernation.
	HibernationThreshold int
}

// Engine incrementally blames a commit graph. It is not safe for concurrent
// use; the surrounding pipeline feeds it one commit at a time.
type Engine struct {
	store  gitobj.Store
	differ *diffcore.Engine
	opts   Options

	// Branch states keyed by the commit that produced them, with the number
	// of children that still need each state. A head keeps its state at
	// refcount zero so Snapshot can reach it after the walk.
	states map[gitobj.Hash]*branchState
	refs   map[gitobj.Hash]int

	// Commit ordinal interning. Owner vectors store uint32 ordinals; these
	// tables translate both ways.
	commitOf  []gitobj.Hash
	ordinalOf map[gitobj.Hash]uint32

	// Paths already diagnosed as untrackable, keyed by path with the blob
	// that triggered the diagnostic. Re-adding the same blob is skipped
	// silently; a different blob gets a fresh chance.
	excluded map[string]gitobj.Hash
}

// NewEngine builds an engine over the given store. The differ decides which
// files are excluded, how renames are matched, and how blob contents are
// split into edit scripts.
func NewEngine(store gitobj.Store, differ *diffcore.Engine, opts Options) *Engine {
	return &Engine{
		store:     store,
		differ:    differ,
		opts:      opts,
		states:    make(map[gitobj.Hash]*branchState),
		refs:      make(map[gitobj.Hash]int),
		ordinalOf: make(map[gitobj.Hash]uint32),
		excluded:  make(map[string]gitobj.Hash),
	}
}

// Consume blames one commit. Commits must arrive parents-first; children is
// the number of commits in the walk that list this one as a parent, which
// controls how long the resulting state is retained.
//
// Unreadable, binary, and oversize files are reported as diagnostics and
// dropped from tracking. Context cancellation and store timeouts abort the
// run.
func (e *Engine) Consume(ctx context.Context, commit *gitobj.Commit, children int) (*CommitOutcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ord := e.intern(commit.ID)

	newTree, err := e.store.ReadTree(ctx, commit.TreeID)
	if err != nil {
		return nil, fmt.Errorf("blame: tree of commit %s: %w", commit.ID.Short(), err)
	}

	var state *branchState
	if commit.IsRoot() {
		state = newBranchState()
	} else {
		state, err = e.acquireFirstParent(commit.Parents[0])
		if err != nil {
			return nil, err
		}
	}

	diff, err := e.differ.CompareTrees(ctx, state.asTree(), newTree)
	if err != nil {
		return nil, err
	}

	out := &CommitOutcome{}
	for _, ex := range diff.Excluded {
		out.Diagnostics = append(out.Diagnostics, Diagnostic{Path: ex.Path, Reason: string(ex.Reason)})
	}

	merge := commit.IsMerge()
	if err := e.applyChanges(ctx, state, diff.Changes, ord, merge, out); err != nil {
		return nil, err
	}

	if merge {
		if err := e.reclaimFromParents(ctx, state, commit, ord); err != nil {
			return nil, err
		}
	}

	e.states[commit.ID] = state
	e.refs[commit.ID] = children
	if err := e.maybeHibernate(commit.ID); err != nil {
		return nil, err
	}
	return out, nil
}

// Snapshot resolves the blame vectors of the state left behind by head.
// Results are sorted by path.
func (e *Engine) Snapshot(head gitobj.Hash) ([]FileBlame, error) {
	state, ok := e.states[head]
	if !ok {
		return nil, fmt.Errorf("blame: no state for commit %s", head.Short())
	}
	if err := state.wake(); err != nil {
		return nil, err
	}

	out := make([]FileBlame, 0, len(state.files))
	for path, fs := range state.files {
		owners := make([]gitobj.Hash, len(fs.owners))
		for i, o := range fs.owners {
			owners[i] = e.commitOf[o]
		}
		out = append(out, FileBlame{Path: path, Blob: fs.blob, Owners: owners})
	}
	sortFileBlames(out)
	return out, nil
}

// StateCount reports how many branch states are currently retained. Useful
// for observing hibernation pressure.
func (e *Engine) StateCount() int {
	return len(e.states)
}

// fatalReadError reports whether a blob read failure must abort the run
// rather than degrade into a per-file diagnostic.
func fatalReadError(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, gitobj.ErrStoreTimeout)
}
