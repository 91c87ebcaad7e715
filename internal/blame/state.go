package blame

import (
	"fmt"
	"sort"

	"github.com/gitsleuth/gitsleuth/pkg/gitobj"
	"github.com/gitsleuth/gitsleuth/pkg/safeconv"
)

// fileState is the provenance of one tracked file: its blob and the commit
// ordinal that owns each line. A fileState is immutable once published to a
// branch state, which lets sibling branches share it by pointer.
type fileState struct {
	blob   gitobj.Hash
	owners []uint32
}

// branchState is the tracked tree of one line of history. The files map is
// private to exactly one commit's processing at a time; fileState values
// inside it may be shared with sibling states.
type branchState struct {
	files map[string]*fileState

	// packed holds the hibernated form while files is nil.
	packed *packedState
}

func newBranchState() *branchState {
	return &branchState{files: make(map[string]*fileState)}
}

// clone shallow-copies the path map. File states are shared; any later
// modification replaces the map entry with a fresh fileState.
func (s *branchState) clone() *branchState {
	files := make(map[string]*fileState, len(s.files))
	for path, fs := range s.files {
		files[path] = fs
	}
	return &branchState{files: files}
}

// asTree presents the tracked files as a tree snapshot for the diff layer.
// Files that were excluded from tracking are absent, so they resurface as
// additions in every later commit and are re-skipped via the exclusion
// table.
func (s *branchState) asTree() *gitobj.Tree {
	entries := make(map[string]gitobj.Hash, len(s.files))
	for path, fs := range s.files {
		entries[path] = fs.blob
	}
	return &gitobj.Tree{Entries: entries}
}

// acquireFirstParent hands the parent's state to a child. The last child
// adopts the map in place; earlier children get a clone.
func (e *Engine) acquireFirstParent(id gitobj.Hash) (*branchState, error) {
	state, ok := e.states[id]
	if !ok {
		return nil, fmt.Errorf("blame: missing state for parent %s", id.Short())
	}
	if err := state.wake(); err != nil {
		return nil, err
	}
	e.refs[id]--
	if e.refs[id] <= 0 {
		delete(e.states, id)
		delete(e.refs, id)
		return state, nil
	}
	return state.clone(), nil
}

// releaseParent drops one reference from a merge's later parent, discarding
// the state once no child needs it.
func (e *Engine) releaseParent(id gitobj.Hash) {
	if _, ok := e.refs[id]; !ok {
		return
	}
	e.refs[id]--
	if e.refs[id] <= 0 {
		delete(e.states, id)
		delete(e.refs, id)
	}
}

// intern maps a commit hash to a stable uint32 ordinal for use in owner
// vectors.
func (e *Engine) intern(id gitobj.Hash) uint32 {
	if ord, ok := e.ordinalOf[id]; ok {
		return ord
	}
	ord := safeconv.MustIntToUint32(len(e.commitOf))
	e.ordinalOf[id] = ord
	e.commitOf = append(e.commitOf, id)
	return ord
}

func sortFileBlames(files []FileBlame) {
	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})
}
