// Package history traverses the commit DAG of a repository in deterministic
// topological order, parents before children.
package history

import (
	"bytes"
	"container/heap"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/gitsleuth/gitsleuth/pkg/gitobj"
)

// ErrCorruptHistory is returned when the commit graph is structurally broken:
// a parent reference that cannot be resolved, or a cycle (impossible in a
// well-formed content-addressed store).
var ErrCorruptHistory = errors.New("history: corrupt history")

// Walker produces reverse topological walks over a commit graph.
type Walker struct {
	store gitobj.Store
}

// NewWalker creates a Walker reading from the given store.
func NewWalker(store gitobj.Store) *Walker {
	return &Walker{store: store}
}

// Walk loads the ancestry of the given heads and returns an iterator visiting
// every reachable commit exactly once, every parent before every child.
// Ties among commits with no dependency relation break by author timestamp,
// then by id, so the order is reproducible across runs.
//
// Commit metadata for the reachable set is read upfront (parents and
// timestamps are needed to schedule the order); trees and blobs remain lazy.
// The iterator is not restartable.
func (w *Walker) Walk(ctx context.Context, heads ...gitobj.Hash) (*CommitIter, error) {
	graph, err := w.load(ctx, heads)
	if err != nil {
		return nil, err
	}

	ready := make(commitHeap, 0)

	for _, commit := range graph.commits {
		if len(commit.Parents) == 0 {
			ready = append(ready, commit)
		}
	}

	heap.Init(&ready)

	return &CommitIter{
		ctx:   ctx,
		graph: graph,
		ready: ready,
	}, nil
}

// walkGraph holds the loaded commit metadata and scheduling state.
type walkGraph struct {
	commits  map[gitobj.Hash]*gitobj.Commit
	children map[gitobj.Hash][]gitobj.Hash
	pending  map[gitobj.Hash]int // Unemitted parents per commit.
	emitted  int
}

func (w *Walker) load(ctx context.Context, heads []gitobj.Hash) (*walkGraph, error) {
	graph := &walkGraph{
		commits:  make(map[gitobj.Hash]*gitobj.Commit),
		children: make(map[gitobj.Hash][]gitobj.Hash),
		pending:  make(map[gitobj.Hash]int),
	}

	queue := make([]gitobj.Hash, 0, len(heads))

	for _, head := range heads {
		if _, ok := graph.commits[head]; ok {
			continue
		}

		commit, err := w.store.ReadCommit(ctx, head)
		if err != nil {
			return nil, fmt.Errorf("%w: head %s: %v", ErrCorruptHistory, head.Short(), err)
		}

		graph.commits[head] = commit
		queue = append(queue, head)
	}

	for len(queue) > 0 {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		id := queue[0]
		queue = queue[1:]
		commit := graph.commits[id]
		graph.pending[id] = len(commit.Parents)

		for _, parentID := range commit.Parents {
			graph.children[parentID] = append(graph.children[parentID], id)

			if _, ok := graph.commits[parentID]; ok {
				continue
			}

			parent, err := w.store.ReadCommit(ctx, parentID)
			if err != nil {
				return nil, fmt.Errorf("%w: commit %s references unresolvable parent %s: %v",
					ErrCorruptHistory, id.Short(), parentID.Short(), err)
			}

			graph.commits[parentID] = parent
			queue = append(queue, parentID)
		}
	}

	return graph, nil
}

// CommitIter is a lazy, single-use iterator over a topological walk.
type CommitIter struct {
	ctx   context.Context
	graph *walkGraph
	ready commitHeap
}

// Total returns the number of commits the walk will visit.
func (it *CommitIter) Total() int {
	return len(it.graph.commits)
}

// ChildCount returns how many children a commit has within the walked set.
// Consumers tracking per-commit state use it to know when a state becomes
// unreachable.
func (it *CommitIter) ChildCount(id gitobj.Hash) int {
	return len(it.graph.children[id])
}

// Next returns the next commit in the walk, or io.EOF when the walk is
// complete. A context cancellation surfaces as the context's error.
func (it *CommitIter) Next() (*gitobj.Commit, error) {
	if err := it.ctx.Err(); err != nil {
		return nil, err
	}

	if it.ready.Len() == 0 {
		if it.graph.emitted != len(it.graph.commits) {
			return nil, fmt.Errorf("%w: %d of %d commits unreachable from roots (cycle)",
				ErrCorruptHistory, len(it.graph.commits)-it.graph.emitted, len(it.graph.commits))
		}

		return nil, io.EOF
	}

	commit := heap.Pop(&it.ready).(*gitobj.Commit)
	it.graph.emitted++

	for _, childID := range it.graph.children[commit.ID] {
		it.graph.pending[childID]--

		if it.graph.pending[childID] == 0 {
			heap.Push(&it.ready, it.graph.commits[childID])
		}
	}

	return commit, nil
}

// ForEach visits every remaining commit in walk order. Iteration stops at the
// callback's first error.
func (it *CommitIter) ForEach(fn func(*gitobj.Commit) error) error {
	for {
		commit, err := it.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return err
		}

		if cbErr := fn(commit); cbErr != nil {
			return cbErr
		}
	}
}

// commitHeap orders ready commits by author timestamp, then id.
type commitHeap []*gitobj.Commit

func (h commitHeap) Len() int { return len(h) }

func (h commitHeap) Less(i, j int) bool {
	ti, tj := h[i].Author.When, h[j].Author.When
	if !ti.Equal(tj) {
		return ti.Before(tj)
	}

	return bytes.Compare(h[i].ID[:], h[j].ID[:]) < 0
}

func (h commitHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *commitHeap) Push(x any) {
	*h = append(*h, x.(*gitobj.Commit))
}

func (h *commitHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]

	return item
}
