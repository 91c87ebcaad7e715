package diffcore

import (
	"context"
	"sort"
	"strings"

	"github.com/src-d/enry/v2"

	"github.com/gitsleuth/gitsleuth/pkg/gitobj"
)

// ChangeKind classifies one entry of a tree comparison.
type ChangeKind uint8

const (
	// ChangeAdd is a path present only in the new snapshot.
	ChangeAdd ChangeKind = iota
	// ChangeDelete is a path present only in the old snapshot.
	ChangeDelete
	// ChangeModify is a path present in both snapshots with different blobs.
	ChangeModify
	// ChangeRename is a delete + add pair linked by content similarity.
	ChangeRename
)

// String returns the lowercase kind name.
func (k ChangeKind) String() string {
	switch k {
	case ChangeAdd:
		return "add"
	case ChangeDelete:
		return "delete"
	case ChangeModify:
		return "modify"
	case ChangeRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Change is one changed path between two tree snapshots.
type Change struct {
	Kind     ChangeKind
	FromPath string // Empty for ChangeAdd.
	ToPath   string // Empty for ChangeDelete.
	FromBlob gitobj.Hash
	ToBlob   gitobj.Hash

	// Similarity is the shared-line percentage for ChangeRename (100 for
	// identical blobs), zero otherwise.
	Similarity int
}

// Path returns the surviving path of the change: ToPath when present,
// FromPath for deletions.
func (c Change) Path() string {
	if c.ToPath != "" {
		return c.ToPath
	}

	return c.FromPath
}

// ExcludeReason names why a path was filtered out of a comparison.
type ExcludeReason string

const (
	// ExcludeVendored marks paths matched by enry's vendor rules.
	ExcludeVendored ExcludeReason = "vendored"
	// ExcludePrefix marks paths matched by a configured skip prefix.
	ExcludePrefix ExcludeReason = "prefix"
	// ExcludeFilter marks paths rejected by the name filter.
	ExcludeFilter ExcludeReason = "filter"
)

// ExcludedFile records one path suppressed by the Options filters.
type ExcludedFile struct {
	Path   string
	Reason ExcludeReason
}

// TreeDiff is the result of comparing two tree snapshots.
type TreeDiff struct {
	Changes  []Change
	Excluded []ExcludedFile
}

// CompareTrees compares two flattened snapshots and returns the changed
// paths. oldTree may be nil for a root commit, in which case every included
// path is an addition. Paths with equal blob ids in both snapshots are
// skipped entirely. Results are sorted by path for determinism.
func (e *Engine) CompareTrees(ctx context.Context, oldTree, newTree *gitobj.Tree) (*TreeDiff, error) {
	oldEntries := map[string]gitobj.Hash{}
	if oldTree != nil {
		oldEntries = oldTree.Entries
	}

	newEntries := map[string]gitobj.Hash{}
	if newTree != nil {
		newEntries = newTree.Entries
	}

	var (
		added    []Change
		deleted  []Change
		modified []Change
		excluded []ExcludedFile
	)

	for path, newBlob := range newEntries {
		if reason, skip := e.excludePath(path); skip {
			excluded = append(excluded, ExcludedFile{Path: path, Reason: reason})
			continue
		}

		oldBlob, existed := oldEntries[path]

		switch {
		case !existed:
			added = append(added, Change{Kind: ChangeAdd, ToPath: path, ToBlob: newBlob})
		case oldBlob != newBlob:
			modified = append(modified, Change{
				Kind:     ChangeModify,
				FromPath: path,
				ToPath:   path,
				FromBlob: oldBlob,
				ToBlob:   newBlob,
			})
		}
	}

	for path, oldBlob := range oldEntries {
		if _, stillThere := newEntries[path]; stillThere {
			continue
		}

		if reason, skip := e.excludePath(path); skip {
			excluded = append(excluded, ExcludedFile{Path: path, Reason: reason})
			continue
		}

		deleted = append(deleted, Change{Kind: ChangeDelete, FromPath: path, FromBlob: oldBlob})
	}

	changes := modified

	if e.opts.DisableRenames || len(added) == 0 || len(deleted) == 0 {
		changes = append(changes, added...)
		changes = append(changes, deleted...)
	} else {
		linked, err := e.detectRenames(ctx, added, deleted)
		if err != nil {
			return nil, err
		}

		changes = append(changes, linked...)
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].Path() < changes[j].Path() })
	sort.Slice(excluded, func(i, j int) bool { return excluded[i].Path < excluded[j].Path })

	return &TreeDiff{Changes: changes, Excluded: excluded}, nil
}

// excludePath applies the prefix, vendor and name filters in that order.
func (e *Engine) excludePath(path string) (ExcludeReason, bool) {
	for _, prefix := range e.opts.SkipPrefixes {
		if strings.HasPrefix(path, prefix) {
			return ExcludePrefix, true
		}
	}

	if e.opts.SkipVendored && enry.IsVendor(path) {
		return ExcludeVendored, true
	}

	if e.opts.NameFilter != nil && !e.opts.NameFilter.MatchString(path) {
		return ExcludeFilter, true
	}

	return "", false
}
