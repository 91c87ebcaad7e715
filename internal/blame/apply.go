package blame

import (
	"context"
	"fmt"
	"slices"

	"github.com/gitsleuth/gitsleuth/internal/diffcore"
	"github.com/gitsleuth/gitsleuth/pkg/gitobj"
)

// applyChanges folds one commit's tree diff into the branch state, stamping
// inserted lines with the commit's ordinal. Rename sources leave the map
// before anything else runs so crossing renames cannot clobber each other's
// targets.
func (e *Engine) applyChanges(ctx context.Context, state *branchState, changes []diffcore.Change, ord uint32, merge bool, out *CommitOutcome) error {
	var stash map[string]*fileState
	for _, ch := range changes {
		if ch.Kind != diffcore.ChangeRename {
			continue
		}
		if fs, ok := state.files[ch.FromPath]; ok {
			if stash == nil {
				stash = make(map[string]*fileState)
			}
			stash[ch.FromPath] = fs
			delete(state.files, ch.FromPath)
		}
	}

	for _, ch := range changes {
		if err := ctx.Err(); err != nil {
			return err
		}
		switch ch.Kind {
		case diffcore.ChangeDelete:
			if fs, ok := state.files[ch.FromPath]; ok {
				if !merge {
					out.Deletions += len(fs.owners)
				}
				delete(state.files, ch.FromPath)
			}

		case diffcore.ChangeAdd:
			if err := e.applyAdd(ctx, state, ch.ToPath, ch.ToBlob, ord, merge, out); err != nil {
				return err
			}

		case diffcore.ChangeModify:
			fs, ok := state.files[ch.ToPath]
			if !ok {
				// The old content was never tracked; give the new content a
				// fresh chance.
				if err := e.applyAdd(ctx, state, ch.ToPath, ch.ToBlob, ord, merge, out); err != nil {
					return err
				}
				continue
			}
			if err := e.applyEdit(ctx, state, ch.ToPath, fs.blob, ch.ToBlob, fs.owners, ord, merge, out); err != nil {
				return err
			}

		case diffcore.ChangeRename:
			src, ok := stash[ch.FromPath]
			if !ok {
				if err := e.applyAdd(ctx, state, ch.ToPath, ch.ToBlob, ord, merge, out); err != nil {
					return err
				}
				continue
			}
			if src.blob == ch.ToBlob {
				// Pure move; the vector carries over untouched.
				state.files[ch.ToPath] = src
				continue
			}
			if err := e.applyEdit(ctx, state, ch.ToPath, src.blob, ch.ToBlob, src.owners, ord, merge, out); err != nil {
				return err
			}
		}
	}
	return nil
}

// applyAdd starts tracking a new path, stamping every line with ord. Files
// the differ cannot track degrade into diagnostics; a path that was already
// diagnosed for the same blob is skipped silently.
func (e *Engine) applyAdd(ctx context.Context, state *branchState, path string, blob gitobj.Hash, ord uint32, merge bool, out *CommitOutcome) error {
	if prior, ok := e.excluded[path]; ok && prior == blob {
		return nil
	}
	fd, err := e.differ.DiffBlobs(ctx, gitobj.Hash{}, blob)
	if err != nil {
		if fatalReadError(err) {
			return err
		}
		e.exclude(state, path, blob, ReasonUnreadable, err.Error(), out)
		return nil
	}
	if reason, skip := untrackable(fd); skip {
		e.exclude(state, path, blob, reason, "", out)
		return nil
	}
	owners := make([]uint32, fd.NewLines)
	for i := range owners {
		owners[i] = ord
	}
	state.files[path] = &fileState{blob: blob, owners: owners}
	if !merge {
		out.Insertions += fd.NewLines
	}
	return nil
}

// applyEdit rewrites a tracked vector through the edit script between two
// blobs and publishes the result at path.
func (e *Engine) applyEdit(ctx context.Context, state *branchState, path string, fromBlob, toBlob gitobj.Hash, base []uint32, ord uint32, merge bool, out *CommitOutcome) error {
	fd, err := e.differ.DiffBlobs(ctx, fromBlob, toBlob)
	if err != nil {
		if fatalReadError(err) {
			return err
		}
		e.exclude(state, path, toBlob, ReasonUnreadable, err.Error(), out)
		return nil
	}
	if reason, skip := untrackable(fd); skip {
		e.exclude(state, path, toBlob, reason, "", out)
		return nil
	}
	owners, ins, del, err := applyEditScript(base, fd, ord)
	if err != nil {
		return fmt.Errorf("blame: %s: %w", path, err)
	}
	state.files[path] = &fileState{blob: toBlob, owners: owners}
	if !merge {
		out.Insertions += ins
		out.Deletions += del
	}
	return nil
}

// exclude drops a path from tracking and records why.
func (e *Engine) exclude(state *branchState, path string, blob gitobj.Hash, reason, detail string, out *CommitOutcome) {
	delete(state.files, path)
	e.excluded[path] = blob
	out.Diagnostics = append(out.Diagnostics, Diagnostic{Path: path, Reason: reason, Detail: detail})
}

func untrackable(fd *diffcore.FileDiff) (string, bool) {
	switch {
	case fd.Binary:
		return ReasonBinary, true
	case fd.Oversize:
		return ReasonOversize, true
	}
	return "", false
}

// applyEditScript maps an owner vector through a file diff: equal lines keep
// their owner, inserted lines take ord, deleted lines drop out.
func applyEditScript(base []uint32, fd *diffcore.FileDiff, ord uint32) (owners []uint32, ins, del int, err error) {
	if fd.OldLines != len(base) {
		return nil, 0, 0, fmt.Errorf("edit script expects %d lines, state has %d", fd.OldLines, len(base))
	}
	owners = make([]uint32, 0, fd.NewLines)
	oldIdx := 0
	for _, op := range fd.Ops {
		switch op.Kind {
		case diffcore.EditEqual:
			owners = append(owners, base[oldIdx:oldIdx+op.Lines]...)
			oldIdx += op.Lines
		case diffcore.EditInsert:
			for k := 0; k < op.Lines; k++ {
				owners = append(owners, ord)
			}
			ins += op.Lines
		case diffcore.EditDelete:
			oldIdx += op.Lines
			del += op.Lines
		}
	}
	if oldIdx != fd.OldLines || len(owners) != fd.NewLines {
		return nil, 0, 0, fmt.Errorf("edit script consumed %d of %d lines, produced %d of %d",
			oldIdx, fd.OldLines, len(owners), fd.NewLines)
	}
	return owners, ins, del, nil
}

// reclaimFromParents revisits lines the merge commit tentatively stamped and
// hands them back to any later parent whose content already contained them.
// The first parent's lines were never stamped, so first-parent ownership
// takes precedence; among later parents, earlier ones win.
func (e *Engine) reclaimFromParents(ctx context.Context, state *branchState, commit *gitobj.Commit, ord uint32) error {
	first := commit.Parents[0]
	for _, parentID := range commit.Parents[1:] {
		if parentID == first {
			continue
		}
		parent, ok := e.states[parentID]
		if !ok {
			return fmt.Errorf("blame: missing state for merge parent %s", parentID.Short())
		}
		if err := parent.wake(); err != nil {
			return err
		}
		for path, fs := range state.files {
			if !slices.Contains(fs.owners, ord) {
				continue
			}
			pfs, ok := parent.files[path]
			if !ok {
				continue
			}
			if err := e.reclaimFile(ctx, fs, pfs, ord); err != nil {
				return err
			}
		}
		e.releaseParent(parentID)
	}
	return nil
}

// reclaimFile rewrites merge-stamped lines to the parent's owners wherever
// the merged content matches the parent's content. Vectors holding the merge
// ordinal were built during this commit, so mutating them in place is safe.
func (e *Engine) reclaimFile(ctx context.Context, fs, pfs *fileState, ord uint32) error {
	if pfs.blob == fs.blob && len(pfs.owners) == len(fs.owners) {
		for i, o := range fs.owners {
			if o == ord {
				fs.owners[i] = pfs.owners[i]
			}
		}
		return nil
	}
	fd, err := e.differ.DiffBlobs(ctx, pfs.blob, fs.blob)
	if err != nil {
		if fatalReadError(err) {
			return err
		}
		return nil
	}
	if fd.Binary || fd.Oversize {
		return nil
	}
	if fd.OldLines != len(pfs.owners) || fd.NewLines != len(fs.owners) {
		return nil
	}
	oldIdx, newIdx := 0, 0
	for _, op := range fd.Ops {
		switch op.Kind {
		case diffcore.EditEqual:
			for k := 0; k < op.Lines; k++ {
				if fs.owners[newIdx+k] == ord {
					fs.owners[newIdx+k] = pfs.owners[oldIdx+k]
				}
			}
			oldIdx += op.Lines
			newIdx += op.Lines
		case diffcore.EditDelete:
			oldIdx += op.Lines
		case diffcore.EditInsert:
			newIdx += op.Lines
		}
	}
	return nil
}
