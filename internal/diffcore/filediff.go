package diffcore

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/gitsleuth/gitsleuth/pkg/gitobj"
)

// EditKind classifies one operation of a line edit script.
type EditKind uint8

const (
	// EditEqual carries lines unchanged between the two sides.
	EditEqual EditKind = iota
	// EditInsert adds lines present only on the new side.
	EditInsert
	// EditDelete removes lines present only on the old side.
	EditDelete
)

// EditOp is one run of consecutive lines sharing a fate.
type EditOp struct {
	Kind  EditKind
	Lines int
}

// FileDiff is a line edit script between two blob versions. Applying Ops in
// order transforms the old line sequence into the new one: equal runs consume
// from both sides, deletes from the old side only, inserts produce new lines.
type FileDiff struct {
	OldLines int
	NewLines int
	Ops      []EditOp

	// Binary is set when either side fails the text sniff; Ops is nil then.
	Binary bool

	// Oversize is set when either side exceeds the size cap; Ops is nil then.
	Oversize bool
}

// DiffBlobs reads both blob versions and computes their edit script. A zero
// hash on either side stands for an empty file (additions and deletions).
// Read failures are returned unwrapped for the caller's error policy.
func (e *Engine) DiffBlobs(ctx context.Context, fromID, toID gitobj.Hash) (*FileDiff, error) {
	oldData, err := e.readSide(ctx, fromID)
	if err != nil {
		return nil, err
	}

	newData, err := e.readSide(ctx, toID)
	if err != nil {
		return nil, err
	}

	if isBinaryData(oldData) || isBinaryData(newData) {
		return &FileDiff{Binary: true}, nil
	}

	if e.oversize(int64(len(oldData))) || e.oversize(int64(len(newData))) {
		return &FileDiff{Oversize: true}, nil
	}

	return e.DiffContents(oldData, newData), nil
}

func (e *Engine) readSide(ctx context.Context, id gitobj.Hash) ([]byte, error) {
	if id.IsZero() {
		return nil, nil
	}

	blob, err := e.store.ReadBlob(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("diff blob %s: %w", id.Short(), err)
	}

	return blob.Data, nil
}

// DiffContents computes the line edit script between two text buffers.
// Lines are mapped to runes so the diff runs over whole lines, then cleaned
// up unless disabled.
func (e *Engine) DiffContents(oldData, newData []byte) *FileDiff {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = e.opts.DiffTimeout

	oldText := e.normalize(string(oldData))
	newText := e.normalize(string(newData))

	src, dst, _ := dmp.DiffLinesToRunes(oldText, newText)

	diffs := dmp.DiffMainRunes(src, dst, false)
	if !e.opts.DisableCleanup {
		diffs = dmp.DiffCleanupMerge(dmp.DiffCleanupSemanticLossless(diffs))
	}

	ops := make([]EditOp, 0, len(diffs))

	for _, diff := range diffs {
		lines := utf8.RuneCountInString(diff.Text)
		if lines == 0 {
			continue
		}

		switch diff.Type {
		case diffmatchpatch.DiffEqual:
			ops = append(ops, EditOp{Kind: EditEqual, Lines: lines})
		case diffmatchpatch.DiffInsert:
			ops = append(ops, EditOp{Kind: EditInsert, Lines: lines})
		case diffmatchpatch.DiffDelete:
			ops = append(ops, EditOp{Kind: EditDelete, Lines: lines})
		}
	}

	return &FileDiff{
		OldLines: len(src),
		NewLines: len(dst),
		Ops:      ops,
	}
}

func (e *Engine) normalize(text string) string {
	if e.opts.IgnoreWhitespace {
		return strings.ReplaceAll(text, " ", "")
	}

	return text
}

// isBinaryData applies the same null-byte sniff blobs use, so raw buffers
// and store blobs agree on what is text.
func isBinaryData(data []byte) bool {
	blob := gitobj.Blob{Data: data}

	return blob.IsBinary()
}
