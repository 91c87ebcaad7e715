package gitobj

import (
	"bytes"
	"sort"
	"time"
)

// binarySniffLength is the number of leading bytes scanned for null bytes
// when detecting binary content.
const binarySniffLength = 8000

// Signature identifies the author or committer of a commit.
type Signature struct {
	Name  string
	Email string
	When  time.Time
}

// Commit is the immutable metadata of one commit, detached from any
// underlying store handle.
type Commit struct {
	ID        Hash
	Parents   []Hash
	Author    Signature
	Committer Signature
	Message   string
	TreeID    Hash
}

// IsRoot reports whether the commit has no parents.
func (c *Commit) IsRoot() bool {
	return len(c.Parents) == 0
}

// IsMerge reports whether the commit has more than one parent.
func (c *Commit) IsMerge() bool {
	return len(c.Parents) > 1
}

// Tree is one commit's snapshot flattened to repository-relative paths.
type Tree struct {
	ID      Hash
	Entries map[string]Hash // path -> blob id
}

// Paths returns the tree's paths in lexicographic order.
func (t *Tree) Paths() []string {
	paths := make([]string, 0, len(t.Entries))
	for p := range t.Entries {
		paths = append(paths, p)
	}

	sort.Strings(paths)

	return paths
}

// Blob is the content of one object, detached from any store handle.
type Blob struct {
	ID   Hash
	Data []byte
}

// Size returns the blob size in bytes.
func (b *Blob) Size() int64 {
	return int64(len(b.Data))
}

// IsBinary reports whether the blob appears to be binary, by scanning the
// first 8000 bytes for a null byte (the same heuristic git uses).
func (b *Blob) IsBinary() bool {
	sniff := b.Data
	if len(sniff) > binarySniffLength {
		sniff = sniff[:binarySniffLength]
	}

	return bytes.IndexByte(sniff, 0) >= 0
}

// CountLines returns the number of lines in the blob, or (0, ErrBinary) for
// binary content. A final line without a trailing newline still counts.
func (b *Blob) CountLines() (int, error) {
	if len(b.Data) == 0 {
		return 0, nil
	}

	if b.IsBinary() {
		return 0, ErrBinary
	}

	lines := bytes.Count(b.Data, []byte{'\n'})
	if b.Data[len(b.Data)-1] != '\n' {
		lines++
	}

	return lines, nil
}

// Lines splits the blob into lines without their newline terminators.
// The result length always equals CountLines for text content.
func (b *Blob) Lines() []string {
	return SplitLines(b.Data)
}

// SplitLines splits data into lines without newline terminators. A trailing
// newline does not produce an empty final line.
func SplitLines(data []byte) []string {
	if len(data) == 0 {
		return nil
	}

	trimmed := data
	if trimmed[len(trimmed)-1] == '\n' {
		trimmed = trimmed[:len(trimmed)-1]
	}

	raw := bytes.Split(trimmed, []byte{'\n'})

	lines := make([]string, len(raw))
	for i, l := range raw {
		// Tolerate CRLF content so line comparison is terminator-agnostic.
		lines[i] = string(bytes.TrimSuffix(l, []byte{'\r'}))
	}

	return lines
}
