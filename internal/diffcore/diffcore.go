// Package diffcore computes tree-level change lists and line-level edit
// scripts between commit snapshots, including rename detection.
package diffcore

import (
	"regexp"
	"time"

	"github.com/gitsleuth/gitsleuth/pkg/gitobj"
)

const (
	// DefaultDiffTimeout bounds a single file diff computation.
	DefaultDiffTimeout = time.Second

	// DefaultMaxFileSize is the blob size cap; larger blobs are flagged
	// oversize and not diffed line by line.
	DefaultMaxFileSize = 1 << 20

	// DefaultRenameSimilarity is the minimum shared-line percentage for a
	// delete + add pair to link as a rename.
	DefaultRenameSimilarity = 50

	// renameCandidateLimit caps the content-similarity pass. Above this many
	// delete x add pairs only exact blob matches link.
	renameCandidateLimit = 1000
)

// Options configures an Engine. The zero value enables rename detection with
// the defaults above and no path filtering.
type Options struct {
	// SkipPrefixes excludes paths by prefix match ("vendor/" style, no
	// leading slash).
	SkipPrefixes []string

	// SkipVendored excludes paths matched by enry's vendor rules.
	SkipVendored bool

	// NameFilter, when set, excludes every path it does not match.
	NameFilter *regexp.Regexp

	// DisableRenames turns rename detection off; renames then surface as
	// unrelated delete + add pairs.
	DisableRenames bool

	// MinRenameSimilarity overrides DefaultRenameSimilarity (percent, 1-100).
	MinRenameSimilarity int

	// MaxFileSize overrides DefaultMaxFileSize. Negative means no cap.
	MaxFileSize int64

	// DiffTimeout overrides DefaultDiffTimeout.
	DiffTimeout time.Duration

	// IgnoreWhitespace strips spaces before comparing line content.
	IgnoreWhitespace bool

	// DisableCleanup skips the semantic-lossless diff cleanup heuristics.
	DisableCleanup bool
}

// Engine computes diffs against a single object store.
type Engine struct {
	store gitobj.Store
	opts  Options
}

// NewEngine creates an Engine reading blobs from the given store.
func NewEngine(store gitobj.Store, opts Options) *Engine {
	if opts.DiffTimeout == 0 {
		opts.DiffTimeout = DefaultDiffTimeout
	}

	if opts.MaxFileSize == 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}

	if opts.MinRenameSimilarity <= 0 || opts.MinRenameSimilarity > 100 {
		opts.MinRenameSimilarity = DefaultRenameSimilarity
	}

	return &Engine{store: store, opts: opts}
}
