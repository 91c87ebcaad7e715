// Package attribution orchestrates the full analysis pipeline: it walks a
// repository's history, blames every final-snapshot line to the commit and
// contributor that produced it, classifies lines by language and by
// code/comment/blank status, and serves the aggregated statistics.
//
// The engine is a state machine. Run drives it through Walking, Diffing,
// Blaming, Classifying, and Aggregated into Ready; any fatal error lands it
// in Failed with a recorded cause. Queries serve only in Ready and return
// ErrNotReady otherwise, so a half-finished run can never leak partial
// numbers. Each run rebuilds every statistic wholesale; nothing persists
// between runs except the engine's configuration.
package attribution

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/gitsleuth/gitsleuth/internal/diffcore"
	"github.com/gitsleuth/gitsleuth/internal/identity"
	"github.com/gitsleuth/gitsleuth/internal/language"
	"github.com/gitsleuth/gitsleuth/internal/observability"
	"github.com/gitsleuth/gitsleuth/internal/stats"
	"github.com/gitsleuth/gitsleuth/pkg/gitobj"
)

var (
	// ErrNotReady rejects queries issued before a run has completed.
	ErrNotReady = errors.New("attribution: engine not ready")

	// ErrNotFound rejects queries for unknown contributors, commits, or
	// paths.
	ErrNotFound = errors.New("attribution: not found")
)

// Options configures an Engine. The zero value analyzes HEAD with rename
// detection on, loose identity matching, and one classify worker per CPU.
type Options struct {
	// Head is the reference or hex hash to analyze. Empty means "HEAD".
	Head string

	// Workers bounds the classify worker pool. Zero means runtime.NumCPU().
	Workers int

	// Diff tunes path exclusion, rename detection, and per-file diffing.
	Diff diffcore.Options

	// HibernationThreshold packs parked blame states beyond this count.
	// Zero disables hibernation.
	HibernationThreshold int

	// IncludeUnknown keeps the "unknown" language tag in breakdown maps.
	// Unknown lines count toward totals either way.
	IncludeUnknown bool

	// ShardCount sets the aggregation store's shard count. Zero uses the
	// store default.
	ShardCount int

	// Resolver maps signatures to contributor keys. Nil builds a fresh
	// loose resolver per run.
	Resolver *identity.Resolver

	// CacheStats, when set, reports the blob cache counters after a run,
	// feeding the cache hit-rate metric.
	CacheStats func() gitobj.CacheStats

	// Logger receives run progress. Nil means slog.Default().
	Logger *slog.Logger

	// Metrics receives per-run pipeline metrics. Nil disables recording.
	Metrics *observability.PipelineMetrics
}

// ContributorSummary is one row of the contributor ranking.
type ContributorSummary struct {
	Key         identity.Key `json:"key" yaml:"key"`
	DisplayName string       `json:"display_name" yaml:"display_name"`
	TotalLines  int64        `json:"total_lines" yaml:"total_lines"`
}

// LineOwner attributes one final-snapshot line.
type LineOwner struct {
	Commit      gitobj.Hash    `json:"commit" yaml:"commit"`
	Contributor identity.Key   `json:"contributor" yaml:"contributor"`
	Class       language.Class `json:"class" yaml:"class"`
}

// FileAttribution is the per-line provenance of one final-snapshot file.
type FileAttribution struct {
	Path     string            `json:"path" yaml:"path"`
	Language language.Language `json:"language" yaml:"language"`
	Lines    []LineOwner       `json:"lines" yaml:"lines"`
}

// Diagnostic records a file that was skipped without failing the run.
type Diagnostic struct {
	Path   string `json:"path" yaml:"path"`
	Reason string `json:"reason" yaml:"reason"`
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// results is one run's published output, immutable once set.
type results struct {
	head     gitobj.Hash
	stats    *stats.Store
	files    map[string]*FileAttribution
	resolver *identity.Resolver
	visited  map[gitobj.Hash]struct{}
}

// Engine runs the attribution pipeline and serves its query surface.
// Queries are safe for concurrent use and never block behind a run.
type Engine struct {
	store   gitobj.Store
	opts    Options
	log     *slog.Logger
	metrics *observability.PipelineMetrics

	machine machine

	runMu sync.Mutex // serializes Run

	mu    sync.RWMutex // guards the published fields below
	runID string
	res   *results
	diags []Diagnostic
}

// NewEngine builds an engine over the given store. The store must stay open
// for the engine's lifetime and is only ever read.
func NewEngine(store gitobj.Store, opts Options) *Engine {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Engine{
		store:   store,
		opts:    opts,
		log:     log,
		metrics: opts.Metrics,
	}
}

// State returns the current machine state, lock-free.
func (e *Engine) State() State {
	return e.machine.current()
}

// Failure returns the cause recorded for a Failed state, or FailureNone.
func (e *Engine) Failure() FailureKind {
	return e.machine.failureKind()
}

// RunID returns the id of the most recent run, or "" before the first.
func (e *Engine) RunID() string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.runID
}

// Head returns the commit the completed run analyzed.
func (e *Engine) Head() (gitobj.Hash, error) {
	res, err := e.ready()
	if err != nil {
		return gitobj.Hash{}, err
	}

	return res.head, nil
}

// ListContributors returns the contributor ranking: total lines descending,
// key ascending on ties. Totals count every attributed line including
// unknown-language ones.
func (e *Engine) ListContributors() ([]ContributorSummary, error) {
	res, err := e.ready()
	if err != nil {
		return nil, err
	}

	totals := res.stats.Contributors()

	out := make([]ContributorSummary, len(totals))
	for i, t := range totals {
		out[i] = ContributorSummary{
			Key:         t.Contributor,
			DisplayName: res.resolver.DisplayName(t.Contributor),
			TotalLines:  t.Lines,
		}
	}

	return out, nil
}

// ContributorBreakdown returns one contributor's surviving lines by language
// and class.
func (e *Engine) ContributorBreakdown(key identity.Key) (map[language.Language]stats.ClassCounts, error) {
	res, err := e.ready()
	if err != nil {
		return nil, err
	}

	breakdown, ok := res.stats.ContributorBreakdown(key)
	if !ok {
		return nil, contributorNotFound(key)
	}

	return e.filterUnknown(breakdown), nil
}

// ContributorCommits returns one contributor's commit timeline, oldest
// first: surviving lines plus the churn each commit caused when walked.
func (e *Engine) ContributorCommits(key identity.Key) ([]stats.CommitActivity, error) {
	res, err := e.ready()
	if err != nil {
		return nil, err
	}

	activity, ok := res.stats.ContributorCommits(key)
	if !ok {
		return nil, contributorNotFound(key)
	}

	return activity, nil
}

// ContributorChurn totals one contributor's insertions and deletions across
// all visited commits, surviving or not.
func (e *Engine) ContributorChurn(key identity.Key) (stats.ChurnStats, error) {
	res, err := e.ready()
	if err != nil {
		return stats.ChurnStats{}, err
	}

	churn, ok := res.stats.ContributorChurn(key)
	if !ok {
		return stats.ChurnStats{}, contributorNotFound(key)
	}

	return churn, nil
}

// CommitBreakdown returns the final-snapshot lines a commit still owns, by
// language and class. A visited commit whose lines were all replaced yields
// an empty map; an id the walk never saw yields ErrNotFound.
func (e *Engine) CommitBreakdown(id gitobj.Hash) (map[language.Language]stats.ClassCounts, error) {
	res, err := e.ready()
	if err != nil {
		return nil, err
	}

	breakdown, ok := res.stats.CommitBreakdown(id)
	if !ok {
		if _, seen := res.visited[id]; !seen {
			return nil, fmt.Errorf("commit %s: %w", id.Short(), ErrNotFound)
		}

		breakdown = make(map[language.Language]stats.ClassCounts)
	}

	return e.filterUnknown(breakdown), nil
}

// RepositoryTotals returns the whole snapshot's line counts by language and
// class.
func (e *Engine) RepositoryTotals() (map[language.Language]stats.ClassCounts, error) {
	res, err := e.ready()
	if err != nil {
		return nil, err
	}

	return e.filterUnknown(res.stats.Totals()), nil
}

// FileAttribution returns the per-line owners of one final-snapshot path.
// The result is shared and must not be mutated.
func (e *Engine) FileAttribution(path string) (*FileAttribution, error) {
	res, err := e.ready()
	if err != nil {
		return nil, err
	}

	attr, ok := res.files[path]
	if !ok {
		return nil, fmt.Errorf("path %q: %w", path, ErrNotFound)
	}

	return attr, nil
}

// Files returns the attributed snapshot paths in lexicographic order.
func (e *Engine) Files() ([]string, error) {
	res, err := e.ready()
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(res.files))
	for p := range res.files {
		paths = append(paths, p)
	}

	sort.Strings(paths)

	return paths, nil
}

// Diagnostics returns the files skipped by the most recent run. Available
// once the run finished, whether it reached Ready or Failed.
func (e *Engine) Diagnostics() []Diagnostic {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]Diagnostic, len(e.diags))
	copy(out, e.diags)

	return out
}

// ready returns the published results when the engine is Ready. The snapshot
// stays valid for the caller even if a new run replaces it concurrently.
func (e *Engine) ready() (*results, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.machine.current() != Ready {
		return nil, fmt.Errorf("%w (state %s)", ErrNotReady, e.machine.current())
	}

	return e.res, nil
}

// filterUnknown drops the unknown-language entry from a breakdown map unless
// the engine was asked to keep it. Totals are unaffected; the map is a fresh
// copy owned by the caller.
func (e *Engine) filterUnknown(m map[language.Language]stats.ClassCounts) map[language.Language]stats.ClassCounts {
	if !e.opts.IncludeUnknown {
		delete(m, language.Unknown)
	}

	return m
}

func contributorNotFound(key identity.Key) error {
	return fmt.Errorf("contributor %q: %w", key, ErrNotFound)
}
