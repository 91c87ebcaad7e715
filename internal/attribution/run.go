package attribution

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/gitsleuth/gitsleuth/internal/blame"
	"github.com/gitsleuth/gitsleuth/internal/diffcore"
	"github.com/gitsleuth/gitsleuth/internal/history"
	"github.com/gitsleuth/gitsleuth/internal/identity"
	"github.com/gitsleuth/gitsleuth/internal/language"
	"github.com/gitsleuth/gitsleuth/internal/observability"
	"github.com/gitsleuth/gitsleuth/internal/stats"
	"github.com/gitsleuth/gitsleuth/pkg/gitobj"
	"github.com/google/uuid"
)

const defaultRef = "HEAD"

// walkLogInterval paces per-commit progress logging.
const walkLogInterval = 1000

// Run executes the pipeline: resolve the head, walk history parents-first,
// blame every commit, classify the final snapshot, and aggregate. On success
// the engine transitions to Ready; on failure to Failed with the cause
// recorded. Concurrent Runs serialize; each run replaces all prior results.
func (e *Engine) Run(ctx context.Context) error {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	runID := uuid.NewString()
	log := e.log.With("run_id", runID)

	e.beginRun(runID)

	started := time.Now()

	run, err := e.execute(ctx, log)
	if err != nil {
		kind := failureKindOf(err)
		e.finishFailed(run, kind)
		log.Error("run failed",
			"failure", kind.String(),
			"elapsed", time.Since(started),
			"error", err)

		return err
	}

	e.finishReady(run)
	e.recordMetrics(ctx, runID, run)

	log.Info("run complete",
		"head", run.head.Short(),
		"commits", run.commits,
		"files", len(run.files),
		"lines", run.lines,
		"contributors", run.resolver.Count(),
		"diagnostics", len(run.diags.list),
		"elapsed", time.Since(started))

	return nil
}

// runData accumulates one run's output before publication.
type runData struct {
	head     gitobj.Hash
	stats    *stats.Store
	files    map[string]*FileAttribution
	resolver *identity.Resolver
	visited  map[gitobj.Hash]struct{}
	diags    *diagSet
	commits  int
	lines    int64
	stages   map[string]time.Duration
}

// execute drives the pipeline stages. It returns the partially filled
// runData alongside any error so diagnostics survive a failed run.
func (e *Engine) execute(ctx context.Context, log *slog.Logger) (*runData, error) {
	run := &runData{
		resolver: e.opts.Resolver,
		diags:    newDiagSet(),
		stages:   make(map[string]time.Duration),
	}
	if run.resolver == nil {
		run.resolver = identity.NewResolver()
	}

	ref := e.opts.Head
	if ref == "" {
		ref = defaultRef
	}

	head, err := e.store.ResolveRef(ctx, ref)
	if err != nil {
		return run, fmt.Errorf("resolve %q: %w", ref, err)
	}

	run.head = head

	e.machine.set(Walking)

	walkStart := time.Now()

	iter, err := history.NewWalker(e.store).Walk(ctx, head)
	if err != nil {
		return run, err
	}

	run.stages["walk"] = time.Since(walkStart)
	log.Info("history loaded", "head", head.Short(), "commits", iter.Total())

	visited, blamer, err := e.consumeHistory(ctx, iter, run, log)
	if err != nil {
		return run, err
	}

	run.commits = len(visited)

	// Identity unions are complete only after every signature was observed;
	// resolve commit authorship now so early commits pick up merges a later
	// alias triggered.
	authorOf := make(map[gitobj.Hash]identity.Key, len(visited))
	walkPart := stats.NewPartition()
	run.visited = make(map[gitobj.Hash]struct{}, len(visited))

	for _, v := range visited {
		key := run.resolver.Resolve(v.author)
		authorOf[v.id] = key
		run.visited[v.id] = struct{}{}
		walkPart.RecordCommit(key, v.id, v.author.When, v.insertions, v.deletions)
	}

	e.machine.set(Classifying)

	classifyStart := time.Now()

	snapshot, err := blamer.Snapshot(head)
	if err != nil {
		return run, err
	}

	parts, err := e.classifySnapshot(ctx, snapshot, authorOf, run)
	if err != nil {
		return run, err
	}

	run.stages["classify"] = time.Since(classifyStart)
	log.Debug("snapshot classified", "files", len(run.files), "lines", run.lines)

	e.machine.set(Aggregated)

	aggregateStart := time.Now()

	store := stats.NewStore(e.opts.ShardCount)
	store.Merge(append(parts, walkPart)...)

	run.stats = store
	run.stages["aggregate"] = time.Since(aggregateStart)

	return run, nil
}

// visitedCommit is what the walk retains per commit: enough to attribute
// ownership and churn once identity resolution has settled.
type visitedCommit struct {
	id         gitobj.Hash
	author     gitobj.Signature
	insertions int
	deletions  int
}

// consumeHistory feeds every commit through the blame engine in dependency
// order, observing author identities and collecting churn and diagnostics.
func (e *Engine) consumeHistory(
	ctx context.Context, iter *history.CommitIter, run *runData, log *slog.Logger,
) ([]visitedCommit, *blame.Engine, error) {
	differ := diffcore.NewEngine(e.store, e.opts.Diff)
	blamer := blame.NewEngine(e.store, differ, blame.Options{
		HibernationThreshold: e.opts.HibernationThreshold,
	})

	e.machine.set(Diffing)

	blameStart := time.Now()
	visited := make([]visitedCommit, 0, iter.Total())

	for {
		commit, err := iter.Next()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, nil, err
		}

		run.resolver.Observe(commit.Author)

		outcome, err := blamer.Consume(ctx, commit, iter.ChildCount(commit.ID))
		if err != nil {
			return nil, nil, err
		}

		for _, d := range outcome.Diagnostics {
			run.diags.add(Diagnostic{Path: d.Path, Reason: d.Reason, Detail: d.Detail})
		}

		visited = append(visited, visitedCommit{
			id:         commit.ID,
			author:     commit.Author,
			insertions: outcome.Insertions,
			deletions:  outcome.Deletions,
		})

		if len(visited) == 1 {
			e.machine.set(Blaming)
		}

		if len(visited)%walkLogInterval == 0 {
			log.Debug("walk progress",
				"commits", len(visited),
				"total", iter.Total(),
				"states", blamer.StateCount())
		}
	}

	run.stages["blame"] = time.Since(blameStart)

	return visited, blamer, nil
}

// classifySnapshot fans the final snapshot out to the worker pool. Files are
// split into contiguous chunks so each worker owns a disjoint set of paths
// and its own partition; results merge associatively afterwards.
func (e *Engine) classifySnapshot(
	ctx context.Context, snapshot []blame.FileBlame, authorOf map[gitobj.Hash]identity.Key, run *runData,
) ([]*stats.Partition, error) {
	workers := e.opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	if workers > len(snapshot) {
		workers = max(len(snapshot), 1)
	}

	attrs := make([]*FileAttribution, len(snapshot))
	outs := make([]classifyResult, workers)
	classifier := language.NewClassifier()

	var wg sync.WaitGroup

	chunk := (len(snapshot) + workers - 1) / workers
	for w := range workers {
		lo := w * chunk
		hi := min(lo+chunk, len(snapshot))

		if lo >= hi {
			break
		}

		wg.Add(1)

		go func(out *classifyResult, lo, hi int) {
			defer wg.Done()
			e.classifyChunk(ctx, classifier, snapshot[lo:hi], attrs[lo:hi], authorOf, out)
		}(&outs[w], lo, hi)
	}

	wg.Wait()

	parts := make([]*stats.Partition, 0, workers)

	for i := range outs {
		if outs[i].err != nil {
			return nil, outs[i].err
		}

		if outs[i].part != nil {
			parts = append(parts, outs[i].part)
		}

		for _, d := range outs[i].diags {
			run.diags.add(d)
		}

		run.lines += outs[i].lines
	}

	run.files = make(map[string]*FileAttribution, len(snapshot))

	for _, attr := range attrs {
		if attr != nil {
			run.files[attr.Path] = attr
		}
	}

	return parts, nil
}

// classifyResult is one worker's output slot.
type classifyResult struct {
	part  *stats.Partition
	diags []Diagnostic
	lines int64
	err   error
}

// classifyChunk attributes and classifies one contiguous run of snapshot
// files. attrs is index-aligned with files; skipped files leave nil slots.
func (e *Engine) classifyChunk(
	ctx context.Context,
	classifier *language.Classifier,
	files []blame.FileBlame,
	attrs []*FileAttribution,
	authorOf map[gitobj.Hash]identity.Key,
	out *classifyResult,
) {
	out.part = stats.NewPartition()

	for i := range files {
		if err := ctx.Err(); err != nil {
			out.err = err

			return
		}

		attr, diag, err := e.classifyFile(ctx, classifier, &files[i], authorOf, out.part)
		if err != nil {
			out.err = err

			return
		}

		if diag != nil {
			out.diags = append(out.diags, *diag)

			continue
		}

		attrs[i] = attr
		out.lines += int64(len(attr.Lines))
	}
}

// classifyFile resolves one file's language, line classes, and per-line
// ownership. Unreadable content degrades to a diagnostic; cancellation and
// store timeouts abort the run.
func (e *Engine) classifyFile(
	ctx context.Context,
	classifier *language.Classifier,
	fb *blame.FileBlame,
	authorOf map[gitobj.Hash]identity.Key,
	part *stats.Partition,
) (*FileAttribution, *Diagnostic, error) {
	blob, err := e.store.ReadBlob(ctx, fb.Blob)
	if err != nil {
		if fatalReadError(err) {
			return nil, nil, fmt.Errorf("read %s: %w", fb.Path, err)
		}

		return nil, &Diagnostic{Path: fb.Path, Reason: blame.ReasonUnreadable, Detail: err.Error()}, nil
	}

	lines := blob.Lines()
	if len(lines) != len(fb.Owners) {
		detail := fmt.Sprintf("%d lines vs %d owners", len(lines), len(fb.Owners))

		return nil, &Diagnostic{Path: fb.Path, Reason: blame.ReasonUnreadable, Detail: detail}, nil
	}

	lang := language.Detect(fb.Path, blob.Data)
	classes := classifier.Classify(lang, lines)

	attr := &FileAttribution{
		Path:     fb.Path,
		Language: lang,
		Lines:    make([]LineOwner, len(lines)),
	}

	for i := range lines {
		owner := fb.Owners[i]

		key, ok := authorOf[owner]
		if !ok {
			key = identity.Unmatched
		}

		part.AddLine(key, owner, lang, classes[i])
		attr.Lines[i] = LineOwner{Commit: owner, Contributor: key, Class: classes[i]}
	}

	return attr, nil, nil
}

// beginRun clears the previous run's publications and rewinds the machine.
func (e *Engine) beginRun(runID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.runID = runID
	e.res = nil
	e.diags = nil
	e.machine.reset()
}

// finishReady publishes a completed run and opens the query surface.
func (e *Engine) finishReady(run *runData) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.res = &results{
		head:     run.head,
		stats:    run.stats,
		files:    run.files,
		resolver: run.resolver,
		visited:  run.visited,
	}
	e.diags = run.diags.list
	e.machine.set(Ready)
}

// finishFailed releases partial state but keeps the diagnostics collected so
// far, which stay queryable alongside the failure.
func (e *Engine) finishFailed(run *runData, kind FailureKind) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.res = nil
	if run != nil {
		e.diags = run.diags.list
	}

	e.machine.fail(kind)
}

func (e *Engine) recordMetrics(ctx context.Context, runID string, run *runData) {
	if e.metrics == nil {
		return
	}

	byReason := make(map[string]int64)
	for _, d := range run.diags.list {
		byReason[d.Reason]++
	}

	ratio := -1.0
	if e.opts.CacheStats != nil {
		ratio = e.opts.CacheStats().HitRate()
	}

	e.metrics.RecordRun(ctx, observability.RunStats{
		RunID:         runID,
		Commits:       int64(run.commits),
		Files:         int64(len(run.files)),
		Lines:         run.lines,
		Diagnostics:   byReason,
		Stages:        run.stages,
		CacheHitRatio: ratio,
	})
}

// failureKindOf maps a fatal error to the recorded cause.
func failureKindOf(err error) FailureKind {
	switch {
	case errors.Is(err, context.Canceled):
		return FailureCancelled
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, gitobj.ErrStoreTimeout):
		return FailureTimeout
	case errors.Is(err, history.ErrCorruptHistory):
		return FailureCorruptHistory
	default:
		return FailureInternal
	}
}

// fatalReadError reports whether a blob read failure must abort the run
// rather than degrade into a per-file diagnostic.
func fatalReadError(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, gitobj.ErrStoreTimeout)
}

// diagSet collects diagnostics, deduplicated by path and reason so a file
// excluded in every commit it touches appears once.
type diagSet struct {
	seen map[string]struct{}
	list []Diagnostic
}

func newDiagSet() *diagSet {
	return &diagSet{seen: make(map[string]struct{})}
}

func (s *diagSet) add(d Diagnostic) {
	key := d.Path + "\x00" + d.Reason
	if _, ok := s.seen[key]; ok {
		return
	}

	s.seen[key] = struct{}{}
	s.list = append(s.list, d)
}
