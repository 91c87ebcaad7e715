package diffcore

import (
	"context"
	"errors"
	"sort"

	"github.com/gitsleuth/gitsleuth/pkg/gitobj"
	"github.com/gitsleuth/gitsleuth/pkg/levenshtein"
)

// renameEdge is one candidate delete + add pairing.
type renameEdge struct {
	from       int // Index into deleted.
	to         int // Index into added.
	similarity int
	distance   int // Path edit distance, used as a tie-break.
}

// detectRenames links deleted and added entries into renames. Exact blob
// matches link first; the remainder is scored by shared line content and
// linked greedily from the most similar pair down. Unlinked entries pass
// through unchanged.
func (e *Engine) detectRenames(ctx context.Context, added, deleted []Change) ([]Change, error) {
	sort.Slice(added, func(i, j int) bool { return added[i].ToPath < added[j].ToPath })
	sort.Slice(deleted, func(i, j int) bool { return deleted[i].FromPath < deleted[j].FromPath })

	usedFrom := make([]bool, len(deleted))
	usedTo := make([]bool, len(added))

	var lev levenshtein.Context

	out := e.linkExact(added, deleted, usedFrom, usedTo, &lev)

	edges, err := e.scoreRemaining(ctx, added, deleted, usedFrom, usedTo, &lev)
	if err != nil {
		return nil, err
	}

	for _, edge := range edges {
		if usedFrom[edge.from] || usedTo[edge.to] {
			continue
		}

		usedFrom[edge.from] = true
		usedTo[edge.to] = true

		out = append(out, renameChange(deleted[edge.from], added[edge.to], edge.similarity))
	}

	for i, change := range added {
		if !usedTo[i] {
			out = append(out, change)
		}
	}

	for i, change := range deleted {
		if !usedFrom[i] {
			out = append(out, change)
		}
	}

	return out, nil
}

// linkExact pairs additions with deletions sharing the same blob id. Among
// several identical deletions the closest path wins.
func (e *Engine) linkExact(added, deleted []Change, usedFrom, usedTo []bool, lev *levenshtein.Context) []Change {
	byBlob := make(map[gitobj.Hash][]int, len(deleted))
	for i, change := range deleted {
		byBlob[change.FromBlob] = append(byBlob[change.FromBlob], i)
	}

	var out []Change

	for i, change := range added {
		best := -1
		bestDist := 0

		for _, j := range byBlob[change.ToBlob] {
			if usedFrom[j] {
				continue
			}

			dist := lev.Distance(deleted[j].FromPath, change.ToPath)
			if best == -1 || dist < bestDist {
				best, bestDist = j, dist
			}
		}

		if best == -1 {
			continue
		}

		usedFrom[best] = true
		usedTo[i] = true
		out = append(out, renameChange(deleted[best], change, 100))
	}

	return out
}

// scoreRemaining computes shared-line similarity edges for every unlinked
// delete x add pair, sorted most similar first. The pass is skipped above
// renameCandidateLimit pairs to bound blob reads.
func (e *Engine) scoreRemaining(
	ctx context.Context,
	added, deleted []Change,
	usedFrom, usedTo []bool,
	lev *levenshtein.Context,
) ([]renameEdge, error) {
	remainingFrom := unusedIndexes(usedFrom)
	remainingTo := unusedIndexes(usedTo)

	if len(remainingFrom) == 0 || len(remainingTo) == 0 ||
		len(remainingFrom)*len(remainingTo) > renameCandidateLimit {
		return nil, nil
	}

	fromLines := make(map[int][]string, len(remainingFrom))

	for _, i := range remainingFrom {
		lines, err := e.candidateLines(ctx, deleted[i].FromBlob)
		if err != nil {
			return nil, err
		}

		fromLines[i] = lines
	}

	var edges []renameEdge

	for _, j := range remainingTo {
		toLines, err := e.candidateLines(ctx, added[j].ToBlob)
		if err != nil {
			return nil, err
		}

		if toLines == nil {
			continue
		}

		for _, i := range remainingFrom {
			if fromLines[i] == nil {
				continue
			}

			similarity := sharedLinePercent(fromLines[i], toLines)
			if similarity < e.opts.MinRenameSimilarity {
				continue
			}

			edges = append(edges, renameEdge{
				from:       i,
				to:         j,
				similarity: similarity,
				distance:   lev.Distance(deleted[i].FromPath, added[j].ToPath),
			})
		}
	}

	sort.Slice(edges, func(a, b int) bool {
		if edges[a].similarity != edges[b].similarity {
			return edges[a].similarity > edges[b].similarity
		}

		if edges[a].distance != edges[b].distance {
			return edges[a].distance < edges[b].distance
		}

		if deleted[edges[a].from].FromPath != deleted[edges[b].from].FromPath {
			return deleted[edges[a].from].FromPath < deleted[edges[b].from].FromPath
		}

		return added[edges[a].to].ToPath < added[edges[b].to].ToPath
	})

	return edges, nil
}

// candidateLines loads a blob's lines for similarity scoring. Binary,
// oversize and unreadable blobs return nil and simply never match; store
// timeouts and cancellation abort the comparison.
func (e *Engine) candidateLines(ctx context.Context, id gitobj.Hash) ([]string, error) {
	blob, err := e.store.ReadBlob(ctx, id)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
			errors.Is(err, gitobj.ErrStoreTimeout) {
			return nil, err
		}

		return nil, nil
	}

	if blob.IsBinary() || e.oversize(blob.Size()) {
		return nil, nil
	}

	lines := blob.Lines()
	if len(lines) == 0 {
		return nil, nil
	}

	return lines, nil
}

func (e *Engine) oversize(size int64) bool {
	return e.opts.MaxFileSize > 0 && size > e.opts.MaxFileSize
}

// sharedLinePercent scores two line sequences as the multiset intersection
// size over the larger sequence, in percent.
func sharedLinePercent(oldLines, newLines []string) int {
	counts := make(map[string]int, len(oldLines))
	for _, line := range oldLines {
		counts[line]++
	}

	common := 0

	for _, line := range newLines {
		if counts[line] > 0 {
			counts[line]--
			common++
		}
	}

	larger := max(len(oldLines), len(newLines))
	if larger == 0 {
		return 0
	}

	return common * 100 / larger
}

func renameChange(from, to Change, similarity int) Change {
	return Change{
		Kind:       ChangeRename,
		FromPath:   from.FromPath,
		ToPath:     to.ToPath,
		FromBlob:   from.FromBlob,
		ToBlob:     to.ToBlob,
		Similarity: similarity,
	}
}

func unusedIndexes(used []bool) []int {
	var out []int

	for i, u := range used {
		if !u {
			out = append(out, i)
		}
	}

	return out
}
