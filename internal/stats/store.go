package stats

import (
	"bytes"
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"github.com/gitsleuth/gitsleuth/internal/identity"
	"github.com/gitsleuth/gitsleuth/internal/language"
	"github.com/gitsleuth/gitsleuth/pkg/gitobj"
)

// defaultShardCount balances merge parallelism against per-shard overhead.
const defaultShardCount = 16

// contributorAgg collects everything keyed by one contributor.
type contributorAgg struct {
	total     int64
	breakdown map[language.Language]*ClassCounts
	commits   map[gitobj.Hash]*commitAgg
}

type commitAgg struct {
	when       time.Time
	lines      int64
	insertions int64
	deletions  int64
}

// shard owns a deterministic subset of contributors (by FNV over the key)
// and of commits (by FNV over the hash). During a merge each shard is
// written by exactly one goroutine.
type shard struct {
	contributors map[identity.Key]*contributorAgg
	commits      map[gitobj.Hash]map[language.Language]*ClassCounts
	totals       map[language.Language]*ClassCounts
}

func newShard() *shard {
	return &shard{
		contributors: make(map[identity.Key]*contributorAgg),
		commits:      make(map[gitobj.Hash]map[language.Language]*ClassCounts),
		totals:       make(map[language.Language]*ClassCounts),
	}
}

// Store aggregates merged partitions and serves read queries. Merging and
// querying must not overlap; the orchestrator merges once, then only reads.
type Store struct {
	shards []*shard
}

// NewStore builds a store with the given shard count (defaulted when
// non-positive).
func NewStore(shardCount int) *Store {
	if shardCount <= 0 {
		shardCount = defaultShardCount
	}
	shards := make([]*shard, shardCount)
	for idx := range shardCount {
		shards[idx] = newShard()
	}
	return &Store{shards: shards}
}

// shardIndex routes a key to its shard.
func shardIndex(key []byte, n int) int {
	hasher := fnv.New32a()
	hasher.Write(key)

	idx := int(hasher.Sum32()) % n
	if idx < 0 {
		idx = -idx
	}
	return idx
}

// Merge folds partitions into the shards, one goroutine per shard. Each
// goroutine scans every partition but writes only the keys it owns, so no
// locking is needed.
func (s *Store) Merge(parts ...*Partition) {
	var wg sync.WaitGroup
	wg.Add(len(s.shards))
	for idx := range s.shards {
		go func(idx int) {
			defer wg.Done()
			for _, p := range parts {
				s.shards[idx].absorb(p, idx, len(s.shards))
			}
		}(idx)
	}
	wg.Wait()
}

func (sh *shard) absorb(p *Partition, idx, n int) {
	for key, count := range p.lines {
		if shardIndex([]byte(key.contributor), n) == idx {
			agg := sh.contributor(key.contributor)
			agg.total += count
			countsIn(agg.breakdown, key.lang).Add(key.class, count)
			agg.commit(key.commit).lines += count
		}
		if shardIndex(key.commit[:], n) == idx {
			byLang := sh.commits[key.commit]
			if byLang == nil {
				byLang = make(map[language.Language]*ClassCounts)
				sh.commits[key.commit] = byLang
			}
			countsIn(byLang, key.lang).Add(key.class, count)
			countsIn(sh.totals, key.lang).Add(key.class, count)
		}
	}

	for key, v := range p.visits {
		if shardIndex([]byte(key.contributor), n) != idx {
			continue
		}
		agg := sh.contributor(key.contributor).commit(key.commit)
		if agg.when.IsZero() || (!v.when.IsZero() && v.when.Before(agg.when)) {
			agg.when = v.when
		}
		agg.insertions += v.insertions
		agg.deletions += v.deletions
	}
}

func (sh *shard) contributor(key identity.Key) *contributorAgg {
	agg := sh.contributors[key]
	if agg == nil {
		agg = &contributorAgg{
			breakdown: make(map[language.Language]*ClassCounts),
			commits:   make(map[gitobj.Hash]*commitAgg),
		}
		sh.contributors[key] = agg
	}
	return agg
}

func (agg *contributorAgg) commit(id gitobj.Hash) *commitAgg {
	ca := agg.commits[id]
	if ca == nil {
		ca = &commitAgg{}
		agg.commits[id] = ca
	}
	return ca
}

func countsIn(m map[language.Language]*ClassCounts, lang language.Language) *ClassCounts {
	c := m[lang]
	if c == nil {
		c = &ClassCounts{}
		m[lang] = c
	}
	return c
}

func (s *Store) lookupContributor(key identity.Key) *contributorAgg {
	sh := s.shards[shardIndex([]byte(key), len(s.shards))]
	return sh.contributors[key]
}

// Contributors ranks every known contributor by surviving line count,
// descending, with ties broken by key for determinism.
func (s *Store) Contributors() []ContributorTotal {
	var out []ContributorTotal
	for _, sh := range s.shards {
		for key, agg := range sh.contributors {
			out = append(out, ContributorTotal{Contributor: key, Lines: agg.total})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Lines != out[j].Lines {
			return out[i].Lines > out[j].Lines
		}
		return out[i].Contributor < out[j].Contributor
	})
	return out
}

// ContributorBreakdown returns the per-language class counts for one
// contributor. The returned map is a copy.
func (s *Store) ContributorBreakdown(key identity.Key) (map[language.Language]ClassCounts, bool) {
	agg := s.lookupContributor(key)
	if agg == nil {
		return nil, false
	}
	return copyBreakdown(agg.breakdown), true
}

// ContributorTotalLines returns the contributor's surviving line count.
func (s *Store) ContributorTotalLines(key identity.Key) (int64, bool) {
	agg := s.lookupContributor(key)
	if agg == nil {
		return 0, false
	}
	return agg.total, true
}

// ContributorCommits returns the contributor's visited commits oldest
// first, each with surviving line count and churn. Ties on the timestamp
// fall back to the commit id.
func (s *Store) ContributorCommits(key identity.Key) ([]CommitActivity, bool) {
	agg := s.lookupContributor(key)
	if agg == nil {
		return nil, false
	}
	out := make([]CommitActivity, 0, len(agg.commits))
	for id, ca := range agg.commits {
		out = append(out, CommitActivity{
			Commit:     id,
			When:       ca.when,
			Lines:      ca.lines,
			Insertions: ca.insertions,
			Deletions:  ca.deletions,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].When.Equal(out[j].When) {
			return out[i].When.Before(out[j].When)
		}
		return bytes.Compare(out[i].Commit[:], out[j].Commit[:]) < 0
	})
	return out, true
}

// ContributorChurn totals the contributor's churn across visited commits.
func (s *Store) ContributorChurn(key identity.Key) (ChurnStats, bool) {
	agg := s.lookupContributor(key)
	if agg == nil {
		return ChurnStats{}, false
	}
	var churn ChurnStats
	for _, ca := range agg.commits {
		churn.Insertions += ca.insertions
		churn.Deletions += ca.deletions
	}
	return churn, true
}

// CommitBreakdown returns the per-language class counts of the lines still
// attributed to one commit in the final snapshot.
func (s *Store) CommitBreakdown(id gitobj.Hash) (map[language.Language]ClassCounts, bool) {
	sh := s.shards[shardIndex(id[:], len(s.shards))]
	byLang, ok := sh.commits[id]
	if !ok {
		return nil, false
	}
	return copyBreakdown(byLang), true
}

// Totals returns the whole-repository per-language class counts.
func (s *Store) Totals() map[language.Language]ClassCounts {
	out := make(map[language.Language]ClassCounts)
	for _, sh := range s.shards {
		for lang, counts := range sh.totals {
			merged := out[lang]
			merged.Merge(*counts)
			out[lang] = merged
		}
	}
	return out
}

func copyBreakdown(src map[language.Language]*ClassCounts) map[language.Language]ClassCounts {
	out := make(map[language.Language]ClassCounts, len(src))
	for lang, counts := range src {
		out[lang] = *counts
	}
	return out
}
