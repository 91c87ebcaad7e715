// Package stats accumulates attributed line counts into queryable
// per-contributor and per-commit statistics.
//
// Accumulation is split in two layers. A Partition is a private,
// unsynchronized accumulator owned by one worker; partitions merge
// associatively, so any grouping of the same records produces the same
// result. A Store folds partitions into FNV-sharded buckets and serves the
// read queries. All counts flow through one ledger keyed by (contributor,
// commit, language, class), which makes the conservation property hold by
// construction: every total is a marginal sum of the same ledger.
package stats

import (
	"time"

	"github.com/gitsleuth/gitsleuth/internal/identity"
	"github.com/gitsleuth/gitsleuth/internal/language"
	"github.com/gitsleuth/gitsleuth/pkg/gitobj"
)

// ClassCounts holds line counts split by classification.
type ClassCounts struct {
	Code    int64 `json:"code" yaml:"code"`
	Comment int64 `json:"comment" yaml:"comment"`
	Blank   int64 `json:"blank" yaml:"blank"`
}

// Total sums the three classes.
func (c ClassCounts) Total() int64 {
	return c.Code + c.Comment + c.Blank
}

// Add bumps the counter for one class.
func (c *ClassCounts) Add(class language.Class, n int64) {
	switch class {
	case language.Code:
		c.Code += n
	case language.Comment:
		c.Comment += n
	case language.Blank:
		c.Blank += n
	}
}

// Merge adds other into c.
func (c *ClassCounts) Merge(other ClassCounts) {
	c.Code += other.Code
	c.Comment += other.Comment
	c.Blank += other.Blank
}

// ContributorTotal is one row of the contributor ranking.
type ContributorTotal struct {
	Contributor identity.Key
	Lines       int64
}

// CommitActivity is one commit in a contributor's timeline: how many
// final-snapshot lines the commit still owns, and the churn it caused when
// it was walked. Commits whose lines were all later replaced stay listed
// with zero surviving lines.
type CommitActivity struct {
	Commit     gitobj.Hash
	When       time.Time
	Lines      int64
	Insertions int64
	Deletions  int64
}

// ChurnStats totals a contributor's line churn across all visited commits.
type ChurnStats struct {
	Insertions int64
	Deletions  int64
}

// lineKey identifies one ledger counter.
type lineKey struct {
	contributor identity.Key
	commit      gitobj.Hash
	lang        language.Language
	class       language.Class
}

// visitKey identifies one (contributor, commit) visit.
type visitKey struct {
	contributor identity.Key
	commit      gitobj.Hash
}

type visit struct {
	when       time.Time
	insertions int64
	deletions  int64
}

// Partition is a lock-free accumulator for one worker. It must not be
// shared between goroutines; merge partitions instead.
type Partition struct {
	lines  map[lineKey]int64
	visits map[visitKey]*visit
}

// NewPartition returns an empty accumulator.
func NewPartition() *Partition {
	return &Partition{
		lines:  make(map[lineKey]int64),
		visits: make(map[visitKey]*visit),
	}
}

// AddLine records one final-snapshot line attributed to the contributor via
// the commit that owns it.
func (p *Partition) AddLine(contributor identity.Key, commit gitobj.Hash, lang language.Language, class language.Class) {
	p.lines[lineKey{contributor: contributor, commit: commit, lang: lang, class: class}]++
}

// RecordCommit notes that a commit authored by contributor was walked, with
// the line churn it caused. Recorded once per commit regardless of how many
// lines survive.
func (p *Partition) RecordCommit(contributor identity.Key, commit gitobj.Hash, when time.Time, insertions, deletions int) {
	key := visitKey{contributor: contributor, commit: commit}
	v := p.visits[key]
	if v == nil {
		v = &visit{when: when}
		p.visits[key] = v
	}
	v.insertions += int64(insertions)
	v.deletions += int64(deletions)
}

// Merge folds other into p. Other must not be used afterwards concurrently
// with p; merging is additive and order-independent.
func (p *Partition) Merge(other *Partition) {
	for key, count := range other.lines {
		p.lines[key] += count
	}
	for key, ov := range other.visits {
		v := p.visits[key]
		if v == nil {
			p.visits[key] = &visit{when: ov.when, insertions: ov.insertions, deletions: ov.deletions}
			continue
		}
		if v.when.IsZero() || (!ov.when.IsZero() && ov.when.Before(v.when)) {
			v.when = ov.when
		}
		v.insertions += ov.insertions
		v.deletions += ov.deletions
	}
}

// Len reports the number of distinct ledger counters, mostly for tests and
// progress logging.
func (p *Partition) Len() int {
	return len(p.lines)
}
