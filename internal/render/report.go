// Package render turns attribution results into reports: aligned terminal
// tables, JSON and YAML documents, and an HTML chart page.
package render

import (
	"fmt"
	"sort"
	"time"

	"github.com/gitsleuth/gitsleuth/internal/attribution"
	"github.com/gitsleuth/gitsleuth/internal/identity"
	"github.com/gitsleuth/gitsleuth/internal/language"
	"github.com/gitsleuth/gitsleuth/internal/stats"
	"github.com/gitsleuth/gitsleuth/pkg/gitobj"
)

// Source is the slice of the attribution query surface a report reads.
// *attribution.Engine satisfies it once a run has completed.
type Source interface {
	Head() (gitobj.Hash, error)
	RunID() string
	ListContributors() ([]attribution.ContributorSummary, error)
	ContributorBreakdown(key identity.Key) (map[language.Language]stats.ClassCounts, error)
	ContributorCommits(key identity.Key) ([]stats.CommitActivity, error)
	ContributorChurn(key identity.Key) (stats.ChurnStats, error)
	RepositoryTotals() (map[language.Language]stats.ClassCounts, error)
	Files() ([]string, error)
	Diagnostics() []attribution.Diagnostic
}

// Report is a fully materialized attribution report. Counts are exact;
// humanized formatting happens in the table and chart renderers.
type Report struct {
	GeneratedAt  time.Time                               `json:"generated_at" yaml:"generated_at"`
	Head         string                                  `json:"head" yaml:"head"`
	RunID        string                                  `json:"run_id" yaml:"run_id"`
	Files        int                                     `json:"files" yaml:"files"`
	TotalLines   int64                                   `json:"total_lines" yaml:"total_lines"`
	Languages    map[language.Language]stats.ClassCounts `json:"languages" yaml:"languages"`
	Contributors []Contributor                           `json:"contributors" yaml:"contributors"`
	Diagnostics  []attribution.Diagnostic                `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

// Contributor is one contributor's slice of the report, ranked by surviving
// lines.
type Contributor struct {
	Key        identity.Key                            `json:"key" yaml:"key"`
	Name       string                                  `json:"name" yaml:"name"`
	TotalLines int64                                   `json:"total_lines" yaml:"total_lines"`
	Languages  map[language.Language]stats.ClassCounts `json:"languages" yaml:"languages"`
	Churn      Churn                                   `json:"churn" yaml:"churn"`
	Commits    []CommitEntry                           `json:"commits,omitempty" yaml:"commits,omitempty"`
}

// Churn pairs insertion and deletion totals.
type Churn struct {
	Insertions int64 `json:"insertions" yaml:"insertions"`
	Deletions  int64 `json:"deletions" yaml:"deletions"`
}

// CommitEntry is one commit on a contributor's timeline, oldest first.
type CommitEntry struct {
	Commit     string    `json:"commit" yaml:"commit"`
	When       time.Time `json:"when" yaml:"when"`
	Lines      int64     `json:"lines" yaml:"lines"`
	Insertions int64     `json:"insertions" yaml:"insertions"`
	Deletions  int64     `json:"deletions" yaml:"deletions"`
}

// Options trims what BuildReport materializes.
type Options struct {
	// WithCommits attaches each contributor's commit timeline. The timeline
	// feeds the activity chart and the churn detail in JSON/YAML output.
	WithCommits bool
}

// BuildReport materializes a report from a completed run.
func BuildReport(src Source, opts Options) (*Report, error) {
	head, err := src.Head()
	if err != nil {
		return nil, err
	}

	totals, err := src.RepositoryTotals()
	if err != nil {
		return nil, fmt.Errorf("repository totals: %w", err)
	}

	paths, err := src.Files()
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}

	summaries, err := src.ListContributors()
	if err != nil {
		return nil, fmt.Errorf("list contributors: %w", err)
	}

	report := &Report{
		GeneratedAt:  time.Now().UTC(),
		Head:         head.String(),
		RunID:        src.RunID(),
		Files:        len(paths),
		Languages:    totals,
		Contributors: make([]Contributor, 0, len(summaries)),
		Diagnostics:  src.Diagnostics(),
	}

	for _, counts := range totals {
		report.TotalLines += counts.Total()
	}

	for _, summary := range summaries {
		contributor, err := buildContributor(src, summary, opts)
		if err != nil {
			return nil, err
		}

		report.Contributors = append(report.Contributors, contributor)
	}

	return report, nil
}

func buildContributor(src Source, summary attribution.ContributorSummary, opts Options) (Contributor, error) {
	breakdown, err := src.ContributorBreakdown(summary.Key)
	if err != nil {
		return Contributor{}, fmt.Errorf("breakdown for %s: %w", summary.Key, err)
	}

	churn, err := src.ContributorChurn(summary.Key)
	if err != nil {
		return Contributor{}, fmt.Errorf("churn for %s: %w", summary.Key, err)
	}

	contributor := Contributor{
		Key:        summary.Key,
		Name:       summary.DisplayName,
		TotalLines: summary.TotalLines,
		Languages:  breakdown,
		Churn:      Churn{Insertions: churn.Insertions, Deletions: churn.Deletions},
	}

	if !opts.WithCommits {
		return contributor, nil
	}

	activity, err := src.ContributorCommits(summary.Key)
	if err != nil {
		return Contributor{}, fmt.Errorf("commits for %s: %w", summary.Key, err)
	}

	contributor.Commits = make([]CommitEntry, len(activity))
	for i, a := range activity {
		contributor.Commits[i] = CommitEntry{
			Commit:     a.Commit.String(),
			When:       a.When,
			Lines:      a.Lines,
			Insertions: a.Insertions,
			Deletions:  a.Deletions,
		}
	}

	return contributor, nil
}

// languagesByName orders a breakdown's languages alphabetically, for table
// rows.
func languagesByName(m map[language.Language]stats.ClassCounts) []language.Language {
	out := make([]language.Language, 0, len(m))
	for lang := range m {
		out = append(out, lang)
	}

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	return out
}

// languagesByVolume orders a breakdown's languages by descending line count,
// name on ties, for chart series.
func languagesByVolume(m map[language.Language]stats.ClassCounts) []language.Language {
	out := languagesByName(m)

	sort.SliceStable(out, func(i, j int) bool {
		return m[out[i]].Total() > m[out[j]].Total()
	})

	return out
}
