package render_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gitsleuth/gitsleuth/internal/attribution"
	"github.com/gitsleuth/gitsleuth/internal/identity"
	"github.com/gitsleuth/gitsleuth/internal/language"
	"github.com/gitsleuth/gitsleuth/internal/render"
	"github.com/gitsleuth/gitsleuth/internal/stats"
)

func TestWriteTable(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, render.WriteTable(&buf, sampleReport(t)))

	out := buf.String()

	require.Contains(t, out, "Head 1f0c3a9b")
	require.Contains(t, out, "Files 2")
	require.Contains(t, out, "Lines 160")
	require.Contains(t, out, "Contributors 2")

	require.Contains(t, out, "Ada Lovelace <ada@example.com>")
	require.Contains(t, out, "Bob <bob@example.com>")
	require.Less(t, strings.Index(out, "Ada Lovelace"), strings.Index(out, "Bob"))

	require.Contains(t, out, "LANGUAGE")
	require.Contains(t, out, "COMMENTS")
	require.Contains(t, out, "TOTAL")
	require.Contains(t, out, "Python")

	// Languages are alphabetical within a section: Go before Python.
	require.Less(t, strings.Index(out, "Go"), strings.Index(out, "Python"))

	// No skipped files, no exclusion section.
	require.NotContains(t, out, "Excluded files")
}

func TestWriteTable_HumanizedCounts(t *testing.T) {
	t.Parallel()

	r := &render.Report{
		Head:       headHex,
		Files:      3,
		TotalLines: 12500,
		Languages: map[language.Language]stats.ClassCounts{
			"Go": {Code: 12345, Blank: 155},
		},
		Contributors: []render.Contributor{
			{
				Key:        "ada@example.com",
				Name:       "Ada",
				TotalLines: 12500,
				Languages: map[language.Language]stats.ClassCounts{
					"Go": {Code: 12345, Blank: 155},
				},
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, render.WriteTable(&buf, r))

	out := buf.String()
	require.Contains(t, out, "12,345")
	require.Contains(t, out, "12,500")
	require.NotContains(t, out, "12345")
}

func TestWriteTable_DiagnosticsListed(t *testing.T) {
	t.Parallel()

	r := sampleReport(t)
	r.Diagnostics = []attribution.Diagnostic{
		{Path: "logo.png", Reason: "binary"},
		{Path: "vendor/lib.js", Reason: "vendored"},
	}

	var buf bytes.Buffer
	require.NoError(t, render.WriteTable(&buf, r))

	out := buf.String()
	require.Contains(t, out, "Excluded files: 2")
	require.Contains(t, out, "logo.png")
	require.Contains(t, out, "vendor/lib.js")
	require.Contains(t, out, "binary")
}

func TestWriteContributorsTable(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, render.WriteContributorsTable(&buf, sampleReport(t)))

	out := buf.String()
	require.Contains(t, out, "CONTRIBUTOR")
	require.Contains(t, out, "SHARE")
	require.Contains(t, out, "Ada Lovelace")
	require.Contains(t, out, "75.0%")
	require.Contains(t, out, "25.0%")
	require.Contains(t, out, "160")
}

func TestWriteChurnTable_AlphabeticalRows(t *testing.T) {
	t.Parallel()

	// Ranked by lines Zed comes first; the churn table re-sorts by name.
	r := &render.Report{
		TotalLines: 150,
		Contributors: []render.Contributor{
			{Key: "zed@example.com", Name: "Zed", TotalLines: 100, Churn: render.Churn{Insertions: 110, Deletions: 10}},
			{Key: "ada@example.com", Name: "Ada", TotalLines: 50, Churn: render.Churn{Insertions: 55, Deletions: 5}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, render.WriteChurnTable(&buf, r))

	out := buf.String()
	require.Contains(t, out, "INSERTIONS")
	require.Less(t, strings.Index(out, "Ada"), strings.Index(out, "Zed"))
	require.Contains(t, out, "165")
	require.Contains(t, out, "15")
}

func TestWriteBlameTable(t *testing.T) {
	t.Parallel()

	attr := &attribution.FileAttribution{
		Path:     "cli.py",
		Language: "Python",
		Lines: []attribution.LineOwner{
			{Commit: mustHash(t, commitAHex), Contributor: "ada@example.com", Class: language.Code},
			{Commit: mustHash(t, commitBHex), Contributor: "bob@example.com", Class: language.Comment},
		},
	}

	names := map[identity.Key]string{"ada@example.com": "Ada Lovelace"}

	var buf bytes.Buffer
	require.NoError(t, render.WriteBlameTable(&buf, attr, names))

	out := buf.String()
	require.Contains(t, out, "cli.py (Python, 2 lines)")
	require.Contains(t, out, "aaaaaaaa")
	require.Contains(t, out, "Ada Lovelace")
	// Keys without a display name print as-is.
	require.Contains(t, out, "bob@example.com")
	require.Contains(t, out, "code")
	require.Contains(t, out, "comment")
}
