package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gitsleuth/gitsleuth/internal/language"
	"github.com/gitsleuth/gitsleuth/internal/render"
)

func TestAnalyzeCommand_Table(t *testing.T) {
	t.Parallel()

	repo := seedRepo(t)

	command := newAnalyzeCommand(repo.memEngines())

	var out bytes.Buffer

	command.SetOut(&out)
	command.SetArgs([]string{"."})

	require.NoError(t, command.Execute())

	got := out.String()
	require.Contains(t, got, "Ada <ada@example.com>")
	require.Contains(t, got, "Bob <bob@example.com>")
	require.Contains(t, got, "Python")
	require.Contains(t, got, "Markdown")
	require.Contains(t, got, "LANGUAGE")
	require.Contains(t, got, "Files 2")
	require.Contains(t, got, "Lines 6")
}

func TestAnalyzeCommand_JSON(t *testing.T) {
	t.Parallel()

	repo := seedRepo(t)

	command := newAnalyzeCommand(repo.memEngines())

	var out bytes.Buffer

	command.SetOut(&out)
	command.SetArgs([]string{".", "--format", "json"})

	require.NoError(t, command.Execute())

	var report render.Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))

	require.Equal(t, repo.c2.String(), report.Head)
	require.Equal(t, 2, report.Files)
	require.Equal(t, int64(6), report.TotalLines)
	require.Len(t, report.Contributors, 2)
	require.Equal(t, "Ada", report.Contributors[0].Name)
	require.Equal(t, int64(4), report.Contributors[0].TotalLines)
	require.Equal(t, int64(3), report.Languages["Python"].Code)
	require.Equal(t, int64(2), report.Languages["Python"].Comment)

	// Non-table formats carry commit timelines.
	require.NotEmpty(t, report.Contributors[0].Commits)
}

func TestAnalyzeCommand_HeadFlag(t *testing.T) {
	t.Parallel()

	repo := seedRepo(t)

	command := newAnalyzeCommand(repo.memEngines())

	var out bytes.Buffer

	command.SetOut(&out)
	command.SetArgs([]string{".", "--format", "json", "--head", repo.c1.String()})

	require.NoError(t, command.Execute())

	var report render.Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))

	require.Equal(t, repo.c1.String(), report.Head)
	require.Equal(t, int64(4), report.TotalLines)
	require.Len(t, report.Contributors, 1)
	require.Equal(t, "Ada", report.Contributors[0].Name)
}

func TestAnalyzeCommand_ExcludeFlag(t *testing.T) {
	t.Parallel()

	repo := seedRepo(t)

	command := newAnalyzeCommand(repo.memEngines())

	var out bytes.Buffer

	command.SetOut(&out)
	command.SetArgs([]string{".", "--format", "json", "--exclude", "docs/"})

	require.NoError(t, command.Execute())

	var report render.Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))

	require.Equal(t, 1, report.Files)
	require.Equal(t, int64(5), report.TotalLines)
	require.NotContains(t, report.Languages, language.Language("Markdown"))
}

func TestAnalyzeCommand_HTMLOutputFile(t *testing.T) {
	t.Parallel()

	repo := seedRepo(t)
	path := filepath.Join(t.TempDir(), "report.html")

	command := newAnalyzeCommand(repo.memEngines())
	command.SetOut(new(bytes.Buffer))
	command.SetArgs([]string{".", "--format", "html", "--output", path})

	require.NoError(t, command.Execute())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "Lines by Language")
	require.Contains(t, string(data), "Commit Activity")
}

func TestAnalyzeCommand_UnsupportedFormat(t *testing.T) {
	t.Parallel()

	repo := seedRepo(t)

	command := newAnalyzeCommand(repo.memEngines())
	command.SetOut(new(bytes.Buffer))
	command.SetErr(new(bytes.Buffer))
	command.SetArgs([]string{".", "--format", "xml"})

	require.ErrorIs(t, command.Execute(), render.ErrUnsupportedFormat)
}

func TestAnalyzeCommand_Timeout(t *testing.T) {
	t.Parallel()

	repo := seedRepo(t)

	command := newAnalyzeCommand(repo.memEngines())
	command.SetOut(new(bytes.Buffer))
	command.SetErr(new(bytes.Buffer))
	command.SetArgs([]string{".", "--timeout", "1ns"})

	err := command.Execute()
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
