// Package main provides the entry point for the gitsleuth CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gitsleuth/gitsleuth/cmd/gitsleuth/commands"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gitsleuth",
		Short: "gitsleuth - line attribution for git repositories",
		Long: `gitsleuth blames every line of a repository's final snapshot to the
contributor and commit that last touched it, classifies lines by language
and code/comment/blank, and reports per-contributor totals.

Commands:
  analyze       Full contribution report (table, json, yaml, html)
  blame         Per-line owners for one file
  contributors  Contributor ranking
  churn         Per-contributor insertions and deletions`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		commands.NewAnalyzeCommand(),
		commands.NewBlameCommand(),
		commands.NewContributorsCommand(),
		commands.NewChurnCommand(),
		commands.NewVersionCommand(),
	)

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
