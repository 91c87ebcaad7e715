package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gitsleuth/gitsleuth/internal/config"
	"github.com/gitsleuth/gitsleuth/internal/render"
)

// AnalyzeCommand holds flags and dependencies for the analyze command.
type AnalyzeCommand struct {
	configPath     string
	format         string
	output         string
	head           string
	workers        int
	excludes       []string
	includeUnknown bool
	timeout        time.Duration
	noColor        bool

	engines engineSource
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand() *cobra.Command {
	return newAnalyzeCommand(gitEngineSource)
}

func newAnalyzeCommand(engines engineSource) *cobra.Command {
	ac := &AnalyzeCommand{engines: engines}

	cmd := &cobra.Command{
		Use:   "analyze <repo-path>",
		Short: "Attribute every surviving line and render the contribution report",
		Long: `Analyze walks the repository history, blames every line of the final
snapshot to the contributor and commit that last touched it, classifies lines
by language and code/comment/blank, and renders the aggregate report.`,
		Args: cobra.ExactArgs(1),
		RunE: ac.run,
	}

	cmd.Flags().StringVar(&ac.configPath, "config", "", "Config file path (default: .gitsleuth.yaml in cwd or home)")
	cmd.Flags().StringVar(&ac.format, "format", render.FormatTable, "Output format: table, json, yaml, html")
	cmd.Flags().StringVarP(&ac.output, "output", "o", "", "Write the report to a file instead of stdout")
	cmd.Flags().StringVar(&ac.head, "head", "", "Ref or commit hash to analyze (default: HEAD)")
	cmd.Flags().IntVar(&ac.workers, "workers", 0, "Classification workers (0 = CPU count)")
	cmd.Flags().StringArrayVar(&ac.excludes, "exclude", nil, "Path prefix to exclude (repeatable)")
	cmd.Flags().BoolVar(&ac.includeUnknown, "include-unknown", false, "Keep unrecognized-language lines in per-language breakdowns")
	cmd.Flags().DurationVar(&ac.timeout, "timeout", 0, "Abort the run after this duration (0 = no limit)")
	cmd.Flags().BoolVar(&ac.noColor, "no-color", false, "Disable colored output")

	return cmd
}

func (ac *AnalyzeCommand) run(cmd *cobra.Command, args []string) error {
	format, err := render.ValidateFormat(ac.format)
	if err != nil {
		return err
	}

	if ac.noColor {
		color.NoColor = true
	}

	sess, err := openSession(args[0], ac.configPath, ac.applyFlags(cmd), ac.engines)
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx := cmd.Context()

	if ac.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, ac.timeout)
		defer cancel()
	}

	start := time.Now()
	err = ac.analyze(ctx, sess, format, cmd)
	sess.recordOutcome(ctx, "analyze", start, err)

	return err
}

func (ac *AnalyzeCommand) analyze(ctx context.Context, sess *session, format string, cmd *cobra.Command) error {
	if err := sess.Engine.Run(ctx); err != nil {
		return err
	}

	// The table renderer never reads commit timelines; skip gathering them.
	report, err := render.BuildReport(sess.Engine, render.Options{WithCommits: format != render.FormatTable})
	if err != nil {
		return err
	}

	if ac.output != "" {
		return ac.writeFile(format, report)
	}

	return render.Write(cmd.OutOrStdout(), format, report)
}

// applyFlags overrides config values with explicitly set flags.
func (ac *AnalyzeCommand) applyFlags(cmd *cobra.Command) func(*config.Config) {
	return func(cfg *config.Config) {
		flags := cmd.Flags()

		if flags.Changed("head") {
			cfg.Repository.Head = ac.head
		}

		if flags.Changed("workers") {
			cfg.Analysis.Workers = ac.workers
		}

		if flags.Changed("include-unknown") {
			cfg.Analysis.IncludeUnknown = ac.includeUnknown
		}

		cfg.Analysis.ExcludePrefixes = append(cfg.Analysis.ExcludePrefixes, ac.excludes...)
	}
}

func (ac *AnalyzeCommand) writeFile(format string, report *render.Report) error {
	f, err := os.Create(ac.output)
	if err != nil {
		return fmt.Errorf("create %s: %w", ac.output, err)
	}

	if err := render.Write(f, format, report); err != nil {
		f.Close()

		return err
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", ac.output, err)
	}

	return nil
}
