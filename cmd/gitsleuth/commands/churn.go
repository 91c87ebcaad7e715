package commands

import (
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gitsleuth/gitsleuth/internal/config"
	"github.com/gitsleuth/gitsleuth/internal/render"
)

// ChurnCommand holds flags and dependencies for the churn command.
type ChurnCommand struct {
	configPath string
	head       string
	noColor    bool

	engines engineSource
}

// NewChurnCommand creates the churn command.
func NewChurnCommand() *cobra.Command {
	return newChurnCommand(gitEngineSource)
}

func newChurnCommand(engines engineSource) *cobra.Command {
	cc := &ChurnCommand{engines: engines}

	cmd := &cobra.Command{
		Use:   "churn <repo-path>",
		Short: "Show per-contributor insertions and deletions across history",
		Args:  cobra.ExactArgs(1),
		RunE:  cc.run,
	}

	cmd.Flags().StringVar(&cc.configPath, "config", "", "Config file path (default: .gitsleuth.yaml in cwd or home)")
	cmd.Flags().StringVar(&cc.head, "head", "", "Ref or commit hash to analyze (default: HEAD)")
	cmd.Flags().BoolVar(&cc.noColor, "no-color", false, "Disable colored output")

	return cmd
}

func (cc *ChurnCommand) run(cmd *cobra.Command, args []string) error {
	if cc.noColor {
		color.NoColor = true
	}

	tweak := func(cfg *config.Config) {
		if cmd.Flags().Changed("head") {
			cfg.Repository.Head = cc.head
		}
	}

	sess, err := openSession(args[0], cc.configPath, tweak, cc.engines)
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx := cmd.Context()

	start := time.Now()
	err = cc.tabulate(cmd, sess)
	sess.recordOutcome(ctx, "churn", start, err)

	return err
}

func (cc *ChurnCommand) tabulate(cmd *cobra.Command, sess *session) error {
	if err := sess.Engine.Run(cmd.Context()); err != nil {
		return err
	}

	report, err := render.BuildReport(sess.Engine, render.Options{})
	if err != nil {
		return err
	}

	return render.WriteChurnTable(cmd.OutOrStdout(), report)
}
