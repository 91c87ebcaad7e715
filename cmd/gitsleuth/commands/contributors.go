package commands

import (
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gitsleuth/gitsleuth/internal/config"
	"github.com/gitsleuth/gitsleuth/internal/render"
)

// ContributorsCommand holds flags and dependencies for the contributors
// command.
type ContributorsCommand struct {
	configPath string
	head       string
	noColor    bool

	engines engineSource
}

// NewContributorsCommand creates the contributors command.
func NewContributorsCommand() *cobra.Command {
	return newContributorsCommand(gitEngineSource)
}

func newContributorsCommand(engines engineSource) *cobra.Command {
	cc := &ContributorsCommand{engines: engines}

	cmd := &cobra.Command{
		Use:   "contributors <repo-path>",
		Short: "Rank contributors by surviving lines",
		Args:  cobra.ExactArgs(1),
		RunE:  cc.run,
	}

	cmd.Flags().StringVar(&cc.configPath, "config", "", "Config file path (default: .gitsleuth.yaml in cwd or home)")
	cmd.Flags().StringVar(&cc.head, "head", "", "Ref or commit hash to analyze (default: HEAD)")
	cmd.Flags().BoolVar(&cc.noColor, "no-color", false, "Disable colored output")

	return cmd
}

func (cc *ContributorsCommand) run(cmd *cobra.Command, args []string) error {
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
	err = cc.list(cmd, sess)
	sess.recordOutcome(ctx, "contributors", start, err)

	return err
}

func (cc *ContributorsCommand) list(cmd *cobra.Command, sess *session) error {
	if err := sess.Engine.Run(cmd.Context()); err != nil {
		return err
	}

	report, err := render.BuildReport(sess.Engine, render.Options{})
	if err != nil {
		return err
	}

	return render.WriteContributorsTable(cmd.OutOrStdout(), report)
}
