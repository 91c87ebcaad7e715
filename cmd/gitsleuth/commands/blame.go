package commands

import (
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gitsleuth/gitsleuth/internal/config"
	"github.com/gitsleuth/gitsleuth/internal/identity"
	"github.com/gitsleuth/gitsleuth/internal/render"
)

// BlameCommand holds flags and dependencies for the blame command.
type BlameCommand struct {
	configPath string
	head       string
	noColor    bool

	engines engineSource
}

// NewBlameCommand creates the blame command.
func NewBlameCommand() *cobra.Command {
	return newBlameCommand(gitEngineSource)
}

func newBlameCommand(engines engineSource) *cobra.Command {
	bc := &BlameCommand{engines: engines}

	cmd := &cobra.Command{
		Use:   "blame <repo-path> <file>",
		Short: "Show the contributor and commit owning each line of one file",
		Args:  cobra.ExactArgs(2),
		RunE:  bc.run,
	}

	cmd.Flags().StringVar(&bc.configPath, "config", "", "Config file path (default: .gitsleuth.yaml in cwd or home)")
	cmd.Flags().StringVar(&bc.head, "head", "", "Ref or commit hash to analyze (default: HEAD)")
	cmd.Flags().BoolVar(&bc.noColor, "no-color", false, "Disable colored output")

	return cmd
}

func (bc *BlameCommand) run(cmd *cobra.Command, args []string) error {
	if bc.noColor {
		color.NoColor = true
	}

	tweak := func(cfg *config.Config) {
		if cmd.Flags().Changed("head") {
			cfg.Repository.Head = bc.head
		}
	}

	sess, err := openSession(args[0], bc.configPath, tweak, bc.engines)
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx := cmd.Context()

	start := time.Now()
	err = bc.blame(cmd, sess, args[1])
	sess.recordOutcome(ctx, "blame", start, err)

	return err
}

func (bc *BlameCommand) blame(cmd *cobra.Command, sess *session, path string) error {
	if err := sess.Engine.Run(cmd.Context()); err != nil {
		return err
	}

	attr, err := sess.Engine.FileAttribution(path)
	if err != nil {
		return err
	}

	summaries, err := sess.Engine.ListContributors()
	if err != nil {
		return err
	}

	names := make(map[identity.Key]string, len(summaries))
	for _, s := range summaries {
		names[s.Key] = s.DisplayName
	}

	return render.WriteBlameTable(cmd.OutOrStdout(), attr, names)
}
