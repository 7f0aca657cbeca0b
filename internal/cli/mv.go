package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/fdn/internal/rename"
)

// NewMoveCommand creates the mv command.
func NewMoveCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mv <source> <target> [<source> <target>...]",
		Short: "Rename entries to explicit names, with history",
		Long: `Rename each source to the given target base name without normalizing
it. The rename is recorded like any other, so "fdn reverse" can undo it.

A target is a base name in the source's directory; it must not contain a
path separator. An existing target is never replaced.

Examples:
  fdn mv draft.txt "Final Report.txt"
  fdn mv a.txt b.txt c.txt d.txt`,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMove(rootOpts, cmd, args)
		},
	}

	return cmd
}

func runMove(opts *RootOptions, cmd *cobra.Command, args []string) error {
	if len(args)%2 != 0 {
		return NewExitError(ExitCommandError, "mv takes source/target pairs: got an odd number of arguments")
	}

	paths := make([]string, 0, len(args)/2)
	targets := make([]string, 0, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		abs, err := filepath.Abs(args[i])
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid source", err)
		}
		paths = append(paths, abs)
		targets = append(targets, args[i+1])
	}

	sources, err := rename.Pair(paths, targets)
	if err != nil {
		return WrapRenameError("invalid arguments", err)
	}

	return opts.forward(cmd, sources, rename.Options{Apply: true}, opts.Config.Output.Align)
}
