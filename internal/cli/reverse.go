package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/fdn/internal/rename"
	"github.com/roach88/fdn/internal/report"
)

// ReverseOptions holds flags for the reverse command.
type ReverseOptions struct {
	*RootOptions
	WalkOptions
	InPlace bool
	Chain   bool
}

// ReverseReport is the JSON payload of reverse.
type ReverseReport struct {
	Applied bool           `json:"applied"`
	Results []ReverseEntry `json:"results"`
}

// ReverseEntry is one reversed path in JSON output.
type ReverseEntry struct {
	rename.ReverseResult
	Error *CLIError `json:"error,omitempty"`
}

// NewReverseCommand creates the reverse command.
func NewReverseCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReverseOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reverse [paths...]",
		Short: "Restore names from rename history",
		Long: `Restore the previous name of entries renamed by fdn.

Each record is used once: a restored entry forgets the rename it undid.
With --chain every recorded rename is undone back to the oldest name.

Exit codes:
  0 - All entries restored or without history
  1 - One or more entries failed (other entries were still processed)
  2 - Command error (bad flags, database cannot open, etc.)

Examples:
  fdn reverse .
  fdn reverse -i My_File_Draft.txt
  fdn reverse -i -c -d 0 ~/Downloads`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReverse(opts, cmd, args)
		},
	}

	cmd.Flags().BoolVarP(&opts.InPlace, "in-place", "i", false, "apply renames (default is a dry run)")
	cmd.Flags().BoolVarP(&opts.Chain, "chain", "c", false, "follow history back to the oldest name")
	addWalkFlags(cmd, &opts.WalkOptions)

	return cmd
}

func runReverse(opts *ReverseOptions, cmd *cobra.Command, args []string) error {
	paths, _, err := opts.collect(cmd, opts.Config, args)
	if err != nil {
		return err
	}

	st, err := opts.openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer opts.closeStore(st)

	orch, _ := opts.newOrchestrator(st)
	runOpts := rename.Options{
		Apply: opts.InPlace,
		Chain: opts.Chain,
	}
	results, runErr := orch.Reverse(cmd.Context(), paths, runOpts)

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}

	f := opts.formatter(cmd)
	if opts.Format == "json" {
		payload := ReverseReport{Applied: opts.InPlace, Results: make([]ReverseEntry, 0, len(results))}
		for _, res := range results {
			entry := ReverseEntry{ReverseResult: res}
			if res.Err != nil {
				entry.Error = &CLIError{Code: ErrorCode(res.Err), Message: res.Err.Error()}
			}
			payload.Results = append(payload.Results, entry)
		}
		if runErr != nil {
			_ = f.Error(ErrorCode(runErr), runErr.Error(), payload)
			return WrapRenameError("reverse failed", runErr)
		}
		if err := f.Success(payload); err != nil {
			return err
		}
	} else {
		r := newRenderer(cmd.OutOrStdout(), opts.Config, opts.Align)
		for _, res := range results {
			if len(res.Hops) > 0 {
				pair := report.Pair{Original: res.Original(), New: res.Final()}
				fmt.Fprintln(cmd.OutOrStdout(), r.Render(pair, opts.InPlace && res.Err == nil))
			}
			if res.Err != nil {
				_ = f.Error(ErrorCode(res.Err), res.Err.Error(), nil)
			}
		}
		if runErr != nil {
			return WrapRenameError("reverse failed", runErr)
		}
	}

	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d paths failed", failed, len(results)))
	}
	return nil
}
