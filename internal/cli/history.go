package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/fdn/internal/store"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show how many reversible renames each run left",
		Long: `Show the number of unconsumed rename records per run.

Record contents are encrypted under the name they lead back from, so no
file names can be listed.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(rootOpts, cmd)
		},
	}

	return cmd
}

func runHistory(opts *RootOptions, cmd *cobra.Command) error {
	return opts.withStore(cmd.Context(), func(st *store.Store) error {
		runs, err := st.ProvenanceRuns(cmd.Context())
		if err != nil {
			return WrapExitError(ExitFailure, "failed to read history", err)
		}

		if opts.Format == "json" {
			return opts.formatter(cmd).Success(runs)
		}

		if len(runs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No rename history in database.")
			return nil
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "RUN\tRECORDS\tFIRST\tLAST")
		for _, r := range runs {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", r.RunID, r.Records,
				r.First.Format(time.RFC3339), r.Last.Format(time.RFC3339))
		}
		return tw.Flush()
	})
}
