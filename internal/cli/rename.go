package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/fdn/internal/provenance"
	"github.com/roach88/fdn/internal/rename"
	"github.com/roach88/fdn/internal/report"
	"github.com/roach88/fdn/internal/store"
)

// RenameOptions holds flags for the rename command.
type RenameOptions struct {
	*RootOptions
	WalkOptions
	InPlace bool
}

// RenameReport is the JSON payload of rename and mv.
type RenameReport struct {
	RunID   string          `json:"run_id"`
	Applied bool            `json:"applied"`
	Results []rename.Result `json:"results"`
}

// NewRenameCommand creates the rename command.
func NewRenameCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenameOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "rename [paths...]",
		Short: "Normalize file or directory names",
		Long: `Normalize the names of entries under each path using the configured
separator, collapse targets and term substitutions.

Without --in-place the planned renames are printed and nothing changes.
Every applied rename is recorded so "fdn reverse" can undo it.

Exit codes:
  0 - All entries renamed or already normalized
  1 - A rename failed (later entries were not processed)
  2 - Command error (bad flags, database cannot open, etc.)

Examples:
  fdn rename .
  fdn rename -i -d 0 ~/Downloads
  fdn rename -i -t d --exclude node_modules ./projects`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRename(opts, cmd, args)
		},
	}

	cmd.Flags().BoolVarP(&opts.InPlace, "in-place", "i", false, "apply renames (default is a dry run)")
	addWalkFlags(cmd, &opts.WalkOptions)

	return cmd
}

func runRename(opts *RenameOptions, cmd *cobra.Command, args []string) error {
	paths, walkOpts, err := opts.collect(cmd, opts.Config, args)
	if err != nil {
		return err
	}

	sources, err := rename.Pair(paths, nil)
	if err != nil {
		return WrapRenameError("invalid arguments", err)
	}

	return opts.forward(cmd, sources, rename.Options{
		Apply:         opts.InPlace,
		IncludeHidden: walkOpts.IncludeHidden,
	}, opts.Align)
}

// forward runs sources through the orchestrator and reports the results.
func (o *RootOptions) forward(cmd *cobra.Command, sources []rename.Source, runOpts rename.Options, align bool) error {
	st, err := o.openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer o.closeStore(st)

	orch, ledger := o.newOrchestrator(st)
	o.Logger.Debug("renaming", "paths", len(sources), "apply", runOpts.Apply)

	results, runErr := orch.Forward(cmd.Context(), sources, runOpts)

	f := o.formatter(cmd)
	if o.Format == "json" {
		payload := RenameReport{RunID: ledger.RunID(), Applied: runOpts.Apply, Results: results}
		if runErr != nil {
			_ = f.Error(ErrorCode(runErr), runErr.Error(), payload)
			return WrapRenameError("rename failed", runErr)
		}
		return f.Success(payload)
	}

	r := newRenderer(cmd.OutOrStdout(), o.Config, align)
	counts := map[rename.Status]int{}
	for _, res := range results {
		counts[res.Status]++
		if res.Changed() {
			fmt.Fprintln(cmd.OutOrStdout(), r.Render(report.Pair{Original: res.Original, New: res.New}, res.Status == rename.StatusRenamed))
		}
	}
	f.VerboseLog("%d renamed, %d planned, %d unchanged, %d skipped",
		counts[rename.StatusRenamed], counts[rename.StatusPlanned],
		counts[rename.StatusUnchanged], counts[rename.StatusSkipped])

	if runErr != nil {
		return WrapRenameError("rename failed", runErr)
	}
	return nil
}

// newOrchestrator wires the store, ledger and logger for one run.
func (o *RootOptions) newOrchestrator(st *store.Store) (*rename.Orchestrator, *provenance.Ledger) {
	var ledgerOpts []provenance.Option
	if o.RunIDs != nil {
		ledgerOpts = append(ledgerOpts, provenance.WithRunIDGenerator(o.RunIDs))
	}
	ledger := provenance.New(st, ledgerOpts...)

	provider := configuredRules{base: st, unicodeForm: o.Config.Transform.UnicodeForm}
	return rename.New(provider, ledger, rename.WithLogger(o.Logger)), ledger
}
