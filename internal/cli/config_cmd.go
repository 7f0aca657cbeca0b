package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/fdn/internal/rules"
	"github.com/roach88/fdn/internal/store"
)

// RuleListing is the JSON payload of config list.
type RuleListing struct {
	Separator       string                 `json:"separator"`
	CollapseTargets []store.CollapseTarget `json:"collapse_targets"`
	Terms           []store.Term           `json:"terms"`
}

// NewConfigCommand creates the config command and its subcommands.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the separator, collapse targets and term substitutions",
		Long: `Manage the rules stored in the database.

An entry of the form key:value is a term substitution that replaces key
with value. Any other entry is a collapse target, replaced with the
separator.

Examples:
  fdn config list
  fdn config add "+" "&:_and_"
  fdn config delete "-"
  fdn config separator "-"
  fdn config import rules.yaml
  fdn config export > rules.yaml`,
	}

	cmd.AddCommand(newConfigListCommand(rootOpts))
	cmd.AddCommand(newConfigAddCommand(rootOpts))
	cmd.AddCommand(newConfigDeleteCommand(rootOpts))
	cmd.AddCommand(newConfigSeparatorCommand(rootOpts))
	cmd.AddCommand(newConfigImportCommand(rootOpts))
	cmd.AddCommand(newConfigExportCommand(rootOpts))

	return cmd
}

// withStore opens the store for the duration of fn.
func (o *RootOptions) withStore(ctx context.Context, fn func(*store.Store) error) error {
	st, err := o.openStore(ctx)
	if err != nil {
		return err
	}
	defer o.closeStore(st)
	return fn(st)
}

func newConfigListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List stored rules",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(cmd.Context(), func(st *store.Store) error {
				listing, err := listRules(cmd, st)
				if err != nil {
					return WrapExitError(ExitFailure, "failed to read rules", err)
				}
				if opts.Format == "json" {
					return opts.formatter(cmd).Success(listing)
				}
				printListing(cmd.OutOrStdout(), listing)
				return nil
			})
		},
	}
}

func listRules(cmd *cobra.Command, st *store.Store) (RuleListing, error) {
	ctx := cmd.Context()
	sep, err := st.Separator(ctx)
	if err != nil {
		return RuleListing{}, err
	}
	targets, err := st.CollapseTargets(ctx)
	if err != nil {
		return RuleListing{}, err
	}
	terms, err := st.Terms(ctx)
	if err != nil {
		return RuleListing{}, err
	}
	return RuleListing{Separator: sep, CollapseTargets: targets, Terms: terms}, nil
}

func printListing(w io.Writer, l RuleListing) {
	fmt.Fprintf(w, "separator: %q\n", l.Separator)
	fmt.Fprintf(w, "collapse targets (%d):\n", len(l.CollapseTargets))
	for _, t := range l.CollapseTargets {
		fmt.Fprintf(w, "  %q\n", t.Value)
	}
	fmt.Fprintf(w, "terms (%d):\n", len(l.Terms))
	for _, t := range l.Terms {
		fmt.Fprintf(w, "  %q -> %q\n", t.Key, t.Value)
	}
}

func newConfigAddCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "add <word|key:value>...",
		Short:         "Add collapse targets or term substitutions",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := parseEntries(args)
			if err != nil {
				return err
			}
			return opts.withStore(cmd.Context(), func(st *store.Store) error {
				ctx := cmd.Context()
				out := cmd.OutOrStdout()
				for _, e := range entries {
					switch e.Kind {
					case rules.EntryTerm:
						if err := st.AddTerm(ctx, e.Key, e.Value); err != nil {
							return WrapExitError(ExitFailure, "failed to add term", err)
						}
						fmt.Fprintf(out, "added term %q -> %q\n", e.Key, e.Value)
					default:
						added, err := st.AddCollapseTarget(ctx, e.Key)
						if err != nil {
							return WrapExitError(ExitFailure, "failed to add collapse target", err)
						}
						if added {
							fmt.Fprintf(out, "added collapse target %q\n", e.Key)
						} else {
							fmt.Fprintf(out, "collapse target %q already present\n", e.Key)
						}
					}
				}
				return nil
			})
		},
	}
}

func newConfigDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <word|key:value>...",
		Short:         "Delete collapse targets or term substitutions",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := parseEntries(args)
			if err != nil {
				return err
			}
			return opts.withStore(cmd.Context(), func(st *store.Store) error {
				ctx := cmd.Context()
				out := cmd.OutOrStdout()
				for _, e := range entries {
					var deleted bool
					var err error
					if e.Kind == rules.EntryTerm {
						deleted, err = st.DeleteTerm(ctx, e.Key, e.Value)
					} else {
						deleted, err = st.DeleteCollapseTarget(ctx, e.Key)
					}
					if err != nil {
						return WrapExitError(ExitFailure, "failed to delete rule", err)
					}
					if deleted {
						fmt.Fprintf(out, "deleted %q\n", e.String())
					} else {
						fmt.Fprintf(out, "%q not found\n", e.String())
					}
				}
				return nil
			})
		},
	}
}

func parseEntries(args []string) ([]rules.Entry, error) {
	entries := make([]rules.Entry, 0, len(args))
	for _, a := range args {
		e, err := rules.ParseEntry(a)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "invalid rule entry", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func newConfigSeparatorCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "separator <symbol>",
		Short:         "Set the separator",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(cmd.Context(), func(st *store.Store) error {
				if err := st.SetSeparator(cmd.Context(), args[0]); err != nil {
					return WrapExitError(ExitCommandError, "failed to set separator", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "separator set to %q\n", args[0])
				return nil
			})
		},
	}
}

func newConfigImportCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace stored rules with a YAML or CUE rule file",
		Long: `Replace every stored rule with the contents of a .yaml, .yml or .cue file:

  separator: "_"
  collapse: [" ", "-"]
  terms:
    "&": "_and_"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := rules.LoadFile(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load rule file", err)
			}
			return opts.withStore(cmd.Context(), func(st *store.Store) error {
				if err := st.ReplaceRules(cmd.Context(), r); err != nil {
					return WrapExitError(ExitFailure, "failed to import rules", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d collapse targets and %d terms\n",
					len(r.CollapseTargets), len(r.Terms))
				return nil
			})
		},
	}
}

func newConfigExportCommand(opts *RootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:           "export",
		Short:         "Write stored rules as YAML",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(cmd.Context(), func(st *store.Store) error {
				r, err := st.Rules(cmd.Context())
				if err != nil {
					return WrapExitError(ExitFailure, "failed to read rules", err)
				}

				w := cmd.OutOrStdout()
				if output != "" {
					f, err := os.Create(output)
					if err != nil {
						return WrapExitError(ExitCommandError, "failed to create output file", err)
					}
					defer f.Close()
					w = f
				}
				if err := rules.WriteYAML(w, r); err != nil {
					return WrapExitError(ExitFailure, "failed to write rules", err)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")

	return cmd
}
