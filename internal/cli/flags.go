package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/roach88/fdn/internal/config"
	"github.com/roach88/fdn/internal/report"
	"github.com/roach88/fdn/internal/rules"
	"github.com/roach88/fdn/internal/transform"
	"github.com/roach88/fdn/internal/walk"
)

// WalkOptions holds the traversal flags shared by rename and reverse.
type WalkOptions struct {
	MaxDepth      int
	Type          string // "f" | "d"
	IncludeHidden bool
	Exclude       []string
	Align         bool
}

func addWalkFlags(cmd *cobra.Command, w *WalkOptions) {
	cmd.Flags().IntVarP(&w.MaxDepth, "max-depth", "d", 1, "maximum depth below each path (0 = unlimited)")
	cmd.Flags().StringVarP(&w.Type, "type", "t", "f", "entry type to rename (f|d)")
	cmd.Flags().BoolVarP(&w.IncludeHidden, "include-hidden", "I", false, "include hidden entries")
	cmd.Flags().StringArrayVarP(&w.Exclude, "exclude", "X", nil, "exclude an absolute path or base-name glob (repeatable)")
	cmd.Flags().BoolVarP(&w.Align, "align", "a", false, "align original and new names")
}

// resolve merges flags over cfg; a flag the user did not set keeps the
// configured value.
func (w *WalkOptions) resolve(cmd *cobra.Command, cfg *config.Config) (walk.Options, error) {
	flags := cmd.Flags()
	opts := walk.Options{
		MaxDepth:      cfg.Walk.MaxDepth,
		IncludeHidden: cfg.Walk.IncludeHidden,
		Exclude:       append([]string{}, cfg.Walk.Exclude...),
	}
	if flags.Changed("max-depth") {
		opts.MaxDepth = w.MaxDepth
	}
	if flags.Changed("include-hidden") {
		opts.IncludeHidden = w.IncludeHidden
	}
	opts.Exclude = append(opts.Exclude, w.Exclude...)
	if !flags.Changed("align") {
		w.Align = cfg.Output.Align
	}

	switch w.Type {
	case "f", "file":
		opts.Kind = transform.File
	case "d", "dir", "directory":
		opts.Kind = transform.Directory
	default:
		return walk.Options{}, fmt.Errorf("invalid type %q: must be f or d", w.Type)
	}
	return opts, nil
}

// collect resolves the walk flags and gathers paths, defaulting to the
// working directory.
func (w *WalkOptions) collect(cmd *cobra.Command, cfg *config.Config, args []string) ([]string, walk.Options, error) {
	opts, err := w.resolve(cmd, cfg)
	if err != nil {
		return nil, opts, WrapExitError(ExitCommandError, "bad flags", err)
	}
	if len(args) == 0 {
		args = []string{"."}
	}
	paths, err := walk.Collect(args, opts)
	if err != nil {
		return nil, opts, WrapExitError(ExitCommandError, "failed to collect paths", err)
	}
	return paths, opts, nil
}

// newRenderer builds the report renderer for out.
func newRenderer(out io.Writer, cfg *config.Config, align bool) report.Renderer {
	return report.Renderer{
		Color: useColor(out, cfg.Output.Color),
		Align: align,
	}
}

func useColor(out io.Writer, mode string) bool {
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// configuredRules applies config-level transform settings on top of the
// stored rule set.
type configuredRules struct {
	base        rules.Provider
	unicodeForm string
}

func (c configuredRules) Rules(ctx context.Context) (rules.Rules, error) {
	r, err := c.base.Rules(ctx)
	if err != nil {
		return rules.Rules{}, err
	}
	if c.unicodeForm != "" {
		r.UnicodeForm = c.unicodeForm
	}
	return r, nil
}
