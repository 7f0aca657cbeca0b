// Package rename applies normalized names to the filesystem and reverses
// them from provenance.
//
// A forward rename is committed to the filesystem before its provenance
// record is written, so a failed rename never leaves a record behind. A
// reverse rename consumes the record only after the filesystem rename has
// succeeded.
package rename

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/fdn/internal/provenance"
	"github.com/roach88/fdn/internal/rules"
	"github.com/roach88/fdn/internal/transform"
	"github.com/roach88/fdn/internal/walk"
)

// Status is the outcome of one path.
type Status string

const (
	StatusSkipped   Status = "skipped"
	StatusUnchanged Status = "unchanged"
	StatusPlanned   Status = "planned"
	StatusRenamed   Status = "renamed"
	StatusNoHistory Status = "no_history"
	StatusRestored  Status = "restored"
	StatusFailed    Status = "failed"
)

// Options controls a forward or reverse run.
type Options struct {
	// Apply performs renames. When false nothing on disk or in the store
	// changes.
	Apply bool
	// IncludeHidden renames hidden entries instead of skipping them. Reverse
	// ignores it; an explicitly named path is always looked up.
	IncludeHidden bool
	// Chain makes a reverse rename follow provenance back as far as it
	// goes instead of stopping after one hop.
	Chain bool
}

// Source is one forward rename request. An empty Target asks the
// transformer for the new name; a non-empty Target is used as the new base
// name verbatim.
type Source struct {
	Path   string
	Target string
}

// Result describes one forward rename.
type Result struct {
	Path     string `json:"path"`
	Original string `json:"original"`
	New      string `json:"new,omitempty"`
	Status   Status `json:"status"`
	RecordID int64  `json:"record_id,omitempty"`
}

// Dir returns the directory holding the entry.
func (r Result) Dir() string { return filepath.Dir(r.Path) }

// NewPath returns the path the entry has, or would have, after the rename.
func (r Result) NewPath() string {
	if r.New == "" {
		return r.Path
	}
	return filepath.Join(r.Dir(), r.New)
}

// Changed reports whether the entry was, or would be, renamed.
func (r Result) Changed() bool {
	return r.Status == StatusPlanned || r.Status == StatusRenamed || r.Status == StatusRestored
}

// Orchestrator runs forward and reverse renames.
type Orchestrator struct {
	rules  rules.Provider
	ledger *provenance.Ledger
	logger *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger. Records are tagged with the ledger's run id.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// New creates an Orchestrator reading rules from provider and writing
// provenance through ledger.
func New(provider rules.Provider, ledger *provenance.Ledger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		rules:  provider,
		ledger: ledger,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With("run_id", ledger.RunID())
	return o
}

// Pair builds sources from paths and explicit targets. targets must be
// empty or the same length as paths.
func Pair(paths, targets []string) ([]Source, error) {
	if len(targets) != 0 && len(targets) != len(paths) {
		return nil, newInputError("", "%d targets given for %d paths", len(targets), len(paths))
	}
	sources := make([]Source, len(paths))
	for i, p := range paths {
		sources[i] = Source{Path: p}
		if len(targets) != 0 {
			sources[i].Target = targets[i]
		}
	}
	return sources, nil
}

// Forward renames every source in order. It stops at the first error and
// returns the results produced so far, the failed one included, together
// with the error. Explicit targets are validated before any file is
// touched.
func (o *Orchestrator) Forward(ctx context.Context, sources []Source, opts Options) ([]Result, error) {
	for _, src := range sources {
		if err := validateSource(src); err != nil {
			return []Result{}, err
		}
	}

	r, err := o.rules.Rules(ctx)
	if err != nil {
		return []Result{}, newStoreIOError(StageRules, "", err)
	}

	results := make([]Result, 0, len(sources))
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := o.apply(ctx, r, src, opts)
		results = append(results, res)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// Apply renames a single source.
func (o *Orchestrator) Apply(ctx context.Context, src Source, opts Options) (Result, error) {
	results, err := o.Forward(ctx, []Source{src}, opts)
	if len(results) == 0 {
		return Result{Path: src.Path, Original: filepath.Base(src.Path), Status: StatusFailed}, err
	}
	return results[0], err
}

func (o *Orchestrator) apply(ctx context.Context, r rules.Rules, src Source, opts Options) (Result, error) {
	path := filepath.Clean(src.Path)
	res := Result{Path: path, Original: filepath.Base(path)}

	if src.Target == "" && !opts.IncludeHidden && walk.IsHidden(path) {
		res.Status = StatusSkipped
		return res, nil
	}

	info, err := os.Lstat(path)
	if err != nil {
		res.Status = StatusFailed
		return res, newInputError(path, "cannot stat source: %v", err)
	}

	if src.Target != "" {
		res.New = src.Target
	} else {
		kind := transform.File
		if info.IsDir() {
			kind = transform.Directory
		}
		res.New, err = transform.Transform(res.Original, kind, r)
		if err != nil {
			res.Status = StatusFailed
			return res, &Error{
				Code:    ErrCodeTransform,
				Stage:   StageTransform,
				Path:    path,
				Message: "cannot transform name",
				Err:     err,
			}
		}
		if res.New == "" {
			res.Status = StatusFailed
			return res, &Error{
				Code:    ErrCodeTransform,
				Stage:   StageTransform,
				Path:    path,
				Message: "transformed name is empty",
			}
		}
	}

	if res.New == res.Original {
		res.Status = StatusUnchanged
		return res, nil
	}
	if !opts.Apply {
		res.Status = StatusPlanned
		return res, nil
	}

	target := res.NewPath()
	if err := moveEntry(path, target); err != nil {
		res.Status = StatusFailed
		o.logger.Warn("rename failed", "path", path, "target", target, "error", err)
		return res, newRenameError(path, res.New, err)
	}
	o.logger.Debug("renamed", "path", path, "target", target)

	rec, err := o.ledger.Record(ctx, res.Original, res.New)
	if err != nil {
		res.Status = StatusFailed
		// An unrecorded rename cannot be reversed, so undo it.
		if undoErr := os.Rename(target, path); undoErr != nil {
			o.logger.Warn("undo rename failed", "path", target, "target", path, "error", undoErr)
		}
		return res, newStoreIOError(StageRecord, path, err)
	}
	res.RecordID = rec.ID
	res.Status = StatusRenamed
	o.logger.Debug("recorded provenance", "path", target, "record_id", rec.ID)
	return res, nil
}

func validateSource(src Source) error {
	if src.Path == "" {
		return newInputError("", "empty source path")
	}
	if src.Target != "" && !validBaseName(src.Target) {
		return newInputError(src.Path, "target %q is not a plain base name", src.Target)
	}
	return nil
}

// validBaseName rejects names that would move an entry out of its
// directory.
func validBaseName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, "/\x00"+string(filepath.Separator))
}

// moveEntry renames from to to, refusing to replace an existing entry.
// A target that is the same file, as with a case-only rename on a
// case-insensitive filesystem, is allowed.
func moveEntry(from, to string) error {
	dst, err := os.Lstat(to)
	switch {
	case err == nil:
		src, serr := os.Lstat(from)
		if serr != nil {
			return serr
		}
		if !os.SameFile(src, dst) {
			return fmt.Errorf("%s: %w", to, fs.ErrExist)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return err
	}
	return os.Rename(from, to)
}
