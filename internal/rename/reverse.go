package rename

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/roach88/fdn/internal/provenance"
)

// MaxChainHops bounds a chained reverse.
const MaxChainHops = 64

// Hop is one step back through provenance.
type Hop struct {
	From     string `json:"from"`
	To       string `json:"to"`
	RecordID int64  `json:"record_id"`
}

// ReverseResult describes one reverse rename. Hops that completed before an
// error are kept; they are not rolled back.
type ReverseResult struct {
	Path   string `json:"path"`
	Hops   []Hop  `json:"hops"`
	Status Status `json:"status"`
	Err    error  `json:"-"`
}

// Original is the base name of Path.
func (r ReverseResult) Original() string { return filepath.Base(r.Path) }

// Final is the base name reached after the last hop.
func (r ReverseResult) Final() string {
	if len(r.Hops) == 0 {
		return r.Original()
	}
	return r.Hops[len(r.Hops)-1].To
}

// FinalPath is the path reached after the last hop.
func (r ReverseResult) FinalPath() string {
	return filepath.Join(filepath.Dir(r.Path), r.Final())
}

// Reverse restores previous names for every path. A per-path error is kept
// in that path's result and the batch continues; a store IO error aborts
// the batch and is returned.
func (o *Orchestrator) Reverse(ctx context.Context, paths []string, opts Options) ([]ReverseResult, error) {
	results := make([]ReverseResult, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		p = filepath.Clean(p)
		res, err := o.Revert(ctx, filepath.Dir(p), filepath.Base(p), opts)
		results = append(results, res)
		if IsStoreIO(err) {
			return results, err
		}
	}
	return results, nil
}

// Revert walks provenance back from the entry base in dir. Without
// opts.Chain it performs at most one hop.
func (o *Orchestrator) Revert(ctx context.Context, dir, base string, opts Options) (ReverseResult, error) {
	res := ReverseResult{
		Path: filepath.Join(dir, base),
		Hops: []Hop{},
	}

	fail := func(err error) (ReverseResult, error) {
		res.Status = StatusFailed
		res.Err = err
		o.logger.Warn("reverse failed", "path", res.Path, "hops", len(res.Hops), "error", err)
		return res, err
	}

	current := base
	seen := map[string]bool{base: true}
	for len(res.Hops) < MaxChainHops {
		previous, rec, found, err := o.ledger.Lookup(ctx, current)
		if err != nil {
			path := filepath.Join(dir, current)
			if errors.Is(err, provenance.ErrCorrupt) {
				return fail(&Error{
					Code:    ErrCodeCorrupt,
					Stage:   StageLookup,
					Path:    path,
					Message: "provenance record does not decrypt",
					Err:     err,
				})
			}
			return fail(newStoreIOError(StageLookup, path, err))
		}
		if !found {
			break
		}
		if !validBaseName(previous) {
			return fail(&Error{
				Code:    ErrCodeCorrupt,
				Stage:   StageLookup,
				Path:    filepath.Join(dir, current),
				Message: "provenance record holds an invalid name",
			})
		}

		if opts.Apply {
			from, to := filepath.Join(dir, current), filepath.Join(dir, previous)
			if err := moveEntry(from, to); err != nil {
				return fail(newRenameError(from, previous, err))
			}
			o.logger.Debug("restored", "path", from, "target", to, "record_id", rec.ID)
			if _, err := o.ledger.Consume(ctx, rec); err != nil {
				res.Hops = append(res.Hops, Hop{From: current, To: previous, RecordID: rec.ID})
				return fail(newStoreIOError(StageConsume, to, err))
			}
		} else if seen[previous] {
			// A dry run consumes nothing, so a cycle would repeat forever.
			break
		}

		res.Hops = append(res.Hops, Hop{From: current, To: previous, RecordID: rec.ID})
		seen[previous] = true
		current = previous
		if !opts.Chain {
			break
		}
	}

	switch {
	case len(res.Hops) == 0:
		res.Status = StatusNoHistory
	case opts.Apply:
		res.Status = StatusRestored
	default:
		res.Status = StatusPlanned
	}
	return res, nil
}
