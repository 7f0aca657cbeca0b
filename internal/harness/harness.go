package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/fdn/internal/provenance"
	"github.com/roach88/fdn/internal/rename"
	"github.com/roach88/fdn/internal/store"
	"github.com/roach88/fdn/internal/testutil"
	"github.com/roach88/fdn/internal/transform"
	"github.com/roach88/fdn/internal/walk"
)

// Harness is the scenario execution engine. It owns one scratch tree and
// one store for the duration of a scenario.
type Harness struct {
	root   string
	store  *store.Store
	clock  *testutil.DeterministicClock
	logger *slog.Logger
	runID  string
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh temporary directory holding the tree and
// the database, removed on return.
//
// Execution flow:
// 1. Create the temporary directory, the store and the tree
// 2. Replace the seeded rules if the scenario has its own
// 3. Execute steps, checking expect clauses
// 4. Evaluate assertions
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	tmp, err := os.MkdirTemp("", "fdn-harness-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer os.RemoveAll(tmp)

	st, err := store.Open(filepath.Join(tmp, "fdn.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	defer st.Close()

	if scenario.Rules != nil {
		if err := st.ReplaceRules(ctx, *scenario.Rules); err != nil {
			return nil, fmt.Errorf("failed to install rules: %w", err)
		}
	}

	runID := scenario.RunID
	if runID == "" {
		runID = "run"
	}
	h := &Harness{
		root:   filepath.Join(tmp, "tree"),
		store:  st,
		clock:  testutil.NewDeterministicClock(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
		runID:  runID,
	}

	if err := h.buildTree(scenario.Tree); err != nil {
		return nil, fmt.Errorf("failed to build tree: %w", err)
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i+1, step, result); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
	}

	actx := &AssertionContext{
		Ctx:   ctx,
		Store: st,
		Root:  h.root,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// buildTree creates every entry below the root.
func (h *Harness) buildTree(entries []string) error {
	if err := os.MkdirAll(h.root, 0o755); err != nil {
		return err
	}
	for _, entry := range entries {
		p := h.abs(entry)
		if isDirEntry(entry) {
			if err := os.MkdirAll(p, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(p, []byte(entry), 0o644); err != nil {
			return err
		}
	}
	return nil
}

// executeStep runs one step as its own run. Orchestrator errors are
// recorded in the result; only scratch setup failures are returned.
func (h *Harness) executeStep(ctx context.Context, n int, step Step, result *Result) error {
	paths, err := h.stepPaths(step)
	if err != nil {
		return err
	}

	ledger := provenance.New(h.store,
		provenance.WithRunIDGenerator(provenance.NewFixedGenerator(fmt.Sprintf("%s-%d", h.runID, n))),
		provenance.WithClock(h.clock.Now),
	)
	orch := rename.New(h.store, ledger, rename.WithLogger(h.logger))
	opts := rename.Options{
		Apply:         !step.DryRun,
		IncludeHidden: step.IncludeHidden,
		Chain:         step.Chain,
	}

	var codes []string
	switch step.Op {
	case OpReverse:
		results, err := orch.Reverse(ctx, paths, opts)
		for _, res := range results {
			ev := TraceEvent{
				Step:   n,
				Op:     step.Op,
				Path:   h.rel(res.Path),
				Hops:   res.Hops,
				Status: string(res.Status),
			}
			if res.Err != nil {
				ev.Code = errorCode(res.Err)
				codes = append(codes, ev.Code)
			}
			result.AddTrace(ev)
		}
		if err != nil {
			codes = append(codes, errorCode(err))
		}

	default:
		sources, err := rename.Pair(paths, step.Targets)
		if err != nil {
			return err
		}
		results, err := orch.Forward(ctx, sources, opts)
		for _, res := range results {
			result.AddTrace(TraceEvent{
				Step:     n,
				Op:       step.Op,
				Path:     h.rel(res.Path),
				New:      res.New,
				Status:   string(res.Status),
				RecordID: res.RecordID,
			})
		}
		if err != nil {
			code := errorCode(err)
			codes = append(codes, code)
			if len(result.Trace) > 0 {
				last := &result.Trace[len(result.Trace)-1]
				if last.Step == n && last.Status == string(rename.StatusFailed) {
					last.Code = code
				}
			}
		}
	}

	h.checkExpect(n, step, codes, result)
	return nil
}

func (h *Harness) checkExpect(n int, step Step, codes []string, result *Result) {
	if step.Expect == nil {
		for _, code := range codes {
			result.AddError(fmt.Sprintf("step %d (%s): unexpected error %s", n, step.Op, code))
		}
		return
	}
	for _, code := range codes {
		if code == step.Expect.Error {
			return
		}
	}
	result.AddError(fmt.Sprintf("step %d (%s): expected error %s, got %v", n, step.Op, step.Expect.Error, codes))
}

// stepPaths resolves a step's paths, walking them when asked.
func (h *Harness) stepPaths(step Step) ([]string, error) {
	paths := make([]string, 0, len(step.Paths))
	for _, p := range step.Paths {
		paths = append(paths, h.abs(p))
	}
	if !step.Walk {
		return paths, nil
	}

	kind := transform.File
	if step.Kind == "directory" {
		kind = transform.Directory
	}
	return walk.Collect(paths, walk.Options{
		Kind:          kind,
		MaxDepth:      step.MaxDepth,
		IncludeHidden: step.IncludeHidden,
	})
}

func (h *Harness) abs(rel string) string {
	return filepath.Join(h.root, filepath.FromSlash(rel))
}

func (h *Harness) rel(abs string) string {
	r, err := filepath.Rel(h.root, abs)
	if err != nil {
		return abs
	}
	return filepath.ToSlash(r)
}

func errorCode(err error) string {
	var re *rename.Error
	if errors.As(err, &re) {
		return string(re.Code)
	}
	return "ERROR"
}

func isDirEntry(entry string) bool {
	return len(entry) > 0 && entry[len(entry)-1] == '/'
}
