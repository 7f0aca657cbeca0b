package harness

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/roach88/fdn/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for i, ev := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] step %d %s %s -> %s (%s)\n", i+1, ev.Step, ev.Op, ev.Path, ev.New, ev.Status)
	}

	return buf.String()
}

// AssertionContext carries what assertions inspect.
type AssertionContext struct {
	Ctx   context.Context
	Store *store.Store
	Root  string
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertTree:
			err = assertTree(result.Trace, a, actx)
		case AssertExists:
			err = assertExists(result.Trace, a, actx, true)
		case AssertMissing:
			err = assertExists(result.Trace, a, actx, false)
		case AssertRecords:
			err = assertRecords(result.Trace, a, actx)
		case AssertNoPlaintext:
			err = assertNoPlaintext(result.Trace, a, actx)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

// ListTree returns every entry below root, sorted, with "/" separators and
// a trailing "/" on directories.
func ListTree(root string) ([]string, error) {
	entries := []string{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			rel += "/"
		}
		entries = append(entries, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(entries)
	return entries, nil
}

func assertTree(trace []TraceEvent, a Assertion, actx *AssertionContext) error {
	got, err := ListTree(actx.Root)
	if err != nil {
		return fmt.Errorf("list tree: %w", err)
	}
	want := append([]string{}, a.Entries...)
	sort.Strings(want)

	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		return &AssertionError{
			Type:     AssertTree,
			Expected: fmt.Sprintf("%q", want),
			Actual:   fmt.Sprintf("%q", got),
			Trace:    trace,
		}
	}
	return nil
}

func assertExists(trace []TraceEvent, a Assertion, actx *AssertionContext, want bool) error {
	_, err := os.Lstat(filepath.Join(actx.Root, filepath.FromSlash(a.Path)))
	exists := err == nil
	if exists == want {
		return nil
	}

	typ, actual := AssertExists, "missing"
	if !want {
		typ, actual = AssertMissing, "present"
	}
	return &AssertionError{
		Type:     typ,
		Expected: fmt.Sprintf("%s %s", a.Path, typ),
		Actual:   actual,
		Trace:    trace,
	}
}

func assertRecords(trace []TraceEvent, a Assertion, actx *AssertionContext) error {
	n, err := actx.Store.CountProvenance(actx.Ctx)
	if err != nil {
		return err
	}
	if n != a.Count {
		return &AssertionError{
			Type:     AssertRecords,
			Expected: fmt.Sprintf("%d live records", a.Count),
			Actual:   fmt.Sprintf("%d live records", n),
			Trace:    trace,
		}
	}
	return nil
}

// assertNoPlaintext scans every provenance column for each name.
func assertNoPlaintext(trace []TraceEvent, a Assertion, actx *AssertionContext) error {
	rows, err := actx.Store.DB().QueryContext(actx.Ctx,
		"SELECT fingerprint, cipher_blob, run_id FROM provenance ORDER BY id ASC")
	if err != nil {
		return fmt.Errorf("query provenance: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var fingerprint, runID string
		var blob []byte
		if err := rows.Scan(&fingerprint, &blob, &runID); err != nil {
			return fmt.Errorf("scan provenance: %w", err)
		}
		for _, name := range a.Names {
			raw := []byte(name)
			encoded := []byte(hex.EncodeToString(raw))
			// The fingerprint is itself hex, so only the raw form is
			// meaningful there.
			if bytes.Contains([]byte(fingerprint), raw) || bytes.Contains([]byte(runID), raw) ||
				bytes.Contains(blob, raw) || bytes.Contains(blob, encoded) {
				return &AssertionError{
					Type:     AssertNoPlaintext,
					Expected: fmt.Sprintf("%q absent from provenance", name),
					Actual:   "found in a stored row",
					Trace:    trace,
				}
			}
		}
	}
	return rows.Err()
}
