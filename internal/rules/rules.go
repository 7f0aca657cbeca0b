// Package rules defines the name rule set consumed by the transformer and
// the ways to obtain one: the SQLite configuration store, or a YAML/CUE rule
// file.
package rules

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// DefaultSeparator joins words when no separator has been configured.
const DefaultSeparator = "_"

// UnicodeNFC requests NFC normalization of names before transformation.
const UnicodeNFC = "NFC"

// defaultCollapseTargets is the set a fresh database is seeded with.
var defaultCollapseTargets = []string{
	"：", ":", "，", ",", "！", "!", "？", "?", "（", "(", ")", "【", "[", "】", "]",
	"~", "》", "《", "▯", "“", "”", "\"", " ", "-",
}

// Validation failures. Empty search strings would match between every byte
// and never converge.
var (
	ErrEmptySeparator = errors.New("separator must not be empty")
	ErrEmptyTarget    = errors.New("collapse target must not be empty")
	ErrEmptyTermKey   = errors.New("term key must not be empty")
)

// Rules is a complete rule set.
type Rules struct {
	Separator       string            `yaml:"separator" json:"separator"`
	CollapseTargets []string          `yaml:"collapse" json:"collapse"`
	Terms           map[string]string `yaml:"terms" json:"terms"`
	UnicodeForm     string            `yaml:"unicode_form,omitempty" json:"unicode_form,omitempty"`
}

// Provider supplies the rule set for a run. Implementations are read-only
// from the transformer's point of view.
type Provider interface {
	Rules(ctx context.Context) (Rules, error)
}

// Static is a Provider that always returns the same rule set.
type Static Rules

// Rules implements Provider.
func (s Static) Rules(context.Context) (Rules, error) {
	return Rules(s), nil
}

// Defaults returns the separator and collapse targets of a new database and
// no term substitutions.
func Defaults() Rules {
	return Rules{
		Separator:       DefaultSeparator,
		CollapseTargets: DefaultCollapseTargets(),
		Terms:           map[string]string{},
	}
}

// DefaultCollapseTargets returns a copy of the seeded collapse target list.
func DefaultCollapseTargets() []string {
	out := make([]string, len(defaultCollapseTargets))
	copy(out, defaultCollapseTargets)
	return out
}

// Validate rejects rule sets the transformer cannot apply.
func (r Rules) Validate() error {
	var errs []error
	if r.Separator == "" {
		errs = append(errs, ErrEmptySeparator)
	}
	for i, t := range r.CollapseTargets {
		if t == "" {
			errs = append(errs, fmt.Errorf("collapse target %d: %w", i, ErrEmptyTarget))
		}
	}
	for k := range r.Terms {
		if k == "" {
			errs = append(errs, ErrEmptyTermKey)
		}
	}
	switch r.UnicodeForm {
	case "", UnicodeNFC:
	default:
		errs = append(errs, fmt.Errorf("unsupported unicode form %q", r.UnicodeForm))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid rules: %w", errors.Join(errs...))
	}
	return nil
}

// Size is the number of replacement entries, used to bound iteration.
func (r Rules) Size() int {
	return len(r.CollapseTargets) + len(r.Terms)
}

// Replacement is one literal find/replace pair.
type Replacement struct {
	Old string
	New string
}

// CollapseReplacements maps every collapse target to the separator, in
// application order. Duplicates and targets equal to the separator are
// dropped.
func (r Rules) CollapseReplacements() []Replacement {
	seen := make(map[string]bool, len(r.CollapseTargets))
	out := make([]Replacement, 0, len(r.CollapseTargets))
	for _, t := range r.CollapseTargets {
		if t == "" || t == r.Separator || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, Replacement{Old: t, New: r.Separator})
	}
	sortReplacements(out)
	return out
}

// TermReplacements returns the term substitutions in application order.
// Identity pairs are dropped.
func (r Rules) TermReplacements() []Replacement {
	out := make([]Replacement, 0, len(r.Terms))
	for k, v := range r.Terms {
		if k == "" || k == v {
			continue
		}
		out = append(out, Replacement{Old: k, New: v})
	}
	sortReplacements(out)
	return out
}

// SortedTerms returns every term substitution ordered by key, identity pairs
// included. Used where a stable listing is needed rather than application
// order.
func (r Rules) SortedTerms() []Replacement {
	out := make([]Replacement, 0, len(r.Terms))
	for k, v := range r.Terms {
		out = append(out, Replacement{Old: k, New: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Old < out[j].Old })
	return out
}

// sortReplacements orders longest search string first so that a longer
// target wins over one of its substrings, then lexicographically.
func sortReplacements(rs []Replacement) {
	sort.Slice(rs, func(i, j int) bool {
		if len(rs[i].Old) != len(rs[j].Old) {
			return len(rs[i].Old) > len(rs[j].Old)
		}
		return rs[i].Old < rs[j].Old
	})
}
