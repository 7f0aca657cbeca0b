// Package transform computes normalized base names.
//
// Transform is a pure function of the base name, its kind, and a rule set.
// Every rewriting stage iterates to a fixed point under an explicit bound,
// and the whole pipeline is re-applied to its own output until stable, so
// Transform(Transform(n)) == Transform(n) for every rule set it accepts.
package transform

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/fdn/internal/rules"
)

// Kind selects how a base name is split.
type Kind int

const (
	// File names split into stem and extension at the last dot.
	File Kind = iota
	// Directory names are transformed whole.
	Directory
)

func (k Kind) String() string {
	if k == Directory {
		return "directory"
	}
	return "file"
}

// Transform returns the normalized form of baseName. An empty stem yields
// the empty string; no fallback name is invented.
func Transform(baseName string, kind Kind, r rules.Rules) (string, error) {
	if err := r.Validate(); err != nil {
		return "", &Error{Code: ErrCodeInvalidRules, Name: baseName, Message: err.Error()}
	}

	p := newPipeline(r)
	b := newBudget(baseName, r)

	current := baseName
	for {
		next, err := p.apply(current, kind, b)
		if err != nil {
			return "", err
		}
		if next == current || next == "" {
			return next, nil
		}
		if err := b.pass(next, StageFixedPoint); err != nil {
			return "", err
		}
		current = next
	}
}

// pipeline holds the rule set prepared for repeated application.
type pipeline struct {
	sep      string
	collapse []rules.Replacement
	terms    []rules.Replacement
	runs     *regexp.Regexp
	lead     *regexp.Regexp
	trail    *regexp.Regexp
	nfc      bool
}

func newPipeline(r rules.Rules) *pipeline {
	quoted := regexp.QuoteMeta(r.Separator)
	return &pipeline{
		sep:      r.Separator,
		collapse: r.CollapseReplacements(),
		terms:    r.TermReplacements(),
		runs:     regexp.MustCompile("(?i)(?:" + quoted + "){2,}"),
		lead:     regexp.MustCompile("^(?i:" + quoted + ")"),
		trail:    regexp.MustCompile("(?i:" + quoted + ")$"),
		nfc:      r.UnicodeForm == rules.UnicodeNFC,
	}
}

// apply runs every stage once over a full base name.
func (p *pipeline) apply(name string, kind Kind, b *budget) (string, error) {
	if p.nfc {
		name = norm.NFC.String(name)
	}

	stem, ext, hasExt := split(name, kind)

	stem, err := fixedPoint(stem, p.collapse, b, StageCollapse)
	if err != nil {
		return "", err
	}
	stem, err = fixedPoint(stem, p.terms, b, StageTerms)
	if err != nil {
		return "", err
	}

	stem = p.runs.ReplaceAllLiteralString(stem, p.sep)
	stem = p.trimOne(stem)

	if stem == "" {
		return "", nil
	}
	if hasExt {
		return stem + "." + ext, nil
	}
	return stem, nil
}

// split separates a file stem from its extension. A dot at index 0 belongs
// to the stem, so ".bashrc" has no extension.
func split(name string, kind Kind) (stem, ext string, hasExt bool) {
	if kind == Directory {
		return name, "", false
	}
	i := strings.LastIndex(name, ".")
	if i <= 0 {
		return name, "", false
	}
	return name[:i], name[i+1:], true
}

// fixedPoint applies every replacement per pass until a pass changes nothing.
func fixedPoint(s string, rs []rules.Replacement, b *budget, stage Stage) (string, error) {
	if len(rs) == 0 {
		return s, nil
	}
	b.reset(stage)
	for {
		next := s
		for _, r := range rs {
			next = strings.ReplaceAll(next, r.Old, r.New)
			if err := b.grow(next, stage); err != nil {
				return "", err
			}
		}
		if next == s {
			return s, nil
		}
		if err := b.pass(next, stage); err != nil {
			return "", err
		}
		s = next
	}
}

// trimOne strips a single leading and a single trailing separator. Both
// anchors fold case the same way as the run collapse.
func (p *pipeline) trimOne(s string) string {
	s = p.lead.ReplaceAllLiteralString(s, "")
	return p.trail.ReplaceAllLiteralString(s, "")
}
