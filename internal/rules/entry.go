package rules

import (
	"errors"
	"strings"
)

// EntryKind tells a collapse target from a term substitution.
type EntryKind int

const (
	EntryCollapse EntryKind = iota
	EntryTerm
)

// Entry is a single rule as typed on the command line.
type Entry struct {
	Kind  EntryKind
	Key   string
	Value string
}

// ParseEntry reads "key:value" as a term substitution and anything else as
// a collapse target. Only the first colon splits, so "a:b:c" maps "a" to
// "b:c". A lone ":" is the colon collapse target.
func ParseEntry(s string) (Entry, error) {
	if s == "" {
		return Entry{}, errors.New("empty rule entry")
	}
	key, value, found := strings.Cut(s, ":")
	if !found || key == "" {
		return Entry{Kind: EntryCollapse, Key: s}, nil
	}
	return Entry{Kind: EntryTerm, Key: key, Value: value}, nil
}

// String renders e in the form ParseEntry accepts.
func (e Entry) String() string {
	if e.Kind == EntryTerm {
		return e.Key + ":" + e.Value
	}
	return e.Key
}
