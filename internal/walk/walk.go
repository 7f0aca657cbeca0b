// Package walk collects the paths a rename run operates on.
package walk

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/roach88/fdn/internal/transform"
)

// Options controls which entries Collect returns.
type Options struct {
	// Kind selects files or directories.
	Kind transform.Kind
	// MaxDepth limits descent below each root; 1 means direct children
	// only. Zero or negative means unlimited.
	MaxDepth int
	// IncludeHidden keeps hidden entries and descends into hidden
	// directories.
	IncludeHidden bool
	// Exclude holds absolute path prefixes and base-name globs.
	Exclude []string
}

// Collect walks every root and returns the matching entries as absolute
// paths, deepest first and then in reverse lexical order, so a directory is
// always listed after everything inside it. A directory root is never
// returned itself; a file root is returned when Kind is transform.File.
func Collect(roots []string, opts Options) ([]string, error) {
	excl, err := newExcluder(opts.Exclude)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var paths []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}

	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("resolve %q: %w", root, err)
		}

		info, err := os.Lstat(abs)
		if err != nil {
			return nil, fmt.Errorf("stat %q: %w", root, err)
		}
		if excl.match(abs) {
			continue
		}
		if !info.IsDir() {
			if opts.Kind == transform.File {
				add(abs)
			}
			continue
		}

		err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path == abs {
				return nil
			}
			if (!opts.IncludeHidden && IsHidden(path)) || excl.match(path) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			depth := depthBelow(abs, path)
			if d.IsDir() == (opts.Kind == transform.Directory) {
				add(path)
			}
			if d.IsDir() && opts.MaxDepth > 0 && depth >= opts.MaxDepth {
				return filepath.SkipDir
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %q: %w", root, err)
		}
	}

	sortDeepestFirst(paths)
	if paths == nil {
		paths = []string{}
	}
	return paths, nil
}

func depthBelow(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}

func sortDeepestFirst(paths []string) {
	sort.Slice(paths, func(i, j int) bool {
		di := strings.Count(paths[i], string(filepath.Separator))
		dj := strings.Count(paths[j], string(filepath.Separator))
		if di != dj {
			return di > dj
		}
		return paths[i] > paths[j]
	})
}

type excluder struct {
	prefixes []string
	globs    []string
}

func newExcluder(patterns []string) (*excluder, error) {
	e := &excluder{}
	for _, p := range patterns {
		if p == "" {
			continue
		}
		if filepath.IsAbs(p) {
			e.prefixes = append(e.prefixes, filepath.Clean(p))
			continue
		}
		if _, err := filepath.Match(p, ""); err != nil {
			return nil, fmt.Errorf("exclude pattern %q: %w", p, err)
		}
		e.globs = append(e.globs, p)
	}
	return e, nil
}

func (e *excluder) match(path string) bool {
	for _, p := range e.prefixes {
		if path == p || strings.HasPrefix(path, p+string(filepath.Separator)) {
			return true
		}
	}
	base := filepath.Base(path)
	for _, g := range e.globs {
		if ok, _ := filepath.Match(g, base); ok {
			return true
		}
	}
	return false
}
