package rename

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/fdn/internal/provenance"
	"github.com/roach88/fdn/internal/rules"
	"github.com/roach88/fdn/internal/store"
)

func spaceDash() rules.Rules {
	return rules.Rules{
		Separator:       "_",
		CollapseTargets: []string{" ", "-"},
		Terms:           map[string]string{},
	}
}

type fixture struct {
	o     *Orchestrator
	store *store.Store
	dir   string
}

// createFixture opens a store outside the working directory, loads r into
// it and returns an orchestrator reading rules from the store.
func createFixture(t *testing.T, r rules.Rules) *fixture {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.ReplaceRules(context.Background(), r))

	l := provenance.New(s, provenance.WithRunIDGenerator(provenance.NewFixedGenerator("run-test")))
	return &fixture{
		o:     New(s, l),
		store: s,
		dir:   t.TempDir(),
	}
}

// touch creates an empty file named base in the fixture directory.
func (f *fixture) touch(t *testing.T, base string) string {
	t.Helper()
	p := filepath.Join(f.dir, base)
	require.NoError(t, os.WriteFile(p, []byte(base), 0o644))
	return p
}

func (f *fixture) path(base string) string {
	return filepath.Join(f.dir, base)
}

func (f *fixture) records(t *testing.T) int {
	t.Helper()
	n, err := f.store.CountProvenance(context.Background())
	require.NoError(t, err)
	return n
}

// names lists the base names in the fixture directory.
func (f *fixture) names(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(f.dir)
	require.NoError(t, err)
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name())
	}
	return out
}

// failingBackend fails every provenance call.
type failingBackend struct {
	err error
}

func (b *failingBackend) InsertProvenance(context.Context, store.ProvenanceRow) (int64, error) {
	return 0, b.err
}

func (b *failingBackend) LatestProvenance(context.Context, string) (store.ProvenanceRow, bool, error) {
	return store.ProvenanceRow{}, false, b.err
}

func (b *failingBackend) DeleteProvenance(context.Context, int64) (bool, error) {
	return false, b.err
}
