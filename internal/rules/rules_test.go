package rules

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	r := Defaults()

	assert.Equal(t, "_", r.Separator)
	assert.Len(t, r.CollapseTargets, 24)
	assert.Contains(t, r.CollapseTargets, " ")
	assert.Contains(t, r.CollapseTargets, "-")
	assert.Empty(t, r.Terms)
	require.NoError(t, r.Validate())
}

func TestDefaultCollapseTargets_ReturnsCopy(t *testing.T) {
	a := DefaultCollapseTargets()
	a[0] = "mutated"

	assert.NotEqual(t, "mutated", DefaultCollapseTargets()[0])
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		rules   Rules
		wantErr string
	}{
		{name: "valid", rules: Rules{Separator: "_"}},
		{name: "empty separator", rules: Rules{}, wantErr: "separator"},
		{name: "empty collapse target", rules: Rules{Separator: "_", CollapseTargets: []string{" ", ""}}, wantErr: "collapse target 1"},
		{name: "empty term key", rules: Rules{Separator: "_", Terms: map[string]string{"": "x"}}, wantErr: "term key"},
		{name: "bad unicode form", rules: Rules{Separator: "_", UnicodeForm: "NFKD"}, wantErr: "unicode form"},
		{name: "nfc", rules: Rules{Separator: "_", UnicodeForm: UnicodeNFC}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rules.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCollapseReplacements_OrderAndDedup(t *testing.T) {
	r := Rules{
		Separator:       "_",
		CollapseTargets: []string{"-", " ", "--", "_", "-", "ab"},
	}

	got := r.CollapseReplacements()

	assert.Equal(t, []Replacement{
		{Old: "--", New: "_"},
		{Old: "ab", New: "_"},
		{Old: " ", New: "_"},
		{Old: "-", New: "_"},
	}, got)
}

func TestTermReplacements_DropsIdentity(t *testing.T) {
	r := Rules{
		Separator: "_",
		Terms:     map[string]string{"&": "and", "same": "same", "pdf": "PDF"},
	}

	got := r.TermReplacements()

	assert.Equal(t, []Replacement{
		{Old: "pdf", New: "PDF"},
		{Old: "&", New: "and"},
	}, got)
}

func TestStaticProvider(t *testing.T) {
	p := Static(Defaults())

	r, err := p.Rules(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "_", r.Separator)
}

func TestParseEntry(t *testing.T) {
	tests := []struct {
		in   string
		want Entry
	}{
		{in: "-", want: Entry{Kind: EntryCollapse, Key: "-"}},
		{in: ":", want: Entry{Kind: EntryCollapse, Key: ":"}},
		{in: "pdf:PDF", want: Entry{Kind: EntryTerm, Key: "pdf", Value: "PDF"}},
		{in: "a:b:c", want: Entry{Kind: EntryTerm, Key: "a", Value: "b:c"}},
		{in: "drop:", want: Entry{Kind: EntryTerm, Key: "drop", Value: ""}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseEntry(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseEntry("")
	assert.Error(t, err)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFile_YAML(t *testing.T) {
	path := writeFile(t, "rules.yaml", `
separator: "-"
collapse: [" ", "_"]
terms:
  "&": and
`)

	r, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "-", r.Separator)
	assert.Equal(t, []string{" ", "_"}, r.CollapseTargets)
	assert.Equal(t, map[string]string{"&": "and"}, r.Terms)
}

func TestLoadFile_YAMLUnknownField(t *testing.T) {
	path := writeFile(t, "rules.yml", "separatr: \"_\"\n")

	_, err := LoadFile(path)
	assert.Error(t, err)
}

func TestLoadFile_CUE(t *testing.T) {
	path := writeFile(t, "rules.cue", `
separator: "_"
collapse: [" ", "-", "(", ")"]
terms: {
	"&": "and"
}
unicode_form: "NFC"
`)

	r, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "_", r.Separator)
	assert.Equal(t, []string{" ", "-", "(", ")"}, r.CollapseTargets)
	assert.Equal(t, map[string]string{"&": "and"}, r.Terms)
	assert.Equal(t, UnicodeNFC, r.UnicodeForm)
}

func TestLoadFile_CUEDefaultsSeparator(t *testing.T) {
	path := writeFile(t, "rules.cue", `collapse: [" "]`)

	r, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultSeparator, r.Separator)
	assert.NotNil(t, r.Terms)
}

func TestLoadFile_CUENotConcrete(t *testing.T) {
	path := writeFile(t, "rules.cue", `separator: string`)

	_, err := LoadFile(path)
	assert.Error(t, err)
}

func TestLoadFile_InvalidRules(t *testing.T) {
	path := writeFile(t, "rules.yaml", "collapse: [\"\"]\n")

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collapse target 0")
}

func TestLoadFile_UnsupportedExtension(t *testing.T) {
	path := writeFile(t, "rules.toml", "")

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported")
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestWriteYAML_RoundTrip(t *testing.T) {
	want := Rules{
		Separator:       "_",
		CollapseTargets: []string{" ", "-"},
		Terms:           map[string]string{"pdf": "PDF"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, want))

	path := writeFile(t, "export.yaml", buf.String())
	got, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestEntry_String(t *testing.T) {
	for _, in := range []string{"-", ":", "&:_and_", "a:b:c", "key:"} {
		e, err := ParseEntry(in)
		require.NoError(t, err)
		assert.Equal(t, in, e.String(), in)
	}
}
