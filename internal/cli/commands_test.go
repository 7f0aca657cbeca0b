package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fdn/internal/provenance"
	"github.com/roach88/fdn/internal/rename"
	"github.com/roach88/fdn/internal/store"
)

// testEnv is an isolated home directory, database and working tree.
type testEnv struct {
	dir string
	db  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return &testEnv{
		dir: t.TempDir(),
		db:  filepath.Join(home, "state", "fdn.db"),
	}
}

// run executes fdn with args against the env's database.
func (e *testEnv) run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	outBuf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}

	cmd := newRootCommand(&RootOptions{RunIDs: provenance.NewFixedGenerator("run-test")})
	cmd.SetOut(outBuf)
	cmd.SetErr(errBuf)
	cmd.SetArgs(append([]string{"--db", e.db}, args...))

	err = cmd.ExecuteContext(context.Background())
	return outBuf.String(), errBuf.String(), err
}

func (e *testEnv) touch(t *testing.T, name string) string {
	t.Helper()
	p := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(p, []byte(name), 0o644))
	return p
}

func (e *testEnv) path(name string) string {
	return filepath.Join(e.dir, name)
}

func TestRenameDryRun(t *testing.T) {
	env := newTestEnv(t)
	env.touch(t, "My File - Draft.txt")

	out, _, err := env.run(t, "rename", env.dir)

	require.NoError(t, err)
	assert.Equal(t, "   My File - Draft.txt\n-->My_File_Draft.txt\n", out)
	assert.FileExists(t, env.path("My File - Draft.txt"))
	assert.NoFileExists(t, env.path("My_File_Draft.txt"))
}

func TestRenameInPlaceAndReverse(t *testing.T) {
	env := newTestEnv(t)
	env.touch(t, "My File - Draft.txt")

	out, _, err := env.run(t, "rename", "-i", env.dir)
	require.NoError(t, err)
	assert.Equal(t, "   My File - Draft.txt\n==>My_File_Draft.txt\n", out)
	assert.FileExists(t, env.path("My_File_Draft.txt"))

	out, _, err = env.run(t, "reverse", env.dir)
	require.NoError(t, err)
	assert.Equal(t, "   My_File_Draft.txt\n-->My File - Draft.txt\n", out)
	assert.FileExists(t, env.path("My_File_Draft.txt"), "dry run must not rename")

	out, _, err = env.run(t, "reverse", "-i", env.path("My_File_Draft.txt"))
	require.NoError(t, err)
	assert.Equal(t, "   My_File_Draft.txt\n==>My File - Draft.txt\n", out)
	assert.FileExists(t, env.path("My File - Draft.txt"))

	out, _, err = env.run(t, "reverse", "-i", env.dir)
	require.NoError(t, err)
	assert.Empty(t, out, "record is single use")
}

func TestRenameSecondRunIsNoop(t *testing.T) {
	env := newTestEnv(t)
	env.touch(t, "a b.txt")

	_, _, err := env.run(t, "rename", "-i", env.dir)
	require.NoError(t, err)

	out, _, err := env.run(t, "rename", "-i", env.dir)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRenameJSON(t *testing.T) {
	env := newTestEnv(t)
	env.touch(t, "a b.txt")

	out, _, err := env.run(t, "--format", "json", "rename", "-i", env.dir)
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   RenameReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "run-test", resp.Data.RunID)
	assert.True(t, resp.Data.Applied)
	require.Len(t, resp.Data.Results, 1)
	assert.Equal(t, "a b.txt", resp.Data.Results[0].Original)
	assert.Equal(t, "a_b.txt", resp.Data.Results[0].New)
	assert.Equal(t, rename.StatusRenamed, resp.Data.Results[0].Status)
	assert.NotZero(t, resp.Data.Results[0].RecordID)
}

func TestRenameCollisionFails(t *testing.T) {
	env := newTestEnv(t)
	env.touch(t, "a b.txt")
	env.touch(t, "a_b.txt")

	_, _, err := env.run(t, "rename", "-i", env.dir)

	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "RENAME_FAILED", ErrorCode(err))
	assert.FileExists(t, env.path("a b.txt"))
}

func TestRenameInvalidType(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.run(t, "rename", "-t", "x", env.dir)

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestInvalidFormat(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.run(t, "--format", "yaml", "history")

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestReverseChainJSON(t *testing.T) {
	env := newTestEnv(t)
	env.touch(t, "A.txt")

	_, _, err := env.run(t, "mv", env.path("A.txt"), "B.txt")
	require.NoError(t, err)
	_, _, err = env.run(t, "mv", env.path("B.txt"), "C.txt")
	require.NoError(t, err)

	out, _, err := env.run(t, "--format", "json", "reverse", "-i", "-c", env.path("C.txt"))
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   ReverseReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Results, 1)
	res := resp.Data.Results[0]
	assert.Equal(t, rename.StatusRestored, res.Status)
	require.Len(t, res.Hops, 2)
	assert.Equal(t, "B.txt", res.Hops[0].To)
	assert.Equal(t, "A.txt", res.Hops[1].To)
	assert.Nil(t, res.Error)
	assert.FileExists(t, env.path("A.txt"))
}

func TestReverseTargetExistsFails(t *testing.T) {
	env := newTestEnv(t)
	env.touch(t, "a b.txt")

	_, _, err := env.run(t, "rename", "-i", env.dir)
	require.NoError(t, err)
	env.touch(t, "a b.txt")

	_, stderr, err := env.run(t, "reverse", "-i", env.path("a_b.txt"))

	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "1 of 1 paths failed")
	assert.Contains(t, stderr, "Error [RENAME_FAILED]")
	assert.FileExists(t, env.path("a_b.txt"))
}

func TestMoveOddArgs(t *testing.T) {
	env := newTestEnv(t)
	env.touch(t, "a.txt")

	_, _, err := env.run(t, "mv", env.path("a.txt"), "b.txt", "c.txt")

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.FileExists(t, env.path("a.txt"))
}

func TestMoveInvalidTarget(t *testing.T) {
	env := newTestEnv(t)
	env.touch(t, "a.txt")
	env.touch(t, "b.txt")

	_, _, err := env.run(t, "mv", env.path("a.txt"), "ok.txt", env.path("b.txt"), "x/y.txt")

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, "INVALID_INPUT", ErrorCode(err))
	assert.FileExists(t, env.path("a.txt"), "no file is touched when any target is invalid")
	assert.FileExists(t, env.path("b.txt"))
}

func TestMoveKeepsNameVerbatimAndReverses(t *testing.T) {
	env := newTestEnv(t)
	env.touch(t, "draft.txt")

	out, _, err := env.run(t, "mv", env.path("draft.txt"), "Final Report.txt")
	require.NoError(t, err)
	assert.Equal(t, "   draft.txt\n==>Final Report.txt\n", out)
	assert.FileExists(t, env.path("Final Report.txt"))

	_, _, err = env.run(t, "reverse", "-i", env.path("Final Report.txt"))
	require.NoError(t, err)
	assert.FileExists(t, env.path("draft.txt"))
}

func TestConfigAddListDelete(t *testing.T) {
	env := newTestEnv(t)

	out, _, err := env.run(t, "config", "add", "+", "&:_and_")
	require.NoError(t, err)
	assert.Contains(t, out, `added collapse target "+"`)
	assert.Contains(t, out, `added term "&" -> "_and_"`)

	out, _, err = env.run(t, "config", "add", "+")
	require.NoError(t, err)
	assert.Contains(t, out, `collapse target "+" already present`)

	out, _, err = env.run(t, "--format", "json", "config", "list")
	require.NoError(t, err)
	var resp struct {
		Status string      `json:"status"`
		Data   RuleListing `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "_", resp.Data.Separator)
	var values []string
	for _, c := range resp.Data.CollapseTargets {
		values = append(values, c.Value)
	}
	assert.Contains(t, values, "+")
	assert.Contains(t, values, " ")
	require.Len(t, resp.Data.Terms, 1)
	assert.Equal(t, "&", resp.Data.Terms[0].Key)
	assert.Equal(t, "_and_", resp.Data.Terms[0].Value)

	out, _, err = env.run(t, "config", "delete", "&:_and_", "+", "missing")
	require.NoError(t, err)
	assert.Contains(t, out, `deleted "&:_and_"`)
	assert.Contains(t, out, `deleted "+"`)
	assert.Contains(t, out, `"missing" not found`)

	out, _, err = env.run(t, "config", "list")
	require.NoError(t, err)
	assert.Contains(t, out, `separator: "_"`)
	assert.Contains(t, out, "terms (0):")
	assert.NotContains(t, out, `"+"`)
}

func TestConfigSeparatorAffectsRename(t *testing.T) {
	env := newTestEnv(t)
	env.touch(t, "My File.txt")

	_, _, err := env.run(t, "config", "separator", "+")
	require.NoError(t, err)

	out, _, err := env.run(t, "rename", env.dir)
	require.NoError(t, err)
	assert.Equal(t, "   My File.txt\n-->My+File.txt\n", out)
}

func TestConfigImportExport(t *testing.T) {
	env := newTestEnv(t)
	env.touch(t, "Q&A x.txt")

	rulesFile := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(rulesFile, []byte(`separator: "_"
collapse: [" "]
terms:
  "&": "_and_"
`), 0o644))

	out, _, err := env.run(t, "config", "import", rulesFile)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 1 collapse targets and 1 terms")

	out, _, err = env.run(t, "rename", env.dir)
	require.NoError(t, err)
	assert.Equal(t, "   Q&A x.txt\n-->Q_and_A_x.txt\n", out)

	exported := filepath.Join(t.TempDir(), "out.yaml")
	_, _, err = env.run(t, "config", "export", "-o", exported)
	require.NoError(t, err)

	other := newTestEnv(t)
	_, _, err = other.run(t, "config", "import", exported)
	require.NoError(t, err)
	out, _, err = other.run(t, "config", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "collapse targets (1):")
	assert.Contains(t, out, `"&" -> "_and_"`)
}

func TestConfigImportInvalidFile(t *testing.T) {
	env := newTestEnv(t)
	rulesFile := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(rulesFile, []byte("collapse: [\"\"]\n"), 0o644))

	_, _, err := env.run(t, "config", "import", rulesFile)

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestHistory(t *testing.T) {
	env := newTestEnv(t)

	out, _, err := env.run(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No rename history")

	env.touch(t, "a b.txt")
	env.touch(t, "c d.txt")
	_, _, err = env.run(t, "rename", "-i", env.dir)
	require.NoError(t, err)

	out, _, err = env.run(t, "--format", "json", "history")
	require.NoError(t, err)
	var resp struct {
		Status string             `json:"status"`
		Data   []store.RunSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "run-test", resp.Data[0].RunID)
	assert.Equal(t, 2, resp.Data[0].Records)

	out, _, err = env.run(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "RUN")
	assert.Contains(t, out, "run-test")
}

func TestVerboseLogsToStderr(t *testing.T) {
	env := newTestEnv(t)
	env.touch(t, "a b.txt")

	out, stderr, err := env.run(t, "-v", "rename", env.dir)

	require.NoError(t, err)
	assert.Contains(t, out, "-->a_b.txt")
	assert.Contains(t, stderr, "opening database")
	assert.Contains(t, stderr, "0 renamed, 1 planned")
}

func TestOpenStoreChecksSchema(t *testing.T) {
	env := newTestEnv(t)
	opts := &RootOptions{
		Database: env.db,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	st, err := opts.openStore(context.Background())
	require.NoError(t, err)
	opts.closeStore(st)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = opts.openStore(ctx)

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "database schema check failed")
}

func TestReverseNameThatBecameHidden(t *testing.T) {
	env := newTestEnv(t)
	env.touch(t, "-.notes.txt")

	_, _, err := env.run(t, "rename", "-i", env.dir)
	require.NoError(t, err)
	require.FileExists(t, env.path(".notes.txt"))

	out, _, err := env.run(t, "reverse", "-i", env.path(".notes.txt"))

	require.NoError(t, err)
	assert.Contains(t, out, "-.notes.txt")
	assert.FileExists(t, env.path("-.notes.txt"))
	assert.NoFileExists(t, env.path(".notes.txt"))
}
