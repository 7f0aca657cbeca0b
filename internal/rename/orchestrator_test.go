package rename

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fdn/internal/provenance"
	"github.com/roach88/fdn/internal/rules"
)

var apply = Options{Apply: true}

func TestForward_RenamesAndRecords(t *testing.T) {
	f := createFixture(t, spaceDash())
	src := f.touch(t, "My File - Draft.txt")

	res, err := f.o.Apply(context.Background(), Source{Path: src}, apply)

	require.NoError(t, err)
	assert.Equal(t, StatusRenamed, res.Status)
	assert.Equal(t, "My File - Draft.txt", res.Original)
	assert.Equal(t, "My_File_Draft.txt", res.New)
	assert.Positive(t, res.RecordID)
	assert.Equal(t, f.path("My_File_Draft.txt"), res.NewPath())
	assert.Equal(t, []string{"My_File_Draft.txt"}, f.names(t))
	assert.Equal(t, 1, f.records(t))
}

func TestForward_LeadingTrailingSeparator(t *testing.T) {
	f := createFixture(t, rules.Rules{Separator: "_"})
	src := f.touch(t, "_Report_.pdf")

	res, err := f.o.Apply(context.Background(), Source{Path: src}, apply)

	require.NoError(t, err)
	assert.Equal(t, "Report.pdf", res.New)
	assert.Equal(t, []string{"Report.pdf"}, f.names(t))
}

func TestForward_Directory(t *testing.T) {
	f := createFixture(t, spaceDash())
	require.NoError(t, os.Mkdir(f.path("My Photos v1.2"), 0o755))

	res, err := f.o.Apply(context.Background(), Source{Path: f.path("My Photos v1.2")}, apply)

	require.NoError(t, err)
	assert.Equal(t, "My_Photos_v1.2", res.New)
	info, err := os.Stat(f.path("My_Photos_v1.2"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestForward_DryRunHasNoSideEffects(t *testing.T) {
	f := createFixture(t, spaceDash())
	src := f.touch(t, "My File - Draft.txt")

	res, err := f.o.Apply(context.Background(), Source{Path: src}, Options{})

	require.NoError(t, err)
	assert.Equal(t, StatusPlanned, res.Status)
	assert.Equal(t, "My_File_Draft.txt", res.New)
	assert.True(t, res.Changed())
	assert.Equal(t, []string{"My File - Draft.txt"}, f.names(t))
	assert.Equal(t, 0, f.records(t))
}

func TestForward_UnchangedWritesNothing(t *testing.T) {
	f := createFixture(t, spaceDash())
	src := f.touch(t, "My_File_Draft.txt")

	res, err := f.o.Apply(context.Background(), Source{Path: src}, apply)

	require.NoError(t, err)
	assert.Equal(t, StatusUnchanged, res.Status)
	assert.False(t, res.Changed())
	assert.Equal(t, 0, f.records(t))
}

func TestForward_SecondRunIsNoOp(t *testing.T) {
	f := createFixture(t, rules.Defaults())
	f.touch(t, "【Draft】 Report, v2 (final)!.pdf")
	f.touch(t, "plain.txt")

	paths := []string{f.path("【Draft】 Report, v2 (final)!.pdf"), f.path("plain.txt")}
	sources, err := Pair(paths, nil)
	require.NoError(t, err)
	_, err = f.o.Forward(context.Background(), sources, apply)
	require.NoError(t, err)
	require.Equal(t, 1, f.records(t))

	second, err := Pair([]string{f.path("Draft_Report_v2_final.pdf"), f.path("plain.txt")}, nil)
	require.NoError(t, err)
	results, err := f.o.Forward(context.Background(), second, apply)

	require.NoError(t, err)
	for _, r := range results {
		assert.Equal(t, StatusUnchanged, r.Status, r.Path)
	}
	assert.Equal(t, 1, f.records(t))
}

func TestForward_HiddenSkipped(t *testing.T) {
	f := createFixture(t, spaceDash())
	src := f.touch(t, ".my config")

	res, err := f.o.Apply(context.Background(), Source{Path: src}, apply)
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, res.Status)

	res, err = f.o.Apply(context.Background(), Source{Path: src}, Options{Apply: true, IncludeHidden: true})
	require.NoError(t, err)
	assert.Equal(t, ".my_config", res.New)
}

func TestForward_CollisionPersistsNothing(t *testing.T) {
	f := createFixture(t, spaceDash())
	src := f.touch(t, "a b.txt")
	f.touch(t, "a_b.txt")

	res, err := f.o.Apply(context.Background(), Source{Path: src}, apply)

	require.Error(t, err)
	assert.True(t, IsRenameFailed(err))
	assert.ErrorIs(t, err, os.ErrExist)
	assert.Equal(t, StatusFailed, res.Status)
	assert.ElementsMatch(t, []string{"a b.txt", "a_b.txt"}, f.names(t))
	assert.Equal(t, 0, f.records(t))

	content, err := os.ReadFile(f.path("a_b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "a_b.txt", string(content), "existing target untouched")
}

func TestForward_MissingSource(t *testing.T) {
	f := createFixture(t, spaceDash())

	_, err := f.o.Apply(context.Background(), Source{Path: f.path("nope here.txt")}, apply)

	assert.True(t, IsInvalidInput(err))
	assert.Equal(t, 0, f.records(t))
}

func TestForward_StopsAtFirstError(t *testing.T) {
	f := createFixture(t, spaceDash())
	f.touch(t, "a b.txt")
	f.touch(t, "a_b.txt")
	f.touch(t, "c d.txt")

	sources, err := Pair([]string{f.path("a b.txt"), f.path("c d.txt")}, nil)
	require.NoError(t, err)
	results, err := f.o.Forward(context.Background(), sources, apply)

	require.Error(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, StatusFailed, results[0].Status)
	assert.Contains(t, f.names(t), "c d.txt", "later sources are not touched")
}

func TestForward_ExplicitTarget(t *testing.T) {
	f := createFixture(t, spaceDash())
	src := f.touch(t, "draft.txt")

	res, err := f.o.Apply(context.Background(), Source{Path: src, Target: "Final Version.txt"}, apply)

	require.NoError(t, err)
	assert.Equal(t, StatusRenamed, res.Status)
	assert.Equal(t, "Final Version.txt", res.New, "explicit targets bypass the transformer")
	assert.Equal(t, 1, f.records(t))
}

func TestForward_InvalidTargetsTouchNothing(t *testing.T) {
	for _, target := range []string{"../escape.txt", "sub/dir.txt", ".", ".."} {
		t.Run(target, func(t *testing.T) {
			f := createFixture(t, spaceDash())
			first := f.touch(t, "first.txt")
			second := f.touch(t, "second.txt")

			results, err := f.o.Forward(context.Background(), []Source{
				{Path: first, Target: "ok.txt"},
				{Path: second, Target: target},
			}, apply)

			assert.True(t, IsInvalidInput(err))
			assert.Empty(t, results)
			assert.ElementsMatch(t, []string{"first.txt", "second.txt"}, f.names(t))
		})
	}
}

func TestPair_CountMismatch(t *testing.T) {
	_, err := Pair([]string{"a", "b"}, []string{"x"})

	assert.True(t, IsInvalidInput(err))
}

func TestPair(t *testing.T) {
	sources, err := Pair([]string{"a", "b"}, []string{"x", "y"})

	require.NoError(t, err)
	assert.Equal(t, []Source{{Path: "a", Target: "x"}, {Path: "b", Target: "y"}}, sources)
}

func TestForward_EmptyResult(t *testing.T) {
	f := createFixture(t, spaceDash())
	src := f.touch(t, " - ")

	res, err := f.o.Apply(context.Background(), Source{Path: src}, apply)

	assert.True(t, IsTransform(err))
	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, []string{" - "}, f.names(t))
}

func TestForward_NonConvergentRulesRejected(t *testing.T) {
	s := createFixture(t, spaceDash()).store
	l := provenance.New(s, provenance.WithRunIDGenerator(provenance.NewFixedGenerator("run")))
	o := New(rules.Static{Separator: "_", Terms: map[string]string{"a": "aa"}}, l)
	dir := t.TempDir()
	src := dir + "/banana.txt"
	require.NoError(t, os.WriteFile(src, nil, 0o644))

	_, err := o.Apply(context.Background(), Source{Path: src}, apply)

	require.Error(t, err)
	assert.True(t, IsTransform(err))
	_, statErr := os.Stat(src)
	assert.NoError(t, statErr, "source is left in place")
}

func TestForward_StoreFailureUndoesRename(t *testing.T) {
	ioErr := errors.New("disk I/O error")
	l := provenance.New(&failingBackend{err: ioErr}, provenance.WithRunIDGenerator(provenance.NewFixedGenerator("run")))
	o := New(rules.Static(spaceDash()), l)
	dir := t.TempDir()
	src := dir + "/a b.txt"
	require.NoError(t, os.WriteFile(src, nil, 0o644))

	res, err := o.Apply(context.Background(), Source{Path: src}, apply)

	require.Error(t, err)
	assert.True(t, IsStoreIO(err))
	assert.ErrorIs(t, err, ioErr)
	assert.Equal(t, StatusFailed, res.Status)
	_, statErr := os.Stat(src)
	assert.NoError(t, statErr, "rename is undone when the record cannot be written")
}

func TestForward_RulesFailure(t *testing.T) {
	l := provenance.New(&failingBackend{}, provenance.WithRunIDGenerator(provenance.NewFixedGenerator("run")))
	o := New(failingProvider{}, l)

	_, err := o.Forward(context.Background(), []Source{{Path: "x"}}, apply)

	assert.True(t, IsStoreIO(err))
}

type failingProvider struct{}

func (failingProvider) Rules(context.Context) (rules.Rules, error) {
	return rules.Rules{}, errors.New("no such table: separators")
}

func TestForward_CanceledContext(t *testing.T) {
	f := createFixture(t, spaceDash())
	src := f.touch(t, "a b.txt")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := f.o.Forward(ctx, []Source{{Path: src}}, apply)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
}

func TestError_Format(t *testing.T) {
	err := &Error{
		Code:    ErrCodeRenameFailed,
		Stage:   StageRename,
		Path:    "/tmp/a",
		Message: "rename failed",
		Err:     os.ErrPermission,
	}

	assert.Equal(t, "RENAME_FAILED: rename failed: permission denied (path=/tmp/a, stage=rename)", err.Error())
	assert.ErrorIs(t, err, os.ErrPermission)
	assert.False(t, IsStoreIO(err))
}
