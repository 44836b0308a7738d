package converter_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikitasimonian/openvdb/internal/testutil"
	"github.com/nikitasimonian/openvdb/pkg/converter"
	"github.com/nikitasimonian/openvdb/pkg/nvdb"
	"github.com/nikitasimonian/openvdb/pkg/vdb"
)

// recordingHooks captures the engine's callbacks in order.
type recordingHooks struct {
	files   []string
	grids   []string
	summary *converter.Summary
}

func (r *recordingHooks) OnFileOpen(path, format string)    { r.files = append(r.files, path) }
func (r *recordingHooks) OnGridConvert(name, from, to string) { r.grids = append(r.grids, name) }
func (r *recordingHooks) OnRunComplete(s converter.Summary) { r.summary = &s }

func convertOpts(inputs []string, output string) converter.Options {
	return converter.Options{
		StatsMode:    nvdb.StatsDefault,
		ChecksumMode: nvdb.ChecksumDefault,
		InputFiles:   inputs,
		OutputFile:   output,
	}
}

func TestConvertToCompactUnionInOrder(t *testing.T) {
	a := testutil.TempVDBFile(t, "a.vdb",
		testutil.SparseGrid("density", 12), testutil.SparseGrid("heat", 3))
	b := testutil.TempVDBFile(t, "b.vdb", testutil.SparseGrid("velocity", 6))
	out := filepath.Join(t.TempDir(), "out.nvdb")

	hooks := &recordingHooks{}
	opts := convertOpts([]string{a, b}, out)
	opts.Hooks = hooks

	require.NoError(t, converter.Convert(context.Background(), opts, vdb.Initialize()))

	grids, err := nvdb.ReadGridsFromFile(out)
	require.NoError(t, err)
	require.Len(t, grids, 3)
	// File order, then intra-file order.
	assert.Equal(t, "density", grids[0].Name)
	assert.Equal(t, "heat", grids[1].Name)
	assert.Equal(t, "velocity", grids[2].Name)

	assert.Equal(t, []string{a, b}, hooks.files)
	assert.Equal(t, []string{"density", "heat", "velocity"}, hooks.grids)
	require.NotNil(t, hooks.summary)
	assert.Equal(t, 3, hooks.summary.Grids)
	assert.Equal(t, 2, hooks.summary.Files)
	assert.Equal(t, nvdb.Version(), hooks.summary.LibraryVersion)
	assert.Positive(t, hooks.summary.BytesWritten)
}

func TestConvertToOpenBulkWrite(t *testing.T) {
	a := testutil.TempNVDBFile(t, "a.nvdb", nvdb.CodecZip,
		testutil.CompactGrid(t, "density", 10))
	b := testutil.TempNVDBFile(t, "b.nvdb", nvdb.CodecNone,
		testutil.CompactGrid(t, "heat", 4), testutil.CompactGrid(t, "fog", 7))
	out := filepath.Join(t.TempDir(), "out.vdb")

	require.NoError(t, converter.Convert(context.Background(), convertOpts([]string{a, b}, out), vdb.Initialize()))

	f := vdb.Initialize().OpenFile(out)
	require.NoError(t, f.Open(false))
	defer f.Close()
	grids, err := f.Grids()
	require.NoError(t, err)
	require.Len(t, grids, 3)
	assert.Equal(t, "density", grids[0].Name)
	assert.Equal(t, "heat", grids[1].Name)
	assert.Equal(t, "fog", grids[2].Name)
	assert.Equal(t, 10, grids[0].Len())
}

func TestConvertGridFilterAcrossFiles(t *testing.T) {
	a := testutil.TempVDBFile(t, "a.vdb",
		testutil.SparseGrid("density", 5), testutil.SparseGrid("heat", 2))
	b := testutil.TempVDBFile(t, "b.vdb",
		testutil.SparseGrid("fog", 1), testutil.SparseGrid("density", 9))
	out := filepath.Join(t.TempDir(), "out.nvdb")

	opts := convertOpts([]string{a, b}, out)
	opts.GridName = "density"
	require.NoError(t, converter.Convert(context.Background(), opts, vdb.Initialize()))

	grids, err := nvdb.ReadGridsFromFile(out)
	require.NoError(t, err)
	require.Len(t, grids, 2, "exactly one matching grid per input file")
	assert.Equal(t, "density", grids[0].Name)
	assert.Equal(t, "density", grids[1].Name)
	assert.Equal(t, 5, grids[0].VoxelCount())
	assert.Equal(t, 9, grids[1].VoxelCount())
}

func TestConvertGridFilterMissingIsFatal(t *testing.T) {
	a := testutil.TempVDBFile(t, "a.vdb", testutil.SparseGrid("density", 5))
	b := testutil.TempVDBFile(t, "b.vdb", testutil.SparseGrid("heat", 2))
	out := filepath.Join(t.TempDir(), "out.nvdb")

	opts := convertOpts([]string{a, b}, out)
	opts.GridName = "density"
	err := converter.Convert(context.Background(), opts, vdb.Initialize())
	require.Error(t, err)
	assert.ErrorIs(t, err, converter.ErrGridNotFound)
	assert.Contains(t, err.Error(), `"density"`, "error quotes the requested name")
	assert.Contains(t, err.Error(), b, "error names the offending file")
}

func TestConvertNamedGridMissingFromCompactInput(t *testing.T) {
	in := testutil.TempNVDBFile(t, "a.nvdb", nvdb.CodecNone,
		testutil.CompactGrid(t, "heat", 4))
	out := filepath.Join(t.TempDir(), "out.vdb")

	opts := convertOpts([]string{in}, out)
	opts.GridName = "density"
	err := converter.Convert(context.Background(), opts, vdb.Initialize())
	assert.ErrorIs(t, err, converter.ErrGridNotFound)
}

func TestConvertExtensionMismatchIsLazy(t *testing.T) {
	good := testutil.TempVDBFile(t, "good.vdb", testutil.SparseGrid("density", 3))
	bad := filepath.Join(t.TempDir(), "bad.nvdb")
	out := filepath.Join(t.TempDir(), "out.nvdb")

	hooks := &recordingHooks{}
	opts := convertOpts([]string{good, bad}, out)
	opts.Hooks = hooks

	err := converter.Convert(context.Background(), opts, vdb.Initialize())
	require.Error(t, err)
	assert.ErrorIs(t, err, converter.ErrExtensionMismatch)
	assert.Contains(t, err.Error(), bad)
	assert.True(t, converter.IsUsageError(err))

	// The first file was already processed when the mismatch was caught.
	assert.Equal(t, []string{good}, hooks.files)
	assert.Equal(t, []string{"density"}, hooks.grids)
}

func TestConvertDisabledModesBakedIntoOutput(t *testing.T) {
	in := testutil.TempVDBFile(t, "a.vdb", testutil.SparseGrid("density", 8))
	out := filepath.Join(t.TempDir(), "out.nvdb")

	opts := convertOpts([]string{in}, out)
	opts.StatsMode = nvdb.StatsDisable
	opts.ChecksumMode = nvdb.ChecksumDisable
	require.NoError(t, converter.Convert(context.Background(), opts, vdb.Initialize()))

	grids, err := nvdb.ReadGridsFromFile(out)
	require.NoError(t, err)
	require.Len(t, grids, 1)
	g := grids[0]
	assert.Equal(t, nvdb.StatsDisable, g.StatsMode)
	assert.Equal(t, nvdb.ChecksumDisable, g.ChecksumMode)
	assert.Equal(t, nvdb.BBox{}, g.BBox)
	assert.Zero(t, g.Checksum)
}

func TestConvertFormatRoundTrip(t *testing.T) {
	src := testutil.SparseGrid("density", 30)
	vdbIn := testutil.TempVDBFile(t, "in.vdb", src)
	nvdbOut := filepath.Join(t.TempDir(), "mid.nvdb")
	vdbOut := filepath.Join(t.TempDir(), "back.vdb")

	env := vdb.Initialize()
	require.NoError(t, converter.Convert(context.Background(), convertOpts([]string{vdbIn}, nvdbOut), env))
	require.NoError(t, converter.Convert(context.Background(), convertOpts([]string{nvdbOut}, vdbOut), env))

	f := env.OpenFile(vdbOut)
	require.NoError(t, f.Open(false))
	defer f.Close()
	back, err := f.GridByName("density")
	require.NoError(t, err)
	assert.Equal(t, src.Voxels, back.Voxels, "topology survives the round trip")
	assert.Equal(t, src.VoxelSize, back.VoxelSize)
}

func TestConvertEmptyInputListRejected(t *testing.T) {
	err := converter.Convert(context.Background(), convertOpts(nil, "out.nvdb"), vdb.Initialize())
	assert.ErrorIs(t, err, converter.ErrTooFewFiles)
}

func TestConvertCancelledContext(t *testing.T) {
	in := testutil.TempVDBFile(t, "a.vdb", testutil.SparseGrid("density", 3))
	out := filepath.Join(t.TempDir(), "out.nvdb")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := converter.Convert(ctx, convertOpts([]string{in}, out), vdb.Initialize())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConvertAmbiguousFilterIsFatal(t *testing.T) {
	in := testutil.TempVDBFile(t, "a.vdb",
		testutil.SparseGrid("density", 3), testutil.SparseGrid("density", 4))
	out := filepath.Join(t.TempDir(), "out.nvdb")

	opts := convertOpts([]string{in}, out)
	opts.GridName = "density"
	err := converter.Convert(context.Background(), opts, vdb.Initialize())
	assert.ErrorIs(t, err, vdb.ErrAmbiguousGrid)
}

func TestConvertTruncatesExistingOutput(t *testing.T) {
	in := testutil.TempVDBFile(t, "a.vdb", testutil.SparseGrid("density", 3))
	out := filepath.Join(t.TempDir(), "out.nvdb")
	require.NoError(t, os.WriteFile(out, []byte("stale bytes from a previous run"), 0o644))

	require.NoError(t, converter.Convert(context.Background(), convertOpts([]string{in}, out), vdb.Initialize()))

	grids, err := nvdb.ReadGridsFromFile(out)
	require.NoError(t, err)
	require.Len(t, grids, 1)
}
