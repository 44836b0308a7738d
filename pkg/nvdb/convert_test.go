package nvdb_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikitasimonian/openvdb/pkg/nvdb"
	"github.com/nikitasimonian/openvdb/pkg/vdb"
)

func TestFromOpenStatsModes(t *testing.T) {
	src := vdb.NewGrid("density", vdb.ClassFogVolume, 0.1)
	src.Set(2, 0, -3, 4.0)
	src.Set(-1, 5, 0, -2.0)
	src.Set(0, 1, 7, 6.0)

	t.Run("disable", func(t *testing.T) {
		g, err := nvdb.FromOpen(src, nvdb.StatsDisable, nvdb.ChecksumDisable)
		require.NoError(t, err)
		assert.Equal(t, nvdb.BBox{}, g.BBox)
		assert.Zero(t, g.Min)
		assert.Zero(t, g.Max)
	})

	t.Run("bbox", func(t *testing.T) {
		g, err := nvdb.FromOpen(src, nvdb.StatsBBox, nvdb.ChecksumDisable)
		require.NoError(t, err)
		assert.Equal(t, nvdb.Coord{X: -1, Y: 0, Z: -3}, g.BBox.Min)
		assert.Equal(t, nvdb.Coord{X: 2, Y: 5, Z: 7}, g.BBox.Max)
		assert.Zero(t, g.Min, "extrema are beyond bbox mode")
		assert.Zero(t, g.Max)
	})

	t.Run("extrema", func(t *testing.T) {
		g, err := nvdb.FromOpen(src, nvdb.StatsMinMax, nvdb.ChecksumDisable)
		require.NoError(t, err)
		assert.Equal(t, -2.0, g.Min)
		assert.Equal(t, 6.0, g.Max)
		assert.Zero(t, g.Mean, "mean is beyond extrema mode")
	})

	t.Run("all", func(t *testing.T) {
		g, err := nvdb.FromOpen(src, nvdb.StatsAll, nvdb.ChecksumDisable)
		require.NoError(t, err)
		assert.InDelta(t, 8.0/3.0, g.Mean, 1e-12)
		assert.Greater(t, g.StdDev, 0.0)
	})
}

func TestFromOpenCanonicalOrder(t *testing.T) {
	src := vdb.NewGrid("density", vdb.ClassFogVolume, 0.1)
	src.Set(5, 0, 0, 1)
	src.Set(-5, 0, 0, 2)
	src.Set(0, 3, -1, 3)
	src.Set(0, 3, 2, 4)

	g, err := nvdb.FromOpen(src, nvdb.StatsDisable, nvdb.ChecksumDisable)
	require.NoError(t, err)
	want := []nvdb.Coord{
		{X: -5, Y: 0, Z: 0},
		{X: 0, Y: 3, Z: -1},
		{X: 0, Y: 3, Z: 2},
		{X: 5, Y: 0, Z: 0},
	}
	assert.Equal(t, want, g.Coords)
	assert.Equal(t, []float64{2, 3, 4, 1}, g.Values)
}

func TestFromOpenEmptyGrid(t *testing.T) {
	src := vdb.NewGrid("empty", vdb.ClassFogVolume, 0.1)
	g, err := nvdb.FromOpen(src, nvdb.StatsAll, nvdb.ChecksumFull)
	require.NoError(t, err)
	assert.Zero(t, g.VoxelCount())
	assert.Equal(t, nvdb.BBox{}, g.BBox)
	assert.NotZero(t, g.Checksum, "identity is still covered")
}

func TestChecksumModesBaked(t *testing.T) {
	src := vdb.NewGrid("density", vdb.ClassFogVolume, 0.1)
	src.Set(1, 2, 3, 4)

	none, err := nvdb.FromOpen(src, nvdb.StatsAll, nvdb.ChecksumDisable)
	require.NoError(t, err)
	partial, err := nvdb.FromOpen(src, nvdb.StatsAll, nvdb.ChecksumPartial)
	require.NoError(t, err)
	full, err := nvdb.FromOpen(src, nvdb.StatsAll, nvdb.ChecksumFull)
	require.NoError(t, err)

	assert.Zero(t, none.Checksum)
	assert.NotZero(t, partial.Checksum)
	assert.NotZero(t, full.Checksum)
	assert.NotEqual(t, partial.Checksum, full.Checksum)
}

func TestRoundTripPreservesTopology(t *testing.T) {
	src := vdb.NewGrid("density", vdb.ClassLevelSet, 0.25)
	src.Meta["note"] = "does not survive the round trip"
	for i := 0; i < 50; i++ {
		src.Set(int32(i%7), int32(i), int32(-2*i), float64(i))
	}

	h, err := nvdb.FromOpen(src, nvdb.StatsDefault, nvdb.ChecksumDefault)
	require.NoError(t, err)
	back, err := nvdb.ToOpen(h)
	require.NoError(t, err)

	assert.Equal(t, src.Name, back.Name)
	assert.Equal(t, src.Class, back.Class)
	assert.Equal(t, src.VoxelSize, back.VoxelSize)
	if diff := cmp.Diff(src.Voxels, back.Voxels); diff != "" {
		t.Errorf("voxel topology mismatch (-want +got):\n%s", diff)
	}
	// Free-form metadata is a documented lossy field.
	assert.Empty(t, back.Meta)
}

func TestParseModes(t *testing.T) {
	m, err := nvdb.ParseStatsMode("EXTREMA")
	require.NoError(t, err)
	assert.Equal(t, nvdb.StatsMinMax, m)

	_, err = nvdb.ParseStatsMode("default")
	assert.Error(t, err, "default is not part of the CLI vocabulary")

	c, err := nvdb.ParseChecksumMode("Full")
	require.NoError(t, err)
	assert.Equal(t, nvdb.ChecksumFull, c)

	_, err = nvdb.ParseChecksumMode("crc32")
	assert.Error(t, err)
}
