// Package testutil provides shared fixture builders for the converter's
// tests: deterministic sample grids and temporary container files in both
// formats.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nikitasimonian/openvdb/pkg/nvdb"
	"github.com/nikitasimonian/openvdb/pkg/vdb"
)

// SparseGrid builds a deterministic open-format grid with n active voxels.
func SparseGrid(name string, n int) *vdb.Grid {
	g := vdb.NewGrid(name, vdb.ClassFogVolume, 0.1)
	for i := 0; i < n; i++ {
		g.Set(int32(i), int32((i*i)%17), int32(-i), 0.5*float64(i+1))
	}
	return g
}

// CompactGrid builds a deterministic compact-format grid with default stats
// and checksum baked in.
func CompactGrid(t *testing.T, name string, n int) *nvdb.Grid {
	t.Helper()
	g, err := nvdb.FromOpen(SparseGrid(name, n), nvdb.StatsDefault, nvdb.ChecksumDefault)
	require.NoError(t, err)
	return g
}

// TempVDBFile writes the grids to a fresh .vdb container under t.TempDir and
// returns its path.
func TempVDBFile(t *testing.T, name string, grids ...*vdb.Grid) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, vdb.Write(path, grids))
	return path
}

// TempNVDBFile appends the grids to a fresh .nvdb stream under t.TempDir and
// returns its path.
func TempNVDBFile(t *testing.T, name string, codec nvdb.Codec, grids ...*nvdb.Grid) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	for _, g := range grids {
		require.NoError(t, nvdb.WriteGrid(f, g, codec))
	}
	require.NoError(t, f.Close())
	return path
}
