package nvdb

import (
	"errors"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/nikitasimonian/openvdb/pkg/vdb"
)

// FromOpen converts an open-format grid to a compact handle, flattening the
// sparse voxel map into canonically ordered slabs and baking in the requested
// statistics and checksum. Free-form string metadata does not survive the
// conversion; the grid identity (name, class, voxel size) does.
func FromOpen(src *vdb.Grid, sMode StatsMode, cMode ChecksumMode) (*Grid, error) {
	if src == nil {
		return nil, errors.New("nil source grid")
	}

	sorted := vdb.SortedCoords(src.Voxels)
	coords := make([]Coord, len(sorted))
	values := make([]float64, len(sorted))
	for i, c := range sorted {
		coords[i] = Coord{X: c.X, Y: c.Y, Z: c.Z}
		values[i] = src.Voxels[c]
	}

	g := &Grid{
		Name:         src.Name,
		Class:        src.Class,
		VoxelSize:    src.VoxelSize,
		Coords:       coords,
		Values:       values,
		StatsMode:    sMode,
		ChecksumMode: cMode,
	}
	bakeStats(g, sMode)
	g.Checksum = computeChecksum(g, cMode)
	return g, nil
}

// ToOpen converts a compact handle back to an open-format grid. The baked
// statistics and checksum are conversion-time artifacts of the compact form
// and are not carried over; they are recomputed if the grid is ever converted
// back.
func ToOpen(g *Grid) (*vdb.Grid, error) {
	if g == nil {
		return nil, errors.New("nil compact grid")
	}
	out := vdb.NewGrid(g.Name, g.Class, g.VoxelSize)
	for i, c := range g.Coords {
		out.Set(c.X, c.Y, c.Z, g.Values[i])
	}
	return out, nil
}

// bakeStats fills in the aggregate fields covered by the mode and leaves the
// rest zero. The coordinate slabs must already be populated.
func bakeStats(g *Grid, mode StatsMode) {
	if mode == StatsDisable || len(g.Coords) == 0 {
		return
	}

	bb := BBox{Min: g.Coords[0], Max: g.Coords[0]}
	for _, c := range g.Coords[1:] {
		bb.Min.X = min(bb.Min.X, c.X)
		bb.Min.Y = min(bb.Min.Y, c.Y)
		bb.Min.Z = min(bb.Min.Z, c.Z)
		bb.Max.X = max(bb.Max.X, c.X)
		bb.Max.Y = max(bb.Max.Y, c.Y)
		bb.Max.Z = max(bb.Max.Z, c.Z)
	}
	g.BBox = bb
	if mode < StatsMinMax {
		return
	}

	g.Min = floats.Min(g.Values)
	g.Max = floats.Max(g.Values)
	if mode < StatsAll {
		return
	}

	mean, std := stat.MeanStdDev(g.Values, nil)
	g.Mean = mean
	if len(g.Values) > 1 {
		g.StdDev = std
	}
}
