// Package nvdb implements the compact volumetric grid container format: a
// flattened, linearly laid out encoding of sparse grids designed for direct
// reads. Unlike the open format, the stream writer supports repeated append
// writes, so an output file can be built one grid at a time. Per-grid
// statistics and integrity checksums are baked in at conversion time.
package nvdb

import (
	"errors"
	"fmt"
	"strings"
)

// Library version, reported by verbose conversions and embedded in every
// segment header. Readers accept any stream whose major version matches.
const (
	MajorVersion = 1
	MinorVersion = 3
	PatchVersion = 0
)

// Version returns the library version as a dotted string.
func Version() string {
	return fmt.Sprintf("%d.%d.%d", MajorVersion, MinorVersion, PatchVersion)
}

func versionWord() uint64 {
	return MajorVersion<<32 | MinorVersion<<16 | PatchVersion
}

var (
	// ErrInvalidStream indicates the data is not a compact-format grid stream.
	ErrInvalidStream = errors.New("not a valid nvdb stream")

	// ErrVersionMismatch indicates the stream was written by an incompatible
	// major version of the library.
	ErrVersionMismatch = errors.New("incompatible nvdb stream version")

	// ErrChecksumMismatch indicates a grid's baked checksum did not match the
	// data read back.
	ErrChecksumMismatch = errors.New("grid checksum mismatch")

	// ErrAmbiguousGrid indicates a by-name read matched more than one grid in
	// the same file.
	ErrAmbiguousGrid = errors.New("grid name matches more than one grid")
)

// StatsMode selects which aggregate statistics are baked into a grid during
// conversion. The modes are cumulative: MinMax implies the bounding box, All
// implies min/max.
type StatsMode uint8

const (
	StatsDisable StatsMode = iota
	StatsBBox
	StatsMinMax
	StatsAll
)

// StatsDefault is the mode applied when the caller does not choose one.
const StatsDefault = StatsAll

// String returns the CLI vocabulary name of the mode.
func (m StatsMode) String() string {
	switch m {
	case StatsDisable:
		return "none"
	case StatsBBox:
		return "bbox"
	case StatsMinMax:
		return "extrema"
	case StatsAll:
		return "all"
	}
	return fmt.Sprintf("StatsMode(%d)", uint8(m))
}

// ParseStatsMode matches s case-insensitively against the fixed vocabulary
// {none, bbox, extrema, all}. Anything else is an error, never a fallback.
func ParseStatsMode(s string) (StatsMode, error) {
	switch strings.ToLower(s) {
	case "none":
		return StatsDisable, nil
	case "bbox":
		return StatsBBox, nil
	case "extrema":
		return StatsMinMax, nil
	case "all":
		return StatsAll, nil
	}
	return StatsDisable, fmt.Errorf("expected one of the stats modes {none, bbox, extrema, all}, got %q", s)
}

// ChecksumMode selects whether and how much of a grid is covered by the
// integrity checksum baked in during conversion.
type ChecksumMode uint8

const (
	ChecksumDisable ChecksumMode = iota
	ChecksumPartial              // grid identity and extent only
	ChecksumFull                 // identity, extent and the full voxel payload
)

// ChecksumDefault is the mode applied when the caller does not choose one.
const ChecksumDefault = ChecksumPartial

// String returns the CLI vocabulary name of the mode.
func (m ChecksumMode) String() string {
	switch m {
	case ChecksumDisable:
		return "none"
	case ChecksumPartial:
		return "partial"
	case ChecksumFull:
		return "full"
	}
	return fmt.Sprintf("ChecksumMode(%d)", uint8(m))
}

// ParseChecksumMode matches s case-insensitively against the fixed vocabulary
// {none, partial, full}.
func ParseChecksumMode(s string) (ChecksumMode, error) {
	switch strings.ToLower(s) {
	case "none":
		return ChecksumDisable, nil
	case "partial":
		return ChecksumPartial, nil
	case "full":
		return ChecksumFull, nil
	}
	return ChecksumDisable, fmt.Errorf("expected one of the checksum modes {none, partial, full}, got %q", s)
}

// Coord is a signed voxel coordinate in grid index space.
type Coord struct {
	X, Y, Z int32
}

// BBox is the inclusive index-space bounding box of a grid's active voxels.
type BBox struct {
	Min, Max Coord
}

// Grid is one compact-format grid handle. Active voxels are stored as
// parallel coordinate and value slabs in canonical X, Y, Z order; aggregate
// statistics and the checksum are whatever the producing conversion baked in,
// recorded alongside the mode flags so readers can tell absence from zero.
type Grid struct {
	Name      string
	Class     string
	VoxelSize float64

	Coords []Coord
	Values []float64

	BBox         BBox
	Min, Max     float64
	Mean, StdDev float64

	StatsMode    StatsMode
	ChecksumMode ChecksumMode
	Checksum     uint64
}

// VoxelCount reports the number of active voxels.
func (g *Grid) VoxelCount() int { return len(g.Values) }
