// Package vdb implements the open volumetric grid container format: a
// tree-structured, delayed-loading file format that stores one or more named
// sparse grids together with arbitrary string metadata. Files are written in
// a single bulk operation and read either eagerly or lazily through a
// trailing table of contents.
package vdb

import (
	"errors"
	"fmt"
)

const (
	// Magic identifies a vdb container file.
	Magic = 0x0056444247524944 // "DIRGVDB\0" little-endian

	// FormatVersion is the on-disk layout version written by this package.
	FormatVersion = 1
)

// Built-in grid classes registered by Initialize.
const (
	ClassUnknown   = "unknown"
	ClassFogVolume = "fog_volume"
	ClassLevelSet  = "level_set"
	ClassStaggered = "staggered"
)

var (
	// ErrInvalidFile indicates the file is not a vdb container or its
	// layout version is unsupported.
	ErrInvalidFile = errors.New("not a valid vdb container")

	// ErrGridNotFound indicates no grid in the file carries the requested name.
	ErrGridNotFound = errors.New("grid not found in file")

	// ErrAmbiguousGrid indicates more than one grid in the file carries the
	// requested name, so a by-name lookup cannot pick one.
	ErrAmbiguousGrid = errors.New("grid name matches more than one grid")

	// ErrUnknownClass indicates a grid block declares a class that was never
	// registered with the environment reading the file.
	ErrUnknownClass = errors.New("grid class not registered")

	// ErrNotOpen indicates a File accessor was called before Open.
	ErrNotOpen = errors.New("file is not open")
)

// Coord is a signed voxel coordinate in grid index space.
type Coord struct {
	X, Y, Z int32
}

// Less orders coordinates by X, then Y, then Z.
func (c Coord) Less(o Coord) bool {
	if c.X != o.X {
		return c.X < o.X
	}
	if c.Y != o.Y {
		return c.Y < o.Y
	}
	return c.Z < o.Z
}

// Grid is one named sparse volumetric field. Active voxels live in a map, so
// mutation order does not affect the serialized form: the writer sorts
// coordinates before encoding.
type Grid struct {
	Name      string
	Class     string
	VoxelSize float64
	Meta      map[string]string
	Voxels    map[Coord]float64
}

// NewGrid returns an empty grid with the given identity.
func NewGrid(name, class string, voxelSize float64) *Grid {
	return &Grid{
		Name:      name,
		Class:     class,
		VoxelSize: voxelSize,
		Meta:      map[string]string{},
		Voxels:    map[Coord]float64{},
	}
}

// Set activates the voxel at (x, y, z) with the given value.
func (g *Grid) Set(x, y, z int32, v float64) {
	if g.Voxels == nil {
		g.Voxels = map[Coord]float64{}
	}
	g.Voxels[Coord{X: x, Y: y, Z: z}] = v
}

// Len reports the number of active voxels.
func (g *Grid) Len() int { return len(g.Voxels) }

// BBox returns the inclusive index-space bounding box of the active voxels.
// ok is false for a grid with no active voxels.
func (g *Grid) BBox() (min, max Coord, ok bool) {
	for c := range g.Voxels {
		if !ok {
			min, max, ok = c, c, true
			continue
		}
		if c.X < min.X {
			min.X = c.X
		}
		if c.Y < min.Y {
			min.Y = c.Y
		}
		if c.Z < min.Z {
			min.Z = c.Z
		}
		if c.X > max.X {
			max.X = c.X
		}
		if c.Y > max.Y {
			max.Y = c.Y
		}
		if c.Z > max.Z {
			max.Z = c.Z
		}
	}
	return min, max, ok
}

// Env holds the process-wide state of the open-format library: the set of
// registered grid classes a reader will accept. Callers obtain one from
// Initialize and thread it explicitly into file access; there is no hidden
// package-level singleton.
type Env struct {
	classes map[string]struct{}
}

// Initialize performs the library's one-time setup and returns the
// environment handle required to open files. The built-in grid classes are
// pre-registered.
func Initialize() *Env {
	e := &Env{classes: map[string]struct{}{}}
	for _, c := range []string{ClassUnknown, ClassFogVolume, ClassLevelSet, ClassStaggered} {
		e.RegisterClass(c)
	}
	return e
}

// RegisterClass makes an additional grid class acceptable to readers using
// this environment.
func (e *Env) RegisterClass(name string) {
	e.classes[name] = struct{}{}
}

func (e *Env) checkClass(name string) error {
	if _, ok := e.classes[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownClass, name)
	}
	return nil
}
