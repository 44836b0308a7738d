package converter

import (
	"fmt"
	"path/filepath"
)

// Canonical file extensions of the two container formats.
const (
	ExtOpen    = ".vdb"
	ExtCompact = ".nvdb"
)

// Direction is the conversion direction, derived once from the output file's
// extension. It is a pure function of that extension: input count and file
// contents play no part.
type Direction int

const (
	DirectionUnknown Direction = iota
	ToCompact                  // open → compact (.vdb inputs, .nvdb output)
	ToOpen                     // compact → open (.nvdb inputs, .vdb output)
)

// ResolveDirection inspects the output filename's extension. Anything other
// than the two canonical extensions is a usage error.
func ResolveDirection(outputFile string) (Direction, error) {
	switch filepath.Ext(outputFile) {
	case ExtCompact:
		return ToCompact, nil
	case ExtOpen:
		return ToOpen, nil
	}
	return DirectionUnknown, fmt.Errorf("%w: %q", ErrUnknownExtension, outputFile)
}

// String names the direction after its target format.
func (d Direction) String() string {
	switch d {
	case ToCompact:
		return "to-nvdb"
	case ToOpen:
		return "to-vdb"
	}
	return "unknown"
}

// InputExt is the extension every input file must carry for this direction.
func (d Direction) InputExt() string {
	if d == ToCompact {
		return ExtOpen
	}
	return ExtCompact
}

// SourceFormat names the format the inputs are read as.
func (d Direction) SourceFormat() string {
	if d == ToCompact {
		return "VDB"
	}
	return "NVDB"
}

// TargetFormat names the format the output is written as.
func (d Direction) TargetFormat() string {
	if d == ToCompact {
		return "NVDB"
	}
	return "VDB"
}
