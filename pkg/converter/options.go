// Package converter implements the conversion orchestration between the open
// (.vdb) and compact (.nvdb) volumetric grid container formats: direction
// resolution, the option model threaded through every converted grid, the
// overwrite guard, and the aggregating engine that merges one or more input
// files into a single output.
package converter

import (
	"io"
	"log/slog"

	"github.com/nikitasimonian/openvdb/pkg/nvdb"
)

// Hooks receives progress callbacks from the engine. Implementations are
// pure side-effect reporters: they cannot alter or abort the run. The engine
// is strictly sequential, so implementations need not be thread-safe.
type Hooks interface {
	// OnFileOpen fires before an input file is opened, with the source
	// format name it is expected to hold.
	OnFileOpen(path, format string)

	// OnGridConvert fires before one grid is converted.
	OnGridConvert(name, from, to string)

	// OnRunComplete fires once after every conversion succeeded and the
	// output has been finalized.
	OnRunComplete(s Summary)
}

// Summary describes a completed run.
type Summary struct {
	Files          int
	Grids          int
	BytesWritten   int64
	LibraryVersion string // compact-format library version
}

// NoOpHooks is the default, do-nothing Hooks implementation.
type NoOpHooks struct{}

// OnFileOpen implements Hooks.
func (NoOpHooks) OnFileOpen(path, format string) {}

// OnGridConvert implements Hooks.
func (NoOpHooks) OnGridConvert(name, from, to string) {}

// OnRunComplete implements Hooks.
func (NoOpHooks) OnRunComplete(s Summary) {}

// Options holds the full configuration of one conversion run. It is built
// once by the CLI's config layer and never mutated afterwards; every
// converted grid sees the same codec, checksum and stats settings.
type Options struct {
	// Codec compresses compact-format payloads on write. Ignored in the
	// ToOpen direction.
	Codec nvdb.Codec

	// StatsMode and ChecksumMode are baked into each grid converted to the
	// compact format.
	StatsMode    nvdb.StatsMode
	ChecksumMode nvdb.ChecksumMode

	// GridName, when non-empty, restricts conversion to the one grid with
	// that name in every input file. A file lacking the grid is a fatal
	// error, not a silent skip.
	GridName string

	Verbose        bool
	ForceOverwrite bool

	// InputFiles are the ordered source paths; OutputFile is the single
	// aggregated destination. Direction is resolved from the output
	// extension during config validation.
	InputFiles []string
	OutputFile string
	Direction  Direction

	AppVersion string

	// Injected dependencies.
	Hooks  Hooks
	Logger *slog.Logger
}

func (o *Options) hooks() Hooks {
	if o.Hooks == nil {
		return NoOpHooks{}
	}
	return o.Hooks
}

func (o *Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.Logger
}
