package converter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nikitasimonian/openvdb/pkg/nvdb"
	"github.com/nikitasimonian/openvdb/pkg/vdb"
)

// Convert runs the aggregating conversion loop: every input file is read in
// order, its grids (all of them, or the one named by the filter) converted
// with the active options, and the results accumulated into the single
// output. The accumulation strategy follows the target format's write
// semantics — the compact format appends grid by grid to an open stream,
// the open format buffers everything for one bulk write at the end.
//
// Execution is strictly sequential; ctx is only consulted between input
// files so an interrupt can stop the batch. Every error is fatal to the run.
// A partially written compact output from a mid-batch failure is left on
// disk, matching the append-stream semantics.
func Convert(ctx context.Context, opts Options, env *vdb.Env) error {
	dir := opts.Direction
	if dir == DirectionUnknown {
		var err error
		if dir, err = ResolveDirection(opts.OutputFile); err != nil {
			return err
		}
	}
	if len(opts.InputFiles) == 0 {
		return ErrTooFewFiles
	}

	logger := opts.logger()
	logger.Debug("starting conversion",
		slog.String("direction", dir.String()),
		slog.Int("inputs", len(opts.InputFiles)),
		slog.String("output", opts.OutputFile))

	var acc accumulator
	switch dir {
	case ToCompact:
		stream, err := newCompactStream(opts.OutputFile, &opts, env)
		if err != nil {
			return err
		}
		acc = stream
	case ToOpen:
		acc = newOpenCollection(opts.OutputFile, &opts)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownExtension, opts.OutputFile)
	}
	defer acc.close()

	grids := 0
	for _, in := range opts.InputFiles {
		if err := ctx.Err(); err != nil {
			return err
		}
		// Extension checks are lazy: a malformed name later in the list is
		// only caught when the loop reaches it.
		if filepath.Ext(in) != dir.InputExt() {
			return fmt.Errorf("%w: %q (expected %q input since the output is %s)",
				ErrExtensionMismatch, in, dir.InputExt(), dir.TargetFormat())
		}
		opts.hooks().OnFileOpen(in, dir.SourceFormat())
		n, err := acc.convertFile(in)
		if err != nil {
			return err
		}
		grids += n
	}

	if err := acc.finalize(); err != nil {
		return err
	}

	var written int64
	if fi, err := os.Stat(opts.OutputFile); err == nil {
		written = fi.Size()
	}
	opts.hooks().OnRunComplete(Summary{
		Files:          len(opts.InputFiles),
		Grids:          grids,
		BytesWritten:   written,
		LibraryVersion: nvdb.Version(),
	})
	return nil
}

// accumulator is the "accumulate and finalize" strategy selected once by
// Direction. convertFile consumes one input file end to end and reports how
// many grids it converted; finalize flushes the output; close releases the
// output resource on both success and failure paths (it is a no-op after a
// successful finalize).
type accumulator interface {
	convertFile(path string) (int, error)
	finalize() error
	close() error
}

// compactStream appends converted grids to the output stream one at a time,
// so memory stays bounded to a single grid across the whole batch.
type compactStream struct {
	f    *os.File
	opts *Options
	env  *vdb.Env
	done bool
}

func newCompactStream(path string, opts *Options, env *vdb.Env) (*compactStream, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &compactStream{f: f, opts: opts, env: env}, nil
}

func (s *compactStream) convertFile(path string) (int, error) {
	file := s.env.OpenFile(path)
	// Delayed loading is disabled: each grid must be fully materialized
	// before conversion.
	if err := file.Open(false); err != nil {
		return 0, fmt.Errorf("opening %q: %w", path, err)
	}
	defer file.Close()

	var grids []*vdb.Grid
	if s.opts.GridName == "" {
		all, err := file.Grids()
		if err != nil {
			return 0, err
		}
		grids = all
	} else {
		g, err := file.GridByName(s.opts.GridName)
		if err != nil {
			return 0, wrapLookup(err, path, s.opts.GridName)
		}
		grids = []*vdb.Grid{g}
	}

	for _, g := range grids {
		s.opts.hooks().OnGridConvert(g.Name, "VDB", "NVDB")
		h, err := nvdb.FromOpen(g, s.opts.StatsMode, s.opts.ChecksumMode)
		if err != nil {
			return 0, fmt.Errorf("converting grid %q from %q: %w", g.Name, path, err)
		}
		if err := nvdb.WriteGrid(s.f, h, s.opts.Codec); err != nil {
			return 0, fmt.Errorf("writing grid %q: %w", h.Name, err)
		}
	}
	return len(grids), nil
}

func (s *compactStream) finalize() error {
	s.done = true
	return s.f.Close()
}

func (s *compactStream) close() error {
	if s.done {
		return nil
	}
	return s.f.Close()
}

// openCollection buffers every converted grid in memory; the open format has
// no incremental append, so the whole collection is written in one bulk
// operation at finalize.
type openCollection struct {
	path  string
	opts  *Options
	grids []*vdb.Grid
}

func newOpenCollection(path string, opts *Options) *openCollection {
	return &openCollection{path: path, opts: opts}
}

func (c *openCollection) convertFile(path string) (int, error) {
	var handles []*nvdb.Grid
	if c.opts.GridName == "" {
		all, err := nvdb.ReadGridsFromFile(path)
		if err != nil {
			return 0, err
		}
		handles = all
	} else {
		h, err := nvdb.ReadNamedGridFromFile(path, c.opts.GridName)
		if err != nil {
			return 0, wrapLookup(err, path, c.opts.GridName)
		}
		if h == nil {
			return 0, fmt.Errorf("%w: file %q did not contain a grid named %q",
				ErrGridNotFound, path, c.opts.GridName)
		}
		handles = []*nvdb.Grid{h}
	}

	for _, h := range handles {
		c.opts.hooks().OnGridConvert(h.Name, "NVDB", "VDB")
		g, err := nvdb.ToOpen(h)
		if err != nil {
			return 0, fmt.Errorf("converting grid %q from %q: %w", h.Name, path, err)
		}
		c.grids = append(c.grids, g)
	}
	return len(handles), nil
}

func (c *openCollection) finalize() error {
	return vdb.Write(c.path, c.grids)
}

func (c *openCollection) close() error { return nil }

// wrapLookup normalizes the format libraries' by-name lookup failures into
// the converter's lookup error kind, preserving the original for errors.Is.
func wrapLookup(err error, path, name string) error {
	if errors.Is(err, vdb.ErrGridNotFound) {
		return fmt.Errorf("%w: file %q did not contain a grid named %q: %v",
			ErrGridNotFound, path, name, err)
	}
	return err
}
