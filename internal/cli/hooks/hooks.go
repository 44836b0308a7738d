// Package hooks bridges the converter engine's progress callbacks to the
// CLI's logger. It is the tool's diagnostics reporter: verbose runs get one
// line per opened file and per converted grid plus a final summary, quiet
// runs get nothing.
package hooks

import (
	"log/slog"

	"github.com/dustin/go-humanize"

	"github.com/nikitasimonian/openvdb/pkg/converter"
)

// LogHooks implements converter.Hooks over slog.
type LogHooks struct {
	logger  *slog.Logger
	verbose bool
}

// New returns hooks writing to logger. With verbose false every callback is
// a no-op.
func New(logger *slog.Logger, verbose bool) *LogHooks {
	return &LogHooks{logger: logger, verbose: verbose}
}

// OnFileOpen implements converter.Hooks.
func (h *LogHooks) OnFileOpen(path, format string) {
	if !h.verbose {
		return
	}
	h.logger.Info("opening input file",
		slog.String("format", format),
		slog.String("path", path))
}

// OnGridConvert implements converter.Hooks.
func (h *LogHooks) OnGridConvert(name, from, to string) {
	if !h.verbose {
		return
	}
	h.logger.Info("converting grid",
		slog.String("grid", name),
		slog.String("from", from),
		slog.String("to", to))
}

// OnRunComplete implements converter.Hooks.
func (h *LogHooks) OnRunComplete(s converter.Summary) {
	if !h.verbose {
		return
	}
	h.logger.Info("conversion complete",
		slog.Int("files", s.Files),
		slog.Int("grids", s.Grids),
		slog.String("output_size", humanize.IBytes(uint64(s.BytesWritten))),
		slog.String("nvdb_version", s.LibraryVersion))
}
