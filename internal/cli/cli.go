// Package cli wires the validated options into one conversion run: the
// overwrite guard, the one-time open-format library initialization and the
// aggregating engine.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/nikitasimonian/openvdb/internal/cli/hooks"
	"github.com/nikitasimonian/openvdb/pkg/converter"
	"github.com/nikitasimonian/openvdb/pkg/vdb"
)

// Run executes the conversion described by opts. A user-declined overwrite
// returns nil: it is a deliberate early exit, not a failure.
func Run(ctx context.Context, opts converter.Options, logger *slog.Logger) error {
	if opts.Hooks == nil {
		opts.Hooks = hooks.New(logger, opts.Verbose)
	}

	if !opts.ForceOverwrite {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			logger.Debug("stdin is not a terminal; reading overwrite confirmation from it anyway")
		}
		proceed, err := converter.ConfirmOverwrite(opts.OutputFile, os.Stdin, os.Stdout)
		if err != nil {
			return fmt.Errorf("checking output file %q: %w", opts.OutputFile, err)
		}
		if !proceed {
			fmt.Println("Please specify a different output file")
			return nil
		}
	}

	env := vdb.Initialize()
	return converter.Convert(ctx, opts, env)
}
