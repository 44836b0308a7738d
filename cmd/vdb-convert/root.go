package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nikitasimonian/openvdb/internal/cli"
	"github.com/nikitasimonian/openvdb/internal/cli/config"
	"github.com/nikitasimonian/openvdb/pkg/converter"
)

// Set at build time via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "vdb-convert [flags] <input>... <output>",
	Short: "Converts between VDB and NVDB volumetric grid files.",
	Long: `vdb-convert reads one or more volumetric grid container files and writes
their grids, converted, into a single output file.

The direction is inferred from the output extension:

  vdb-convert [flags] *.vdb output.nvdb
    converts one or more VDB files to a single NVDB file

  vdb-convert [flags] *.nvdb output.vdb
    converts one or more NVDB files to a single VDB file

Every input file must carry the extension opposite to the output's. With
--grid, exactly the one matching grid is converted from every input file.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		opts, logger, err := config.LoadAndValidate(cfgFile, version, cmd.Flags(), args)
		if err != nil {
			return err
		}
		return cli.Run(ctx, opts, logger)
	},
}

// Execute parses the command line and runs the conversion, returning any
// fatal error to main for classification.
func Execute() error {
	rootCmd.SetVersionTemplate(`{{.Name}} version {{.Version}}` + "\n")
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", converter.ErrBadFlag, err)
	})
	return rootCmd.Execute()
}

func init() {
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "Configuration file path (default: search . and $HOME/.config/vdb-convert)")
	rootCmd.Flags().BoolP("blosc", "b", false, "Use BLOSC compression on the output file")
	rootCmd.Flags().BoolP("zip", "z", false, "Use ZIP compression on the output file")
	rootCmd.Flags().StringP("checksum", "c", "", "Checksum mode baked into converted grids {none|partial|full}")
	rootCmd.Flags().StringP("stats", "s", "", "Stats mode baked into converted grids {none|bbox|extrema|all}")
	rootCmd.Flags().StringP("grid", "g", "", "Convert only the grid with this name from every input file")
	rootCmd.Flags().BoolP("force", "f", false, "Overwrite the output file without prompting if it already exists")
	rootCmd.Flags().BoolP("verbose", "v", false, "Print per-file and per-grid progress to the terminal")
}
