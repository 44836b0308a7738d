// Package config assembles the validated converter.Options for one run from
// defaults, an optional config file, GRID_CONVERTER_* environment variables
// and command-line flags, in ascending priority.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/nikitasimonian/openvdb/pkg/converter"
	"github.com/nikitasimonian/openvdb/pkg/nvdb"
)

const (
	EnvPrefix         = "GRID_CONVERTER"
	DefaultConfigName = "vdb-convert"
)

// flag names bound into viper; they double as config-file and env keys.
var boundFlags = []string{"verbose", "force", "grid", "checksum", "stats"}

// LoadAndValidate merges every configuration source, parses the mode-valued
// options against their fixed vocabularies, validates the positional file
// list and resolves the conversion direction. It returns the immutable
// Options plus the logger the rest of the run should use.
func LoadAndValidate(cfgFile, appVersion string, flags *pflag.FlagSet, args []string) (converter.Options, *slog.Logger, error) {
	var opts converter.Options
	v := viper.New()

	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join(home, ".config", DefaultConfigName))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || cfgFile != "" {
			return opts, newLogger(false), fmt.Errorf("reading config file: %w", err)
		}
		// No config file is fine when none was asked for.
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	for _, name := range boundFlags {
		if f := flags.Lookup(name); f != nil {
			if err := v.BindPFlag(name, f); err != nil {
				return opts, newLogger(false), fmt.Errorf("binding flag --%s: %w", name, err)
			}
		}
	}

	opts.Verbose = v.GetBool("verbose")
	logger := newLogger(opts.Verbose)

	codec, err := resolveCodec(v, flags)
	if err != nil {
		return opts, logger, err
	}
	opts.Codec = codec

	opts.ChecksumMode = nvdb.ChecksumDefault
	if s := v.GetString("checksum"); s != "" {
		m, err := nvdb.ParseChecksumMode(s)
		if err != nil {
			return opts, logger, fmt.Errorf("%w: --checksum: %v", converter.ErrInvalidMode, err)
		}
		opts.ChecksumMode = m
	}

	opts.StatsMode = nvdb.StatsDefault
	if s := v.GetString("stats"); s != "" {
		m, err := nvdb.ParseStatsMode(s)
		if err != nil {
			return opts, logger, fmt.Errorf("%w: --stats: %v", converter.ErrInvalidMode, err)
		}
		opts.StatsMode = m
	}

	opts.GridName = v.GetString("grid")
	opts.ForceOverwrite = v.GetBool("force")
	opts.AppVersion = appVersion
	opts.Logger = logger

	if len(args) < 2 {
		return opts, logger, converter.ErrTooFewFiles
	}
	opts.OutputFile = args[len(args)-1]
	opts.InputFiles = args[:len(args)-1]

	dir, err := converter.ResolveDirection(opts.OutputFile)
	if err != nil {
		return opts, logger, err
	}
	opts.Direction = dir

	logger.Debug("configuration loaded",
		slog.String("direction", dir.String()),
		slog.String("codec", opts.Codec.String()),
		slog.String("checksum", opts.ChecksumMode.String()),
		slog.String("stats", opts.StatsMode.String()))
	return opts, logger, nil
}

// resolveCodec reconciles the --blosc/--zip flags with the config-file and
// env "codec" key. The flags win over the key; selecting both flags is a
// usage error rather than a silent precedence.
func resolveCodec(v *viper.Viper, flags *pflag.FlagSet) (nvdb.Codec, error) {
	blosc, _ := flags.GetBool("blosc")
	zip, _ := flags.GetBool("zip")
	switch {
	case blosc && zip:
		return nvdb.CodecNone, fmt.Errorf("%w: --blosc and --zip", converter.ErrConflictingCodecs)
	case blosc:
		return nvdb.CodecBlosc, nil
	case zip:
		return nvdb.CodecZip, nil
	}
	codec, err := nvdb.ParseCodec(v.GetString("codec"))
	if err != nil {
		return nvdb.CodecNone, fmt.Errorf("%w: codec: %v", converter.ErrInvalidMode, err)
	}
	return codec, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("codec", "none")
	v.SetDefault("checksum", "")
	v.SetDefault("stats", "")
	v.SetDefault("grid", "")
	v.SetDefault("verbose", false)
	v.SetDefault("force", false)
}

// newLogger builds the run's logger: verbose runs log progress at Info,
// quiet runs only surface warnings and errors.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
