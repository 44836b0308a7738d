package main

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandFlags(t *testing.T) {
	expected := map[string]string{
		"blosc":    "b",
		"zip":      "z",
		"checksum": "c",
		"stats":    "s",
		"grid":     "g",
		"force":    "f",
		"verbose":  "v",
	}
	for name, short := range expected {
		f := rootCmd.Flags().Lookup(name)
		require.NotNil(t, f, "flag --%s should be registered", name)
		assert.Equal(t, short, f.Shorthand, "flag --%s shorthand", name)
	}

	cfg := rootCmd.Flags().Lookup("config")
	require.NotNil(t, cfg)
	assert.Empty(t, cfg.Shorthand, "--config has no short form")
}

func TestRootCommandUsageLine(t *testing.T) {
	assert.Contains(t, rootCmd.Use, "<input>... <output>")
	assert.True(t, rootCmd.SilenceUsage, "usage printing is handled by main's error boundary")
	assert.True(t, rootCmd.SilenceErrors)
}

func TestHelpExitsCleanly(t *testing.T) {
	rootCmd.SetOut(io.Discard)
	rootCmd.SetArgs([]string{"--help"})
	defer rootCmd.SetArgs(nil)
	err := rootCmd.Execute()
	require.NoError(t, err, "--help is a successful exit")
}
