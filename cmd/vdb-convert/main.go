package main

import (
	"fmt"
	"os"

	"github.com/nikitasimonian/openvdb/pkg/converter"
)

func main() {
	os.Exit(run())
}

// run is the single failure-normalization point: recognized error kinds
// print their message (usage errors also reprint usage), a recovered panic
// prints a generic line, and both map to a non-zero exit status. A
// user-declined overwrite surfaces as a nil error and exits zero.
func run() (status int) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "vdb-convert: failure of unexpected kind: %v\n", r)
			status = 1
		}
	}()

	err := Execute()
	if err == nil {
		return 0
	}
	fmt.Fprintf(os.Stderr, "vdb-convert: %v\n", err)
	if converter.IsUsageError(err) {
		fmt.Fprintln(os.Stderr)
		_ = rootCmd.Usage()
	}
	return 1
}
