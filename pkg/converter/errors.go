package converter

import "errors"

// Sentinel error kinds returned by the orchestration layer. Callers classify
// failures with errors.Is; the CLI boundary uses IsUsageError to decide
// whether to show usage alongside the message.
var (
	// ErrTooFewFiles indicates fewer than two positional filenames were given.
	ErrTooFewFiles = errors.New("expected at least one input file followed by exactly one output file")

	// ErrUnknownExtension indicates the output filename carries neither the
	// open nor the compact format's canonical extension.
	ErrUnknownExtension = errors.New("unrecognized file extension")

	// ErrExtensionMismatch indicates an input file does not carry the
	// extension opposite to the output's format. It is raised lazily, when
	// the conversion loop reaches the offending file.
	ErrExtensionMismatch = errors.New("input file extension does not match the conversion direction")

	// ErrInvalidMode indicates a mode-valued option did not match its fixed
	// vocabulary.
	ErrInvalidMode = errors.New("invalid mode value")

	// ErrConflictingCodecs indicates both compression codecs were selected.
	ErrConflictingCodecs = errors.New("at most one compression codec may be selected")

	// ErrBadFlag indicates an unrecognized flag or a flag missing its value.
	ErrBadFlag = errors.New("invalid command-line flag")

	// ErrGridNotFound indicates the grid named by the filter is absent from
	// an input file.
	ErrGridNotFound = errors.New("grid not found")
)

var usageErrors = []error{
	ErrTooFewFiles,
	ErrUnknownExtension,
	ErrExtensionMismatch,
	ErrInvalidMode,
	ErrConflictingCodecs,
	ErrBadFlag,
}

// IsUsageError reports whether err belongs to the usage-error kind: mistakes
// in how the tool was invoked, as opposed to lookup or I/O failures during
// conversion.
func IsUsageError(err error) bool {
	for _, target := range usageErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
