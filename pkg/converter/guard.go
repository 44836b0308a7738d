package converter

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// ConfirmOverwrite decides whether the run may write to path. A missing or
// empty output file proceeds silently. Otherwise the user is prompted on out
// and the answer read from in: an empty line, "Y", "y", "yes" or "YES"
// confirms; anything else declines. Declining is not an error — the caller
// is expected to exit successfully without touching the file.
//
// The guard runs exactly once per invocation, before any conversion work,
// regardless of how many input files there are.
func ConfirmOverwrite(path string, in io.Reader, out io.Writer) (bool, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	defer f.Close()

	var probe [1]byte
	if _, err := f.Read(probe[:]); err == io.EOF {
		return true, nil // exists but holds no data
	} else if err != nil {
		return false, err
	}

	fmt.Fprintf(out, "Overwrite the existing output file named %q? [Y]/N: ", path)
	sc := bufio.NewScanner(in)
	var answer string
	if sc.Scan() {
		answer = sc.Text()
	} else if err := sc.Err(); err != nil {
		return false, err
	}
	switch answer {
	case "", "Y", "y", "yes", "YES":
		return true, nil
	}
	return false, nil
}
