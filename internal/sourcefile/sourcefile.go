// Package sourcefile is the minimal file-path to byte-slice boundary
// between the CLI and the compiler: the scanner/compiler contract (§4.6)
// only ever operates on a raw byte slice, so everything path- and
// filesystem-related is kept out here.
package sourcefile

import (
	"fmt"
	"os"
)

// Read loads path and returns its contents. The error is already annotated
// with path, matching the compact reporting the CLI prints to stderr.
func Read(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return b, nil
}
