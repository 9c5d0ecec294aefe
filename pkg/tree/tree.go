// Package tree converts a directory subtree into a document and back.
//
// Both directions are single-threaded depth-first traversals over an
// afero.Fs, so the same code serves the real filesystem and in-memory
// filesystems. A failure anywhere aborts the whole call: Capture never
// returns a partial tree, and Materialize leaves whatever it already wrote
// in place.
package tree

import (
	"errors"
	"fmt"
	"os"
)

// ErrNotFound is returned by Capture when the source path does not exist.
var ErrNotFound = errors.New("source not found")

// Errors carried by IOError when an existing entry has the wrong kind.
var (
	ErrNotDir = errors.New("exists and is not a directory")
	ErrIsDir  = errors.New("exists and is a directory")
)

// Default permissions for materialized entries
const (
	DefaultDirPerm  os.FileMode = 0755
	DefaultFilePerm os.FileMode = 0644
)

// IOError records a filesystem operation that failed on a specific path.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
