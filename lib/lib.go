// Package lib provides capture and materialize on the OS filesystem.
// This package re-exports the functionality from the pkg packages for callers
// that only need files in and files out.
package lib

import (
	"fmt"

	"github.com/spf13/afero"

	"treemaker/pkg/codec"
	"treemaker/pkg/document"
	"treemaker/pkg/progress"
	"treemaker/pkg/tree"
)

// Node re-exported from document
type Node = document.Node

// Format re-exported from document
type Format = document.Format

// Re-export document formats
const (
	FormatJSON = document.FormatJSON
	FormatYAML = document.FormatYAML
)

// Options re-exported from tree
type (
	CaptureOptions     = tree.CaptureOptions
	MaterializeOptions = tree.MaterializeOptions
)

// Errors re-exported from tree and codec
type (
	IOError     = tree.IOError
	DecodeError = codec.DecodeError
	FormatError = document.FormatError
)

// ErrNotFound is returned when the capture source does not exist
var ErrNotFound = tree.ErrNotFound

// fs is the filesystem every lib function operates on
var fs = afero.NewOsFs()

// Capture is a wrapper around tree.Capture on the OS filesystem
func Capture(path string, opts CaptureOptions) (Node, error) {
	return tree.Capture(fs, path, opts)
}

// Materialize is a wrapper around tree.Materialize on the OS filesystem
func Materialize(n Node, destRoot string, opts MaterializeOptions) error {
	return tree.Materialize(fs, n, destRoot, opts)
}

// CaptureToFile captures input and writes the document to output in format f
func CaptureToFile(input, output string, f Format, opts CaptureOptions) (Node, error) {
	progress.Init("Capturing", tree.TotalSize(fs, input))
	n, err := Capture(input, opts)
	progress.Stop()
	if err != nil {
		return Node{}, err
	}

	if err := WriteDocument(output, n, f); err != nil {
		return Node{}, err
	}
	return n, nil
}

// MaterializeFile reads the document at input in format f and recreates its
// tree under destRoot.
func MaterializeFile(input, destRoot string, f Format, opts MaterializeOptions) error {
	n, err := ReadDocument(input, f)
	if err != nil {
		return err
	}

	// Decoded sizes are unknown until each payload is decoded
	progress.Init("Materializing", 0)
	defer progress.Stop()

	return Materialize(n, destRoot, opts)
}

// ReadDocument parses the document file at path in format f
func ReadDocument(path string, f Format) (Node, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return Node{}, fmt.Errorf("read document %s: %w", path, err)
	}
	n, err := document.Parse(data, f)
	if err != nil {
		return Node{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return n, nil
}

// WriteDocument serializes n to path in format f
func WriteDocument(path string, n Node, f Format) error {
	data, err := document.Serialize(n, f)
	if err != nil {
		return err
	}
	if err := afero.WriteFile(fs, path, data, tree.DefaultFilePerm); err != nil {
		return fmt.Errorf("write document %s: %w", path, err)
	}
	return nil
}

// Fingerprint is a wrapper around document.Fingerprint
func Fingerprint(n Node) (string, error) {
	return document.Fingerprint(n)
}
