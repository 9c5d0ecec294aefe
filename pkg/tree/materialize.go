package tree

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"treemaker/pkg/codec"
	"treemaker/pkg/document"
	"treemaker/pkg/progress"
)

// MaterializeOptions tunes Materialize. The zero value writes with the
// default permissions.
type MaterializeOptions struct {
	DirPerm  os.FileMode
	FilePerm os.FileMode
	DryRun   bool                     // Decode everything, write nothing
	Report   func(action, path string) // Called before each mkdir or write, if set
}

// Materialize recreates the tree rooted at n under destRoot, so that a
// directory node named "proj" lands in destRoot/proj.
//
// Existing directories are reused and never cleared; existing files are
// overwritten. Running it twice gives the same result as running it once.
// The document is validated before anything is written, but a decode or
// write failure midway leaves the entries created so far on disk.
func Materialize(fsys afero.Fs, n document.Node, destRoot string, opts MaterializeOptions) error {
	if err := document.Validate(n); err != nil {
		return err
	}
	if opts.DirPerm == 0 {
		opts.DirPerm = DefaultDirPerm
	}
	if opts.FilePerm == 0 {
		opts.FilePerm = DefaultFilePerm
	}

	m := materializer{fsys: fsys, opts: opts}
	if err := m.ensureDir(destRoot); err != nil {
		return err
	}
	return m.node(n, destRoot)
}

type materializer struct {
	fsys afero.Fs
	opts MaterializeOptions
}

func (m materializer) node(n document.Node, parent string) error {
	target := filepath.Join(parent, n.Name)
	if n.IsDir() {
		if err := m.ensureDir(target); err != nil {
			return err
		}
		for _, c := range n.Children {
			if err := m.node(c, target); err != nil {
				return err
			}
		}
		return nil
	}
	return m.writeFile(target, n.Payload)
}

// ensureDir creates path if needed; an existing directory is kept as is
func (m materializer) ensureDir(path string) error {
	info, err := m.fsys.Stat(path)
	switch {
	case err == nil && info.IsDir():
		return nil

	case err == nil:
		return &IOError{Op: "mkdir", Path: path, Err: ErrNotDir}

	case os.IsNotExist(err):
		m.report("mkdir", path)
		if m.opts.DryRun {
			return nil
		}
		if err := m.fsys.MkdirAll(path, m.opts.DirPerm); err != nil {
			return &IOError{Op: "mkdir", Path: path, Err: err}
		}
		return nil

	default:
		return &IOError{Op: "stat", Path: path, Err: err}
	}
}

func (m materializer) writeFile(path string, p codec.Payload) error {
	data, err := codec.Decode(p)
	if err != nil {
		return fmt.Errorf("materialize %s: %w", path, err)
	}

	info, err := m.fsys.Stat(path)
	switch {
	case err == nil && info.IsDir():
		return &IOError{Op: "write", Path: path, Err: ErrIsDir}
	case err != nil && !os.IsNotExist(err):
		return &IOError{Op: "stat", Path: path, Err: err}
	}

	m.report("write", path)
	if m.opts.DryRun {
		return nil
	}

	f, err := m.fsys.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, m.opts.FilePerm)
	if err != nil {
		return &IOError{Op: "create", Path: path, Err: err}
	}
	pw := &progress.Writer{W: f}
	if _, err := io.Copy(pw, bytes.NewReader(data)); err != nil {
		f.Close()
		return &IOError{Op: "write", Path: path, Err: err}
	}
	if err := pw.Close(); err != nil {
		return &IOError{Op: "close", Path: path, Err: err}
	}
	return nil
}

func (m materializer) report(action, path string) {
	if m.opts.Report != nil {
		m.opts.Report(action, path)
	}
}
