package tree

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
	"golang.org/x/exp/mmap"

	"treemaker/pkg/codec"
	"treemaker/pkg/document"
	"treemaker/pkg/progress"
)

// CaptureOptions tunes Capture. The zero value captures everything with the
// default compressor.
type CaptureOptions struct {
	Compression codec.Compression // Compressor for binary files
	Ignore      []string          // filepath.Match patterns tested against entry names
}

// Capture builds a document from the file or directory at sourcePath.
//
// Directory entries are visited in byte-wise name order, so capturing an
// unchanged tree twice gives identical documents. Symlinks are followed;
// a symlink loop is not detected.
func Capture(fsys afero.Fs, sourcePath string, opts CaptureOptions) (document.Node, error) {
	for _, pat := range opts.Ignore {
		if _, err := filepath.Match(pat, ""); err != nil {
			return document.Node{}, fmt.Errorf("ignore pattern %q: %w", pat, err)
		}
	}
	if opts.Compression == "" {
		opts.Compression = codec.DefaultCompression
	}
	if _, err := codec.ParseCompression(string(opts.Compression)); err != nil {
		return document.Node{}, err
	}

	info, err := fsys.Stat(sourcePath)
	if err != nil {
		if os.IsNotExist(err) {
			return document.Node{}, fmt.Errorf("capture %s: %w", sourcePath, ErrNotFound)
		}
		return document.Node{}, &IOError{Op: "stat", Path: sourcePath, Err: err}
	}

	name, err := rootName(sourcePath)
	if err != nil {
		return document.Node{}, err
	}

	c := capturer{fsys: fsys, opts: opts}
	return c.node(sourcePath, name, info)
}

// rootName returns the name of the captured root, resolving "." and ".."
func rootName(sourcePath string) (string, error) {
	name := filepath.Base(filepath.Clean(sourcePath))
	if name == "." || name == ".." {
		abs, err := filepath.Abs(sourcePath)
		if err != nil {
			return "", fmt.Errorf("absolute path for %s: %w", sourcePath, err)
		}
		name = filepath.Base(abs)
	}
	if err := document.ValidateName(name); err != nil {
		return "", fmt.Errorf("capture %s: %w", sourcePath, err)
	}
	return name, nil
}

type capturer struct {
	fsys afero.Fs
	opts CaptureOptions
}

// node captures one entry whose stat info is already known
func (c capturer) node(path, name string, info os.FileInfo) (document.Node, error) {
	switch {
	case info.IsDir():
		return c.dir(path, name)
	case info.Mode().IsRegular():
		return c.file(path, name)
	}
	return document.Node{}, &IOError{Op: "capture", Path: path,
		Err: fmt.Errorf("unsupported file type %s", info.Mode().Type())}
}

func (c capturer) dir(path, name string) (document.Node, error) {
	names, err := readDirNames(c.fsys, path)
	if err != nil {
		return document.Node{}, err
	}

	children := make([]document.Node, 0, len(names))
	for _, childName := range names {
		if c.ignored(childName) {
			continue
		}
		childPath := filepath.Join(path, childName)

		// Stat rather than the directory listing's Lstat, to follow symlinks
		info, err := c.fsys.Stat(childPath)
		if err != nil {
			return document.Node{}, &IOError{Op: "stat", Path: childPath, Err: err}
		}
		child, err := c.node(childPath, childName, info)
		if err != nil {
			return document.Node{}, err
		}
		children = append(children, child)
	}
	return document.Node{Type: document.TypeDirectory, Name: name, Children: children}, nil
}

func (c capturer) file(path, name string) (document.Node, error) {
	raw, err := readFile(c.fsys, path)
	if err != nil {
		return document.Node{}, &IOError{Op: "read", Path: path, Err: err}
	}
	progress.AddFile(uint64(len(raw)))

	p, err := codec.Encode(raw, codec.Classify(name), c.opts.Compression)
	if err != nil {
		return document.Node{}, fmt.Errorf("encode %s: %w", path, err)
	}
	return document.File(name, p), nil
}

func (c capturer) ignored(name string) bool {
	for _, pat := range c.opts.Ignore {
		if ok, _ := filepath.Match(pat, name); ok {
			return true
		}
	}
	return false
}

// readDirNames lists a directory in byte-wise name order
func readDirNames(fsys afero.Fs, path string) ([]string, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	names, err := f.Readdirnames(-1)
	if err != nil {
		return nil, &IOError{Op: "readdir", Path: path, Err: err}
	}
	sort.Strings(names)
	return names, nil
}

// readFile loads a whole file, through a memory map on the OS filesystem
func readFile(fsys afero.Fs, path string) ([]byte, error) {
	if _, ok := fsys.(*afero.OsFs); !ok {
		return afero.ReadFile(fsys, path)
	}

	r, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	data := make([]byte, r.Len())
	if len(data) == 0 {
		return data, nil
	}
	if _, err := r.ReadAt(data, 0); err != nil && err != io.EOF {
		return nil, fmt.Errorf("read mmap: %w", err)
	}
	return data, nil
}

// TotalSize sums the sizes of the regular files under root. Unreadable
// entries are skipped; the result only feeds progress reporting.
func TotalSize(fsys afero.Fs, root string) uint64 {
	var total uint64
	_ = afero.Walk(fsys, root, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.Mode().IsRegular() {
			total += uint64(info.Size())
		}
		return nil
	})
	if total == 0 {
		total = 1 // Avoid division by zero
	}
	return total
}
