// Package document defines the serialized form of a captured directory tree.
//
// A document is a rooted, ordered tree of Nodes. Directories carry their
// children in capture order; files carry an explicitly tagged codec.Payload.
// Nodes are plain values: nothing in this package mutates a tree after it
// has been built.
package document

import (
	"fmt"
	"strings"

	"treemaker/pkg/codec"
)

// Version of the document layout, reported by the CLI.
const Version = 1

// Type distinguishes directory nodes from file nodes.
type Type string

const (
	TypeDirectory Type = "directory"
	TypeFile      Type = "file"
)

// Node is one entry of a document tree.
type Node struct {
	Type     Type
	Name     string
	Children []Node       // Directories only, never nil for a directory
	Payload  codec.Payload // Files only
}

// Dir returns a directory node holding children in the given order.
func Dir(name string, children ...Node) Node {
	c := make([]Node, 0, len(children))
	c = append(c, children...)
	return Node{Type: TypeDirectory, Name: name, Children: c}
}

// File returns a file node.
func File(name string, p codec.Payload) Node {
	return Node{Type: TypeFile, Name: name, Payload: p}
}

// IsDir reports whether n is a directory node.
func (n Node) IsDir() bool { return n.Type == TypeDirectory }

// FormatError reports a document that violates the node schema.
type FormatError struct {
	Path   string // Slash-separated node path, empty for the document itself
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	msg := e.Reason
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	if e.Path == "" {
		return "invalid document: " + msg
	}
	return fmt.Sprintf("invalid document at %s: %s", e.Path, msg)
}

func (e *FormatError) Unwrap() error { return e.Err }

// ValidateName checks that name is a single path segment: not empty, not
// "." or "..", and free of path separators.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("empty name")
	}
	if name == "." || name == ".." {
		return fmt.Errorf("invalid name: %q", name)
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("name must not contain path separators: %q", name)
	}
	if strings.ContainsRune(name, 0) {
		return fmt.Errorf("name must not contain NUL: %q", name)
	}
	return nil
}

// Validate checks the whole tree rooted at n.
func Validate(n Node) error {
	return validate(n, "")
}

func validate(n Node, parent string) error {
	p := childPath(parent, n.Name)
	if err := ValidateName(n.Name); err != nil {
		return &FormatError{Path: p, Reason: "bad name", Err: err}
	}

	switch n.Type {
	case TypeDirectory:
		if n.Children == nil {
			return &FormatError{Path: p, Reason: "directory without children"}
		}
		for _, c := range n.Children {
			if err := validate(c, p); err != nil {
				return err
			}
		}
		return nil
	case TypeFile:
		if n.Children != nil {
			return &FormatError{Path: p, Reason: "file with children"}
		}
		return validatePayload(n.Payload, p)
	}
	return &FormatError{Path: p, Reason: fmt.Sprintf("unknown type %q", n.Type)}
}

func validatePayload(pl codec.Payload, p string) error {
	if _, err := codec.ParseEncoding(string(pl.Encoding)); err != nil {
		return &FormatError{Path: p, Reason: "bad encoding", Err: err}
	}
	if pl.Encoding == codec.EncodingText {
		if pl.Compression != "" {
			return &FormatError{Path: p, Reason: "text content must not be compressed"}
		}
		return nil
	}
	if _, err := codec.ParseCompression(string(pl.Compression)); err != nil {
		return &FormatError{Path: p, Reason: "bad compression", Err: err}
	}
	return nil
}

// Walk calls fn for n and every node below it in document order. p is the
// slash-separated path of the node, starting with the root name. Returning
// an error from fn stops the walk.
func Walk(n Node, fn func(p string, n Node) error) error {
	return walk(n, "", fn)
}

func walk(n Node, parent string, fn func(string, Node) error) error {
	p := childPath(parent, n.Name)
	if err := fn(p, n); err != nil {
		return err
	}
	for _, c := range n.Children {
		if err := walk(c, p, fn); err != nil {
			return err
		}
	}
	return nil
}

func childPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}

// Stats summarizes a document tree.
type Stats struct {
	Directories int
	TextFiles   int
	BinaryFiles int
	ContentSize uint64 // Bytes of encoded content
}

// Files returns the total number of file nodes.
func (s Stats) Files() int { return s.TextFiles + s.BinaryFiles }

// Summarize counts the nodes of the tree rooted at n.
func Summarize(n Node) Stats {
	var s Stats
	_ = Walk(n, func(_ string, n Node) error {
		switch {
		case n.IsDir():
			s.Directories++
		case n.Payload.Encoding == codec.EncodingText:
			s.TextFiles++
			s.ContentSize += uint64(len(n.Payload.Data))
		default:
			s.BinaryFiles++
			s.ContentSize += uint64(len(n.Payload.Data))
		}
		return nil
	})
	return s
}
