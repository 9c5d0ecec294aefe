package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"

	"treemaker/pkg/codec"
)

// Format selects the text syntax of a serialized document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat maps a format name to a Format
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown document format %q", s)
}

// FormatFromPath guesses the format from a file extension, defaulting to JSON
func FormatFromPath(p string) Format {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// Ext returns the file extension for documents in format f
func (f Format) Ext() string {
	if f == FormatYAML {
		return ".yaml"
	}
	return ".json"
}

// wireNode is the on-disk shape of a Node. Field order here is the field
// order of the output.
type wireNode struct {
	Type        string      `json:"type" yaml:"type"`
	Name        string      `json:"name" yaml:"name"`
	Encoding    string      `json:"encoding,omitempty" yaml:"encoding,omitempty"`
	Compression string      `json:"compression,omitempty" yaml:"compression,omitempty"`
	IsText      legacyFlag  `json:"is_text,omitzero" yaml:"is_text,omitempty"`
	Content     *string     `json:"content,omitempty" yaml:"content,omitempty"`
	Children    *[]wireNode `json:"children,omitempty" yaml:"children,omitempty"`
}

// legacyFlag is the is_text field of documents written by the original
// tree_maker tool. It is null there for files with an unknown media type.
type legacyFlag struct {
	Set  bool
	Text bool
}

func (f *legacyFlag) UnmarshalJSON(b []byte) error {
	f.Set = true
	if string(b) == "null" {
		f.Text = false
		return nil
	}
	return json.Unmarshal(b, &f.Text)
}

func (f *legacyFlag) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var v *bool
	if err := unmarshal(&v); err != nil {
		return err
	}
	f.Set = true
	f.Text = v != nil && *v
	return nil
}

// wireKeys are the only keys a node may carry, matched exactly
var wireKeys = map[string]bool{
	"type": true, "name": true, "encoding": true, "compression": true,
	"is_text": true, "content": true, "children": true,
}

func checkKeys(keys []string) error {
	for _, k := range keys {
		if !wireKeys[k] {
			return fmt.Errorf("unknown key %q", k)
		}
	}
	return nil
}

// UnmarshalJSON rejects keys that encoding/json would otherwise match
// case-insensitively or ignore
func (w *wireNode) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	if err := checkKeys(keys); err != nil {
		return err
	}
	type plain wireNode
	return json.Unmarshal(b, (*plain)(w))
}

// UnmarshalYAML checks keys like UnmarshalJSON and records a null is_text,
// which yaml.v2 never passes to legacyFlag.UnmarshalYAML
func (w *wireNode) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw yaml.MapSlice
	if err := unmarshal(&raw); err != nil {
		return err
	}
	keys := make([]string, 0, len(raw))
	for _, item := range raw {
		k, ok := item.Key.(string)
		if !ok {
			return fmt.Errorf("unknown key %v", item.Key)
		}
		keys = append(keys, k)
	}
	if err := checkKeys(keys); err != nil {
		return err
	}

	type plain wireNode
	if err := unmarshal((*plain)(w)); err != nil {
		return err
	}
	for _, k := range keys {
		if k == "is_text" {
			w.IsText.Set = true
		}
	}
	return nil
}

func toWire(n Node) wireNode {
	w := wireNode{Type: string(n.Type), Name: n.Name}
	if n.IsDir() {
		children := make([]wireNode, 0, len(n.Children))
		for _, c := range n.Children {
			children = append(children, toWire(c))
		}
		w.Children = &children
		return w
	}
	data := n.Payload.Data
	w.Encoding = string(n.Payload.Encoding)
	w.Compression = string(n.Payload.Compression)
	w.Content = &data
	return w
}

func fromWire(w wireNode, parent string) (Node, error) {
	p := childPath(parent, w.Name)
	if err := ValidateName(w.Name); err != nil {
		return Node{}, &FormatError{Path: p, Reason: "bad name", Err: err}
	}

	switch Type(w.Type) {
	case TypeDirectory:
		if w.Children == nil {
			return Node{}, &FormatError{Path: p, Reason: "missing children"}
		}
		if w.Content != nil || w.Encoding != "" || w.Compression != "" || w.IsText.Set {
			return Node{}, &FormatError{Path: p, Reason: "directory with file content"}
		}
		children := make([]Node, 0, len(*w.Children))
		for _, cw := range *w.Children {
			c, err := fromWire(cw, p)
			if err != nil {
				return Node{}, err
			}
			children = append(children, c)
		}
		return Node{Type: TypeDirectory, Name: w.Name, Children: children}, nil

	case TypeFile:
		if w.Children != nil {
			return Node{}, &FormatError{Path: p, Reason: "file with children"}
		}
		if w.Content == nil {
			return Node{}, &FormatError{Path: p, Reason: "missing content"}
		}
		pl, err := payloadFromWire(w)
		if err != nil {
			return Node{}, &FormatError{Path: p, Reason: "bad payload", Err: err}
		}
		if err := validatePayload(pl, p); err != nil {
			return Node{}, err
		}
		return File(w.Name, pl), nil

	case "":
		return Node{}, &FormatError{Path: p, Reason: "missing type"}
	}
	return Node{}, &FormatError{Path: p, Reason: fmt.Sprintf("unknown type %q", w.Type)}
}

// payloadFromWire resolves the encoding tag, accepting the legacy is_text
// flag of documents written by the original tree_maker tool.
func payloadFromWire(w wireNode) (codec.Payload, error) {
	pl := codec.Payload{
		Encoding:    codec.Encoding(w.Encoding),
		Compression: codec.Compression(w.Compression),
		Data:        *w.Content,
	}
	if w.Encoding != "" {
		if w.IsText.Set && w.IsText.Text != (pl.Encoding == codec.EncodingText) {
			return codec.Payload{}, fmt.Errorf("is_text contradicts encoding %q", w.Encoding)
		}
		return pl, nil
	}
	if !w.IsText.Set {
		return codec.Payload{}, fmt.Errorf("missing encoding")
	}
	if w.IsText.Text {
		pl.Encoding = codec.EncodingText
		return pl, nil
	}
	pl.Encoding = codec.EncodingBinary
	if pl.Compression == "" {
		pl.Compression = codec.CompressionZlib
	}
	return pl, nil
}

// Serialize renders the tree rooted at n in format f.
func Serialize(n Node, f Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, n, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write renders the tree rooted at n in format f to w.
func Write(w io.Writer, n Node, f Format) error {
	if err := Validate(n); err != nil {
		return err
	}
	wn := toWire(n)

	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(wn); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	case FormatYAML:
		data, err := yaml.Marshal(wn)
		if err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("write yaml: %w", err)
		}
		return nil
	}
	return fmt.Errorf("unknown document format %q", f)
}

// Parse reads a document in format f.
func Parse(data []byte, f Format) (Node, error) {
	var wn wireNode

	switch f {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&wn); err != nil {
			return Node{}, &FormatError{Reason: "malformed json", Err: err}
		}
		if _, err := dec.Token(); !errors.Is(err, io.EOF) {
			return Node{}, &FormatError{Reason: "trailing data after document"}
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &wn); err != nil {
			return Node{}, &FormatError{Reason: "malformed yaml", Err: err}
		}
	default:
		return Node{}, fmt.Errorf("unknown document format %q", f)
	}

	return fromWire(wn, "")
}

// Read parses a document in format f from r.
func Read(r io.Reader, f Format) (Node, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Node{}, fmt.Errorf("read document: %w", err)
	}
	return Parse(data, f)
}
