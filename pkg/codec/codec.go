// Package codec classifies file contents as text or binary and turns raw
// bytes into a payload that can be embedded in a text document, and back.
package codec

import (
	"encoding/base64"
	"fmt"
	"unicode/utf8"
)

// Kind is the advisory content type inferred from a file name.
type Kind byte

const (
	Binary Kind = 0 // Opaque bytes, the safe default
	Text   Kind = 1 // Media type text/*
)

// String returns the lowercase name of the kind
func (k Kind) String() string {
	if k == Text {
		return "text"
	}
	return "binary"
}

// Encoding is the representation actually recorded for a file.
type Encoding string

const (
	EncodingText   Encoding = "text"
	EncodingBinary Encoding = "binary"
)

// ParseEncoding maps a wire tag to an Encoding
func ParseEncoding(s string) (Encoding, error) {
	switch Encoding(s) {
	case EncodingText, EncodingBinary:
		return Encoding(s), nil
	}
	return "", fmt.Errorf("unknown encoding %q", s)
}

// Payload is the encoded content of one file.
//
// For EncodingText, Data is the literal UTF-8 contents and Compression is
// empty. For EncodingBinary, Data is the standard padded base64 of the
// compressed bytes and Compression names the compressor that produced them.
type Payload struct {
	Encoding    Encoding
	Compression Compression
	Data        string
}

// DecodeError reports a payload whose declared encoding cannot be reversed.
type DecodeError struct {
	Encoding    Encoding
	Compression Compression
	Err         error
}

func (e *DecodeError) Error() string {
	if e.Compression != "" {
		return fmt.Sprintf("decode %s payload (%s): %v", e.Encoding, e.Compression, e.Err)
	}
	return fmt.Sprintf("decode %s payload: %v", e.Encoding, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Encode turns raw file bytes into a payload.
//
// A Text kind is only honoured when raw is valid UTF-8; otherwise the bytes
// are encoded as binary. c selects the compressor for the binary path and is
// ignored for text.
func Encode(raw []byte, kind Kind, c Compression) (Payload, error) {
	if kind == Text && utf8.Valid(raw) {
		return Payload{Encoding: EncodingText, Data: string(raw)}, nil
	}
	if c == "" {
		c = DefaultCompression
	}

	// Empty input has no compressed frame
	if len(raw) == 0 {
		return Payload{Encoding: EncodingBinary, Compression: c}, nil
	}

	packed, err := compress(c, raw)
	if err != nil {
		return Payload{}, fmt.Errorf("compress %s: %w", c, err)
	}
	return Payload{
		Encoding:    EncodingBinary,
		Compression: c,
		Data:        base64.StdEncoding.EncodeToString(packed),
	}, nil
}

// Decode reverses Encode, returning the original bytes.
func Decode(p Payload) ([]byte, error) {
	switch p.Encoding {
	case EncodingText:
		if p.Compression != "" {
			return nil, &DecodeError{Encoding: p.Encoding, Compression: p.Compression,
				Err: fmt.Errorf("text payloads are never compressed")}
		}
		return []byte(p.Data), nil
	case EncodingBinary:
		if _, err := ParseCompression(string(p.Compression)); err != nil {
			return nil, &DecodeError{Encoding: p.Encoding, Compression: p.Compression, Err: err}
		}
		if p.Data == "" {
			return []byte{}, nil
		}
		packed, err := base64.StdEncoding.DecodeString(p.Data)
		if err != nil {
			return nil, &DecodeError{Encoding: p.Encoding, Compression: p.Compression,
				Err: fmt.Errorf("base64: %w", err)}
		}
		raw, err := decompress(p.Compression, packed)
		if err != nil {
			return nil, &DecodeError{Encoding: p.Encoding, Compression: p.Compression, Err: err}
		}
		return raw, nil
	}
	return nil, &DecodeError{Encoding: p.Encoding, Err: fmt.Errorf("unknown encoding %q", p.Encoding)}
}
