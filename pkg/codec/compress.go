package codec

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
)

// Compression names the compressor applied to a binary payload.
type Compression string

const (
	CompressionLZ4  Compression = "lz4"  // LZ4 frame format
	CompressionZlib Compression = "zlib" // Documents written by the original tree_maker tool
	CompressionNone Compression = "none" // Plain base64
)

// DefaultCompression is used when no compressor is selected.
const DefaultCompression = CompressionLZ4

// ParseCompression maps a wire tag to a Compression
func ParseCompression(s string) (Compression, error) {
	switch Compression(s) {
	case CompressionLZ4, CompressionZlib, CompressionNone:
		return Compression(s), nil
	case "":
		return "", fmt.Errorf("missing compression")
	}
	return "", fmt.Errorf("unknown compression %q", s)
}

// compress packs raw with the selected compressor
func compress(c Compression, raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	switch c {
	case CompressionNone:
		return append([]byte(nil), raw...), nil
	case CompressionLZ4:
		zw := lz4.NewWriter(&buf)
		if _, err := zw.Write(raw); err != nil {
			return nil, fmt.Errorf("write lz4: %w", err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("close lz4 writer: %w", err)
		}
	case CompressionZlib:
		zw := zlib.NewWriter(&buf)
		if _, err := zw.Write(raw); err != nil {
			return nil, fmt.Errorf("write zlib: %w", err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("close zlib writer: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown compression %q", c)
	}
	return buf.Bytes(), nil
}

// decompress reverses compress
func decompress(c Compression, packed []byte) ([]byte, error) {
	switch c {
	case CompressionNone:
		return packed, nil
	case CompressionLZ4:
		raw, err := io.ReadAll(lz4.NewReader(bytes.NewReader(packed)))
		if err != nil {
			return nil, fmt.Errorf("read lz4: %w", err)
		}
		return raw, nil
	case CompressionZlib:
		zr, err := zlib.NewReader(bytes.NewReader(packed))
		if err != nil {
			return nil, fmt.Errorf("open zlib: %w", err)
		}
		defer zr.Close()
		raw, err := io.ReadAll(zr)
		if err != nil {
			return nil, fmt.Errorf("read zlib: %w", err)
		}
		return raw, nil
	}
	return nil, fmt.Errorf("unknown compression %q", c)
}
