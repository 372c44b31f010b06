package export

import (
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// ErrUnknownCompression is returned for an unsupported compression name.
var ErrUnknownCompression = errors.New("export: unknown compression")

// Compressions lists the names accepted by NewCompressWriter.
var Compressions = []string{"none", "zstd", "lz4"}

// NewCompressWriter wraps w with the named compression. Closing the result
// flushes the stream but leaves w open. An empty name means "none".
func NewCompressWriter(w io.Writer, name string) (io.WriteCloser, error) {
	switch name {
	case "", "none":
		return nopCloser{w}, nil
	case "zstd":
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("export: zstd: %w", err)
		}
		return zw, nil
	case "lz4":
		return lz4.NewWriter(w), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCompression, name)
	}
}

// NewDecompressReader is the inverse of NewCompressWriter.
func NewDecompressReader(r io.Reader, name string) (io.ReadCloser, error) {
	switch name {
	case "", "none":
		return io.NopCloser(r), nil
	case "zstd":
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("export: zstd: %w", err)
		}
		return zr.IOReadCloser(), nil
	case "lz4":
		return io.NopCloser(lz4.NewReader(r)), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCompression, name)
	}
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
