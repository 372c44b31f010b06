package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hupe1980/ephtile"
	"github.com/hupe1980/ephtile/blobstore"
	"github.com/hupe1980/ephtile/schema"
)

type repackStats struct {
	reencoded int
	opaque    int
	kept      int
}

func cmdRepack(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("repack", stderr)
	in := fs.String("in", "", "input container")
	out := fs.String("o", "", "output container")
	shuffle := fs.Bool("shuffle", true, "byte-shuffle rows before compression")
	level := fs.Int("level", -1, "zlib compression level, -1 for default")
	verify := fs.Bool("verify", false, "keep chunks whose CRC32C does not match as they are")
	newLogger := logFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" || *out == "" {
		fmt.Fprintln(stderr, "ephtool repack: -in and -o are required")
		return errUsage
	}

	logger, err := newLogger()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(*in)
	if err != nil {
		return err
	}

	dec := ephtile.NewDecoder(ephtile.WithLogger(logger), ephtile.WithVerifyChecksum(*verify))
	enc := ephtile.NewEncoder(
		ephtile.WithLogger(logger),
		ephtile.WithShuffle(*shuffle),
		ephtile.WithCompressionLevel(*level),
	)

	packed, st, err := repack(ctx, data, dec, enc, logger)
	if err != nil {
		return err
	}

	abs, err := filepath.Abs(*out)
	if err != nil {
		return err
	}
	store := blobstore.NewLocalStore(filepath.Dir(abs))
	if err := store.Put(ctx, filepath.Base(abs), packed); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "%s: %d -> %d bytes, %d re-encoded, %d opaque, %d kept as is\n",
		*out, len(data), len(packed), st.reencoded, st.opaque, st.kept)
	return nil
}

// repack re-encodes every decodable chunk and copies every other chunk
// verbatim, preserving chunk order.
func repack(ctx context.Context, data []byte, dec *ephtile.Decoder, enc *ephtile.Encoder, logger *ephtile.Logger) ([]byte, repackStats, error) {
	var st repackStats

	f, err := ephtile.Parse(data)
	if err != nil {
		return nil, st, err
	}

	chunks := make([]ephtile.Chunk, 0, len(f.Chunks))
	for i, c := range f.Chunks {
		if err := ctx.Err(); err != nil {
			return nil, st, err
		}

		t, err := dec.DecodeChunk(c)
		switch {
		case err == nil && len(t.FieldErrors) == 0 && lossless(t):
			nc, err := enc.EncodeTable(c.Type, t)
			if err != nil {
				return nil, st, fmt.Errorf("chunk %d: %w", i, err)
			}
			chunks = append(chunks, nc)
			st.reencoded++
		case errors.Is(err, ephtile.ErrUnknownChunkType):
			chunks = append(chunks, c)
			st.opaque++
		default:
			// Re-encoding would zero undecodable fields and bytes outside
			// every column.
			if err == nil {
				err = keepReason(t)
			}
			logger.LogChunkSkipped(ctx, i, c.Type, err)
			chunks = append(chunks, c)
			st.kept++
		}
	}

	out, err := ephtile.Write(f.Version, chunks)
	if err != nil {
		return nil, st, err
	}
	return out, st, nil
}

// lossless reports whether every stored row byte belongs to a column, so
// that re-encoding t reproduces its rows.
func lossless(t *ephtile.Table) bool {
	return len(t.Rows) == 0 || schema.Covers(t.Columns, t.RowWidth)
}

func keepReason(t *ephtile.Table) error {
	if n := len(t.FieldErrors); n > 0 {
		return fmt.Errorf("%d field errors", n)
	}
	return fmt.Errorf("row bytes outside columns in %d-byte rows", t.RowWidth)
}
