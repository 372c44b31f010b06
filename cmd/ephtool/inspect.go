package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hupe1980/ephtile"
	"github.com/hupe1980/ephtile/internal/block"
	"github.com/hupe1980/ephtile/internal/hash"
	"github.com/hupe1980/ephtile/internal/mmap"
	"github.com/hupe1980/ephtile/schema"
)

func cmdInspect(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("inspect", stderr)
	verify := fs.Bool("verify", false, "fail chunks whose CRC32C does not match")
	rows := fs.Int("rows", 0, "print the first N decoded rows of each table")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, "ephtool inspect: missing FILE")
		return errUsage
	}

	dec := ephtile.NewDecoder(ephtile.WithVerifyChecksum(*verify))
	for _, path := range fs.Args() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := inspectFile(dec, path, *rows, stdout); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}

func inspectFile(dec *ephtile.Decoder, path string, rows int, w io.Writer) error {
	m, err := mmap.Open(path)
	if err != nil {
		return err
	}
	defer m.Close()
	_ = m.Advise(mmap.AccessSequential)

	data := m.Bytes()
	f, err := ephtile.Parse(data)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%s: %d bytes, version %d, %d chunks\n", path, len(data), f.Version, len(f.Chunks))

	end := int64(ephtile.FileHeaderSize)
	for i, c := range f.Chunks {
		end = c.Offset + ephtile.ChunkHeaderSize + int64(len(c.Payload)) + ephtile.ChecksumSize

		sum := "ok"
		switch computed := hash.CRC32C(c.Payload); {
		case c.Checksum == 0 && computed != 0:
			sum = "absent"
		case c.Checksum != computed:
			sum = fmt.Sprintf("mismatch (computed %08x)", computed)
		}
		fmt.Fprintf(w, "chunk %d %q offset=%d size=%d crc32c=%08x %s\n",
			i, c.Type, c.Offset, len(c.Payload), c.Checksum, sum)

		describeTile(w, c.Payload)

		t, err := dec.DecodeChunk(c)
		switch {
		case err != nil:
			fmt.Fprintf(w, "  decode: %v\n", err)
		default:
			fmt.Fprintf(w, "  decode: %d rows, %d field errors\n", len(t.Rows), len(t.FieldErrors))
			for _, fe := range t.FieldErrors {
				fmt.Fprintf(w, "    %v\n", fe)
			}
			for r := 0; r < rows && r < len(t.Rows); r++ {
				fmt.Fprintf(w, "    [%d]", r)
				for j, v := range t.Rows[r] {
					fmt.Fprintf(w, " %s=%s", t.Columns[j].Name, v)
				}
				fmt.Fprintln(w)
			}
		}
	}

	if trailing := int64(len(data)) - end; trailing > 0 {
		fmt.Fprintf(w, "trailing: %d bytes not covered by a complete chunk\n", trailing)
	}
	return nil
}

// describeTile prints the tile header, column table and block framing of a
// payload without decoding it, so damaged chunks can still be examined.
func describeTile(w io.Writer, p []byte) {
	if len(p) < ephtile.TileHeaderSize {
		fmt.Fprintf(w, "  tile: %d bytes, shorter than a tile header\n", len(p))
		return
	}

	key := binary.LittleEndian.Uint64(p[4:12])
	flags := binary.LittleEndian.Uint32(p[12:16])
	colCount := binary.LittleEndian.Uint32(p[20:24])
	fmt.Fprintf(w, "  tile: version=%d nuniq=%d order=%d pix=%d flags=%#x shuffled=%t row_width=%d columns=%d rows=%d\n",
		binary.LittleEndian.Uint32(p[0:4]), key, ephtile.Order(key), ephtile.Position(key),
		flags, flags&ephtile.FlagShuffled != 0,
		binary.LittleEndian.Uint32(p[16:20]), colCount, binary.LittleEndian.Uint32(p[24:28]))
	if key >= 4 {
		fmt.Fprintf(w, "  path: %s\n", ephtile.TileName(key))
	}

	body := p[ephtile.TileHeaderSize:]
	colBytes := uint64(colCount) * schema.ColumnSize
	if colBytes > uint64(len(body)) {
		fmt.Fprintf(w, "  columns: table needs %d bytes, %d available\n", colBytes, len(body))
		return
	}
	cols, err := schema.ReadColumns(body, int(colCount))
	if err != nil {
		fmt.Fprintf(w, "  columns: %v\n", err)
		return
	}
	for _, c := range cols {
		fmt.Fprintf(w, "  column %-4s type=%-4s kind=%-7s start=%-4d size=%-4d unit=%d\n",
			c.Name, c.Type, c.Kind(), c.Start, c.Size, c.Unit)
	}

	blockOff := ephtile.TileHeaderSize + int(colBytes)
	at := block.FindStream(p, blockOff)
	if at < 0 {
		fmt.Fprintf(w, "  block: no zlib stream in %d bytes\n", len(p)-blockOff)
		return
	}
	gap := p[blockOff:at]
	if raw, comp, ok := block.SizePrefix(gap); ok {
		fmt.Fprintf(w, "  block: stream at +%d, prefix raw=%d compressed=%d\n", at, raw, comp)
	} else {
		fmt.Fprintf(w, "  block: stream at +%d after %d undocumented bytes\n", at, len(gap))
	}
}
