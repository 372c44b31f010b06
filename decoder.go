package ephtile

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/ephtile/internal/block"
	"github.com/hupe1980/ephtile/internal/shuffle"
	"github.com/hupe1980/ephtile/row"
	"github.com/hupe1980/ephtile/schema"
)

// maxDeflateRatio bounds the inflated size of a deflate stream relative to
// its compressed size.
const maxDeflateRatio = 1032

// Result is the outcome of decoding one container.
type Result struct {
	Version uint32
	// Tables holds the decoded chunks in file order.
	Tables []*Table
	// Opaque holds chunks no profile recognizes, in file order.
	Opaque []Chunk
	// Skipped lists chunks that failed with a format or integrity error.
	Skipped []ChunkError
}

// FieldErrors returns the number of field decode errors across all tables.
func (r *Result) FieldErrors() int {
	n := 0
	for _, t := range r.Tables {
		n += len(t.FieldErrors)
	}
	return n
}

// Rows returns the number of rows across all tables.
func (r *Result) Rows() int {
	n := 0
	for _, t := range r.Tables {
		n += len(t.Rows)
	}
	return n
}

// Decoder turns containers and chunks into tables.
// It is safe for concurrent use.
type Decoder struct {
	opts options
}

// NewDecoder creates a Decoder.
func NewDecoder(optFns ...Option) *Decoder {
	return &Decoder{opts: applyOptions(optFns)}
}

// With returns a copy of d with optFns applied on top of its options.
func (d *Decoder) With(optFns ...Option) *Decoder {
	o := d.opts
	for _, fn := range optFns {
		fn(&o)
	}
	return &Decoder{opts: o}
}

// DecodeChunk decodes a single chunk.
//
// Chunks whose tag matches no profile return ErrUnknownChunkType. Structural
// problems return a *FormatError, inconsistent content an *IntegrityError.
// Fields that cannot be decoded are Absent and listed in Table.FieldErrors.
func (d *Decoder) DecodeChunk(c Chunk) (*Table, error) {
	p, ok := lookupProfile(d.opts.profiles, c.Type)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownChunkType, c.Type)
	}

	start := time.Now()
	t, err := d.decodeTable(c, p)
	rows := 0
	if t != nil {
		rows = len(t.Rows)
	}
	d.opts.metrics.RecordChunkDecode(c.Type, rows, time.Since(start), err)
	return t, err
}

func (d *Decoder) decodeTable(c Chunk, p Profile) (*Table, error) {
	const op = "decode chunk"

	if d.opts.verifyChecksum {
		if sum := d.opts.checksum(c.Payload); sum != c.Checksum {
			return nil, translateError(op, c.Type, 0,
				fmt.Errorf("%w: stored %08x, computed %08x", ErrChecksumMismatch, c.Checksum, sum))
		}
	}

	buf := c.Payload
	if len(buf) < TileHeaderSize {
		return nil, formatErr(op, 0, ErrTruncated)
	}

	t := &Table{
		Tag:        c.Type,
		Version:    binary.LittleEndian.Uint32(buf[0:4]),
		SpatialKey: binary.LittleEndian.Uint64(buf[4:12]),
		Flags:      binary.LittleEndian.Uint32(buf[12:16]),
		RowWidth:   binary.LittleEndian.Uint32(buf[16:20]),
	}
	colCount := binary.LittleEndian.Uint32(buf[20:24])
	rowCount := binary.LittleEndian.Uint32(buf[24:28])

	colBytes := uint64(colCount) * schema.ColumnSize
	if colBytes > uint64(len(buf)-TileHeaderSize) {
		return nil, translateError(op, c.Type, TileHeaderSize,
			fmt.Errorf("%w: %d columns", schema.ErrShortBuffer, colCount))
	}
	cols, err := schema.ReadColumns(buf[TileHeaderSize:], int(colCount))
	if err != nil {
		return nil, translateError(op, c.Type, TileHeaderSize, err)
	}
	t.Columns = cols

	if rowCount == 0 {
		return t, nil
	}

	blockOff := TileHeaderSize + int(colBytes)
	region := buf[blockOff:]

	expected := uint64(t.RowWidth) * uint64(rowCount)
	if expected > math.MaxInt32 || expected > uint64(len(region))*maxDeflateRatio {
		return nil, translateError(op, c.Type, int64(blockOff),
			fmt.Errorf("%w: %d rows of %d bytes", ErrTooLarge, rowCount, t.RowWidth))
	}

	raw, err := block.Decompress(region, int(expected))
	if err != nil {
		return nil, translateError(op, c.Type, int64(blockOff), err)
	}
	if t.Shuffled() {
		raw = shuffle.Unshuffle(raw, int(t.RowWidth), int(rowCount))
	}

	codec := row.NewCodec(cols, row.WithAngular(p.Angular...))
	recs, ferrs, err := codec.DecodeAll(raw, int(t.RowWidth), int(rowCount))
	if err != nil {
		return nil, translateError(op, c.Type, int64(blockOff), err)
	}
	t.Rows = recs
	t.FieldErrors = ferrs
	return t, nil
}

// Decode parses data and decodes every chunk.
//
// Unrecognized chunks are returned as opaque. Chunks failing with a format
// or integrity error are skipped and reported in Result.Skipped. Decode
// itself only fails on an invalid container header or a cancelled context.
func (d *Decoder) Decode(ctx context.Context, data []byte) (*Result, error) {
	start := time.Now()

	f, err := Parse(data)
	if err != nil {
		d.opts.metrics.RecordFile(0, 0, time.Since(start), err)
		return nil, err
	}

	tables := make([]*Table, len(f.Chunks))
	errs := make([]error, len(f.Chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.concurrency)
	for i, c := range f.Chunks {
		if err := gctx.Err(); err != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tables[i], errs[i] = d.DecodeChunk(c)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		d.opts.metrics.RecordFile(len(f.Chunks), 0, time.Since(start), err)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		d.opts.metrics.RecordFile(len(f.Chunks), 0, time.Since(start), err)
		return nil, err
	}

	res := &Result{Version: f.Version}
	for i, c := range f.Chunks {
		switch err := errs[i]; {
		case err == nil:
			res.Tables = append(res.Tables, tables[i])
			d.opts.logger.LogChunkDecoded(ctx, tables[i], len(tables[i].FieldErrors))
		case errors.Is(err, ErrUnknownChunkType):
			res.Opaque = append(res.Opaque, c)
		default:
			res.Skipped = append(res.Skipped, ChunkError{Index: i, Tag: c.Type, Err: err})
			d.opts.logger.LogChunkSkipped(ctx, i, c.Type, err)
		}
	}

	d.opts.metrics.RecordFile(len(f.Chunks), len(res.Skipped), time.Since(start), nil)
	return res, nil
}
