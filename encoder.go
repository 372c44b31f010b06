package ephtile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/hupe1980/ephtile/internal/block"
	"github.com/hupe1980/ephtile/internal/shuffle"
	"github.com/hupe1980/ephtile/row"
	"github.com/hupe1980/ephtile/schema"
)

// Encoder turns tables into chunks and containers.
// It is safe for concurrent use.
type Encoder struct {
	opts options
}

// NewEncoder creates an Encoder.
func NewEncoder(optFns ...Option) *Encoder {
	return &Encoder{opts: applyOptions(optFns)}
}

// EncodeTable encodes t as a chunk tagged tag. An empty tag uses t.Tag.
//
// RowWidth and RowCount in the tile header are derived from t; flag bit 0
// follows WithShuffle, other flag bits are kept.
func (e *Encoder) EncodeTable(tag string, t *Table) (Chunk, error) {
	if tag == "" {
		tag = t.Tag
	}
	start := time.Now()
	payload, err := e.encodePayload(tag, t)
	e.opts.metrics.RecordChunkEncode(tag, len(t.Rows), len(payload), time.Since(start), err)
	if err != nil {
		return Chunk{}, err
	}
	return Chunk{Type: tag, Payload: payload, Checksum: e.opts.checksum(payload)}, nil
}

func (e *Encoder) encodePayload(tag string, t *Table) ([]byte, error) {
	if len(tag) != 4 {
		return nil, ErrInvalidChunkType
	}
	p, ok := lookupProfile(e.opts.profiles, tag)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownChunkType, tag)
	}
	if uint64(len(t.Rows)) > math.MaxUint32 || uint64(len(t.Columns)) > math.MaxUint32 {
		return nil, ErrTooLarge
	}

	width := int(t.rowWidth())
	if errs := schema.Validate(t.Columns, uint32(width)); len(errs) > 0 {
		return nil, fmt.Errorf("encode %q: %w", tag, errors.Join(errs...))
	}
	codec := row.NewCodec(t.Columns, row.WithAngular(p.Angular...))
	raw, err := codec.EncodeAll(t.Rows, width)
	if err != nil {
		return nil, fmt.Errorf("encode %q: %w", tag, err)
	}

	flags := t.Flags &^ FlagShuffled
	if e.opts.shuffle {
		flags |= FlagShuffled
		raw = shuffle.Shuffle(raw, width, len(t.Rows))
	}

	compressed, err := block.Compress(raw, e.opts.level)
	if err != nil {
		return nil, fmt.Errorf("encode %q: %w", tag, err)
	}

	version := t.Version
	if version == 0 {
		version = 1
	}

	out := make([]byte, TileHeaderSize, TileHeaderSize+len(t.Columns)*schema.ColumnSize+len(compressed))
	binary.LittleEndian.PutUint32(out[0:], version)
	binary.LittleEndian.PutUint64(out[4:], t.SpatialKey)
	binary.LittleEndian.PutUint32(out[12:], flags)
	binary.LittleEndian.PutUint32(out[16:], uint32(width))
	binary.LittleEndian.PutUint32(out[20:], uint32(len(t.Columns)))
	binary.LittleEndian.PutUint32(out[24:], uint32(len(t.Rows)))

	out, err = schema.AppendColumns(out, t.Columns)
	if err != nil {
		return nil, fmt.Errorf("encode %q: %w", tag, err)
	}
	return append(out, compressed...), nil
}

// Encode encodes every table, tagged by its own Tag, into a container.
func (e *Encoder) Encode(version uint32, tables ...*Table) ([]byte, error) {
	chunks := make([]Chunk, 0, len(tables))
	for _, t := range tables {
		c, err := e.EncodeTable("", t)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return Write(version, chunks)
}
