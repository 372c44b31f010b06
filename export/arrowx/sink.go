// Package arrowx writes extracted tile rows as an Arrow IPC stream.
//
// Each tile becomes one record batch. The stream schema is fixed by the first
// tile: its columns plus the tile location fields. Later tiles are aligned to
// it by column name; columns they lack are written as nulls.
package arrowx

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hupe1980/ephtile/extract"
	"github.com/hupe1980/ephtile/row"
	"github.com/hupe1980/ephtile/schema"
)

// Location fields prepended to every batch.
const (
	FieldNUNIQ = "_nuniq"
	FieldOrder = "_order"
	FieldPix   = "_pix"
)

const locationFields = 3

var (
	// ErrClosed is returned when writing to a closed sink.
	ErrClosed = errors.New("arrowx: sink closed")
	// ErrSchemaMismatch is returned when a tile column has a different type
	// than the stream schema.
	ErrSchemaMismatch = errors.New("arrowx: column type differs from stream schema")
)

// Sink is an extract.Sink producing an Arrow IPC stream.
type Sink struct {
	w       io.Writer
	alloc   memory.Allocator
	schema  *arrow.Schema
	kinds   []schema.Kind
	writer  *ipc.Writer
	batches int
	rows    int
	closed  bool
}

var _ extract.Sink = (*Sink)(nil)

// NewSink creates a Sink writing to w. A nil allocator selects
// memory.DefaultAllocator.
func NewSink(w io.Writer, alloc memory.Allocator) *Sink {
	if alloc == nil {
		alloc = memory.DefaultAllocator
	}
	return &Sink{w: w, alloc: alloc}
}

// ArrowType maps a column kind to its Arrow type. Floats widen to float64
// because angular columns are converted to degrees on decode.
func ArrowType(k schema.Kind) arrow.DataType {
	switch k {
	case schema.KindFloat:
		return arrow.PrimitiveTypes.Float64
	case schema.KindInt:
		return arrow.PrimitiveTypes.Int32
	case schema.KindUint64:
		return arrow.PrimitiveTypes.Uint64
	case schema.KindString:
		return arrow.BinaryTypes.String
	default:
		return arrow.BinaryTypes.Binary
	}
}

// Schema builds the stream schema for cols.
func Schema(cols []schema.Column) *arrow.Schema {
	fields := make([]arrow.Field, 0, len(cols)+locationFields)
	fields = append(fields,
		arrow.Field{Name: FieldNUNIQ, Type: arrow.PrimitiveTypes.Uint64},
		arrow.Field{Name: FieldOrder, Type: arrow.PrimitiveTypes.Int32},
		arrow.Field{Name: FieldPix, Type: arrow.PrimitiveTypes.Uint64},
	)
	for _, c := range cols {
		md := arrow.NewMetadata([]string{"ephe.type"}, []string{c.Type.String()})
		fields = append(fields, arrow.Field{Name: c.Name, Type: ArrowType(c.Kind()), Nullable: true, Metadata: md})
	}
	return arrow.NewSchema(fields, nil)
}

// WriteTile writes t as one record batch.
func (s *Sink) WriteTile(ctx context.Context, t *extract.TileRows) error {
	if s.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if s.writer == nil {
		s.schema = Schema(t.Columns)
		s.kinds = make([]schema.Kind, len(t.Columns))
		for i, c := range t.Columns {
			s.kinds[i] = c.Kind()
		}
		s.writer = ipc.NewWriter(s.w, ipc.WithSchema(s.schema), ipc.WithAllocator(s.alloc))
	}

	rec, err := s.build(t)
	if err != nil {
		return err
	}
	defer rec.Release()

	if err := s.writer.Write(rec); err != nil {
		return fmt.Errorf("arrowx: write batch: %w", err)
	}
	s.batches++
	s.rows += len(t.Rows)
	return nil
}

func (s *Sink) build(t *extract.TileRows) (arrow.Record, error) {
	b := array.NewRecordBuilder(s.alloc, s.schema)
	defer b.Release()

	n := len(t.Rows)
	nuniq := b.Field(0).(*array.Uint64Builder)
	order := b.Field(1).(*array.Int32Builder)
	pix := b.Field(2).(*array.Uint64Builder)
	for i := 0; i < n; i++ {
		nuniq.Append(t.SpatialKey)
		order.Append(int32(t.Order))
		pix.Append(t.Position)
	}

	for fi, kind := range s.kinds {
		name := s.schema.Field(fi + locationFields).Name
		col := schema.Index(t.Columns, name)
		if col >= 0 && t.Columns[col].Kind() != kind {
			return nil, fmt.Errorf("%w: %s is %s, stream has %s", ErrSchemaMismatch, name, t.Columns[col].Kind(), kind)
		}

		fb := b.Field(fi + locationFields)
		for _, rec := range t.Rows {
			if col < 0 || col >= len(rec) {
				fb.AppendNull()
				continue
			}
			appendValue(fb, rec[col])
		}
	}

	return b.NewRecord(), nil
}

func appendValue(fb array.Builder, v row.Value) {
	switch bb := fb.(type) {
	case *array.Float64Builder:
		if f, ok := v.Float(); ok {
			bb.Append(f)
			return
		}
	case *array.Int32Builder:
		if n, ok := v.Int(); ok {
			bb.Append(n)
			return
		}
	case *array.Uint64Builder:
		if n, ok := v.Uint64(); ok {
			bb.Append(n)
			return
		}
	case *array.StringBuilder:
		if s, ok := v.Text(); ok {
			bb.Append(s)
			return
		}
	case *array.BinaryBuilder:
		if raw, ok := v.Raw(); ok {
			bb.Append(raw)
			return
		}
	}
	fb.AppendNull()
}

// Batches returns the number of record batches written so far.
func (s *Sink) Batches() int { return s.batches }

// Rows returns the number of rows written so far.
func (s *Sink) Rows() int { return s.rows }

// Close ends the stream. A sink that saw no tile writes nothing.
func (s *Sink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.writer == nil {
		return nil
	}
	return s.writer.Close()
}
