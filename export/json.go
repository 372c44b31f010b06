package export

import (
	"bufio"
	"context"
	"errors"
	"io"
	"math"

	"github.com/hupe1980/ephtile/codec"
	"github.com/hupe1980/ephtile/extract"
	"github.com/hupe1980/ephtile/row"
)

// ErrClosed is returned when writing to a closed sink.
var ErrClosed = errors.New("export: sink closed")

// Reserved keys added to every exported row object.
const (
	KeyNUNIQ = "_nuniq"
	KeyOrder = "_order"
	KeyPix   = "_pix"
	KeyTag   = "_tag"
)

// JSONSink writes all rows as one JSON array of objects keyed by column
// name, with the tile location under the reserved keys.
type JSONSink struct {
	w      *bufio.Writer
	codec  codec.Codec
	rows   int
	closed bool
}

var _ extract.Sink = (*JSONSink)(nil)

// NewJSONSink creates a JSONSink writing to w. A nil codec selects
// codec.Default.
func NewJSONSink(w io.Writer, c codec.Codec) *JSONSink {
	if c == nil {
		c = codec.Default
	}
	return &JSONSink{w: bufio.NewWriter(w), codec: c}
}

// WriteTile appends every row of t to the array.
func (s *JSONSink) WriteTile(ctx context.Context, t *extract.TileRows) error {
	if s.closed {
		return ErrClosed
	}
	for _, rec := range t.Rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		b, err := s.codec.Marshal(RowObject(t, rec))
		if err != nil {
			return err
		}

		sep := ",\n"
		if s.rows == 0 {
			sep = "[\n"
		}
		if _, err := s.w.WriteString(sep); err != nil {
			return err
		}
		if _, err := s.w.Write(b); err != nil {
			return err
		}
		s.rows++
	}
	return nil
}

// Rows returns the number of rows written so far.
func (s *JSONSink) Rows() int { return s.rows }

// Close terminates the array and flushes buffered output.
func (s *JSONSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	end := "\n]\n"
	if s.rows == 0 {
		end = "[]\n"
	}
	if _, err := s.w.WriteString(end); err != nil {
		return err
	}
	return s.w.Flush()
}

// RowObject returns rec as a map suitable for JSON encoding. Absent values
// and non-finite floats become null.
func RowObject(t *extract.TileRows, rec row.Record) map[string]any {
	obj := make(map[string]any, len(t.Columns)+4)
	for i, c := range t.Columns {
		if i >= len(rec) {
			break
		}
		obj[c.Name] = jsonValue(rec[i])
	}
	obj[KeyNUNIQ] = t.SpatialKey
	obj[KeyOrder] = t.Order
	obj[KeyPix] = t.Position
	obj[KeyTag] = t.Tag
	return obj
}

func jsonValue(v row.Value) any {
	if f, ok := v.Float(); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
		return nil
	}
	return v.Any()
}
