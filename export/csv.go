package export

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"

	"github.com/hupe1980/ephtile/extract"
	"github.com/hupe1980/ephtile/schema"
)

// CSVSink writes rows as CSV. The header is taken from the first tile; later
// tiles are matched to it by column name and missing columns stay empty.
type CSVSink struct {
	w      *csv.Writer
	header []string
	rows   int
	closed bool
}

var _ extract.Sink = (*CSVSink)(nil)

// NewCSVSink creates a CSVSink writing to w.
func NewCSVSink(w io.Writer) *CSVSink {
	return &CSVSink{w: csv.NewWriter(w)}
}

// WriteTile writes every row of t.
func (s *CSVSink) WriteTile(ctx context.Context, t *extract.TileRows) error {
	if s.closed {
		return ErrClosed
	}
	if s.header == nil {
		s.header = make([]string, 0, len(t.Columns)+3)
		s.header = append(s.header, KeyNUNIQ, KeyOrder, KeyPix)
		for _, c := range t.Columns {
			s.header = append(s.header, c.Name)
		}
		if err := s.w.Write(s.header); err != nil {
			return err
		}
	}

	idx := make([]int, len(s.header)-3)
	for i, name := range s.header[3:] {
		idx[i] = schema.Index(t.Columns, name)
	}

	nuniq := strconv.FormatUint(t.SpatialKey, 10)
	order := strconv.Itoa(t.Order)
	pix := strconv.FormatUint(t.Position, 10)

	line := make([]string, len(s.header))
	for _, rec := range t.Rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		line[0], line[1], line[2] = nuniq, order, pix
		for i, j := range idx {
			line[3+i] = ""
			if j >= 0 && j < len(rec) {
				line[3+i] = rec[j].String()
			}
		}
		if err := s.w.Write(line); err != nil {
			return err
		}
		s.rows++
	}
	return nil
}

// Rows returns the number of data rows written so far.
func (s *CSVSink) Rows() int { return s.rows }

// Close flushes buffered output.
func (s *CSVSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.w.Flush()
	return s.w.Error()
}
