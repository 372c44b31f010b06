package export

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/hupe1980/ephtile/extract"
)

// TextSink writes a human-readable listing: one header line per tile, the
// column names, then up to limit rows as "name=value" pairs.
type TextSink struct {
	w      *bufio.Writer
	limit  int
	tiles  int
	rows   int
	closed bool
}

var _ extract.Sink = (*TextSink)(nil)

// NewTextSink creates a TextSink writing to w. A limit of zero or less
// lists every row.
func NewTextSink(w io.Writer, limit int) *TextSink {
	return &TextSink{w: bufio.NewWriter(w), limit: limit}
}

// WriteTile lists t.
func (s *TextSink) WriteTile(ctx context.Context, t *extract.TileRows) error {
	if s.closed {
		return ErrClosed
	}
	s.tiles++

	fmt.Fprintf(s.w, "== %s tag=%q nuniq=%d order=%d pix=%d rows=%d\n",
		t.Name, t.Tag, t.SpatialKey, t.Order, t.Position, len(t.Rows))

	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.String()
	}
	fmt.Fprintf(s.w, "   columns: %s\n", strings.Join(names, " "))

	n := len(t.Rows)
	if s.limit > 0 && n > s.limit {
		n = s.limit
	}
	var sb strings.Builder
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		sb.Reset()
		fmt.Fprintf(&sb, "   [%d]", i)
		for j, v := range t.Rows[i] {
			if j >= len(t.Columns) {
				break
			}
			sb.WriteByte(' ')
			sb.WriteString(t.Columns[j].Name)
			sb.WriteByte('=')
			if v.IsAbsent() {
				sb.WriteString("-")
			} else {
				sb.WriteString(v.String())
			}
		}
		sb.WriteByte('\n')
		if _, err := s.w.WriteString(sb.String()); err != nil {
			return err
		}
		s.rows++
	}
	if n < len(t.Rows) {
		fmt.Fprintf(s.w, "   ... %d more\n", len(t.Rows)-n)
	}
	return nil
}

// Close writes a summary line and flushes buffered output.
func (s *TextSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	fmt.Fprintf(s.w, "%d tiles, %d rows listed\n", s.tiles, s.rows)
	return s.w.Flush()
}
