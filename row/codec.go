// Package row converts between fixed-width row bytes and typed records.
//
// A Codec is bound to one column schema and one set of angular column names.
// Angular float columns are stored in radians and exposed in degrees; which
// columns are angular depends on the record kind (stars and deep-sky objects
// disagree), so the set is supplied per codec.
package row

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"runtime"
	"unicode/utf8"

	"github.com/hupe1980/ephtile/schema"
	"golang.org/x/sync/errgroup"
)

const (
	degPerRad = 180 / math.Pi
	radPerDeg = math.Pi / 180

	// parallelRows is the row count above which DecodeAll fans out.
	parallelRows = 8192
)

var (
	// ErrOutOfRange is returned when a column's byte range leaves the row.
	ErrOutOfRange = errors.New("column range outside row")
	// ErrInvalidUTF8 is returned for string columns holding invalid UTF-8.
	ErrInvalidUTF8 = errors.New("invalid UTF-8 in string column")
	// ErrKindMismatch is returned when a record value does not fit its column.
	ErrKindMismatch = errors.New("value kind does not match column type")
	// ErrArity is returned when a record has a different length than the schema.
	ErrArity = errors.New("record length does not match column count")
	// ErrShortRows is returned when a row buffer is smaller than rowWidth*rowCount.
	ErrShortRows = errors.New("row buffer too small")
)

// Option configures a Codec.
type Option func(*Codec)

// WithAngular marks the named float columns as angles stored in radians.
func WithAngular(names ...string) Option {
	return func(c *Codec) {
		for _, n := range names {
			c.angularNames[n] = struct{}{}
		}
	}
}

// Codec decodes and encodes rows for one schema.
// It is immutable after construction and safe for concurrent use.
type Codec struct {
	cols         []schema.Column
	angular      []bool
	angularNames map[string]struct{}
}

// NewCodec creates a codec for cols.
func NewCodec(cols []schema.Column, optFns ...Option) *Codec {
	c := &Codec{
		cols:         cols,
		angular:      make([]bool, len(cols)),
		angularNames: make(map[string]struct{}),
	}
	for _, fn := range optFns {
		fn(c)
	}
	for i, col := range cols {
		if col.Kind() != schema.KindFloat {
			continue
		}
		if _, ok := c.angularNames[col.Name]; ok {
			c.angular[i] = true
		}
	}
	return c
}

// Columns returns the schema the codec is bound to.
func (c *Codec) Columns() []schema.Column { return c.cols }

// IsAngular reports whether column i is converted between radians and degrees.
func (c *Codec) IsAngular(i int) bool { return i >= 0 && i < len(c.angular) && c.angular[i] }

// Decode decodes one row. Fields that fail to decode are Absent and reported
// in the returned errors; decoding always continues with the next column.
func (c *Codec) Decode(rowIndex int, buf []byte) (Record, []*FieldError) {
	rec := make(Record, len(c.cols))
	var errs []*FieldError

	for i, col := range c.cols {
		v, err := c.decodeField(i, col, buf)
		if err != nil {
			errs = append(errs, &FieldError{Row: rowIndex, Index: i, Column: col.Name, cause: err})
			continue
		}
		rec[i] = v
	}
	return rec, errs
}

func (c *Codec) decodeField(i int, col schema.Column, buf []byte) (Value, error) {
	start := uint64(col.Start)
	switch col.Kind() {
	case schema.KindFloat:
		b, err := field(buf, start, 4)
		if err != nil {
			return Value{}, err
		}
		f := float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
		if c.angular[i] {
			f *= degPerRad
		}
		return Float(f), nil
	case schema.KindInt:
		b, err := field(buf, start, 4)
		if err != nil {
			return Value{}, err
		}
		return Int(int32(binary.LittleEndian.Uint32(b))), nil
	case schema.KindUint64:
		b, err := field(buf, start, 8)
		if err != nil {
			return Value{}, err
		}
		return Uint64(binary.LittleEndian.Uint64(b)), nil
	case schema.KindString:
		b, err := field(buf, start, uint64(col.Size))
		if err != nil {
			return Value{}, err
		}
		b = bytes.TrimRight(b, "\x00")
		if !utf8.Valid(b) {
			return Value{}, ErrInvalidUTF8
		}
		return Text(string(b)), nil
	default:
		b, err := field(buf, start, uint64(col.Size))
		if err != nil {
			return Value{}, err
		}
		return Unknown(b), nil
	}
}

func field(buf []byte, start, size uint64) ([]byte, error) {
	if start+size > uint64(len(buf)) {
		return nil, fmt.Errorf("%w: [%d,%d) in %d-byte row", ErrOutOfRange, start, start+size, len(buf))
	}
	return buf[start : start+size], nil
}

// Encode writes rec into dst, which must be a zeroed row buffer. Absent
// values leave their bytes zero. Strings longer than the column are truncated
// at a character boundary.
func (c *Codec) Encode(rec Record, dst []byte) error {
	if len(rec) != len(c.cols) {
		return fmt.Errorf("%w: got %d values for %d columns", ErrArity, len(rec), len(c.cols))
	}

	for i, col := range c.cols {
		v := rec[i]
		if v.IsAbsent() {
			continue
		}
		if err := c.encodeField(i, col, v, dst); err != nil {
			return fmt.Errorf("column %d (%s): %w", i, col.Name, err)
		}
	}
	return nil
}

func (c *Codec) encodeField(i int, col schema.Column, v Value, dst []byte) error {
	start := uint64(col.Start)
	want := KindFor(col.Kind())
	if v.Kind() != want {
		return fmt.Errorf("%w: %s value for %s column", ErrKindMismatch, v.Kind(), col.Kind())
	}

	switch want {
	case KindFloat:
		b, err := field(dst, start, 4)
		if err != nil {
			return err
		}
		f, _ := v.Float()
		if c.angular[i] {
			f *= radPerDeg
		}
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(f)))
	case KindInt:
		b, err := field(dst, start, 4)
		if err != nil {
			return err
		}
		n, _ := v.Int()
		binary.LittleEndian.PutUint32(b, uint32(n))
	case KindUint64:
		b, err := field(dst, start, 8)
		if err != nil {
			return err
		}
		n, _ := v.Uint64()
		binary.LittleEndian.PutUint64(b, n)
	case KindText:
		b, err := field(dst, start, uint64(col.Size))
		if err != nil {
			return err
		}
		s, _ := v.Text()
		clear(b)
		copy(b, truncateText(s, len(b)))
	default:
		b, err := field(dst, start, uint64(col.Size))
		if err != nil {
			return err
		}
		raw, _ := v.Raw()
		clear(b)
		copy(b, raw)
	}
	return nil
}

// truncateText cuts s to at most n bytes without splitting a character.
func truncateText(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// DecodeAll decodes rowCount rows of rowWidth bytes from data. Large tables
// are decoded in parallel shards; output order matches input order.
func (c *Codec) DecodeAll(data []byte, rowWidth, rowCount int) ([]Record, []*FieldError, error) {
	if rowWidth < 0 || rowCount < 0 || len(data) < rowWidth*rowCount {
		return nil, nil, fmt.Errorf("%w: %d bytes for %d rows of %d", ErrShortRows, len(data), rowCount, rowWidth)
	}

	recs := make([]Record, rowCount)
	if rowCount <= parallelRows {
		errs := c.decodeRange(data, rowWidth, recs, 0, rowCount)
		return recs, errs, nil
	}

	shards := runtime.GOMAXPROCS(0)
	per := (rowCount + shards - 1) / shards
	shardErrs := make([][]*FieldError, shards)

	var g errgroup.Group
	for s := 0; s < shards; s++ {
		lo, hi := s*per, min((s+1)*per, rowCount)
		if lo >= hi {
			break
		}
		g.Go(func() error {
			shardErrs[s] = c.decodeRange(data, rowWidth, recs, lo, hi)
			return nil
		})
	}
	_ = g.Wait()

	var errs []*FieldError
	for _, e := range shardErrs {
		errs = append(errs, e...)
	}
	return recs, errs, nil
}

func (c *Codec) decodeRange(data []byte, rowWidth int, recs []Record, lo, hi int) []*FieldError {
	var errs []*FieldError
	for i := lo; i < hi; i++ {
		rec, ferrs := c.Decode(i, data[i*rowWidth:(i+1)*rowWidth])
		recs[i] = rec
		errs = append(errs, ferrs...)
	}
	return errs
}

// EncodeAll encodes recs into a contiguous row-major buffer.
func (c *Codec) EncodeAll(recs []Record, rowWidth int) ([]byte, error) {
	out := make([]byte, rowWidth*len(recs))
	for i, rec := range recs {
		if err := c.Encode(rec, out[i*rowWidth:(i+1)*rowWidth]); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}
	return out, nil
}
