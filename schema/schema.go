// Package schema reads and writes the column descriptors of a tile table.
//
// Each descriptor is a fixed 20-byte record:
//
//	Name(4) TypeTag(4) Unit(u32) Start(u32) Size(u32)
//
// Name and TypeTag are NUL-padded ASCII; only the first character of the
// type tag selects the value kind. Integers are little-endian.
package schema

import (
	"bytes"
	"cmp"
	"encoding/binary"
	"errors"
	"fmt"
	"slices"
)

// ColumnSize is the encoded size of one column descriptor.
const ColumnSize = 20

var (
	// ErrShortBuffer is returned when the buffer cannot hold the requested descriptors.
	ErrShortBuffer = errors.New("schema: buffer too small for column table")
	// ErrNameTooLong is returned when a name or type tag exceeds 4 bytes.
	ErrNameTooLong = errors.New("schema: field exceeds 4 bytes")
	// ErrColumnRange is wrapped by Validate for columns that leave the row.
	ErrColumnRange = errors.New("schema: column outside row")
)

// Kind is the decoded meaning of a type tag.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindFloat        // 'f': IEEE-754 float32
	KindInt          // 'i': int32
	KindUint64       // 'Q': uint64
	KindString       // 's': fixed-width UTF-8, NUL padded
)

func (k Kind) String() string {
	switch k {
	case KindFloat:
		return "float32"
	case KindInt:
		return "int32"
	case KindUint64:
		return "uint64"
	case KindString:
		return "string"
	default:
		return "unknown"
	}
}

// TypeTag is the raw 4-byte type field. It is kept verbatim so that tags the
// reader does not understand survive a rewrite unchanged.
type TypeTag [4]byte

// Tag builds a TypeTag from a short ASCII string.
func Tag(s string) TypeTag {
	var t TypeTag
	copy(t[:], s)
	return t
}

// Kind maps the first character of the tag to a value kind.
func (t TypeTag) Kind() Kind {
	switch t[0] {
	case 'f':
		return KindFloat
	case 'i':
		return KindInt
	case 'Q':
		return KindUint64
	case 's':
		return KindString
	default:
		return KindUnknown
	}
}

func (t TypeTag) String() string {
	return string(bytes.TrimRight(t[:], "\x00"))
}

// Column describes where one field lives inside a fixed-width row.
type Column struct {
	Name  string
	Type  TypeTag
	Unit  uint32
	Start uint32
	Size  uint32
}

// Kind is shorthand for c.Type.Kind().
func (c Column) Kind() Kind { return c.Type.Kind() }

// End returns the exclusive end offset of the column within a row.
func (c Column) End() uint64 { return uint64(c.Start) + uint64(c.Size) }

func (c Column) String() string {
	return fmt.Sprintf("%s:%s@%d+%d", c.Name, c.Type, c.Start, c.Size)
}

// Float32 returns a 4-byte float column.
func Float32(name string, start uint32) Column {
	return Column{Name: name, Type: Tag("f"), Start: start, Size: 4}
}

// Int32 returns a 4-byte signed integer column.
func Int32(name string, start uint32) Column {
	return Column{Name: name, Type: Tag("i"), Start: start, Size: 4}
}

// Uint64 returns an 8-byte unsigned integer column.
func Uint64(name string, start uint32) Column {
	return Column{Name: name, Type: Tag("Q"), Start: start, Size: 8}
}

// String returns a fixed-width string column of size bytes.
func String(name string, start, size uint32) Column {
	return Column{Name: name, Type: Tag("s"), Start: start, Size: size}
}

// ReadColumns decodes count descriptors from the start of buf.
func ReadColumns(buf []byte, count int) ([]Column, error) {
	if count < 0 || len(buf)/ColumnSize < count {
		return nil, fmt.Errorf("%w: need %d columns (%d bytes), have %d bytes",
			ErrShortBuffer, count, count*ColumnSize, len(buf))
	}

	cols := make([]Column, count)
	for i := range cols {
		rec := buf[i*ColumnSize : (i+1)*ColumnSize]
		c := &cols[i]
		c.Name = string(bytes.TrimRight(rec[0:4], "\x00"))
		copy(c.Type[:], rec[4:8])
		c.Unit = binary.LittleEndian.Uint32(rec[8:])
		c.Start = binary.LittleEndian.Uint32(rec[12:])
		c.Size = binary.LittleEndian.Uint32(rec[16:])
	}
	return cols, nil
}

// WriteColumns encodes cols, NUL-padding names to 4 bytes.
func WriteColumns(cols []Column) ([]byte, error) {
	return AppendColumns(make([]byte, 0, len(cols)*ColumnSize), cols)
}

// AppendColumns appends the encoding of cols to dst.
func AppendColumns(dst []byte, cols []Column) ([]byte, error) {
	for _, c := range cols {
		if len(c.Name) > 4 {
			return nil, fmt.Errorf("%w: column name %q", ErrNameTooLong, c.Name)
		}
		var rec [ColumnSize]byte
		copy(rec[0:4], c.Name)
		copy(rec[4:8], c.Type[:])
		binary.LittleEndian.PutUint32(rec[8:], c.Unit)
		binary.LittleEndian.PutUint32(rec[12:], c.Start)
		binary.LittleEndian.PutUint32(rec[16:], c.Size)
		dst = append(dst, rec[:]...)
	}
	return dst, nil
}

// RowWidth returns the smallest row width that contains every column.
func RowWidth(cols []Column) uint32 {
	var w uint64
	for _, c := range cols {
		if e := c.End(); e > w {
			w = e
		}
	}
	return uint32(w)
}

// Validate reports every column whose byte range does not fit in a row of
// rowWidth bytes. Overlaps and gaps are legal and not reported.
func Validate(cols []Column, rowWidth uint32) []error {
	var errs []error
	for i, c := range cols {
		if c.End() > uint64(rowWidth) {
			errs = append(errs, fmt.Errorf("%w: column %d (%s) ends at %d, row width is %d", ErrColumnRange, i, c.Name, c.End(), rowWidth))
		}
	}
	return errs
}

// Covers reports whether the columns together cover every byte of a row of
// rowWidth bytes. Bytes outside every column are not visible to a decoder.
func Covers(cols []Column, rowWidth uint32) bool {
	ranges := make([][2]uint64, 0, len(cols))
	for _, c := range cols {
		if c.Size > 0 {
			ranges = append(ranges, [2]uint64{uint64(c.Start), c.End()})
		}
	}
	slices.SortFunc(ranges, func(a, b [2]uint64) int { return cmp.Compare(a[0], b[0]) })

	var covered uint64
	for _, r := range ranges {
		if r[0] > covered {
			return false
		}
		covered = max(covered, r[1])
	}
	return covered >= uint64(rowWidth)
}

// Index returns the position of the first column named name, or -1.
func Index(cols []Column, name string) int {
	for i, c := range cols {
		if c.Name == name {
			return i
		}
	}
	return -1
}
