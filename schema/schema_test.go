package schema

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumns_RoundTrip(t *testing.T) {
	cols := []Column{
		Float32("ra", 0),
		Float32("de", 4),
		Uint64("gaia", 8),
		Int32("hip", 16),
		String("ids", 20, 32),
		{Name: "xyz", Type: Tag("x2"), Unit: 7, Start: 52, Size: 3},
	}
	cols[0].Unit = 0x2001

	buf, err := WriteColumns(cols)
	require.NoError(t, err)
	require.Len(t, buf, len(cols)*ColumnSize)

	got, err := ReadColumns(buf, len(cols))
	require.NoError(t, err)
	assert.Equal(t, cols, got)
}

func TestReadColumns_Layout(t *testing.T) {
	rec := make([]byte, ColumnSize)
	copy(rec[0:], "de\x00\x00")
	copy(rec[4:], "f\x00\x00\x00")
	binary.LittleEndian.PutUint32(rec[8:], 3)
	binary.LittleEndian.PutUint32(rec[12:], 4)
	binary.LittleEndian.PutUint32(rec[16:], 4)

	cols, err := ReadColumns(rec, 1)
	require.NoError(t, err)
	require.Len(t, cols, 1)

	c := cols[0]
	assert.Equal(t, "de", c.Name)
	assert.Equal(t, KindFloat, c.Kind())
	assert.Equal(t, "f", c.Type.String())
	assert.Equal(t, uint32(3), c.Unit)
	assert.Equal(t, uint32(4), c.Start)
	assert.Equal(t, uint32(4), c.Size)
}

func TestReadColumns_ShortBuffer(t *testing.T) {
	_, err := ReadColumns(make([]byte, 39), 2)
	assert.ErrorIs(t, err, ErrShortBuffer)

	_, err = ReadColumns(nil, -1)
	assert.ErrorIs(t, err, ErrShortBuffer)

	cols, err := ReadColumns(nil, 0)
	require.NoError(t, err)
	assert.Empty(t, cols)
}

func TestWriteColumns_NameTooLong(t *testing.T) {
	_, err := WriteColumns([]Column{Float32("right", 0)})
	assert.ErrorIs(t, err, ErrNameTooLong)
}

func TestTypeTag_Kind(t *testing.T) {
	tests := []struct {
		tag  string
		want Kind
	}{
		{"f", KindFloat},
		{"f4", KindFloat},
		{"i", KindInt},
		{"Q", KindUint64},
		{"s", KindString},
		{"x", KindUnknown},
		{"", KindUnknown},
		{"F", KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			assert.Equal(t, tt.want, Tag(tt.tag).Kind())
		})
	}
}

func TestRowWidthAndValidate(t *testing.T) {
	cols := []Column{Float32("ra", 0), Float32("de", 4), Uint64("id", 4)} // id overlaps de
	assert.Equal(t, uint32(12), RowWidth(cols))
	assert.Empty(t, Validate(cols, 12))

	errs := Validate(cols, 8)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "id")
	assert.ErrorIs(t, errs[0], ErrColumnRange)

	assert.Equal(t, 1, Index(cols, "de"))
	assert.Equal(t, -1, Index(cols, "vmag"))
}

func TestCovers(t *testing.T) {
	tests := []struct {
		name  string
		cols  []Column
		width uint32
		want  bool
	}{
		{"packed", []Column{Float32("ra", 0), Float32("de", 4)}, 8, true},
		{"overlap", []Column{Uint64("id", 0), Float32("lo", 0), Float32("hi", 4)}, 8, true},
		{"unordered", []Column{Float32("de", 4), Float32("ra", 0)}, 8, true},
		{"hole", []Column{Float32("ra", 0), Float32("de", 8)}, 12, false},
		{"padding", []Column{Int32("n", 0)}, 8, false},
		{"leading gap", []Column{Int32("n", 4)}, 8, false},
		{"empty row", nil, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Covers(tt.cols, tt.width))
		})
	}
}
