package ephtile

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/ephtile/row"
	"github.com/hupe1980/ephtile/schema"
)

// FlagShuffled marks a row block stored byte-transposed.
const FlagShuffled uint32 = 1

// TileHeaderSize is the fixed header at the start of every tile payload.
const TileHeaderSize = 28

// Table is one decoded tile: its header, schema and rows.
type Table struct {
	Tag string
	// Version is the tile format version. Zero is written as 1.
	Version    uint32
	SpatialKey uint64
	Flags      uint32
	// RowWidth is the stored row stride. Zero means the minimum width that
	// covers every column.
	RowWidth uint32
	Columns  []schema.Column
	Rows     []row.Record

	// FieldErrors lists fields that decoded as Absent.
	FieldErrors []*FieldDecodeError
}

// Order returns the HEALPix order of the tile.
func (t *Table) Order() int { return Order(t.SpatialKey) }

// Position returns the pixel index of the tile within its order.
func (t *Table) Position() uint64 { return Position(t.SpatialKey) }

// Shuffled reports whether flag bit 0 is set.
func (t *Table) Shuffled() bool { return t.Flags&FlagShuffled != 0 }

// Column returns the index of the named column, or -1.
func (t *Table) Column(name string) int { return schema.Index(t.Columns, name) }

// Map returns row i keyed by column name.
func (t *Table) Map(i int) map[string]row.Value {
	return t.Rows[i].Map(t.Columns)
}

// Nulls returns the rows whose value in column col is Absent.
func (t *Table) Nulls(col int) *roaring.Bitmap {
	bm := roaring.New()
	if col < 0 || col >= len(t.Columns) {
		return bm
	}
	for i, rec := range t.Rows {
		if col >= len(rec) || rec[col].IsAbsent() {
			bm.Add(uint32(i))
		}
	}
	return bm
}

func (t *Table) rowWidth() uint32 {
	if t.RowWidth != 0 {
		return t.RowWidth
	}
	return schema.RowWidth(t.Columns)
}
