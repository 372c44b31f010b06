package arrowx

import (
	"bytes"
	"context"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/ephtile/extract"
	"github.com/hupe1980/ephtile/row"
	"github.com/hupe1980/ephtile/schema"
)

func starTile(key uint64, order int, pix uint64, recs ...row.Record) *extract.TileRows {
	return &extract.TileRows{
		Tag:        "STAR",
		SpatialKey: key,
		Order:      order,
		Position:   pix,
		Columns: []schema.Column{
			schema.Float32("ra", 0),
			schema.Int32("hip", 4),
			schema.Uint64("gaia", 8),
			schema.String("name", 16, 8),
		},
		Rows: recs,
	}
}

func readAll(t *testing.T, data []byte) (*arrow.Schema, []arrow.Record) {
	t.Helper()
	r, err := ipc.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer r.Release()

	var recs []arrow.Record
	for r.Next() {
		rec := r.Record()
		rec.Retain()
		recs = append(recs, rec)
	}
	require.NoError(t, r.Err())
	return r.Schema(), recs
}

func TestSink_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	sink := NewSink(&buf, nil)
	ctx := context.Background()

	require.NoError(t, sink.WriteTile(ctx, starTile(21, 1, 5,
		row.Record{row.Float(10.5), row.Int(71683), row.Uint64(42), row.Text("Rigel")},
		row.Record{row.Float(11), row.Absent(), row.Uint64(7), row.Absent()},
	)))
	require.NoError(t, sink.WriteTile(ctx, starTile(4, 0, 0,
		row.Record{row.Float(-1), row.Int(-3), row.Uint64(0), row.Text("x")},
	)))
	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close())
	assert.ErrorIs(t, sink.WriteTile(ctx, starTile(4, 0, 0)), ErrClosed)

	assert.Equal(t, 2, sink.Batches())
	assert.Equal(t, 3, sink.Rows())

	sc, recs := readAll(t, buf.Bytes())
	defer func() {
		for _, r := range recs {
			r.Release()
		}
	}()

	require.Equal(t, 7, sc.NumFields())
	assert.Equal(t, FieldNUNIQ, sc.Field(0).Name)
	assert.Equal(t, "ra", sc.Field(3).Name)
	assert.Equal(t, arrow.PrimitiveTypes.Float64, sc.Field(3).Type)
	assert.Equal(t, arrow.BinaryTypes.String, sc.Field(6).Type)
	typ, ok := sc.Field(4).Metadata.GetValue("ephe.type")
	require.True(t, ok)
	assert.Equal(t, "i", typ)

	require.Len(t, recs, 2)
	first := recs[0]
	assert.Equal(t, int64(2), first.NumRows())
	assert.Equal(t, uint64(21), first.Column(0).(*array.Uint64).Value(0))
	assert.Equal(t, int32(1), first.Column(1).(*array.Int32).Value(1))
	assert.Equal(t, uint64(5), first.Column(2).(*array.Uint64).Value(0))
	assert.Equal(t, 10.5, first.Column(3).(*array.Float64).Value(0))

	hip := first.Column(4).(*array.Int32)
	assert.Equal(t, int32(71683), hip.Value(0))
	assert.True(t, hip.IsNull(1))

	name := first.Column(6).(*array.String)
	assert.Equal(t, "Rigel", name.Value(0))
	assert.True(t, name.IsNull(1))

	second := recs[1]
	assert.Equal(t, int64(1), second.NumRows())
	assert.Equal(t, int32(-3), second.Column(4).(*array.Int32).Value(0))
}

func TestSink_AlignsByName(t *testing.T) {
	var buf bytes.Buffer
	sink := NewSink(&buf, nil)
	ctx := context.Background()

	require.NoError(t, sink.WriteTile(ctx, starTile(21, 1, 5,
		row.Record{row.Float(1), row.Int(1), row.Uint64(1), row.Text("a")},
	)))
	require.NoError(t, sink.WriteTile(ctx, &extract.TileRows{
		SpatialKey: 4,
		Columns:    []schema.Column{schema.String("name", 0, 8), schema.Float32("ra", 8)},
		Rows:       []row.Record{{row.Text("M31"), row.Float(10.68)}},
	}))
	require.NoError(t, sink.Close())

	_, recs := readAll(t, buf.Bytes())
	require.Len(t, recs, 2)
	defer recs[0].Release()
	defer recs[1].Release()

	second := recs[1]
	assert.InDelta(t, 10.68, second.Column(3).(*array.Float64).Value(0), 1e-9)
	assert.True(t, second.Column(4).IsNull(0))
	assert.True(t, second.Column(5).IsNull(0))
	assert.Equal(t, "M31", second.Column(6).(*array.String).Value(0))
}

func TestSink_SchemaMismatch(t *testing.T) {
	var buf bytes.Buffer
	sink := NewSink(&buf, nil)
	ctx := context.Background()

	require.NoError(t, sink.WriteTile(ctx, starTile(21, 1, 5)))
	err := sink.WriteTile(ctx, &extract.TileRows{
		Columns: []schema.Column{schema.Int32("ra", 0)},
		Rows:    []row.Record{{row.Int(1)}},
	})
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestSink_Empty(t *testing.T) {
	var buf bytes.Buffer
	sink := NewSink(&buf, nil)
	require.NoError(t, sink.Close())
	assert.Zero(t, buf.Len())
}

func TestArrowType(t *testing.T) {
	assert.Equal(t, arrow.PrimitiveTypes.Uint64, ArrowType(schema.KindUint64))
	assert.Equal(t, arrow.BinaryTypes.Binary, ArrowType(schema.KindUnknown))
}
