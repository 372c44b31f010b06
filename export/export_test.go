package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/ephtile/codec"
	"github.com/hupe1980/ephtile/extract"
	"github.com/hupe1980/ephtile/row"
	"github.com/hupe1980/ephtile/schema"
)

func sampleTile() *extract.TileRows {
	cols := []schema.Column{
		schema.Float32("ra", 0),
		schema.Float32("de", 4),
		schema.Int32("hip", 8),
		schema.String("name", 12, 8),
	}
	return &extract.TileRows{
		Name:       "Norder1/Dir0/Npix5.eph",
		Tag:        "STAR",
		SpatialKey: 21,
		Order:      1,
		Position:   5,
		Columns:    cols,
		Rows: []row.Record{
			{row.Float(10.5), row.Float(-20.25), row.Int(71683), row.Text("Rigel")},
			{row.Float(math.NaN()), row.Float(1), row.Absent(), row.Text("")},
		},
	}
}

func TestJSONSink(t *testing.T) {
	for _, c := range []codec.Codec{codec.GoJSON{}, codec.JSON{}} {
		t.Run(c.Name(), func(t *testing.T) {
			var buf bytes.Buffer
			sink := NewJSONSink(&buf, c)

			require.NoError(t, sink.WriteTile(context.Background(), sampleTile()))
			require.NoError(t, sink.WriteTile(context.Background(), sampleTile()))
			require.NoError(t, sink.Close())
			require.NoError(t, sink.Close())
			assert.ErrorIs(t, sink.WriteTile(context.Background(), sampleTile()), ErrClosed)

			var got []map[string]any
			require.NoError(t, c.Unmarshal(buf.Bytes(), &got))
			require.Len(t, got, 4)
			assert.Equal(t, 4, sink.Rows())

			first := got[0]
			assert.Equal(t, 10.5, first["ra"])
			assert.Equal(t, float64(71683), first["hip"])
			assert.Equal(t, "Rigel", first["name"])
			assert.Equal(t, float64(21), first[KeyNUNIQ])
			assert.Equal(t, float64(1), first[KeyOrder])
			assert.Equal(t, float64(5), first[KeyPix])
			assert.Equal(t, "STAR", first[KeyTag])

			second := got[1]
			assert.Nil(t, second["ra"])
			assert.Nil(t, second["hip"])
			assert.Contains(t, second, "hip")
		})
	}
}

func TestJSONSink_Empty(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONSink(&buf, nil)
	require.NoError(t, sink.Close())

	var got []map[string]any
	require.NoError(t, codec.Default.Unmarshal(buf.Bytes(), &got))
	assert.Empty(t, got)
}

func TestCSVSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewCSVSink(&buf)

	require.NoError(t, sink.WriteTile(context.Background(), sampleTile()))

	// A later tile with reordered and missing columns is aligned by name.
	other := &extract.TileRows{
		SpatialKey: 4,
		Columns:    []schema.Column{schema.String("name", 0, 8), schema.Float32("ra", 8)},
		Rows:       []row.Record{{row.Text("M31"), row.Float(10.68)}},
	}
	require.NoError(t, sink.WriteTile(context.Background(), other))
	require.NoError(t, sink.Close())
	assert.Equal(t, 3, sink.Rows())

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)

	assert.Equal(t, []string{KeyNUNIQ, KeyOrder, KeyPix, "ra", "de", "hip", "name"}, records[0])
	assert.Equal(t, []string{"21", "1", "5", "10.5", "-20.25", "71683", "Rigel"}, records[1])
	assert.Equal(t, []string{"21", "1", "5", "NaN", "1", "", ""}, records[2])
	assert.Equal(t, []string{"4", "0", "0", "10.68", "", "", "M31"}, records[3])
}

func TestTextSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewTextSink(&buf, 1)

	require.NoError(t, sink.WriteTile(context.Background(), sampleTile()))
	require.NoError(t, sink.Close())

	out := buf.String()
	assert.Contains(t, out, `== Norder1/Dir0/Npix5.eph tag="STAR" nuniq=21 order=1 pix=5 rows=2`)
	assert.Contains(t, out, "ra:f@0+4")
	assert.Contains(t, out, "[0] ra=10.5 de=-20.25 hip=71683 name=Rigel")
	assert.NotContains(t, out, "[1]")
	assert.Contains(t, out, "... 1 more")
	assert.True(t, strings.HasSuffix(out, "1 tiles, 1 rows listed\n"))
}

func TestTextSink_AbsentValues(t *testing.T) {
	var buf bytes.Buffer
	sink := NewTextSink(&buf, 0)

	require.NoError(t, sink.WriteTile(context.Background(), sampleTile()))
	require.NoError(t, sink.Close())
	assert.Contains(t, buf.String(), "[1] ra=NaN de=1 hip=- name=")
}

func TestCompressWriter(t *testing.T) {
	payload := bytes.Repeat([]byte(`{"ra":10.5,"de":-20.25}`), 200)

	for _, name := range Compressions {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			w, err := NewCompressWriter(&buf, name)
			require.NoError(t, err)
			_, err = w.Write(payload)
			require.NoError(t, err)
			require.NoError(t, w.Close())

			if name != "none" {
				assert.Less(t, buf.Len(), len(payload))
			}

			r, err := NewDecompressReader(&buf, name)
			require.NoError(t, err)
			got, err := io.ReadAll(r)
			require.NoError(t, err)
			require.NoError(t, r.Close())
			assert.Equal(t, payload, got)
		})
	}

	_, err := NewCompressWriter(io.Discard, "brotli")
	assert.ErrorIs(t, err, ErrUnknownCompression)
	_, err = NewDecompressReader(strings.NewReader(""), "brotli")
	assert.ErrorIs(t, err, ErrUnknownCompression)
}
