package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/ephtile"
	"github.com/hupe1980/ephtile/blobstore"
	"github.com/hupe1980/ephtile/export"
	"github.com/hupe1980/ephtile/internal/block"
	"github.com/hupe1980/ephtile/schema"
	"github.com/hupe1980/ephtile/testutil"
)

// writeTiles stores n single-table star tiles at order 2 under dir and
// returns the total row count.
func writeTiles(t *testing.T, dir string, n int) int {
	t.Helper()
	ctx := context.Background()
	rng := testutil.NewRNG(2024)
	store := blobstore.NewLocalStore(dir)
	enc := ephtile.NewEncoder()

	rows := 0
	for i := 0; i < n; i++ {
		key := ephtile.NUNIQ(2, uint64(i))
		cols := rng.Columns(3)
		recs := rng.Records(cols, 5+i)
		rows += len(recs)

		data, err := enc.Encode(1, &ephtile.Table{Tag: "STAR", SpatialKey: key, Columns: cols, Rows: recs})
		require.NoError(t, err)
		require.NoError(t, store.Put(ctx, ephtile.TileName(key), data))
	}
	return rows
}

func TestRun_Usage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	ctx := context.Background()

	assert.ErrorIs(t, run(ctx, nil, &stdout, &stderr), errUsage)
	assert.ErrorIs(t, run(ctx, []string{"bogus"}, &stdout, &stderr), errUsage)
	assert.Contains(t, stderr.String(), "unknown command: bogus")

	stdout.Reset()
	require.NoError(t, run(ctx, []string{"version"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "ephtool "+version)

	assert.ErrorIs(t, run(ctx, []string{"extract"}, &stdout, &stderr), errUsage)
	assert.ErrorIs(t, run(ctx, []string{"repack", "-in", "x"}, &stdout, &stderr), errUsage)
	assert.ErrorIs(t, run(ctx, []string{"inspect"}, &stdout, &stderr), errUsage)
}

func TestRun_Inspect(t *testing.T) {
	dir := t.TempDir()
	writeTiles(t, dir, 1)
	path := filepath.Join(dir, filepath.FromSlash(ephtile.TileName(ephtile.NUNIQ(2, 0))))

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"inspect", "-verify", "-rows", "2", path}, &stdout, &stderr))

	out := stdout.String()
	assert.Contains(t, out, "version 1, 1 chunks")
	assert.Contains(t, out, `chunk 0 "STAR" offset=8`)
	assert.Contains(t, out, "order=2 pix=0 flags=0x1 shuffled=true")
	assert.Contains(t, out, "path: Norder2/Dir0/Npix0.eph")
	assert.Contains(t, out, "column ra")
	assert.Contains(t, out, "block: stream at +")
	assert.Contains(t, out, "prefix raw=")
	assert.Contains(t, out, "decode: 5 rows, 0 field errors")
	assert.Contains(t, out, "[1] ra=")
	assert.NotContains(t, out, "mismatch")
}

func TestRun_InspectMissingFile(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"inspect", filepath.Join(t.TempDir(), "nope.eph")}, &stdout, &stderr)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRun_ExtractCSV(t *testing.T) {
	dir := t.TempDir()
	rows := writeTiles(t, dir, 3)
	out := filepath.Join(t.TempDir(), "stars.csv")

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), []string{
		"extract", "-src", dir, "-kind", "star", "-format", "csv", "-o", out, "-concurrency", "2",
	}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "files=3 failed=0 tiles=3")

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, rows+1)
	assert.Equal(t, []string{export.KeyNUNIQ, export.KeyOrder, export.KeyPix, "ra", "de"}, records[0][:5])
	assert.Equal(t, "2", records[1][1])
}

func TestRun_ExtractCompressedJSON(t *testing.T) {
	dir := t.TempDir()
	rows := writeTiles(t, dir, 2)
	out := filepath.Join(t.TempDir(), "stars.json.zst")

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), []string{
		"extract", "-src", dir, "-prefix", "Norder2/", "-compress", "zstd", "-o", out,
	}, &stdout, &stderr))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	r, err := export.NewDecompressReader(f, "zstd")
	require.NoError(t, err)
	defer r.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(r)
	require.NoError(t, err)
	assert.Equal(t, rows, strings.Count(buf.String(), `"_nuniq"`))
}

func TestRun_ExtractArrowToStdout(t *testing.T) {
	dir := t.TempDir()
	writeTiles(t, dir, 1)

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"extract", "-src", dir, "-format", "arrow", "-cache", "1048576"}, &stdout, &stderr))
	assert.NotZero(t, stdout.Len())
	assert.Contains(t, stderr.String(), "cache: ")
}

func TestRun_ExtractBadArgs(t *testing.T) {
	dir := t.TempDir()
	var stdout, stderr bytes.Buffer
	ctx := context.Background()

	assert.Error(t, run(ctx, []string{"extract", "-src", dir, "-kind", "comet"}, &stdout, &stderr))
	assert.Error(t, run(ctx, []string{"extract", "-src", dir, "-format", "xml"}, &stdout, &stderr))
	assert.ErrorIs(t, run(ctx, []string{"extract", "-src", dir, "-compress", "brotli"}, &stdout, &stderr), export.ErrUnknownCompression)
	assert.Error(t, run(ctx, []string{"extract", "-src", filepath.Join(dir, "missing")}, &stdout, &stderr))
	assert.Error(t, run(ctx, []string{"extract", "-src", "s3://"}, &stdout, &stderr))
	assert.Error(t, run(ctx, []string{"extract", "-src", "minio://host:9000"}, &stdout, &stderr))
}

func TestRun_Repack(t *testing.T) {
	dir := t.TempDir()
	writeTiles(t, dir, 1)
	in := filepath.Join(dir, filepath.FromSlash(ephtile.TileName(ephtile.NUNIQ(2, 0))))

	// Append an opaque chunk so repack has to carry it through.
	data, err := os.ReadFile(in)
	require.NoError(t, err)
	f, err := ephtile.Parse(data)
	require.NoError(t, err)
	extra, err := ephtile.NewChunk("META", []byte("catalog=test"))
	require.NoError(t, err)
	data, err = ephtile.Write(f.Version, append(f.Chunks, extra))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(in, data, 0o644))

	out := filepath.Join(t.TempDir(), "plain.eph")
	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"repack", "-in", in, "-o", out, "-shuffle=false"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "1 re-encoded, 1 opaque, 0 kept as is")

	packed, err := os.ReadFile(out)
	require.NoError(t, err)

	orig, err := ephtile.NewDecoder().Decode(context.Background(), data)
	require.NoError(t, err)
	res, err := ephtile.NewDecoder(ephtile.WithVerifyChecksum(true)).Decode(context.Background(), packed)
	require.NoError(t, err)

	require.Len(t, res.Tables, 1)
	assert.False(t, res.Tables[0].Shuffled())
	assert.Equal(t, orig.Tables[0].SpatialKey, res.Tables[0].SpatialKey)
	assert.Equal(t, orig.Tables[0].Columns, res.Tables[0].Columns)
	assert.Len(t, res.Tables[0].Rows, len(orig.Tables[0].Rows))
	require.Len(t, res.Opaque, 1)
	assert.Equal(t, "META", res.Opaque[0].Type)
	assert.Equal(t, []byte("catalog=test"), res.Opaque[0].Payload)
}

// paddedChunk builds an unshuffled STAR chunk with 8-byte rows of which only
// the first 4 bytes belong to a column.
func paddedChunk(t *testing.T) ephtile.Chunk {
	t.Helper()

	rows := []byte{
		0x07, 0, 0, 0, 0xde, 0xad, 0xbe, 0xef,
		0x08, 0, 0, 0, 0xca, 0xfe, 0xba, 0xbe,
	}
	compressed, err := block.Compress(rows, block.DefaultLevel)
	require.NoError(t, err)

	payload := make([]byte, ephtile.TileHeaderSize)
	binary.LittleEndian.PutUint32(payload[0:], 1)
	binary.LittleEndian.PutUint64(payload[4:], ephtile.NUNIQ(1, 7))
	binary.LittleEndian.PutUint32(payload[16:], 8)
	binary.LittleEndian.PutUint32(payload[20:], 1)
	binary.LittleEndian.PutUint32(payload[24:], 2)
	payload, err = schema.AppendColumns(payload, []schema.Column{schema.Int32("n", 0)})
	require.NoError(t, err)

	c, err := ephtile.NewChunk("STAR", append(payload, compressed...))
	require.NoError(t, err)
	return c
}

func TestRepack_KeepsBytesOutsideColumns(t *testing.T) {
	ctx := context.Background()
	padded := paddedChunk(t)

	rng := testutil.NewRNG(7)
	cols := rng.Columns(2)
	packed, err := ephtile.NewEncoder().EncodeTable("STAR", &ephtile.Table{
		SpatialKey: ephtile.NUNIQ(1, 8),
		Columns:    cols,
		Rows:       rng.Records(cols, 3),
	})
	require.NoError(t, err)

	data, err := ephtile.Write(1, []ephtile.Chunk{padded, packed})
	require.NoError(t, err)

	dec := ephtile.NewDecoder()
	out, st, err := repack(ctx, data, dec, ephtile.NewEncoder(ephtile.WithShuffle(false)), ephtile.NoopLogger())
	require.NoError(t, err)
	assert.Equal(t, repackStats{reencoded: 1, kept: 1}, st)

	f, err := ephtile.Parse(out)
	require.NoError(t, err)
	require.Len(t, f.Chunks, 2)
	assert.Equal(t, padded.Payload, f.Chunks[0].Payload)
	assert.Equal(t, padded.Checksum, f.Chunks[0].Checksum)

	tbl, err := dec.DecodeChunk(f.Chunks[0])
	require.NoError(t, err)
	n, _ := tbl.Rows[1][0].Int()
	assert.Equal(t, int32(8), n)
}
