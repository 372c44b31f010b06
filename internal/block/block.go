// Package block compresses and decompresses the row block of a tile table.
//
// Block layout as written:
//
//	[UncompressedSize uint32][CompressedSize uint32][zlib stream...]
//
// Readers never trust the size prefix. Files in the wild carry an
// undocumented gap between the column table and the stream, so Decompress
// scans for a zlib stream header and inflates from there.
package block

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"sync"

	"github.com/klauspost/compress/zlib"
)

// HeaderSize is the size of the length prefix emitted by Compress.
const HeaderSize = 8

// DefaultLevel produces the 78 9C stream header that existing readers look for.
const DefaultLevel = zlib.DefaultCompression

var (
	// ErrNoStream is returned when no zlib header exists in the buffer.
	ErrNoStream = errors.New("block: zlib stream header not found")
	// ErrCorruptStream is returned when every candidate header fails to inflate.
	ErrCorruptStream = errors.New("block: corrupt zlib stream")
	// ErrSizeMismatch is returned when the inflated length differs from the expected length.
	ErrSizeMismatch = errors.New("block: decompressed size mismatch")
	// ErrTooLarge is returned when the raw block does not fit the uint32 size prefix.
	ErrTooLarge = errors.New("block: raw block exceeds 4 GiB")
)

// zlib writers are comparatively expensive to allocate (deflate state and
// window), so keep one pool per level that has been used.
var writerPools sync.Map // int -> *sync.Pool

func getWriter(w io.Writer, level int) (*zlib.Writer, error) {
	p, _ := writerPools.LoadOrStore(level, &sync.Pool{})
	if v := p.(*sync.Pool).Get(); v != nil {
		zw := v.(*zlib.Writer)
		zw.Reset(w)
		return zw, nil
	}
	return zlib.NewWriterLevel(w, level)
}

func putWriter(zw *zlib.Writer, level int) {
	p, _ := writerPools.LoadOrStore(level, &sync.Pool{})
	p.(*sync.Pool).Put(zw)
}

// Compress deflates raw and prepends the uncompressed/compressed size prefix.
func Compress(raw []byte, level int) ([]byte, error) {
	if uint64(len(raw)) > uint64(^uint32(0)) {
		return nil, ErrTooLarge
	}

	var buf bytes.Buffer
	buf.Grow(HeaderSize + len(raw)/2 + 64)
	buf.Write(make([]byte, HeaderSize))

	zw, err := getWriter(&buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(raw); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	putWriter(zw, level)

	out := buf.Bytes()
	binary.LittleEndian.PutUint32(out[0:], uint32(len(raw)))
	binary.LittleEndian.PutUint32(out[4:], uint32(len(out)-HeaderSize))
	return out, nil
}

// Decompress locates the zlib stream inside buf and inflates it.
//
// Every valid stream header is tried in order; the first offset that inflates
// cleanly is the stream. The result must be exactly expected bytes long.
func Decompress(buf []byte, expected int) ([]byte, error) {
	found := false
	for off := FindStream(buf, 0); off >= 0; off = FindStream(buf, off+1) {
		found = true
		out, err := inflate(buf[off:], expected)
		if err != nil {
			continue
		}
		if len(out) != expected {
			return nil, ErrSizeMismatch
		}
		return out, nil
	}
	if !found {
		return nil, ErrNoStream
	}
	return nil, ErrCorruptStream
}

// FindStream returns the offset of the first zlib header at or after from,
// or -1.
func FindStream(buf []byte, from int) int {
	if from < 0 {
		from = 0
	}
	for i := from; i+1 < len(buf); i++ {
		if isHeader(buf[i], buf[i+1]) {
			return i
		}
	}
	return -1
}

// SizePrefix interprets the bytes between the column table and the stream as
// the length prefix written by Compress. ok is false if the gap has another
// shape; callers must treat it as advisory only.
func SizePrefix(gap []byte) (uncompressed, compressed uint32, ok bool) {
	if len(gap) != HeaderSize {
		return 0, 0, false
	}
	return binary.LittleEndian.Uint32(gap[0:]), binary.LittleEndian.Uint32(gap[4:]), true
}

// isHeader reports whether cmf/flg form an RFC 1950 header for deflate with a
// 32K window and no preset dictionary.
func isHeader(cmf, flg byte) bool {
	if cmf != 0x78 {
		return false
	}
	if flg&0x20 != 0 {
		return false
	}
	return (uint16(cmf)<<8|uint16(flg))%31 == 0
}

func inflate(stream []byte, expected int) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(stream))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	out := bytes.NewBuffer(make([]byte, 0, expected))
	// Read one byte past expected so oversized streams surface as a mismatch
	// without inflating an unbounded amount of data.
	if _, err := io.Copy(out, io.LimitReader(zr, int64(expected)+1)); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
