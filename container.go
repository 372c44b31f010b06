package ephtile

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"github.com/hupe1980/ephtile/internal/hash"
)

// Magic identifies an EPHE container.
const Magic = "EPHE"

const (
	// FileHeaderSize is Magic plus the container version.
	FileHeaderSize = 8
	// ChunkHeaderSize is the chunk tag plus its payload size.
	ChunkHeaderSize = 8
	// ChecksumSize is the trailing checksum after each payload.
	ChecksumSize = 4
)

// Chunk is one tagged section of a container. Payload aliases the parsed
// buffer; copy it before modifying the source.
type Chunk struct {
	Type     string
	Payload  []byte
	Checksum uint32
	// Offset is the position of the chunk header in the container.
	Offset int64
}

// NewChunk builds a chunk with a CRC32C checksum over payload.
func NewChunk(tag string, payload []byte) (Chunk, error) {
	if len(tag) != 4 {
		return Chunk{}, ErrInvalidChunkType
	}
	return Chunk{Type: tag, Payload: payload, Checksum: hash.CRC32C(payload)}, nil
}

// File is a parsed container.
type File struct {
	Version uint32
	Chunks  []Chunk
}

// Parse reads the container header and splits data into chunks.
//
// The scan ends without error when fewer than a chunk header remains or a
// chunk's declared size runs past the end of data. Only a wrong magic or a
// truncated file header fail.
func Parse(data []byte) (*File, error) {
	if len(data) < len(Magic) || string(data[:len(Magic)]) != Magic {
		return nil, formatErr("parse", 0, ErrBadMagic)
	}
	if len(data) < FileHeaderSize {
		return nil, formatErr("parse", int64(len(Magic)), ErrTruncated)
	}

	f := &File{Version: binary.LittleEndian.Uint32(data[4:8])}

	off := FileHeaderSize
	for len(data)-off >= ChunkHeaderSize {
		size := uint64(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		start := uint64(off + ChunkHeaderSize)
		if start+size > uint64(len(data)) {
			break
		}
		end := int(start + size)

		c := Chunk{
			Type:    string(data[off : off+4]),
			Payload: data[start:end:end],
			Offset:  int64(off),
		}
		if len(data)-end < ChecksumSize {
			// Payload complete, checksum cut off: keep the chunk, end the scan.
			f.Chunks = append(f.Chunks, c)
			break
		}
		c.Checksum = binary.LittleEndian.Uint32(data[end : end+ChecksumSize])
		f.Chunks = append(f.Chunks, c)
		off = end + ChecksumSize
	}
	return f, nil
}

// Write serializes a container. Each chunk's Checksum is emitted as is, so
// chunks obtained from Parse round-trip byte-exactly.
func Write(version uint32, chunks []Chunk) ([]byte, error) {
	n := FileHeaderSize
	for _, c := range chunks {
		if len(c.Type) != 4 {
			return nil, ErrInvalidChunkType
		}
		if uint64(len(c.Payload)) > math.MaxUint32 {
			return nil, ErrPayloadTooLarge
		}
		n += ChunkHeaderSize + len(c.Payload) + ChecksumSize
	}

	out := make([]byte, 0, n)
	out = append(out, Magic...)
	out = binary.LittleEndian.AppendUint32(out, version)
	for _, c := range chunks {
		out = append(out, c.Type...)
		out = binary.LittleEndian.AppendUint32(out, uint32(len(c.Payload)))
		out = append(out, c.Payload...)
		out = binary.LittleEndian.AppendUint32(out, c.Checksum)
	}
	return out, nil
}

// Encode serializes f.
func (f *File) Encode() ([]byte, error) {
	return Write(f.Version, f.Chunks)
}

// WriteTo implements io.WriterTo.
func (f *File) WriteTo(w io.Writer) (int64, error) {
	b, err := f.Encode()
	if err != nil {
		return 0, err
	}
	return bytes.NewReader(b).WriteTo(w)
}
