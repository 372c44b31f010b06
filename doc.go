// Package ephtile reads and writes EPHE tile containers.
//
// An EPHE container stores astronomical catalog entries (stars, deep-sky
// objects) for one sky region. It is a magic-tagged header followed by
// tagged, sized, checksummed chunks; each chunk holds a tile header, a
// self-describing column schema and a deflate-compressed block of
// fixed-width rows, optionally byte-transposed.
//
// # Quick Start
//
// Decoding:
//
//	dec := ephtile.NewDecoder(ephtile.WithLogger(ephtile.NewTextLogger(slog.LevelInfo)))
//	res, err := dec.Decode(ctx, data)
//	for _, t := range res.Tables {
//	    fmt.Println(t.Tag, t.Order(), t.Position(), len(t.Rows))
//	}
//
// Encoding:
//
//	enc := ephtile.NewEncoder()
//	data, err := enc.Encode(1, &ephtile.Table{
//	    Tag:        "STAR",
//	    SpatialKey: ephtile.NUNIQ(3, 42),
//	    Columns:    []schema.Column{schema.Float32("ra", 0), schema.Float32("de", 4)},
//	    Rows:       []row.Record{{row.Float(10.5), row.Float(-20)}},
//	})
//
// # Profiles
//
// Chunk tags are bound to record kinds through profiles. A profile names the
// columns that are stored in radians; decoded values of those columns are in
// degrees. StarProfile and DSOProfile are registered by default; WithProfiles
// replaces them. Chunks that match no profile are kept opaque and written
// back unchanged.
//
// # Errors
//
// Failures are reported at three levels:
//
//   - *FormatError: the structure is wrong (bad magic, truncated header,
//     missing compressed stream). Fatal for the file or chunk.
//   - *IntegrityError: a chunk's content contradicts its header. The chunk
//     is skipped.
//   - FieldDecodeError: one field could not be decoded and is Absent.
//
// Use errors.Is with ErrFormat, ErrIntegrity and ErrFieldDecode.
//
// # Checksums
//
// The encoder writes CRC32C over each payload. Files from other producers
// may use a different algorithm, so verification is opt-in through
// WithVerifyChecksum.
package ephtile
