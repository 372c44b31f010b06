package ephtile

import (
	"errors"
	"fmt"

	"github.com/hupe1980/ephtile/internal/block"
	"github.com/hupe1980/ephtile/row"
	"github.com/hupe1980/ephtile/schema"
)

var (
	// ErrFormat matches every *FormatError via errors.Is.
	ErrFormat = errors.New("format error")
	// ErrIntegrity matches every *IntegrityError via errors.Is.
	ErrIntegrity = errors.New("integrity error")
	// ErrFieldDecode matches every FieldDecodeError via errors.Is.
	ErrFieldDecode = row.ErrFieldDecode

	// ErrBadMagic is the cause of a FormatError for files that are not EPHE containers.
	ErrBadMagic = errors.New("bad magic")
	// ErrTruncated is the cause of a FormatError for a fixed-size header that is cut short.
	ErrTruncated = errors.New("truncated header")
	// ErrTooLarge is the cause of a FormatError for a table whose row block cannot be addressed.
	ErrTooLarge = errors.New("row block too large")
	// ErrChecksumMismatch is the cause of an IntegrityError when checksum verification is enabled.
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrUnknownChunkType is returned when no profile is registered for a chunk tag.
	// Such chunks are kept as opaque payloads.
	ErrUnknownChunkType = errors.New("unknown chunk type")
	// ErrInvalidChunkType is returned when writing a chunk whose tag is not exactly 4 bytes.
	ErrInvalidChunkType = errors.New("chunk type must be exactly 4 bytes")
	// ErrPayloadTooLarge is returned when writing a chunk payload that exceeds the uint32 size field.
	ErrPayloadTooLarge = errors.New("chunk payload exceeds 4 GiB")
)

// FormatError reports a structural problem: wrong magic, a truncated
// fixed-size header, a missing compressed stream or a column table that does
// not fit. It is fatal for the unit being decoded (file or chunk).
//
// The original underlying error can be accessed via errors.Unwrap.
type FormatError struct {
	Op     string
	Offset int64
	cause  error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: format error at offset %d: %v", e.Op, e.Offset, e.cause)
}

func (e *FormatError) Unwrap() error { return e.cause }

// Is makes errors.Is(err, ErrFormat) true for any FormatError.
func (e *FormatError) Is(target error) bool { return target == ErrFormat }

// IntegrityError reports a chunk whose content is inconsistent with its
// header, such as a decompressed block of the wrong length. It is scoped to
// one chunk; callers skip the chunk and continue.
//
// The original underlying error can be accessed via errors.Unwrap.
type IntegrityError struct {
	Op    string
	Tag   string
	cause error
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s: chunk %q: integrity error: %v", e.Op, e.Tag, e.cause)
}

func (e *IntegrityError) Unwrap() error { return e.cause }

// Is makes errors.Is(err, ErrIntegrity) true for any IntegrityError.
func (e *IntegrityError) Is(target error) bool { return target == ErrIntegrity }

// FieldDecodeError reports one field of one row that could not be decoded.
// The field is Absent; the row, chunk and file are unaffected.
type FieldDecodeError = row.FieldError

// ChunkError records a chunk that was skipped while decoding a file.
type ChunkError struct {
	Index int
	Tag   string
	Err   error
}

func (e ChunkError) Error() string {
	return fmt.Sprintf("chunk %d (%q): %v", e.Index, e.Tag, e.Err)
}

func (e ChunkError) Unwrap() error { return e.Err }

func formatErr(op string, offset int64, cause error) error {
	return &FormatError{Op: op, Offset: offset, cause: cause}
}

// translateError maps errors from the internal codec layers onto the public
// taxonomy. offset is the payload-relative position of the failing structure.
func translateError(op, tag string, offset int64, err error) error {
	if err == nil {
		return nil
	}

	var fe *FormatError
	if errors.As(err, &fe) {
		return err
	}
	var ie *IntegrityError
	if errors.As(err, &ie) {
		return err
	}

	switch {
	case errors.Is(err, block.ErrNoStream),
		errors.Is(err, schema.ErrShortBuffer),
		errors.Is(err, schema.ErrNameTooLong),
		errors.Is(err, block.ErrTooLarge),
		errors.Is(err, ErrTooLarge),
		errors.Is(err, ErrTruncated),
		errors.Is(err, row.ErrShortRows):
		return formatErr(op, offset, err)
	case errors.Is(err, block.ErrSizeMismatch),
		errors.Is(err, block.ErrCorruptStream),
		errors.Is(err, ErrChecksumMismatch):
		return &IntegrityError{Op: op, Tag: tag, cause: err}
	}
	return err
}
