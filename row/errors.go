package row

import (
	"errors"
	"fmt"
)

// ErrFieldDecode matches every *FieldError via errors.Is.
var ErrFieldDecode = errors.New("field decode error")

// FieldError describes a single field that could not be decoded. The field is
// recorded as Absent; the row and the table are still usable.
//
// The original underlying error can be accessed via errors.Unwrap.
type FieldError struct {
	Row    int
	Index  int
	Column string
	cause  error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("row %d column %d (%s): %v", e.Row, e.Index, e.Column, e.cause)
}

func (e *FieldError) Unwrap() error { return e.cause }

// Is makes errors.Is(err, ErrFieldDecode) true for any FieldError.
func (e *FieldError) Is(target error) bool { return target == ErrFieldDecode }
