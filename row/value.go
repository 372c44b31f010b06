package row

import (
	"bytes"
	"encoding/hex"
	"math"
	"strconv"

	"github.com/hupe1980/ephtile/schema"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	// KindAbsent marks a field that could not be decoded or was never set.
	KindAbsent Kind = iota
	KindFloat
	KindInt
	KindUint64
	KindText
	// KindUnknown carries the raw bytes of a column whose type tag is not understood.
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	case KindUint64:
		return "uint64"
	case KindText:
		return "text"
	case KindUnknown:
		return "unknown"
	default:
		return "absent"
	}
}

// KindFor returns the variant produced by decoding a column of kind k.
func KindFor(k schema.Kind) Kind {
	switch k {
	case schema.KindFloat:
		return KindFloat
	case schema.KindInt:
		return KindInt
	case schema.KindUint64:
		return KindUint64
	case schema.KindString:
		return KindText
	default:
		return KindUnknown
	}
}

// Value is a single decoded field. The zero Value is Absent.
type Value struct {
	kind Kind
	bits uint64
	str  string
	raw  []byte
}

// Absent returns the empty value.
func Absent() Value { return Value{} }

// Float returns a float value. Values are stored on disk as float32.
func Float(v float64) Value { return Value{kind: KindFloat, bits: math.Float64bits(v)} }

// Int returns a signed 32-bit integer value.
func Int(v int32) Value { return Value{kind: KindInt, bits: uint64(uint32(v))} }

// Uint64 returns an unsigned 64-bit identifier value.
func Uint64(v uint64) Value { return Value{kind: KindUint64, bits: v} }

// Text returns a string value.
func Text(s string) Value { return Value{kind: KindText, str: s} }

// Unknown returns an opaque value holding a copy of raw.
func Unknown(raw []byte) Value {
	return Value{kind: KindUnknown, raw: bytes.Clone(raw)}
}

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsAbsent reports whether v holds no value.
func (v Value) IsAbsent() bool { return v.kind == KindAbsent }

// Float returns the float payload.
func (v Value) Float() (float64, bool) {
	if v.kind != KindFloat {
		return 0, false
	}
	return math.Float64frombits(v.bits), true
}

// Int returns the int32 payload.
func (v Value) Int() (int32, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return int32(uint32(v.bits)), true
}

// Uint64 returns the uint64 payload.
func (v Value) Uint64() (uint64, bool) {
	if v.kind != KindUint64 {
		return 0, false
	}
	return v.bits, true
}

// Text returns the string payload.
func (v Value) Text() (string, bool) {
	if v.kind != KindText {
		return "", false
	}
	return v.str, true
}

// Raw returns the opaque bytes of an Unknown value. The slice must not be modified.
func (v Value) Raw() ([]byte, bool) {
	if v.kind != KindUnknown {
		return nil, false
	}
	return v.raw, true
}

// Any returns the payload as a plain Go value: nil, float64, int32, uint64,
// string or []byte.
func (v Value) Any() any {
	switch v.kind {
	case KindFloat:
		return math.Float64frombits(v.bits)
	case KindInt:
		return int32(uint32(v.bits))
	case KindUint64:
		return v.bits
	case KindText:
		return v.str
	case KindUnknown:
		return v.raw
	default:
		return nil
	}
}

// Equal reports whether v and o hold the same variant and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindText:
		return v.str == o.str
	case KindUnknown:
		return bytes.Equal(v.raw, o.raw)
	case KindAbsent:
		return true
	default:
		return v.bits == o.bits
	}
}

// String formats the payload for human-readable output. Absent values
// format as the empty string.
func (v Value) String() string {
	switch v.kind {
	case KindFloat:
		return strconv.FormatFloat(math.Float64frombits(v.bits), 'g', -1, 64)
	case KindInt:
		return strconv.FormatInt(int64(int32(uint32(v.bits))), 10)
	case KindUint64:
		return strconv.FormatUint(v.bits, 10)
	case KindText:
		return v.str
	case KindUnknown:
		return hex.EncodeToString(v.raw)
	default:
		return ""
	}
}

// Record holds one decoded row, positionally aligned with its columns.
type Record []Value

// Map keys the record by column name. Later columns win on duplicate names.
func (r Record) Map(cols []schema.Column) map[string]Value {
	m := make(map[string]Value, len(cols))
	for i, c := range cols {
		if i < len(r) {
			m[c.Name] = r[i]
		}
	}
	return m
}

// Equal reports whether both records hold equal values in every position.
func (r Record) Equal(o Record) bool {
	if len(r) != len(o) {
		return false
	}
	for i := range r {
		if !r[i].Equal(o[i]) {
			return false
		}
	}
	return true
}
