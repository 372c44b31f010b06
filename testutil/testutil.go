package testutil

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/hupe1980/ephtile/row"
	"github.com/hupe1980/ephtile/schema"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789 +-"

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand = rand.New(rand.NewSource(r.seed))
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Uint64 returns a pseudo-random uint64.
func (r *RNG) Uint64() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Uint64()
}

// Float32 returns, as a float32, a pseudo-random number in [0.0,1.0).
func (r *RNG) Float32() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float32()
}

// Bytes returns n pseudo-random bytes.
func (r *RNG) Bytes(n int) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := make([]byte, n)
	_, _ = r.rand.Read(b)
	return b
}

// Text returns a printable ASCII string of at most max bytes.
func (r *RNG) Text(max int) string {
	if max <= 0 {
		return ""
	}
	n := 1 + r.Intn(max)
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[r.Intn(len(alphabet))]
	}
	// Trailing NULs and spaces do not survive a fixed-width field cleanly.
	if b[n-1] == ' ' {
		b[n-1] = 'x'
	}
	return string(b)
}

// Columns returns a packed schema that starts with the angular pair ra, de
// followed by extra columns of random kinds. Names stay within four bytes.
func (r *RNG) Columns(extra int) []schema.Column {
	cols := []schema.Column{schema.Float32("ra", 0), schema.Float32("de", 4)}
	off := uint32(8)
	for i := 0; i < extra; i++ {
		name := fmt.Sprintf("c%03d", i%1000)
		var c schema.Column
		switch r.Intn(4) {
		case 0:
			c = schema.Float32(name, off)
		case 1:
			c = schema.Int32(name, off)
		case 2:
			c = schema.Uint64(name, off)
		default:
			c = schema.String(name, off, uint32(4+r.Intn(13)))
		}
		cols = append(cols, c)
		off += c.Size
	}
	return cols
}

// Record returns a record matching cols. Float values are exactly
// representable as float32; ra and de hold plausible sky coordinates.
func (r *RNG) Record(cols []schema.Column) row.Record {
	rec := make(row.Record, len(cols))
	for i, c := range cols {
		switch c.Kind() {
		case schema.KindFloat:
			switch c.Name {
			case "ra":
				rec[i] = row.Float(float64(r.Float32() * 360))
			case "de":
				rec[i] = row.Float(float64(r.Float32()*180 - 90))
			default:
				rec[i] = row.Float(float64(r.Float32()*200 - 100))
			}
		case schema.KindInt:
			rec[i] = row.Int(int32(r.Uint64()))
		case schema.KindUint64:
			rec[i] = row.Uint64(r.Uint64())
		case schema.KindString:
			rec[i] = row.Text(r.Text(int(c.Size)))
		default:
			rec[i] = row.Unknown(r.Bytes(int(c.Size)))
		}
	}
	return rec
}

// Records returns n records matching cols.
func (r *RNG) Records(cols []schema.Column, n int) []row.Record {
	out := make([]row.Record, n)
	for i := range out {
		out[i] = r.Record(cols)
	}
	return out
}

// SpatialKey returns a valid NUNIQ key for a random pixel at order.
func (r *RNG) SpatialKey(order int) uint64 {
	npix := uint64(12) << (2 * order)
	return 1<<(2+2*order) + r.Uint64()%npix
}
