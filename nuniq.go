package ephtile

import (
	"fmt"
	"math/bits"
)

// Order returns the HEALPix order encoded in a NUNIQ key:
// floor(log4(key/4)). Keys below 4 are not valid NUNIQ values and map to 0.
func Order(key uint64) int {
	if key < 4 {
		return 0
	}
	return (bits.Len64(key>>2) - 1) / 2
}

// Position returns the pixel index within its order encoded in a NUNIQ key.
func Position(key uint64) uint64 {
	if key < 4 {
		return 0
	}
	return key - 1<<(2+2*uint(Order(key)))
}

// NUNIQ packs an order and pixel index into a single key.
func NUNIQ(order int, pix uint64) uint64 {
	return 1<<(2+2*uint(order)) + pix
}

// TileName returns the storage path of the tile with the given key, as used
// by tile directories: Norder{o}/Dir{d}/Npix{p}.eph, with pixels bucketed
// into directories of ten thousand.
func TileName(key uint64) string {
	order, pix := Order(key), Position(key)
	return fmt.Sprintf("Norder%d/Dir%d/Npix%d.eph", order, (pix/10000)*10000, pix)
}
