package ephtile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNUNIQ(t *testing.T) {
	tests := []struct {
		order int
		pix   uint64
	}{
		{0, 0},
		{0, 11},
		{1, 0},
		{1, 47},
		{3, 42},
		{6, 12345},
		{12, 1 << 20},
		{29, 12<<58 - 1},
	}
	for _, tt := range tests {
		key := NUNIQ(tt.order, tt.pix)
		assert.Equal(t, tt.order, Order(key), "order of %d", key)
		assert.Equal(t, tt.pix, Position(key), "position of %d", key)
	}

	assert.Equal(t, uint64(298), NUNIQ(3, 42))
	assert.Equal(t, 0, Order(3))
	assert.Equal(t, uint64(0), Position(3))
}

func TestOrder_Boundaries(t *testing.T) {
	// Every key in [4^(o+1), 4^(o+2)) has order o, including the upper half
	// of each range where the bit length is odd.
	tests := []struct {
		key   uint64
		order int
	}{
		{4, 0}, {7, 0}, {8, 0}, {15, 0},
		{16, 1}, {32, 1}, {63, 1},
		{64, 2}, {128, 2}, {255, 2},
		{256, 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.order, Order(tt.key), "order of %d", tt.key)
		assert.Equal(t, tt.key, NUNIQ(Order(tt.key), Position(tt.key)))
	}
}

func TestTileName(t *testing.T) {
	assert.Equal(t, "Norder6/Dir10000/Npix12345.eph", TileName(NUNIQ(6, 12345)))
	assert.Equal(t, "Norder0/Dir0/Npix7.eph", TileName(NUNIQ(0, 7)))
}

func TestProfiles(t *testing.T) {
	p, ok := lookupProfile(DefaultProfiles(), "STRS")
	assert.True(t, ok)
	assert.Equal(t, "star", p.Name)

	p, ok = lookupProfile(DefaultProfiles(), "DSO ")
	assert.True(t, ok)
	assert.Contains(t, p.Angular, "smax")
	assert.NotContains(t, StarProfile().Angular, "smax")

	_, ok = lookupProfile(DefaultProfiles(), "DSO")
	assert.False(t, ok)

	p, ok = ProfileByName("dso")
	assert.True(t, ok)
	assert.True(t, p.Matches("DSO "))
}
