package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCRC32C(t *testing.T) {
	// Check value for the Castagnoli polynomial.
	assert.Equal(t, uint32(0xe3069283), CRC32C([]byte("123456789")))
	assert.Equal(t, uint32(0), CRC32C(nil))
}

func TestCRC32C_Streaming(t *testing.T) {
	data := []byte("EPHE\x01\x00\x00\x00STAR")

	h := NewCRC32C()
	_, _ = h.Write(data[:5])
	_, _ = h.Write(data[5:])
	assert.Equal(t, CRC32C(data), h.Sum32())

	assert.Equal(t, CRC32C(data), UpdateCRC32C(CRC32C(data[:3]), data[3:]))
}

func TestCRC32CBase64(t *testing.T) {
	// 0xe3069283 big-endian.
	assert.Equal(t, "4waSgw==", CRC32CBase64([]byte("123456789")))
}
