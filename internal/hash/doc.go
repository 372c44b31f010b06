// Package hash computes the CRC32-Castagnoli checksums that trail every
// container chunk and accompany uploads to object stores.
//
//	sum := hash.CRC32C(payload)
//
//	h := hash.NewCRC32C()
//	h.Write(header)
//	h.Write(body)
//	sum = h.Sum32()
package hash
