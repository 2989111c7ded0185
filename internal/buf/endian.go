// Package buf contains small helpers for endian-safe decoding and bounds
// checking, shared by the record and heap packages that otherwise would
// each hand-roll offset arithmetic over raw page buffers.
package buf

import "encoding/binary"

// U8 reads a single byte from b. Returns 0 when b is empty.
func U8(b []byte) uint8 {
	if len(b) < 1 {
		return 0
	}
	return b[0]
}

// PutU8 writes v as a single byte into b.
func PutU8(b []byte, v uint8) {
	if len(b) < 1 {
		return
	}
	b[0] = v
}

// U32LE reads a little-endian uint32 from b. Returns 0 when b is too short.
func U32LE(b []byte) uint32 {
	if len(b) < 4 {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

// PutU32LE writes v as a little-endian uint32 into b.
func PutU32LE(b []byte, v uint32) {
	if len(b) < 4 {
		return
	}
	binary.LittleEndian.PutUint32(b, v)
}

// U64LE reads a little-endian uint64 from b. Returns 0 when b is too short.
func U64LE(b []byte) uint64 {
	if len(b) < 8 {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

// PutU64LE writes v as a little-endian uint64 into b.
func PutU64LE(b []byte, v uint64) {
	if len(b) < 8 {
		return
	}
	binary.LittleEndian.PutUint64(b, v)
}

// Align8 returns n rounded up to the next 8-byte boundary.
//
//	Align8(1) = 8
//	Align8(8) = 8
//	Align8(9) = 16
func Align8(n int) int {
	return (n + 7) &^ 7
}
