// Package record defines the on-heap wire layout of key records and
// value records: fixed-width headers packed into shared []byte page
// arenas (heap.Page), with inline variable-length payloads following
// the header, and cross-record links expressed as heap.Ref offsets
// rather than Go pointers (spec §3, §4.C).
//
// Grounded on hivekit's internal/format.Cell layout and the thin
// subkeys.Entry/values.List wrappers hivekit builds on top of it: a
// small fixed header decoded with internal/buf's endian helpers,
// followed by a payload slice aliasing the page's backing array.
package record

import (
	"github.com/vkvdb/vkv/heap"
	"github.com/vkvdb/vkv/internal/buf"
)

// KeyFlag bits track a key record's lifecycle. They and head_value are
// the only parts of a key header mutated in place after the record is
// written; every other field is set once at allocation time.
type KeyFlag uint8

const (
	// KeyNew marks a key record allocated by the commit that first wrote
	// the key. It is never cleared.
	KeyNew KeyFlag = 1 << iota
	// KeyMutated marks a key whose head_value has been updated by at
	// least one commit since it was created.
	KeyMutated
	// KeyHasWatch is a reserved bit; no code path sets it. Watches are
	// tracked by the engine outside the record.
	KeyHasWatch
	// KeyUnreachable is set by the collector's mark pass when the key's
	// whole version chain is reclaimable at the read horizon, and
	// cleared again by a later pass if the key has been written since.
	KeyUnreachable
	// KeyDisposed is a reserved bit; no code path sets it. A reclaimed
	// key record is dropped from its page rather than flagged.
	KeyDisposed
)

// KeyHeaderSize is the fixed, 8-byte-aligned width of a key record's
// header, before the inline key bytes.
//
//	offset 0   flags      (1 byte, 3 bytes padding)
//	offset 4   keyLen     (4 bytes)
//	offset 8   headValue  (16 bytes, heap.Ref)
//	offset 24  (8 bytes padding, reserved)
const KeyHeaderSize = 32

const (
	keyFlagsOff  = 0
	keyLenOff    = 4
	keyHeadOff   = 8
	keyPayloadOff = KeyHeaderSize
)

// Key is a decoded view over a key record's header fields. Payload
// holds the record's key bytes, aliasing the owning page's buffer.
type Key struct {
	Flags     KeyFlag
	KeyLen    uint32
	HeadValue heap.Ref // most recently committed Value in this key's chain
	Payload   []byte   // key bytes, length KeyLen
}

// Size returns the total record size (header + key bytes) that must be
// requested from the key heap to hold a key of the given length.
func Size(keyLen int) int32 {
	return int32(KeyHeaderSize + keyLen)
}

// Encode writes k's header and key bytes into region, which must be at
// least Size(len(k.Payload)) bytes (as returned by heap.Append).
func Encode(region []byte, k Key) {
	buf.PutU8(region[keyFlagsOff:], uint8(k.Flags))
	buf.PutU32LE(region[keyLenOff:], k.KeyLen)
	heap.Encode(region[keyHeadOff:keyHeadOff+heap.RefSize], k.HeadValue)
	copy(region[keyPayloadOff:], k.Payload)
}

// Decode reads a Key's header and key bytes out of region. Payload
// aliases region and must not be retained past the owning page's next
// Swap.
func Decode(region []byte) Key {
	keyLen := buf.U32LE(region[keyLenOff:])
	end := keyPayloadOff + int(keyLen)
	return Key{
		Flags:     KeyFlag(buf.U8(region[keyFlagsOff:])),
		KeyLen:    keyLen,
		HeadValue: heap.Decode(region[keyHeadOff : keyHeadOff+heap.RefSize]),
		Payload:   region[keyPayloadOff:end:end],
	}
}

// SetFlags overwrites just the flags byte of an already-encoded key
// record in place, without touching the rest of the header or payload.
func SetFlags(region []byte, flags KeyFlag) {
	buf.PutU8(region[keyFlagsOff:], uint8(flags))
}

// SetHeadValue overwrites just the head-value back-pointer of an
// already-encoded key record in place. Used both when a new version is
// committed (pointing the chain at the new head) and by the collector
// when it rewrites a pointer after swapping the value heap's pages.
func SetHeadValue(region []byte, ref heap.Ref) {
	heap.Encode(region[keyHeadOff:keyHeadOff+heap.RefSize], ref)
}
