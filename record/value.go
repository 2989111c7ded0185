package record

import (
	"github.com/vkvdb/vkv/heap"
	"github.com/vkvdb/vkv/internal/buf"
)

// ValueFlag bits track a value record's lifecycle within its version
// chain.
type ValueFlag uint8

const (
	// ValueDeletion marks this version as a clear rather than a set: the
	// payload is empty and reads observing this version see the key as
	// absent.
	ValueDeletion ValueFlag = 1 << iota
	// ValueMutated marks this version as produced by an atomic mutation
	// rather than a plain set, retained for diagnostics only; the stored
	// payload is already the resolved post-mutation value.
	ValueMutated
	// ValueMoved is a reserved bit; no code path sets it. The collector
	// copies survivors into a scratch page without flagging the source.
	ValueMoved
	// ValueDisposed is a reserved bit; no code path sets it. A reclaimed
	// version is dropped from its page rather than flagged.
	ValueDisposed
)

// ValueHeaderSize is the fixed, 8-byte-aligned width of a value
// record's header, before the inline payload bytes.
//
//	offset 0   flags      (1 byte, 3 bytes padding)
//	offset 4   size       (4 bytes)
//	offset 8   sequence   (8 bytes)
//	offset 16  prev       (16 bytes, heap.Ref)
//	offset 32  parent     (16 bytes, heap.Ref)
const ValueHeaderSize = 48

const (
	valueFlagsOff = 0
	valueSizeOff  = 4
	valueSeqOff   = 8
	valuePrevOff  = 16
	valueParentOff = 32
	valuePayloadOff = ValueHeaderSize
)

// Value is a decoded view over a value record's header fields. Payload
// aliases the owning page's buffer.
type Value struct {
	Flags    ValueFlag
	Size     uint32
	Sequence uint64
	Prev     heap.Ref // older Value in this key's chain, or heap.Zero at the tail
	Parent   heap.Ref // owning Key record for the chain head, else the next-newer Value
	Payload  []byte
}

// ValueSize returns the total record size (header + payload) that must
// be requested from the value heap to hold a value of the given length.
func ValueSize(payloadLen int) int32 {
	return int32(ValueHeaderSize + payloadLen)
}

// EncodeValue writes v's header and payload into region, which must be
// at least ValueSize(len(v.Payload)) bytes.
func EncodeValue(region []byte, v Value) {
	buf.PutU8(region[valueFlagsOff:], uint8(v.Flags))
	buf.PutU32LE(region[valueSizeOff:], v.Size)
	buf.PutU64LE(region[valueSeqOff:], v.Sequence)
	heap.Encode(region[valuePrevOff:valuePrevOff+heap.RefSize], v.Prev)
	heap.Encode(region[valueParentOff:valueParentOff+heap.RefSize], v.Parent)
	copy(region[valuePayloadOff:], v.Payload)
}

// DecodeValue reads a Value's header and payload out of region.
func DecodeValue(region []byte) Value {
	size := buf.U32LE(region[valueSizeOff:])
	end := valuePayloadOff + int(size)
	return Value{
		Flags:    ValueFlag(buf.U8(region[valueFlagsOff:])),
		Size:     size,
		Sequence: buf.U64LE(region[valueSeqOff:]),
		Prev:     heap.Decode(region[valuePrevOff : valuePrevOff+heap.RefSize]),
		Parent:   heap.Decode(region[valueParentOff : valueParentOff+heap.RefSize]),
		Payload:  region[valuePayloadOff:end:end],
	}
}

// SetValueFlags overwrites just the flags byte of an already-encoded
// value record in place.
func SetValueFlags(region []byte, flags ValueFlag) {
	buf.PutU8(region[valueFlagsOff:], uint8(flags))
}

// SetPrev overwrites just the prev back-pointer of an already-encoded
// value record in place. Used by the collector when it rewrites a chain
// link after swapping the page the referenced version lived in.
func SetPrev(region []byte, ref heap.Ref) {
	heap.Encode(region[valuePrevOff:valuePrevOff+heap.RefSize], ref)
}

// SetParent overwrites just the parent back-pointer of an
// already-encoded value record in place. Set when a newer version is
// prepended ahead of this one (spec.md §4.E's write()) and rewritten by
// the collector when the referencing record relocates.
func SetParent(region []byte, ref heap.Ref) {
	heap.Encode(region[valueParentOff:valueParentOff+heap.RefSize], ref)
}
