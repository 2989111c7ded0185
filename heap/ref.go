package heap

import "github.com/vkvdb/vkv/internal/buf"

// Kind discriminates which heap a Ref points into, since a Value's
// parent back-pointer (spec §3) may reference either a Key record (the
// key heap) or an older Value record (the value heap).
type Kind uint8

const (
	// KindNone is the zero value: an absent reference.
	KindNone Kind = iota
	// KindKey references a record in a key heap.
	KindKey
	// KindValue references a record in a value heap.
	KindValue
)

// RefSize is the encoded, 8-byte-aligned width of a Ref inside a record
// header.
const RefSize = 16

// Ref is an opaque, offset-based reference to a record inside a Heap:
// (bucket, page, byte offset within the page). Pages are bump-allocated
// arenas, so a Ref is only valid until the collector swaps the page it
// points into (see Heap.Swap); callers that retain a Ref across a
// collection pass must have it rewritten via the record's one
// back-pointer, exactly as spec §4.H describes.
type Ref struct {
	Kind   Kind
	Bucket uint8
	Page   uint32 // 1-based index into the owning bucket's page list; 0 = none
	Offset uint32 // byte offset of the record header within the page
}

// Valid reports whether r refers to an actual record.
func (r Ref) Valid() bool { return r.Kind != KindNone && r.Page != 0 }

// Zero is the absent reference.
var Zero = Ref{}

// Encode writes r into dst[:RefSize].
func Encode(dst []byte, r Ref) {
	buf.PutU8(dst[0:1], uint8(r.Kind))
	buf.PutU8(dst[1:2], r.Bucket)
	buf.PutU32LE(dst[4:8], r.Page)
	buf.PutU32LE(dst[8:12], r.Offset)
}

// Decode reads a Ref from src[:RefSize].
func Decode(src []byte) Ref {
	return Ref{
		Kind:   Kind(buf.U8(src[0:1])),
		Bucket: buf.U8(src[1:2]),
		Page:   buf.U32LE(src[4:8]),
		Offset: buf.U32LE(src[8:12]),
	}
}
