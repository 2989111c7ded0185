// Package slice implements the engine's byte-string abstraction: an
// owned-or-borrowed contiguous byte view with unsigned lexicographic
// ordering, distinguishing a nil (absent) slice from an empty (present,
// zero-length) one.
package slice

import "bytes"

// Slice is a pair (bytes, owned). A Slice with data == nil is "nil"
// (absent); a Slice with data != nil and len(data) == 0 is "empty"
// (present, zero length). Callers that need to retain a Slice beyond the
// lifetime of the buffer it was built from should call Clone.
type Slice struct {
	data  []byte
	owned bool
}

// Of wraps b without copying. The caller must not mutate b afterwards
// unless it first calls Clone.
func Of(b []byte) Slice {
	return Slice{data: b}
}

// Nil is the absent slice.
var Nil = Slice{}

// Empty is the present, zero-length slice.
var Empty = Slice{data: []byte{}}

// IsNil reports whether s is absent.
func (s Slice) IsNil() bool { return s.data == nil }

// Len returns the number of bytes in s.
func (s Slice) Len() int { return len(s.data) }

// Bytes returns the underlying bytes. Callers must not mutate the
// returned slice.
func (s Slice) Bytes() []byte { return s.data }

// Clone returns a Slice backed by a private copy of the bytes, safe to
// retain past the lifetime of the source buffer.
func (s Slice) Clone() Slice {
	if s.data == nil {
		return Nil
	}
	cp := make([]byte, len(s.data))
	copy(cp, s.data)
	return Slice{data: cp, owned: true}
}

// Owned reports whether s holds a private copy of its bytes.
func (s Slice) Owned() bool { return s.owned }

// Compare returns -1, 0, or 1 according to unsigned lexicographic order,
// matching bytes.Compare.
func (s Slice) Compare(o Slice) int {
	return bytes.Compare(s.data, o.data)
}

// Equal reports byte-wise equality. Nil and empty slices are not equal
// to each other.
func (s Slice) Equal(o Slice) bool {
	if s.IsNil() != o.IsNil() {
		return false
	}
	return bytes.Equal(s.data, o.data)
}

// Less reports whether s sorts strictly before o.
func (s Slice) Less(o Slice) bool { return s.Compare(o) < 0 }

// HasPrefix reports whether s begins with prefix.
func (s Slice) HasPrefix(prefix Slice) bool {
	return bytes.HasPrefix(s.data, prefix.data)
}

// String returns the bytes reinterpreted as a string, for diagnostics.
func (s Slice) String() string { return string(s.data) }

// AddOverflowSafe adds a and b, reporting ok = false when the result
// would overflow int. The engine's own bounds checks use the
// equivalent helper in internal/buf.
func AddOverflowSafe(a, b int) (sum int, ok bool) {
	if b > 0 && a > maxInt-b {
		return 0, false
	}
	if b < 0 && a < minInt-b {
		return 0, false
	}
	return a + b, true
}

const maxInt = int(^uint(0) >> 1)
const minInt = -maxInt - 1
