// Package version implements reads against a key's version chain and
// the arithmetic for atomic mutations (spec.md §4.E).
//
// Grounded on hivekit's hive/walker package for the chain-walk shape
// (a step function applied until a stopping condition is met, rather
// than building an intermediate slice) and on internal/buf/endian.go's
// little-endian helpers, generalized here from fixed 16/32/64-bit reads
// to variable-length byte strings since ADD/AND/OR/XOR operands are
// client-supplied byte slices of arbitrary length.
package version

import (
	"github.com/vkvdb/vkv/heap"
	"github.com/vkvdb/vkv/record"
)

// Resolver loads a value record's bytes given a ref into the value
// heap, so ReadAt can walk the chain without depending on a concrete
// heap.Heap (letting engine tests substitute a fake).
type Resolver interface {
	Resolve(ref heap.Ref) ([]byte, error)
}

// ReadAt walks the chain starting at head, following Prev, until it
// finds a version with Sequence <= seq. It returns the decoded payload
// and true if that version is a live set; ok is false if the key is
// absent at seq, either because the first version found is a deletion
// or because the chain holds no version old enough.
func ReadAt(r Resolver, head heap.Ref, seq uint64) (payload []byte, ok bool, err error) {
	ref := head
	for ref.Valid() {
		region, rerr := r.Resolve(ref)
		if rerr != nil {
			return nil, false, rerr
		}
		v := record.DecodeValue(region)
		if v.Sequence <= seq {
			if v.Flags&record.ValueDeletion != 0 {
				return nil, false, nil
			}
			return v.Payload, true, nil
		}
		ref = v.Prev
	}
	return nil, false, nil
}

// Op identifies an atomic mutation kind (spec.md §4.E/§6).
type Op uint8

const (
	Add Op = iota
	And
	Or
	Xor
)

// Apply computes the result of applying op with operand to the
// existing little-endian byte string old (absent as an empty slice
// when the key has no current value). The shorter operand is
// right-zero-extended to the length of the longer one before the
// bitwise or arithmetic combination, per spec.md §4.E.
func Apply(op Op, old, operand []byte) []byte {
	switch op {
	case Add:
		return addLE(old, operand)
	case And:
		return combine(old, operand, func(a, b byte) byte { return a & b })
	case Or:
		return combine(old, operand, func(a, b byte) byte { return a | b })
	case Xor:
		return combine(old, operand, func(a, b byte) byte { return a ^ b })
	default:
		return append([]byte(nil), operand...)
	}
}

// addLE performs little-endian, right-zero-extended addition with
// wraparound at the width of the longer operand, matching an unsigned
// fixed-width integer ADD.
func addLE(a, b []byte) []byte {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	out := make([]byte, n)
	var carry uint16
	for i := 0; i < n; i++ {
		var av, bv byte
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		sum := uint16(av) + uint16(bv) + carry
		out[i] = byte(sum)
		carry = sum >> 8
	}
	return out
}

func combine(a, b []byte, f func(a, b byte) byte) []byte {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		var av, bv byte
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		out[i] = f(av, bv)
	}
	return out
}
