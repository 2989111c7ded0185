// Package verify provides invariant checks for a live engine. These
// helpers are used in tests to assert the version-chain and index
// structure spec.md describes never drifts out of shape.
//
// Grounded on hivekit's hive/verify package: one ValidationError type
// carrying a check name plus a human message and optional structured
// details, an AllInvariants dispatcher running each check in sequence
// and returning the first failure, and iterative loops in place of
// recursion for the chain walks.
package verify

import (
	"fmt"

	"github.com/vkvdb/vkv/engine"
	"github.com/vkvdb/vkv/heap"
	"github.com/vkvdb/vkv/record"
	"github.com/vkvdb/vkv/slice"
)

// ValidationError reports one failed invariant.
type ValidationError struct {
	Check   string
	Message string
	Key     []byte
	Details map[string]interface{}
}

func (e *ValidationError) Error() string {
	if len(e.Key) > 0 {
		return fmt.Sprintf("%s on key %q: %s", e.Check, e.Key, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Check, e.Message)
}

// AllInvariants runs every check below against eng in sequence,
// returning the first failure, or nil if every live key passes all of
// them. Callers must hold at least a read lock on eng for the duration
// (tests typically call this between commits, with no concurrent
// writer or collector pass running).
func AllInvariants(eng *engine.Engine) error {
	if err := IndexOrdering(eng); err != nil {
		return err
	}
	if err := KeyHeadValueIntegrity(eng); err != nil {
		return err
	}
	if err := VersionChainMonotonic(eng); err != nil {
		return err
	}
	if err := ParentBackPointers(eng); err != nil {
		return err
	}
	if err := NoDisposedReachable(eng); err != nil {
		return err
	}
	return nil
}

// IndexOrdering walks the index and confirms keys are strictly
// increasing, the one invariant the btree itself is supposed to
// guarantee structurally; checking it here catches a corrupted
// comparator rather than a bug in this package.
func IndexOrdering(eng *engine.Engine) error {
	var prev slice.Slice
	first := true
	var failure error
	eng.Index().Range(slice.Nil, slice.Nil, func(key slice.Slice, _ heap.Ref) bool {
		if !first && !prev.Less(key) {
			failure = &ValidationError{
				Check:   "IndexOrdering",
				Message: "index keys are not strictly increasing",
				Key:     key.Bytes(),
			}
			return false
		}
		prev = key
		first = false
		return true
	})
	return failure
}

// KeyHeadValueIntegrity checks that every key reachable from the index
// resolves to a key record that is not disposed and whose head_value is
// set and resolves to a value record that is not disposed; ownership
// of that record is checked by ParentBackPointers (spec.md §3: "K.head_value
// references the most recently committed V in K's chain").
func KeyHeadValueIntegrity(eng *engine.Engine) error {
	var failure error
	eng.Index().Range(slice.Nil, slice.Nil, func(key slice.Slice, ref heap.Ref) bool {
		region, err := eng.KeyHeap().Resolve(ref)
		if err != nil {
			failure = &ValidationError{
				Check: "KeyHeadValueIntegrity", Key: key.Bytes(),
				Message: fmt.Sprintf("index ref does not resolve: %v", err),
			}
			return false
		}
		k := record.Decode(region)
		if k.Flags&record.KeyDisposed != 0 {
			failure = &ValidationError{
				Check: "KeyHeadValueIntegrity", Key: key.Bytes(),
				Message: "index still references a disposed key record",
			}
			return false
		}
		if !k.HeadValue.Valid() {
			failure = &ValidationError{
				Check: "KeyHeadValueIntegrity", Key: key.Bytes(),
				Message: "live key has no head_value",
			}
			return false
		}
		vregion, err := eng.ValueHeap().Resolve(k.HeadValue)
		if err != nil {
			failure = &ValidationError{
				Check: "KeyHeadValueIntegrity", Key: key.Bytes(),
				Message: fmt.Sprintf("head_value does not resolve: %v", err),
			}
			return false
		}
		v := record.DecodeValue(vregion)
		if v.Flags&record.ValueDisposed != 0 {
			failure = &ValidationError{
				Check: "KeyHeadValueIntegrity", Key: key.Bytes(),
				Message: "head_value points at a disposed value record",
			}
			return false
		}
		return true
	})
	return failure
}

// VersionChainMonotonic walks each key's version chain from head_value
// through prev and checks sequence numbers strictly decrease, per
// spec.md §3's "V.sequence strictly decreases walking prev".
func VersionChainMonotonic(eng *engine.Engine) error {
	var failure error
	eng.Index().Range(slice.Nil, slice.Nil, func(key slice.Slice, ref heap.Ref) bool {
		region, err := eng.KeyHeap().Resolve(ref)
		if err != nil {
			return true // reported by KeyHeadValueIntegrity
		}
		k := record.Decode(region)
		if !k.HeadValue.Valid() {
			return true
		}

		cur := k.HeadValue
		var lastSeq uint64
		first := true
		seen := 0
		for cur.Valid() {
			seen++
			if seen > maxChainWalk {
				failure = &ValidationError{
					Check: "VersionChainMonotonic", Key: key.Bytes(),
					Message: "version chain exceeds walk limit, likely cyclic",
				}
				return false
			}
			vregion, err := eng.ValueHeap().Resolve(cur)
			if err != nil {
				failure = &ValidationError{
					Check: "VersionChainMonotonic", Key: key.Bytes(),
					Message: fmt.Sprintf("prev ref does not resolve: %v", err),
				}
				return false
			}
			v := record.DecodeValue(vregion)
			if !first && v.Sequence >= lastSeq {
				failure = &ValidationError{
					Check: "VersionChainMonotonic", Key: key.Bytes(),
					Message: fmt.Sprintf("sequence did not strictly decrease: %d then %d", lastSeq, v.Sequence),
				}
				return false
			}
			lastSeq = v.Sequence
			first = false
			cur = v.Prev
		}
		return true
	})
	return failure
}

// maxChainWalk bounds the chain walk so a corrupted prev cycle fails
// fast with a diagnosable error instead of looping forever.
const maxChainWalk = 1_000_000

// ParentBackPointers checks that every non-head value's parent points
// at the value that superseded it, and every head value's parent
// points back at its owning key, per spec.md §4.E's write() update.
func ParentBackPointers(eng *engine.Engine) error {
	var failure error
	eng.Index().Range(slice.Nil, slice.Nil, func(key slice.Slice, ref heap.Ref) bool {
		region, err := eng.KeyHeap().Resolve(ref)
		if err != nil {
			return true
		}
		k := record.Decode(region)
		if !k.HeadValue.Valid() {
			return true
		}

		headRegion, err := eng.ValueHeap().Resolve(k.HeadValue)
		if err != nil {
			return true
		}
		head := record.DecodeValue(headRegion)
		if head.Parent != ref {
			failure = &ValidationError{
				Check: "ParentBackPointers", Key: key.Bytes(),
				Message: "head value's parent does not point back at its owning key",
			}
			return false
		}

		cur := head.Prev
		child := k.HeadValue
		for cur.Valid() {
			vregion, err := eng.ValueHeap().Resolve(cur)
			if err != nil {
				return true
			}
			v := record.DecodeValue(vregion)
			if v.Parent != child {
				failure = &ValidationError{
					Check: "ParentBackPointers", Key: key.Bytes(),
					Message: "superseded value's parent does not point at the version that replaced it",
				}
				return false
			}
			child = cur
			cur = v.Prev
		}
		return true
	})
	return failure
}

// NoDisposedReachable checks that no value record reachable from a
// live key's chain carries the Disposed flag: the collector must never
// leave a dangling reference to storage it has reclaimed.
func NoDisposedReachable(eng *engine.Engine) error {
	var failure error
	eng.Index().Range(slice.Nil, slice.Nil, func(key slice.Slice, ref heap.Ref) bool {
		region, err := eng.KeyHeap().Resolve(ref)
		if err != nil {
			return true
		}
		k := record.Decode(region)
		cur := k.HeadValue
		for cur.Valid() {
			vregion, err := eng.ValueHeap().Resolve(cur)
			if err != nil {
				failure = &ValidationError{
					Check: "NoDisposedReachable", Key: key.Bytes(),
					Message: fmt.Sprintf("chain ref does not resolve: %v", err),
				}
				return false
			}
			v := record.DecodeValue(vregion)
			if v.Flags&record.ValueDisposed != 0 {
				failure = &ValidationError{
					Check: "NoDisposedReachable", Key: key.Bytes(),
					Message: "live chain still reaches a disposed value record",
				}
				return false
			}
			cur = v.Prev
		}
		return true
	})
	return failure
}
