// Package index maintains the ordered mapping from key bytes to the
// key record holding that key's version chain. It is the engine's only
// structure that orders keys; the heap packages are unordered arenas
// addressed solely by heap.Ref.
//
// Grounded on hivekit's hive/index package for the ReadOnlyIndex/Index
// interface split (read path vs. build/edit path) and its Stats
// reporting shape. The backing data structure differs: hivekit indexes
// fixed Windows Registry name tuples with a custom hash map, while this
// index must support ordered range scans, so it is built on
// github.com/google/btree's generic BTreeG instead, the ordered-map
// dependency found throughout the rest of the example pack's storage
// engines.
package index

import (
	"sync"

	"github.com/google/btree"

	"github.com/vkvdb/vkv/heap"
	"github.com/vkvdb/vkv/slice"
)

const btreeDegree = 32

type entry struct {
	key slice.Slice
	ref heap.Ref
}

func less(a, b entry) bool { return a.key.Less(b.key) }

// ReadOnlyIndex is the query-only view of the ordered key index, used
// by transaction reads which must never mutate shared structure.
type ReadOnlyIndex interface {
	// Get returns the key record ref for an exact key match.
	Get(key slice.Slice) (heap.Ref, bool)
	// FirstGE returns the first entry with key >= k.
	FirstGE(k slice.Slice) (slice.Slice, heap.Ref, bool)
	// FirstGT returns the first entry with key > k.
	FirstGT(k slice.Slice) (slice.Slice, heap.Ref, bool)
	// LastLT returns the last entry with key < k.
	LastLT(k slice.Slice) (slice.Slice, heap.Ref, bool)
	// LastLE returns the last entry with key <= k.
	LastLE(k slice.Slice) (slice.Slice, heap.Ref, bool)
	// Range calls fn for every entry with begin <= key < end, in
	// ascending order, stopping early if fn returns false.
	Range(begin, end slice.Slice, fn func(key slice.Slice, ref heap.Ref) bool)
	// Stats reports index metrics.
	Stats() Stats
}

// Index is the full mutable interface, used by the commit pipeline and
// the collector while holding the engine's single writer lock.
type Index interface {
	ReadOnlyIndex
	Insert(key slice.Slice, ref heap.Ref)
	Remove(key slice.Slice)
}

// Stats reports index metrics, mirrored from hivekit's index.Stats
// shape.
type Stats struct {
	KeyCount int
	Impl     string
}

// BTreeIndex is the engine's Index implementation.
type BTreeIndex struct {
	mu   sync.RWMutex
	tree *btree.BTreeG[entry]
}

// New creates an empty index.
func New() *BTreeIndex {
	return &BTreeIndex{tree: btree.NewG(btreeDegree, less)}
}

func (idx *BTreeIndex) Get(key slice.Slice) (heap.Ref, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	e, ok := idx.tree.Get(entry{key: key})
	if !ok {
		return heap.Ref{}, false
	}
	return e.ref, true
}

func (idx *BTreeIndex) FirstGE(k slice.Slice) (slice.Slice, heap.Ref, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	var found entry
	ok := false
	idx.tree.AscendGreaterOrEqual(entry{key: k}, func(e entry) bool {
		found, ok = e, true
		return false
	})
	if !ok {
		return slice.Nil, heap.Ref{}, false
	}
	return found.key, found.ref, true
}

func (idx *BTreeIndex) FirstGT(k slice.Slice) (slice.Slice, heap.Ref, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	var found entry
	ok := false
	idx.tree.AscendGreaterOrEqual(entry{key: k}, func(e entry) bool {
		if e.key.Equal(k) {
			return true
		}
		found, ok = e, true
		return false
	})
	if !ok {
		return slice.Nil, heap.Ref{}, false
	}
	return found.key, found.ref, true
}

func (idx *BTreeIndex) LastLT(k slice.Slice) (slice.Slice, heap.Ref, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	var found entry
	ok := false
	idx.tree.DescendLessOrEqual(entry{key: k}, func(e entry) bool {
		if e.key.Equal(k) {
			return true
		}
		found, ok = e, true
		return false
	})
	if !ok {
		return slice.Nil, heap.Ref{}, false
	}
	return found.key, found.ref, true
}

func (idx *BTreeIndex) LastLE(k slice.Slice) (slice.Slice, heap.Ref, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	var found entry
	ok := false
	idx.tree.DescendLessOrEqual(entry{key: k}, func(e entry) bool {
		found, ok = e, true
		return false
	})
	if !ok {
		return slice.Nil, heap.Ref{}, false
	}
	return found.key, found.ref, true
}

func (idx *BTreeIndex) Range(begin, end slice.Slice, fn func(key slice.Slice, ref heap.Ref) bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	pivot := entry{key: begin}
	idx.tree.AscendGreaterOrEqual(pivot, func(e entry) bool {
		if !end.IsNil() && !e.key.Less(end) {
			return false
		}
		return fn(e.key, e.ref)
	})
}

func (idx *BTreeIndex) Insert(key slice.Slice, ref heap.Ref) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.tree.ReplaceOrInsert(entry{key: key, ref: ref})
}

func (idx *BTreeIndex) Remove(key slice.Slice) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.tree.Delete(entry{key: key})
}

func (idx *BTreeIndex) Stats() Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return Stats{KeyCount: idx.tree.Len(), Impl: "btree"}
}
