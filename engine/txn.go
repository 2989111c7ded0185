package engine

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/vkvdb/vkv/heap"
	"github.com/vkvdb/vkv/record"
	"github.com/vkvdb/vkv/slice"
	"github.com/vkvdb/vkv/version"
	"github.com/vkvdb/vkv/vkverr"
	"github.com/vkvdb/vkv/window"
)

// MaxKeySize and MaxValueSize are the size invariants from spec.md §3.
const (
	MaxKeySize   = 10_000
	MaxValueSize = 100_000
)

// OpKind identifies the operation a staged write performs.
type OpKind uint8

const (
	OpSet OpKind = iota
	OpClear
	OpAtomicAdd
	OpAtomicAnd
	OpAtomicOr
	OpAtomicXor
)

func (k OpKind) versionOp() version.Op {
	switch k {
	case OpAtomicAnd:
		return version.And
	case OpAtomicOr:
		return version.Or
	case OpAtomicXor:
		return version.Xor
	default:
		return version.Add
	}
}

type write struct {
	key   []byte
	kind  OpKind
	value []byte
}

// Mode selects how get_range materializes its results (spec.md §6).
type Mode uint8

const (
	WantAll Mode = iota
	Iterator
	Exact
)

// Pair is one (key, value) result from a range scan.
type Pair struct {
	Key   []byte
	Value []byte
}

var idGen atomic.Uint64

// Txn is a single transaction handle. It stages writes locally; its
// reads register its read version as a live reader and consult the
// index under the engine's read lock, and Commit applies the staged
// writes under the engine's write lock.
type Txn struct {
	eng *Engine
	id  uint64

	mu          sync.Mutex
	readSeq     uint64
	haveReadSeq bool
	cancelled   bool
	done        bool

	reads       []window.Range
	writeRanges []window.Range
	writes      []write
}

// BeginTransaction creates a new transaction handle against e.
func (e *Engine) BeginTransaction() *Txn {
	return &Txn{eng: e, id: idGen.Add(1)}
}

// GetReadVersion fixes the transaction's snapshot version to the
// engine's most recently published commit sequence, if not already
// fixed, and registers it as a live reader for horizon computation.
func (t *Txn) GetReadVersion() (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelled {
		return 0, vkverr.TransactionCancelled
	}
	if !t.haveReadSeq {
		t.readSeq = t.eng.LastCommitSeq()
		t.haveReadSeq = true
		t.eng.acquireReadSeq(t.readSeq)
	}
	return t.readSeq, nil
}

// SetReadVersion pins the transaction's snapshot version explicitly,
// overriding whatever GetReadVersion would otherwise choose. Must be
// called before any read fixes a version on its own.
func (t *Txn) SetReadVersion(seq uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelled {
		return vkverr.TransactionCancelled
	}
	if t.haveReadSeq {
		t.eng.releaseReadSeq(t.readSeq)
	}
	t.readSeq = seq
	t.haveReadSeq = true
	t.eng.acquireReadSeq(seq)
	return nil
}

func (t *Txn) ensureReadSeqLocked() (uint64, error) {
	if !t.haveReadSeq {
		t.readSeq = t.eng.LastCommitSeq()
		t.haveReadSeq = true
		t.eng.acquireReadSeq(t.readSeq)
	}
	return t.readSeq, nil
}

// Get returns the value for key at the transaction's read version, or
// ok=false if absent. Non-snapshot reads add a read-conflict range for
// key.
func (t *Txn) Get(key []byte, snapshot bool) ([]byte, bool, error) {
	t.mu.Lock()
	if t.cancelled {
		t.mu.Unlock()
		return nil, false, vkverr.TransactionCancelled
	}
	seq, _ := t.ensureReadSeqLocked()
	if !snapshot {
		t.reads = append(t.reads, pointRange(key))
	}
	t.mu.Unlock()

	return t.eng.readAt(key, seq)
}

// Selector resolves an ordinal position in the index: the boundary
// seek named by RefKey/OrEqual, then Offset positions forward
// (positive) or backward (negative) from it (spec.md §6).
type Selector struct {
	RefKey  []byte
	OrEqual bool
	Offset  int
}

// resolveSelector walks the index to the key named by sel. ok is false
// if the walk runs off either end of the keyspace.
func (e *Engine) resolveSelector(sel Selector) (slice.Slice, heap.Ref, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var key slice.Slice
	var ref heap.Ref
	var ok bool
	if sel.OrEqual {
		key, ref, ok = e.idx.FirstGE(slice.Of(sel.RefKey))
	} else {
		key, ref, ok = e.idx.FirstGT(slice.Of(sel.RefKey))
	}

	offset := sel.Offset
	for ok && offset > 0 {
		key, ref, ok = e.idx.FirstGT(key)
		offset--
	}
	for ok && offset < 0 {
		key, ref, ok = e.idx.LastLT(key)
		offset++
	}
	if !ok || offset != 0 {
		return slice.Nil, heap.Ref{}, false
	}
	return key, ref, true
}

// GetKey resolves selector and returns the matching key's current
// value at the transaction's read version (spec.md §6).
func (t *Txn) GetKey(selector Selector, snapshot bool) ([]byte, bool, error) {
	t.mu.Lock()
	if t.cancelled {
		t.mu.Unlock()
		return nil, false, vkverr.TransactionCancelled
	}
	seq, _ := t.ensureReadSeqLocked()
	t.mu.Unlock()

	key, _, ok := t.eng.resolveSelector(selector)
	if !ok {
		return nil, false, nil
	}
	if !snapshot {
		t.mu.Lock()
		t.reads = append(t.reads, pointRange(key.Bytes()))
		t.mu.Unlock()
	}
	return t.eng.readAt(key.Bytes(), seq)
}

// GetRange resolves begin/end selectors and returns every (key, value)
// pair visible at the transaction's read version within that range, up
// to limit results (0 = unlimited unless mode is Exact), optionally in
// reverse key order.
func (t *Txn) GetRange(begin, end Selector, limit int, reverse bool, mode Mode, snapshot bool) ([]Pair, error) {
	if mode == Exact && limit <= 0 {
		return nil, vkverr.ExactModeWithoutLimits
	}

	t.mu.Lock()
	if t.cancelled {
		t.mu.Unlock()
		return nil, vkverr.TransactionCancelled
	}
	seq, _ := t.ensureReadSeqLocked()
	t.mu.Unlock()

	beginKey, _, beginOK := t.eng.resolveSelector(begin)
	endKey, _, endOK := t.eng.resolveSelector(end)
	if !beginOK {
		beginKey = slice.Nil
	}
	if !endOK {
		endKey = slice.Nil
	}
	if beginOK && endOK && endKey.Less(beginKey) {
		return nil, vkverr.InvertedRange
	}

	if !snapshot {
		t.mu.Lock()
		t.reads = append(t.reads, window.Range{Begin: beginKey, End: endKey})
		t.mu.Unlock()
	}

	var out []Pair
	t.eng.mu.RLock()
	collect := func(key slice.Slice, ref heap.Ref) bool {
		kRegion, err := t.eng.keyHeap.Resolve(ref)
		if err != nil {
			return true
		}
		k := record.Decode(kRegion)
		payload, ok, _ := version.ReadAt(valueResolver{t.eng.valHeap}, k.HeadValue, seq)
		if !ok {
			return true
		}
		out = append(out, Pair{Key: append([]byte(nil), key.Bytes()...), Value: append([]byte(nil), payload...)})
		return limit <= 0 || len(out) < limit
	}
	if reverse {
		// Collect the whole range ascending, then reverse and trim to
		// limit; range sizes in this engine are small enough that
		// materializing first is acceptable.
		t.eng.idx.Range(beginKey, endKey, func(k slice.Slice, r heap.Ref) bool {
			collect(k, r)
			return true
		})
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
		if limit > 0 && len(out) > limit {
			out = out[:limit]
		}
	} else {
		t.eng.idx.Range(beginKey, endKey, collect)
	}
	t.eng.mu.RUnlock()

	return out, nil
}

func (t *Txn) stage(w write) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelled {
		return nil // spec.md §7: ignored silently once server-cancelled
	}
	t.writes = append(t.writes, w)
	t.writeRanges = append(t.writeRanges, pointRange(w.key))
	return nil
}

// Set stages a write of value for key, applied on Commit.
func (t *Txn) Set(key, value []byte) error {
	if len(key) > MaxKeySize || len(value) > MaxValueSize {
		return vkverr.InvalidOptionValue
	}
	return t.stage(write{key: key, kind: OpSet, value: value})
}

// Clear stages a deletion of key.
func (t *Txn) Clear(key []byte) error {
	if len(key) > MaxKeySize {
		return vkverr.InvalidOptionValue
	}
	return t.stage(write{key: key, kind: OpClear})
}

// ClearRange stages a deletion of every key in [begin, end).
func (t *Txn) ClearRange(begin, end []byte) error {
	if slice.Of(end).Less(slice.Of(begin)) {
		return vkverr.InvertedRange
	}
	t.mu.Lock()
	if t.cancelled {
		t.mu.Unlock()
		return nil
	}
	t.writeRanges = append(t.writeRanges, window.Range{Begin: slice.Of(begin), End: slice.Of(end)})
	t.mu.Unlock()

	// The set of keys currently in range is resolved eagerly against
	// the present index rather than at commit time, matching a
	// single-writer-at-a-time engine where no other commit can land
	// between staging and Commit.
	t.eng.mu.RLock()
	var keys [][]byte
	t.eng.idx.Range(slice.Of(begin), slice.Of(end), func(k slice.Slice, _ heap.Ref) bool {
		keys = append(keys, append([]byte(nil), k.Bytes()...))
		return true
	})
	t.eng.mu.RUnlock()

	for _, k := range keys {
		if err := t.stage(write{key: k, kind: OpClear}); err != nil {
			return err
		}
	}
	return nil
}

// Atomic stages a read-modify-write mutation of key with operand.
func (t *Txn) Atomic(key []byte, op version.Op, operand []byte) error {
	if len(key) > MaxKeySize {
		return vkverr.InvalidOptionValue
	}
	kind := OpAtomicAdd
	switch op {
	case version.And:
		kind = OpAtomicAnd
	case version.Or:
		kind = OpAtomicOr
	case version.Xor:
		kind = OpAtomicXor
	}
	return t.stage(write{key: key, kind: kind, value: operand})
}

// AddReadConflictRange declares [begin, end) as read by the
// transaction, independent of any actual Get call.
func (t *Txn) AddReadConflictRange(begin, end []byte) error {
	if slice.Of(end).Less(slice.Of(begin)) {
		return vkverr.InvertedRange
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reads = append(t.reads, window.Range{Begin: slice.Of(begin), End: slice.Of(end)})
	return nil
}

// AddWriteConflictRange declares [begin, end) as written by the
// transaction for conflict-checking purposes, independent of any
// staged write actually landing in that range.
func (t *Txn) AddWriteConflictRange(begin, end []byte) error {
	if slice.Of(end).Less(slice.Of(begin)) {
		return vkverr.InvertedRange
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writeRanges = append(t.writeRanges, window.Range{Begin: slice.Of(begin), End: slice.Of(end)})
	return nil
}

type pendingKey struct {
	keyBytes     []byte
	existed      bool
	ref          heap.Ref // existing ref, or the freshly allocated one for a new key
	region       []byte   // only set for a freshly allocated key record
	currentHead  heap.Ref
}

// Commit runs the algorithm of spec.md §4.G under the engine's write
// lock: conflict check, sequence assignment, two-phase write
// application (allocate everything first, link second so that a mid-
// commit OutOfMemory leaves no observable mutation), publish, and
// merge into the active window.
func (t *Txn) Commit() (uint64, error) {
	t.mu.Lock()
	if t.cancelled {
		t.mu.Unlock()
		return 0, vkverr.TransactionCancelled
	}
	if t.done {
		t.mu.Unlock()
		return 0, vkverr.New(vkverr.KindInvalidOptionValue, "transaction already resolved", nil)
	}
	readSeq, _ := t.ensureReadSeqLocked()
	reads := append([]window.Range(nil), t.reads...)
	writeRanges := append([]window.Range(nil), t.writeRanges...)
	writes := append([]write(nil), t.writes...)
	t.mu.Unlock()

	e := t.eng
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, w := range e.windowsSnapshot() {
		if w.LastVersion() > readSeq && w.Conflicts(reads, readSeq) {
			return 0, vkverr.NotCommitted
		}
	}

	commitSeq := e.lastSeq + 1

	pending := make(map[string]*pendingKey)
	order := make([]string, 0, len(writes))
	var relinks []func()

	for _, w := range writes {
		ks := string(w.key)
		pk, seen := pending[ks]
		if !seen {
			pk = &pendingKey{keyBytes: w.key}
			if ref, ok := e.idx.Get(slice.Of(w.key)); ok {
				pk.existed = true
				pk.ref = ref
				kRegion, err := e.keyHeap.Resolve(ref)
				if err != nil {
					return 0, err
				}
				pk.currentHead = record.Decode(kRegion).HeadValue
			} else {
				kRef, kRegion, err := e.keyHeap.Append(record.Size(len(pk.keyBytes)))
				if err != nil {
					return 0, vkverr.OutOfMemory
				}
				record.Encode(kRegion, record.Key{Flags: record.KeyNew, KeyLen: uint32(len(pk.keyBytes)), Payload: pk.keyBytes})
				pk.ref = kRef
				pk.region = kRegion
			}
			pending[ks] = pk
			order = append(order, ks)
		}

		payload, flags, err := t.computeValue(e, w, pk.currentHead, commitSeq)
		if err != nil {
			return 0, err
		}

		oldHead := pk.currentHead
		valRef, region, err := e.valHeap.Append(record.ValueSize(len(payload)))
		if err != nil {
			return 0, vkverr.OutOfMemory
		}
		record.EncodeValue(region, record.Value{
			Flags:    flags,
			Size:     uint32(len(payload)),
			Sequence: commitSeq,
			Prev:     oldHead,
			Parent:   pk.ref,
			Payload:  payload,
		})
		// spec.md §4.E write(): the previously-head version's parent now
		// points at the new head rather than the key, since the key's
		// head_value field no longer names it directly. The rewrite is
		// deferred to phase two so a later failure leaves it untouched.
		if oldHead.Valid() {
			oldRegion, err := e.valHeap.Resolve(oldHead)
			if err != nil {
				return 0, err
			}
			relinks = append(relinks, func() { record.SetParent(oldRegion, valRef) })
		}
		pk.currentHead = valRef
	}

	// Phase two: pure pointer linkage, cannot fail.
	for _, relink := range relinks {
		relink()
	}
	for _, ks := range order {
		pk := pending[ks]
		if pk.existed {
			kRegion, _ := e.keyHeap.Resolve(pk.ref)
			record.SetHeadValue(kRegion, pk.currentHead)
			cur := record.Decode(kRegion)
			record.SetFlags(kRegion, cur.Flags|record.KeyMutated)
		} else {
			record.SetHeadValue(pk.region, pk.currentHead)
			e.idx.Insert(slice.Of(pk.keyBytes), pk.ref)
		}
	}

	e.lastSeq = commitSeq

	active := e.activeWindowLocked()
	_ = active.MergeWrites(writeRanges, commitSeq)

	t.mu.Lock()
	t.done = true
	if t.haveReadSeq {
		e.releaseReadSeq(t.readSeq)
	}
	t.mu.Unlock()

	for _, ks := range order {
		e.notifyWatches([]byte(ks))
	}

	return commitSeq, nil
}

// computeValue derives the payload and flags for one staged write
// against the key's current pending head.
func (t *Txn) computeValue(e *Engine, w write, currentHead heap.Ref, commitSeq uint64) ([]byte, record.ValueFlag, error) {
	switch w.kind {
	case OpSet:
		return w.value, 0, nil
	case OpClear:
		return nil, record.ValueDeletion, nil
	default:
		old, ok, err := version.ReadAt(valueResolver{e.valHeap}, currentHead, commitSeq-1)
		if err != nil {
			return nil, 0, err
		}
		if !ok {
			old = nil
		}
		return version.Apply(w.kind.versionOp(), old, w.value), record.ValueMutated, nil
	}
}

// OnError classifies err per spec.md §7: transient commit failures are
// retryable with a fresh read version, everything else is fatal to the
// transaction.
func (t *Txn) OnError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, vkverr.NotCommitted), errors.Is(err, vkverr.TransactionCancelled), errors.Is(err, vkverr.PastVersion):
		t.Reset()
		return nil
	default:
		return err
	}
}

// Reset clears all staged reads/writes and releases the transaction's
// held read version, letting the handle be reused for a fresh attempt.
func (t *Txn) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.haveReadSeq && !t.done {
		t.eng.releaseReadSeq(t.readSeq)
	}
	t.reads = nil
	t.writeRanges = nil
	t.writes = nil
	t.haveReadSeq = false
	t.cancelled = false
	t.done = false
}

// Cancel marks the transaction cancelled: subsequent Clear/Atomic
// calls are silently ignored and Commit fails with
// TransactionCancelled, per spec.md §7.
func (t *Txn) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.haveReadSeq && !t.done {
		t.eng.releaseReadSeq(t.readSeq)
		t.haveReadSeq = false
	}
	t.cancelled = true
}

// Watch returns a channel that closes the next time key's committed
// value changes (spec.md §10).
func (t *Txn) Watch(key []byte) <-chan struct{} {
	return t.eng.Watch(key)
}
