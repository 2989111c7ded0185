package vkv

import (
	"github.com/vkvdb/vkv/engine"
	"github.com/vkvdb/vkv/version"
	"github.com/vkvdb/vkv/vkverr"
)

// Mode selects how GetRange materializes results (spec.md §6).
type Mode = engine.Mode

const (
	WantAll  = engine.WantAll
	Iterator = engine.Iterator
	Exact    = engine.Exact
)

// KeySelector names an ordinal position in the keyspace: the boundary
// named by RefKey/OrEqual, stepped Offset positions forward or backward
// (spec.md §6).
type KeySelector = engine.Selector

// KeyValue is one (key, value) pair from a range scan.
type KeyValue = engine.Pair

// Tx is a single transaction handle against a DB.
type Tx struct {
	db    *DB
	inner *engine.Txn
}

func (t *Tx) checkWritable() error {
	if t.db.opts.ReadOnly {
		return vkverr.New(vkverr.KindInvalidOptionValue, "database opened read-only", nil)
	}
	return nil
}

// GetReadVersion fixes the transaction's snapshot version, if not
// already fixed.
func (t *Tx) GetReadVersion() (uint64, error) { return t.inner.GetReadVersion() }

// SetReadVersion pins the transaction's snapshot version explicitly.
func (t *Tx) SetReadVersion(seq uint64) error { return t.inner.SetReadVersion(seq) }

// Get returns the value for key at the transaction's read version.
func (t *Tx) Get(key []byte, snapshot bool) ([]byte, bool, error) {
	return t.inner.Get(key, snapshot)
}

// GetKey resolves selector and returns the matching key's value.
func (t *Tx) GetKey(selector KeySelector, snapshot bool) ([]byte, bool, error) {
	return t.inner.GetKey(selector, snapshot)
}

// GetRange returns every (key, value) pair visible within [begin, end).
func (t *Tx) GetRange(begin, end KeySelector, limit int, reverse bool, mode Mode, snapshot bool) ([]KeyValue, error) {
	return t.inner.GetRange(begin, end, limit, reverse, mode, snapshot)
}

// Set stages a write of value for key.
func (t *Tx) Set(key, value []byte) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	return t.inner.Set(key, value)
}

// Clear stages a deletion of key.
func (t *Tx) Clear(key []byte) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	return t.inner.Clear(key)
}

// ClearRange stages a deletion of every key in [begin, end).
func (t *Tx) ClearRange(begin, end []byte) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	return t.inner.ClearRange(begin, end)
}

// AtomicOp identifies a read-modify-write mutation kind (spec.md §4.E).
type AtomicOp = version.Op

// Atomic operand kinds, re-exported from version for callers that don't
// want to import that package directly.
const (
	AtomicAdd = version.Add
	AtomicAnd = version.And
	AtomicOr  = version.Or
	AtomicXor = version.Xor
)

// Atomic stages a read-modify-write mutation of key with operand.
func (t *Tx) Atomic(key []byte, op AtomicOp, operand []byte) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	return t.inner.Atomic(key, op, operand)
}

// AddReadConflictRange declares [begin, end) as read by the
// transaction.
func (t *Tx) AddReadConflictRange(begin, end []byte) error {
	return t.inner.AddReadConflictRange(begin, end)
}

// AddWriteConflictRange declares [begin, end) as written by the
// transaction.
func (t *Tx) AddWriteConflictRange(begin, end []byte) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	return t.inner.AddWriteConflictRange(begin, end)
}

// Commit runs the commit pipeline of spec.md §4.G.
func (t *Tx) Commit() (uint64, error) {
	if err := t.checkWritable(); err != nil {
		return 0, err
	}
	return t.inner.Commit()
}

// OnError classifies err: transient commit failures are retryable with
// a fresh read version (returns nil after resetting the transaction),
// everything else is returned unchanged.
func (t *Tx) OnError(err error) error { return t.inner.OnError(err) }

// Reset clears staged reads/writes, letting the handle be reused.
func (t *Tx) Reset() { t.inner.Reset() }

// Cancel marks the transaction cancelled.
func (t *Tx) Cancel() { t.inner.Cancel() }

// Watch returns a channel that closes the next time key's committed
// value changes (spec.md §10).
func (t *Tx) Watch(key []byte) <-chan struct{} { return t.inner.Watch(key) }
