// Package window implements the transaction window: the per-epoch
// record of write-conflict ranges a commit's readers are checked
// against (spec.md §4.F).
//
// Grounded on hivekit's hive/dirty.Tracker.coalesce(): that tracker
// sorts dirty byte ranges and merges overlapping or adjacent ones
// before a flush. A window performs the same sort-and-merge shape, but
// over byte-string key ranges rather than integer file offsets, tagged
// with the commit sequence that produced each range rather than merged
// into one flush region, and backed by an ordered github.com/google/btree
// map (keyed by range start) instead of a plain sorted slice so that
// conflict queries do not have to rescan the whole window.
package window

import (
	"sync"
	"time"

	"github.com/google/btree"

	"github.com/vkvdb/vkv/slice"
)

const treeDegree = 32

// Range is a half-open key interval [Begin, End).
type Range struct {
	Begin slice.Slice
	End   slice.Slice
}

type entry struct {
	begin slice.Slice
	end   slice.Slice
	seq   uint64
}

func entryLess(a, b entry) bool { return a.begin.Less(b.begin) }

// Window accumulates write-conflict ranges from a run of commits and
// answers whether an older read's read-conflict ranges intersect any
// range written after that read's sequence.
type Window struct {
	mu           sync.RWMutex
	writes       *btree.BTreeG[entry]
	firstVersion uint64
	lastVersion  uint64
	openedAt     time.Time
	closed       bool
}

// New creates an empty, open window stamped with openedAt.
func New(openedAt time.Time) *Window {
	return &Window{
		writes:   btree.NewG(treeDegree, entryLess),
		openedAt: openedAt,
	}
}

// FirstVersion returns the smallest commit sequence merged into this
// window, or 0 if none has been merged yet.
func (w *Window) FirstVersion() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.firstVersion
}

// LastVersion returns the largest commit sequence merged into this
// window.
func (w *Window) LastVersion() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastVersion
}

// OpenedAt returns when the window was created, for rollover-by-age
// decisions.
func (w *Window) OpenedAt() time.Time {
	return w.openedAt
}

// Closed reports whether the window no longer accepts new writes.
func (w *Window) Closed() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.closed
}

// Close stops the window from accepting further MergeWrites calls. A
// closed window is retained by the engine until every transaction that
// could still validate against it has terminated.
func (w *Window) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
}

// Cardinality reports the number of disjoint ranges currently tracked,
// used by the engine's rollover threshold check.
func (w *Window) Cardinality() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.writes.Len()
}

// ErrClosed is returned by MergeWrites against a closed window.
type ErrClosed struct{}

func (ErrClosed) Error() string { return "window: closed to new writes" }

// MergeWrites marks every [begin, end) range in ranges with seq,
// taking max(existing, seq) wherever a new range overlaps coverage
// already recorded by an earlier commit.
func (w *Window) MergeWrites(ranges []Range, seq uint64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed{}
	}
	for _, r := range ranges {
		if !r.Begin.Less(r.End) {
			continue
		}
		w.mergeOneLocked(r.Begin, r.End, seq)
	}
	if w.firstVersion == 0 || seq < w.firstVersion {
		w.firstVersion = seq
	}
	if seq > w.lastVersion {
		w.lastVersion = seq
	}
	return nil
}

// mergeOneLocked splices [b, e) tagged with seq into the write tree,
// clipping and re-tagging any existing coverage it overlaps. Existing
// entries are a disjoint partition sorted by begin, so a single
// left-to-right pass with a moving cursor is enough.
func (w *Window) mergeOneLocked(b, e slice.Slice, seq uint64) {
	var overlapping []entry
	w.writes.Ascend(func(en entry) bool {
		if en.begin.Less(e) && b.Less(en.end) {
			overlapping = append(overlapping, en)
		}
		return en.begin.Less(e)
	})

	cursor := b
	var toInsert []entry
	for _, en := range overlapping {
		w.writes.Delete(en)

		if en.begin.Less(b) {
			toInsert = append(toInsert, entry{begin: en.begin, end: b, seq: en.seq})
		}
		if cursor.Less(en.begin) {
			toInsert = append(toInsert, entry{begin: cursor, end: en.begin, seq: seq})
		}
		lo := cursor
		if lo.Less(en.begin) {
			lo = en.begin
		}
		hi := en.end
		if e.Less(hi) {
			hi = e
		}
		mergedSeq := en.seq
		if seq > mergedSeq {
			mergedSeq = seq
		}
		if lo.Less(hi) {
			toInsert = append(toInsert, entry{begin: lo, end: hi, seq: mergedSeq})
		}
		if e.Less(en.end) {
			toInsert = append(toInsert, entry{begin: e, end: en.end, seq: en.seq})
		}
		cursor = hi
	}
	if cursor.Less(e) {
		toInsert = append(toInsert, entry{begin: cursor, end: e, seq: seq})
	}
	for _, en := range toInsert {
		w.writes.ReplaceOrInsert(en)
	}
}

// Conflicts reports whether any [rb, re) in reads intersects a write
// range whose seq is greater than readSeq, short-circuiting on the
// first hit.
func (w *Window) Conflicts(reads []Range, readSeq uint64) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, r := range reads {
		hit := false
		w.writes.Ascend(func(en entry) bool {
			if en.begin.Less(r.End) && r.Begin.Less(en.end) {
				if en.seq > readSeq {
					hit = true
					return false
				}
			}
			return en.begin.Less(r.End)
		})
		if hit {
			return true
		}
	}
	return false
}
