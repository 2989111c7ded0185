// Package engine implements the commit pipeline: conflict checking
// against transaction windows, commit-sequence assignment, and
// two-phase write application (spec.md §4.G).
//
// Grounded on hivekit's hive/tx.Manager for the begin/commit sequence
// bookkeeping shape (increment-then-publish a monotonic counter under
// a manager-owned lock) and hive/merge/session.go's Session for the
// orchestrating role of driving allocator + index + per-op mutation
// under one transaction boundary.
package engine

import (
	"sync"
	"time"

	"github.com/vkvdb/vkv/heap"
	"github.com/vkvdb/vkv/index"
	"github.com/vkvdb/vkv/internal/obs"
	"github.com/vkvdb/vkv/record"
	"github.com/vkvdb/vkv/slice"
	"github.com/vkvdb/vkv/version"
	"github.com/vkvdb/vkv/window"
)

// Config bundles the tunables the spec leaves to the implementation:
// heap bucket layouts and window rollover thresholds.
type Config struct {
	KeyHeap              heap.Config
	ValueHeap            heap.Config
	WindowAge            time.Duration
	WindowMaxCardinality int
}

// DefaultConfig returns the bucket layouts and rollover thresholds
// described in spec.md §4.B/§4.G.
func DefaultConfig() Config {
	return Config{
		KeyHeap:              heap.KeyHeapConfig,
		ValueHeap:             heap.ValueHeapConfig,
		WindowAge:             5 * time.Second,
		WindowMaxCardinality:  4096,
	}
}

// Engine owns every piece of mutable state the spec assigns to a
// single borrow-checked context: heaps, index, window list, and the
// published commit sequence (spec.md §9's "no implicit process-wide
// singleton").
//
// mu is acquired for writing by Commit and by the collector for the
// whole of each collection pass; reads acquire it for reading, so many
// readers run in parallel and are excluded while a commit or a
// collection pass is in-flight. This is the engine's single lock standing in for the
// spec's separate "commit mutex" / "collector mutex", matching its own
// allowance that index and heap mutation may be "single-writer
// serialisation under a commit mutex".
type Engine struct {
	mu sync.RWMutex

	cfg     Config
	keyHeap *heap.Heap
	valHeap *heap.Heap
	idx     *index.BTreeIndex

	lastSeq uint64

	winMu   sync.Mutex
	windows []*window.Window

	readersMu  sync.Mutex
	liveReads  map[uint64]int // read_seq -> count of live transactions holding it
	nextTxnID  uint64

	watchMu sync.Mutex
	watches map[string][]chan struct{}
}

// New creates an engine with an initial empty window already open.
func New(cfg Config) *Engine {
	e := &Engine{
		cfg:     cfg,
		keyHeap: heap.New(heap.KindKey, cfg.KeyHeap),
		valHeap: heap.New(heap.KindValue, cfg.ValueHeap),
		idx:     index.New(),
		liveReads: make(map[uint64]int),
		watches:   make(map[string][]chan struct{}),
	}
	e.windows = []*window.Window{window.New(time.Now())}
	return e
}

// LastCommitSeq returns the most recently published commit sequence.
func (e *Engine) LastCommitSeq() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastSeq
}

// acquireReadSeq registers seq as held by one more live transaction,
// for the collector's horizon computation.
func (e *Engine) acquireReadSeq(seq uint64) {
	e.readersMu.Lock()
	defer e.readersMu.Unlock()
	e.liveReads[seq]++
}

// releaseReadSeq undoes acquireReadSeq when a transaction ends.
func (e *Engine) releaseReadSeq(seq uint64) {
	e.readersMu.Lock()
	defer e.readersMu.Unlock()
	if n := e.liveReads[seq]; n <= 1 {
		delete(e.liveReads, seq)
	} else {
		e.liveReads[seq] = n - 1
	}
}

// Horizon returns the minimum read_seq across all live transactions,
// or the last commit sequence if none are live, for the collector's
// reclaim decision (spec.md §4.H).
func (e *Engine) Horizon() uint64 {
	e.readersMu.Lock()
	defer e.readersMu.Unlock()
	if len(e.liveReads) == 0 {
		return e.LastCommitSeq()
	}
	min := ^uint64(0)
	for seq := range e.liveReads {
		if seq < min {
			min = seq
		}
	}
	return min
}

func keySuccessor(key []byte) slice.Slice {
	succ := make([]byte, len(key)+1)
	copy(succ, key)
	return slice.Of(succ)
}

// pointRange returns the canonical [key, key\x00) read/write-conflict
// range for a single-key operation, as used in spec.md §8's worked
// scenarios.
func pointRange(key []byte) window.Range {
	return window.Range{Begin: slice.Of(key), End: keySuccessor(key)}
}

// readAt resolves key's value at seq using the index and version
// chain, taking the engine lock for reading only.
func (e *Engine) readAt(key []byte, seq uint64) ([]byte, bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ref, ok := e.idx.Get(slice.Of(key))
	if !ok {
		return nil, false, nil
	}
	kRegion, err := e.keyHeap.Resolve(ref)
	if err != nil {
		return nil, false, err
	}
	k := record.Decode(kRegion)
	payload, ok, err := version.ReadAt(valueResolver{e.valHeap}, k.HeadValue, seq)
	if !ok || err != nil {
		return nil, false, err
	}
	return append([]byte(nil), payload...), true, nil
}

type valueResolver struct{ h *heap.Heap }

func (v valueResolver) Resolve(ref heap.Ref) ([]byte, error) { return v.h.Resolve(ref) }

// activeWindowLocked returns the currently open window, rolling it over
// first if it has aged out or grown past the cardinality threshold.
// Callers must already hold e.mu for writing.
func (e *Engine) activeWindowLocked() *window.Window {
	e.winMu.Lock()
	defer e.winMu.Unlock()
	active := e.windows[len(e.windows)-1]
	if time.Since(active.OpenedAt()) > e.cfg.WindowAge || active.Cardinality() > e.cfg.WindowMaxCardinality {
		active.Close()
		fresh := window.New(time.Now())
		e.windows = append(e.windows, fresh)
		obs.Debug("window rollover", "previous_last_version", active.LastVersion())
		return fresh
	}
	return active
}

// windowsSnapshot returns the current window list for conflict
// checking. Callers must already hold e.mu for writing (Commit does).
func (e *Engine) windowsSnapshot() []*window.Window {
	e.winMu.Lock()
	defer e.winMu.Unlock()
	return append([]*window.Window(nil), e.windows...)
}

// DropRetiredWindows removes closed windows no live transaction could
// still validate against. Exported for the collector's periodic sweep.
func (e *Engine) DropRetiredWindows() { e.dropRetiredWindows() }

// dropRetiredWindows removes closed windows no live transaction could
// still validate against, called periodically by the collector.
func (e *Engine) dropRetiredWindows() {
	e.readersMu.Lock()
	minLive := ^uint64(0)
	for seq := range e.liveReads {
		if seq < minLive {
			minLive = seq
		}
	}
	e.readersMu.Unlock()

	e.winMu.Lock()
	defer e.winMu.Unlock()
	kept := e.windows[:0:0]
	for i, w := range e.windows {
		if i == len(e.windows)-1 {
			kept = append(kept, w) // never drop the active window
			continue
		}
		if w.Closed() && w.LastVersion() < minLive {
			continue
		}
		kept = append(kept, w)
	}
	e.windows = kept
}

// KeyHeap and ValueHeap expose the underlying heaps for the collector
// and observability tooling.
func (e *Engine) KeyHeap() *heap.Heap   { return e.keyHeap }
func (e *Engine) ValueHeap() *heap.Heap { return e.valHeap }
func (e *Engine) Index() *index.BTreeIndex { return e.idx }

// Lock/Unlock/RLock/RUnlock expose the engine's single reader-writer
// lock to the collector package, which holds it for writing for the
// whole of each collection pass, not only across the page swaps.
func (e *Engine) Lock()    { e.mu.Lock() }
func (e *Engine) Unlock()  { e.mu.Unlock() }
func (e *Engine) RLock()   { e.mu.RLock() }
func (e *Engine) RUnlock() { e.mu.RUnlock() }

// notifyWatches wakes every watcher registered on key.
func (e *Engine) notifyWatches(key []byte) {
	e.watchMu.Lock()
	chans := e.watches[string(key)]
	delete(e.watches, string(key))
	e.watchMu.Unlock()
	for _, ch := range chans {
		close(ch)
	}
}

// Watch registers a channel that closes the next time key's value
// changes (spec.md §10 supplements §6's watch() operation).
func (e *Engine) Watch(key []byte) <-chan struct{} {
	ch := make(chan struct{})
	e.watchMu.Lock()
	e.watches[string(key)] = append(e.watches[string(key)], ch)
	e.watchMu.Unlock()
	return ch
}
