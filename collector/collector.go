// Package collector implements the background reclamation pass of
// spec.md §4.H: compute the read horizon, flag every key whose whole
// version chain is reclaimable below it, copy-forward the survivors of pages worth
// compacting into fresh scratch pages, and swap them in.
//
// Grounded on hivekit's hive/merge/strategy package for the
// copy-forward-and-mark-moved shape ("inplace"/"append"/"hybrid"
// strategies each walk a source, decide keep-or-drop per record, and
// write survivors into a destination before the source is discarded)
// and hive/walker for the chain-walk-to-find-liveness pattern. Unlike
// those strategies, a swapped page here keeps its own page number
// (heap.Heap.Swap replaces a slot's contents in place), so every Ref
// that still needs fixing up is identified purely by the (bucket, page,
// offset) triple changing offset, not by a page ever being renumbered.
package collector

import (
	"time"

	"github.com/vkvdb/vkv/engine"
	"github.com/vkvdb/vkv/heap"
	"github.com/vkvdb/vkv/internal/buf"
	"github.com/vkvdb/vkv/internal/obs"
	"github.com/vkvdb/vkv/record"
	"github.com/vkvdb/vkv/slice"
)

// Config tunes when a page is worth compacting.
type Config struct {
	// SweepThreshold is the minimum fraction of a page's already-used
	// bytes that must belong to reclaimable records before the
	// collector bothers building a scratch page for it.
	SweepThreshold float64
	// Interval is how often Run's background loop calls RunOnce.
	Interval time.Duration
}

// DefaultConfig matches the worked example in spec.md §4.H: a page
// more than half garbage is worth compacting, checked every two
// seconds.
func DefaultConfig() Config {
	return Config{SweepThreshold: 0.5, Interval: 2 * time.Second}
}

// Collector drives reclamation for one Engine.
type Collector struct {
	eng *engine.Engine
	cfg Config
}

// New builds a collector against eng. Nothing runs until RunOnce or Run
// is called.
func New(eng *engine.Engine, cfg Config) *Collector {
	return &Collector{eng: eng, cfg: cfg}
}

// Stats summarizes the outcome of one RunOnce pass.
type Stats struct {
	Horizon          uint64
	KeysDisposed     int
	ValuesDisposed   int
	KeyPagesSwapped  int
	ValuePagesSwapped int
}

// Run drives RunOnce on cfg.Interval until stop is closed, in the caller's
// goroutine. Callers that want it in the background start it with `go`.
func (c *Collector) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			st := c.RunOnce()
			if st.KeysDisposed > 0 || st.ValuesDisposed > 0 {
				rssKiB, _ := obs.MaxRSSKiB()
				obs.Debug("collector pass",
					"horizon", st.Horizon,
					"keys_disposed", st.KeysDisposed,
					"values_disposed", st.ValuesDisposed,
					"key_pages_swapped", st.KeyPagesSwapped,
					"value_pages_swapped", st.ValuePagesSwapped,
					"max_rss_kib", rssKiB)
			}
		}
	}
}

// RunOnce executes the four passes of spec.md §4.H once, under the
// engine's single write lock: horizon, mark, sweep-per-page, swap. It
// returns what it reclaimed.
func (c *Collector) RunOnce() Stats {
	eng := c.eng
	horizon := eng.Horizon()

	eng.Lock()
	defer eng.Unlock()

	c.markPass(eng, horizon)

	movedValues, valuesDisposed, valuePages := c.sweepValues(eng, horizon)
	movedKeys, keysDisposed, keyPages := c.sweepKeys(eng)

	if len(movedValues) > 0 || len(movedKeys) > 0 {
		c.fixupPointers(eng, movedValues, movedKeys)
	}

	eng.DropRetiredWindows()

	return Stats{
		Horizon:           horizon,
		KeysDisposed:      keysDisposed,
		ValuesDisposed:    valuesDisposed,
		KeyPagesSwapped:   keyPages,
		ValuePagesSwapped: valuePages,
	}
}

// reclaimableValue reports whether v's storage may be reclaimed at the
// given horizon: a non-head version (its parent is another value, not
// the owning key) older than the horizon, or a head version that is
// itself a deletion and older than the horizon (spec.md §4.H).
func reclaimableValue(v record.Value, horizon uint64) bool {
	if v.Flags&record.ValueDisposed != 0 {
		return true
	}
	if v.Sequence >= horizon {
		return false
	}
	isHead := v.Parent.Kind != heap.KindValue
	return !isHead || v.Flags&record.ValueDeletion != 0
}

// markPass walks the index once and flags every key whose entire
// version chain is reclaimable at horizon as Unreachable, clearing the
// flag on any key a prior pass marked that has since been written
// again.
func (c *Collector) markPass(eng *engine.Engine, horizon uint64) {
	type hit struct {
		ref     heap.Ref
		dispose bool
	}
	var hits []hit

	eng.Index().Range(slice.Nil, slice.Nil, func(_ slice.Slice, kRef heap.Ref) bool {
		kRegion, err := eng.KeyHeap().Resolve(kRef)
		if err != nil {
			return true
		}
		k := record.Decode(kRegion)

		allReclaimable := true
		ref := k.HeadValue
		for ref.Valid() {
			vRegion, err := eng.ValueHeap().Resolve(ref)
			if err != nil {
				allReclaimable = false
				break
			}
			v := record.DecodeValue(vRegion)
			if !reclaimableValue(v, horizon) {
				allReclaimable = false
				break
			}
			ref = v.Prev
		}
		hits = append(hits, hit{ref: kRef, dispose: allReclaimable})
		return true
	})

	for _, h := range hits {
		kRegion, err := eng.KeyHeap().Resolve(h.ref)
		if err != nil {
			continue
		}
		k := record.Decode(kRegion)
		if h.dispose {
			if k.Flags&record.KeyUnreachable == 0 {
				record.SetFlags(kRegion, k.Flags|record.KeyUnreachable)
			}
		} else if k.Flags&record.KeyUnreachable != 0 {
			record.SetFlags(kRegion, k.Flags&^record.KeyUnreachable)
		}
	}
}

// sweepValues compacts every value-heap page whose reclaimable bytes
// meet the sweep threshold, returning the old->new Ref mapping for
// every version actually relocated.
func (c *Collector) sweepValues(eng *engine.Engine, horizon uint64) (map[heap.Ref]heap.Ref, int, int) {
	h := eng.ValueHeap()
	moved := make(map[heap.Ref]heap.Ref)
	disposed := 0
	swapped := 0

	for b := 0; b < h.NumBuckets(); b++ {
		pages := h.PageCount(b)
		for p := 1; p <= pages; p++ {
			page := h.PageView(b, p)
			if page == nil || page.Used() == 0 {
				continue
			}

			type rec struct {
				off      int32
				size     int32
				reclaim  bool
			}
			var records []rec
			var deadBytes int32
			buf8 := page.Bytes()
			off := int32(0)
			for off < page.Used() {
				region := buf8[off:]
				v := record.DecodeValue(region)
				size := record.ValueSize(len(v.Payload))
				reclaim := reclaimableValue(v, horizon)
				if reclaim {
					deadBytes += int32(buf.Align8(int(size)))
				}
				records = append(records, rec{off: off, size: size, reclaim: reclaim})
				off += int32(buf.Align8(int(size)))
			}

			if page.Used() == 0 || float64(deadBytes)/float64(page.Used()) < c.cfg.SweepThreshold {
				continue
			}

			scratch := h.NewScratchPage(b)
			anyDropped := false
			for _, r := range records {
				if r.reclaim {
					anyDropped = true
					disposed++
					continue
				}
				newOff, newRegion, ok := scratch.Append(r.size)
				if !ok {
					// Scratch page is the same size as the source and we
					// only ever shrink, so this cannot happen; skip
					// defensively rather than lose the record.
					continue
				}
				copy(newRegion, buf8[r.off:r.off+r.size])
				moved[heap.Ref{Kind: heap.KindValue, Bucket: uint8(b), Page: uint32(p), Offset: uint32(r.off)}] =
					heap.Ref{Kind: heap.KindValue, Bucket: uint8(b), Page: uint32(p), Offset: uint32(newOff)}
			}
			if !anyDropped {
				continue
			}
			if err := h.Swap(b, uint32(p), scratch); err == nil {
				swapped++
			}
		}
	}
	return moved, disposed, swapped
}

// sweepKeys drops every key record marked Unreachable by markPass and
// compacts the pages holding the survivors, returning the old->new Ref
// mapping for every key actually relocated.
func (c *Collector) sweepKeys(eng *engine.Engine) (map[heap.Ref]heap.Ref, int, int) {
	h := eng.KeyHeap()
	moved := make(map[heap.Ref]heap.Ref)
	disposed := 0
	swapped := 0

	for b := 0; b < h.NumBuckets(); b++ {
		pages := h.PageCount(b)
		for p := 1; p <= pages; p++ {
			page := h.PageView(b, p)
			if page == nil || page.Used() == 0 {
				continue
			}

			type rec struct {
				off     int32
				size    int32
				reclaim bool
				keyCopy []byte
			}
			var records []rec
			var deadBytes int32
			buf8 := page.Bytes()
			off := int32(0)
			for off < page.Used() {
				region := buf8[off:]
				k := record.Decode(region)
				size := record.Size(len(k.Payload))
				reclaim := k.Flags&record.KeyUnreachable != 0
				if reclaim {
					deadBytes += int32(buf.Align8(int(size)))
				}
				records = append(records, rec{off: off, size: size, reclaim: reclaim, keyCopy: append([]byte(nil), k.Payload...)})
				off += int32(buf.Align8(int(size)))
			}

			if float64(deadBytes)/float64(page.Used()) < c.cfg.SweepThreshold {
				continue
			}

			scratch := h.NewScratchPage(b)
			anyDropped := false
			for _, r := range records {
				if r.reclaim {
					anyDropped = true
					disposed++
					eng.Index().Remove(slice.Of(r.keyCopy))
					continue
				}
				newOff, newRegion, ok := scratch.Append(r.size)
				if !ok {
					continue
				}
				copy(newRegion, buf8[r.off:r.off+r.size])
				oldRef := heap.Ref{Kind: heap.KindKey, Bucket: uint8(b), Page: uint32(p), Offset: uint32(r.off)}
				newRef := heap.Ref{Kind: heap.KindKey, Bucket: uint8(b), Page: uint32(p), Offset: uint32(newOff)}
				moved[oldRef] = newRef
				eng.Index().Insert(slice.Of(r.keyCopy), newRef)
			}
			if !anyDropped {
				continue
			}
			if err := h.Swap(b, uint32(p), scratch); err == nil {
				swapped++
			}
		}
	}
	return moved, disposed, swapped
}

// fixupPointers rewrites every live record's outgoing references that
// named a Ref which just relocated: a key's head_value, and a value's
// prev/parent back-pointers. It must run after both sweeps have
// finished moving records, since a page swept early in the pass may
// hold a pointer into a page swept later in the same pass.
func (c *Collector) fixupPointers(eng *engine.Engine, movedValues, movedKeys map[heap.Ref]heap.Ref) {
	valHeap := eng.ValueHeap()
	for b := 0; b < valHeap.NumBuckets(); b++ {
		for p := 1; p <= valHeap.PageCount(b); p++ {
			page := valHeap.PageView(b, p)
			if page == nil {
				continue
			}
			buf8 := page.Bytes()
			off := int32(0)
			for off < page.Used() {
				region := buf8[off:]
				v := record.DecodeValue(region)
				size := record.ValueSize(len(v.Payload))
				if v.Flags&record.ValueDisposed == 0 {
					if newer, ok := movedValues[v.Prev]; ok {
						record.SetPrev(region, newer)
					}
					switch v.Parent.Kind {
					case heap.KindValue:
						if newer, ok := movedValues[v.Parent]; ok {
							record.SetParent(region, newer)
						}
					case heap.KindKey:
						if newer, ok := movedKeys[v.Parent]; ok {
							record.SetParent(region, newer)
						}
					}
				}
				off += int32(buf.Align8(int(size)))
			}
		}
	}

	keyHeap := eng.KeyHeap()
	for b := 0; b < keyHeap.NumBuckets(); b++ {
		for p := 1; p <= keyHeap.PageCount(b); p++ {
			page := keyHeap.PageView(b, p)
			if page == nil {
				continue
			}
			buf8 := page.Bytes()
			off := int32(0)
			for off < page.Used() {
				region := buf8[off:]
				k := record.Decode(region)
				size := record.Size(len(k.Payload))
				if k.Flags&record.KeyUnreachable == 0 {
					if newer, ok := movedValues[k.HeadValue]; ok {
						record.SetHeadValue(region, newer)
					}
				}
				off += int32(buf.Align8(int(size)))
			}
		}
	}
}
