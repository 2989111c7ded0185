// Package heap implements the bucketed page arena that backs both the
// key heap and the value heap: records are bump-allocated into
// size-classed pages and reclaimed only in bulk, when the collector
// copies a page's live records into a scratch page and swaps it in.
//
// Grounded on hivekit's hive/alloc.FastAllocator, simplified from a
// general-purpose free-list allocator (which hive/alloc needs because
// registry cells are edited and freed individually) down to a pure
// bump/copy-compact allocator, since this engine's only in-place
// mutations are fixed-width header fields of an existing record (flag
// bits and the head_value, prev and parent references); payloads are
// append-only until the collector runs (spec §4.B, §4.H).
package heap

import "sync"

// pageSlot holds one page behind its own mutex, which Resolve, append
// and Swap each take briefly, so a Swap on one page does not block
// access to other pages.
type pageSlot struct {
	mu   sync.Mutex // serializes append bump-allocation within this page
	page *Page
}

type bucket struct {
	spec  BucketSpec
	mu    sync.Mutex // protects growth of pages (append-only slice)
	pages []*pageSlot
}

// Heap is a size-classed bump allocator for one record family (keys or
// values). Kind tags every Ref minted by this heap so that a record's
// back-pointer can be resolved against the right heap.
type Heap struct {
	kind    Kind
	cfg     Config
	buckets []*bucket
}

// New builds an empty heap with no pages allocated yet; pages are
// grown lazily on first Append into a given bucket.
func New(kind Kind, cfg Config) *Heap {
	h := &Heap{kind: kind, cfg: cfg}
	h.buckets = make([]*bucket, len(cfg.Buckets))
	for i, spec := range cfg.Buckets {
		h.buckets[i] = &bucket{spec: spec}
	}
	return h
}

// Kind reports which record family this heap serves.
func (h *Heap) Kind() Kind { return h.kind }

// Append bump-allocates size bytes for a new record and returns a Ref
// to it along with the backing region to fill in. It fails with
// ErrOutOfMemory if size exceeds every configured bucket, or if growing
// the heap with a fresh page is not possible.
func (h *Heap) Append(size int32) (Ref, []byte, error) {
	idx := classFor(h.cfg, size)
	if idx < 0 {
		return Ref{}, nil, ErrOutOfMemory
	}
	b := h.buckets[idx]

	for {
		slot, pageNum, err := h.currentPage(b)
		if err != nil {
			return Ref{}, nil, err
		}
		slot.mu.Lock()
		off, region, ok := slot.page.append(size)
		slot.mu.Unlock()
		if ok {
			return Ref{
				Kind:   h.kind,
				Bucket: uint8(idx),
				Page:   pageNum,
				Offset: uint32(off),
			}, region, nil
		}
		// Current page is full; grow and retry. Another goroutine may
		// have already grown it between our check and the lock, in
		// which case the loop simply finds the new page has room.
		if err := h.grow(b); err != nil {
			return Ref{}, nil, err
		}
	}
}

// currentPage returns the bucket's last page, allocating the first one
// if the bucket is still empty.
func (h *Heap) currentPage(b *bucket) (*pageSlot, uint32, error) {
	b.mu.Lock()
	if len(b.pages) == 0 {
		b.mu.Unlock()
		if err := h.grow(b); err != nil {
			return nil, 0, err
		}
		b.mu.Lock()
	}
	slot := b.pages[len(b.pages)-1]
	num := uint32(len(b.pages))
	b.mu.Unlock()
	return slot, num, nil
}

// grow appends a fresh page to the bucket.
func (h *Heap) grow(b *bucket) error {
	if b.spec.PageSize <= 0 {
		return ErrOutOfMemory
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pages = append(b.pages, &pageSlot{page: newPage(b.spec.PageSize)})
	return nil
}

// Resolve returns the bytes starting at ref's offset within its page,
// running to the end of the page; callers re-slice to the record's
// known header+payload size. It fails with ErrBadRef if ref was minted
// by a different heap, or no longer names a live page.
func (h *Heap) Resolve(ref Ref) ([]byte, error) {
	if ref.Kind != h.kind || !ref.Valid() {
		return nil, ErrBadRef
	}
	if int(ref.Bucket) >= len(h.buckets) {
		return nil, ErrBadRef
	}
	b := h.buckets[ref.Bucket]
	b.mu.Lock()
	idx := int(ref.Page) - 1
	if idx < 0 || idx >= len(b.pages) {
		b.mu.Unlock()
		return nil, ErrBadRef
	}
	slot := b.pages[idx]
	b.mu.Unlock()

	slot.mu.Lock()
	page := slot.page
	slot.mu.Unlock()

	if int(ref.Offset) >= len(page.buf) {
		return nil, ErrBadRef
	}
	return page.buf[ref.Offset:], nil
}

// PageCount reports how many pages a bucket currently owns.
func (h *Heap) PageCount(bucketIdx int) int {
	b := h.buckets[bucketIdx]
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pages)
}

// NumBuckets reports the number of size classes configured for this
// heap.
func (h *Heap) NumBuckets() int { return len(h.buckets) }

// PageView exposes a page's bytes read-only, for the collector's sweep
// and pointer fix-up passes, which walk every record header in the page.
func (h *Heap) PageView(bucketIdx, pageNumber int) *Page {
	b := h.buckets[bucketIdx]
	b.mu.Lock()
	idx := pageNumber - 1
	if idx < 0 || idx >= len(b.pages) {
		b.mu.Unlock()
		return nil
	}
	slot := b.pages[idx]
	b.mu.Unlock()

	slot.mu.Lock()
	defer slot.mu.Unlock()
	return slot.page
}

// NewScratchPage allocates an empty page sized for the given bucket,
// for the collector to copy live records into ahead of Swap.
func (h *Heap) NewScratchPage(bucketIdx int) *Page {
	return newPage(h.buckets[bucketIdx].spec.PageSize)
}

// Swap atomically replaces the backing page at (bucketIdx, pageNumber)
// with scratch, releasing the old page's memory to the garbage
// collector. Any Ref still pointing at the old page's offsets becomes
// invalid; the collector is responsible for having already rewritten
// every live back-pointer before calling Swap (spec §4.H).
func (h *Heap) Swap(bucketIdx int, pageNumber uint32, scratch *Page) error {
	if bucketIdx < 0 || bucketIdx >= len(h.buckets) {
		return ErrBadRef
	}
	b := h.buckets[bucketIdx]
	b.mu.Lock()
	idx := int(pageNumber) - 1
	if idx < 0 || idx >= len(b.pages) {
		b.mu.Unlock()
		return ErrBadRef
	}
	slot := b.pages[idx]
	b.mu.Unlock()

	slot.mu.Lock()
	slot.page = scratch
	slot.mu.Unlock()
	return nil
}

// Stats summarizes one bucket's occupancy.
type Stats struct {
	Bucket    int
	Pages     int
	Capacity  int64
	Used      int64
}

// Stats reports per-bucket page counts and byte occupancy, used by
// vkv.DB.Stats and, through it, vkvctl's stats command.
func (h *Heap) Stats() []Stats {
	out := make([]Stats, len(h.buckets))
	for i, b := range h.buckets {
		b.mu.Lock()
		pages := append([]*pageSlot(nil), b.pages...)
		b.mu.Unlock()

		st := Stats{Bucket: i, Pages: len(pages)}
		for _, slot := range pages {
			slot.mu.Lock()
			st.Capacity += int64(slot.page.Cap())
			st.Used += int64(slot.page.Used())
			slot.mu.Unlock()
		}
		out[i] = st
	}
	return out
}

// Dispose releases every page in every bucket. The heap is unusable
// afterward.
func (h *Heap) Dispose() {
	for _, b := range h.buckets {
		b.mu.Lock()
		b.pages = nil
		b.mu.Unlock()
	}
}
