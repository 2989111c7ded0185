package heap

import "github.com/vkvdb/vkv/internal/buf"

// Page is a single bump-allocated arena: a fixed-capacity byte buffer
// with a monotonically increasing write pointer. Records inside a page
// are never moved or resized in place; the only way to reclaim space is
// for the collector to copy the page's still-live records into a fresh
// scratch page and Heap.Swap the two (spec §4.B/§4.H).
type Page struct {
	buf  []byte
	used int32
}

func newPage(size int32) *Page {
	return &Page{buf: make([]byte, size)}
}

// Cap returns the page's total capacity in bytes.
func (p *Page) Cap() int32 { return int32(len(p.buf)) }

// Used returns the number of bytes already bump-allocated (including
// alignment padding).
func (p *Page) Used() int32 { return p.used }

// FreeRatio returns the fraction of the page not yet allocated. The
// collector's sweep threshold does not use it; it compares reclaimable
// bytes against Used instead.
func (p *Page) FreeRatio() float64 {
	if len(p.buf) == 0 {
		return 0
	}
	return 1 - float64(p.used)/float64(len(p.buf))
}

// append bump-allocates n bytes, 8-byte aligned, returning the region's
// offset within the page and a slice of exactly n bytes. ok is false if
// the page does not have room.
func (p *Page) append(n int32) (off int32, region []byte, ok bool) {
	aligned := int32(buf.Align8(int(n)))
	if aligned < 0 || p.used+aligned > int32(len(p.buf)) {
		return 0, nil, false
	}
	off = p.used
	region = p.buf[off : off+n : off+n]
	p.used += aligned
	return off, region, true
}

// Bytes returns the page's full backing buffer, for walking every
// record header-to-header during the collector's sweep and fix-up passes.
func (p *Page) Bytes() []byte { return p.buf }

// Append bump-allocates n bytes into a scratch page, 8-byte aligned,
// exactly like the unexported append the heap uses internally. Exported
// for the collector, which builds scratch pages directly rather than
// through a Heap.
func (p *Page) Append(n int32) (off int32, region []byte, ok bool) {
	return p.append(n)
}
