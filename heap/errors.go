package heap

import "github.com/vkvdb/vkv/vkverr"

// ErrOutOfMemory indicates that no free region large enough was found
// and growing the heap with a new page failed or would exceed the
// configured maximum.
var ErrOutOfMemory = vkverr.OutOfMemory

// ErrBadRef indicates an invalid or out-of-bounds record reference,
// most often a reference into a page that has since been swapped out
// by the collector.
var ErrBadRef = vkverr.New(vkverr.KindCorrupted, "heap: stale or out-of-bounds reference", nil)
