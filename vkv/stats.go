package vkv

import (
	"github.com/vkvdb/vkv/heap"
	"github.com/vkvdb/vkv/index"
)

// Stats reports occupancy across the index and both heaps, for
// diagnostics and cmd/vkvctl's stats subcommand. Supplements spec.md
// §4.H, which specifies the collector's algorithm but not
// observability (SPEC_FULL.md §10).
type Stats struct {
	Index      index.Stats
	KeyHeap    []heap.Stats
	ValueHeap  []heap.Stats
	LastCommit uint64
}

// Stats reports current index and heap occupancy.
func (db *DB) Stats() Stats {
	return Stats{
		Index:      db.eng.Index().Stats(),
		KeyHeap:    db.eng.KeyHeap().Stats(),
		ValueHeap:  db.eng.ValueHeap().Stats(),
		LastCommit: db.eng.LastCommitSeq(),
	}
}
