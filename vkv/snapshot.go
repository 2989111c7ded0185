package vkv

import (
	"bytes"
	"io"

	"github.com/vkvdb/vkv/engine"
	"github.com/vkvdb/vkv/snapshot"
)

// fullRangeEnd is a selector guaranteed to resolve past the last
// possible key: a single byte string one byte longer than the largest
// key the engine accepts (spec.md §3's 10,000-byte ceiling), filled
// with 0xFF so no accepted key can compare greater than or equal to it.
func fullRangeEnd() KeySelector {
	sentinel := bytes.Repeat([]byte{0xFF}, engine.MaxKeySize+1)
	return KeySelector{RefKey: sentinel, OrEqual: true}
}

func fullRangeBegin() KeySelector {
	return KeySelector{RefKey: nil, OrEqual: true}
}

type pairSource struct{ pairs []KeyValue }

func (s pairSource) Pairs() ([]snapshot.Record, error) {
	out := make([]snapshot.Record, len(s.pairs))
	for i, p := range s.pairs {
		out[i] = snapshot.Record{Key: p.Key, Value: p.Value}
	}
	return out, nil
}

// ExportSnapshot writes every live key in db, as of a fresh snapshot
// read, to w using the snapshot package's wire codec (spec.md §6).
func (db *DB) ExportSnapshot(w io.Writer) error {
	tx := db.BeginTransaction()
	seq, err := tx.GetReadVersion()
	if err != nil {
		return err
	}
	pairs, err := tx.GetRange(fullRangeBegin(), fullRangeEnd(), 0, false, WantAll, true)
	if err != nil {
		return err
	}
	return snapshot.Export(seq, pairSource{pairs: pairs}, w)
}

// ImportSnapshot reads a stream written by ExportSnapshot (or
// snapshot.Export directly) and applies every record as a Set in one
// transaction, returning the new commit sequence. The sequence the
// stream was exported at is available to callers that want to log it,
// but does not otherwise constrain the import.
func (db *DB) ImportSnapshot(r io.Reader) (exportedAt uint64, committedAt uint64, err error) {
	exportedAt, records, err := snapshot.Import(r)
	if err != nil {
		return 0, 0, err
	}

	tx := db.BeginTransaction()
	for _, rec := range records {
		if err := tx.Set(rec.Key, rec.Value); err != nil {
			return exportedAt, 0, err
		}
	}
	committedAt, err = tx.Commit()
	if err != nil {
		return exportedAt, 0, err
	}
	return exportedAt, committedAt, nil
}
