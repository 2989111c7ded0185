// Package snapshot implements the wire codec of spec.md §6's snapshot
// stream: a length-prefixed, binary dump of every live (key, value)
// pair as of a chosen commit sequence, and the matching reader.
//
// Grounded on hivekit's hive/printer package, which dispatches one
// shared encoding entry point across several codecs (json.go/text.go/
// reg.go); this package plays the same "single Export call, one codec"
// role, just with a single binary format rather than several.
package snapshot

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// Record is one exported (key, value) pair. The commit sequence the
// pairs were read at is carried once for the whole stream, not per
// record.
type Record struct {
	Key   []byte
	Value []byte
}

// Source is the read surface Export needs: a snapshot-isolated range
// scan over every live key, in any order. package vkv satisfies this
// with an adapter whose Pairs runs a full-keyspace GetRange on a Tx.
type Source interface {
	Pairs() ([]Record, error)
}

// Export writes every record in src to w, preceded by the commit
// sequence it was taken at: uvarint key length + key bytes, uvarint
// value length + value bytes, repeated, terminated by a single
// zero-length uvarint sentinel. seq is written first as a fixed
// little-endian uint64 so a reader can validate it was built against
// the version it expects before decoding further.
func Export(seq uint64, src Source, w io.Writer) error {
	bw := bufio.NewWriter(w)

	var seqBuf [8]byte
	binary.LittleEndian.PutUint64(seqBuf[:], seq)
	if _, err := bw.Write(seqBuf[:]); err != nil {
		return err
	}

	records, err := src.Pairs()
	if err != nil {
		return err
	}

	var lenBuf [binary.MaxVarintLen64]byte
	writeChunk := func(b []byte) error {
		n := binary.PutUvarint(lenBuf[:], uint64(len(b)))
		if _, err := bw.Write(lenBuf[:n]); err != nil {
			return err
		}
		if len(b) == 0 {
			return nil
		}
		_, err := bw.Write(b)
		return err
	}

	for _, r := range records {
		if len(r.Key) == 0 {
			return fmt.Errorf("snapshot: empty key is reserved as the stream sentinel")
		}
		if err := writeChunk(r.Key); err != nil {
			return err
		}
		if err := writeChunk(r.Value); err != nil {
			return err
		}
	}

	// Zero-length key terminates the stream.
	n := binary.PutUvarint(lenBuf[:], 0)
	if _, err := bw.Write(lenBuf[:n]); err != nil {
		return err
	}
	return bw.Flush()
}

// Import reads a stream written by Export, returning the commit
// sequence it was taken at and every record.
func Import(r io.Reader) (uint64, []Record, error) {
	br := bufio.NewReader(r)

	var seqBuf [8]byte
	if _, err := io.ReadFull(br, seqBuf[:]); err != nil {
		return 0, nil, fmt.Errorf("snapshot: reading sequence header: %w", err)
	}
	seq := binary.LittleEndian.Uint64(seqBuf[:])

	var records []Record
	for {
		keyLen, err := binary.ReadUvarint(br)
		if err != nil {
			return 0, nil, fmt.Errorf("snapshot: reading key length: %w", err)
		}
		if keyLen == 0 {
			break // stream sentinel
		}
		key := make([]byte, keyLen)
		if _, err := io.ReadFull(br, key); err != nil {
			return 0, nil, fmt.Errorf("snapshot: reading key: %w", err)
		}

		valLen, err := binary.ReadUvarint(br)
		if err != nil {
			return 0, nil, fmt.Errorf("snapshot: reading value length: %w", err)
		}
		var value []byte
		if valLen > 0 {
			value = make([]byte, valLen)
			if _, err := io.ReadFull(br, value); err != nil {
				return 0, nil, fmt.Errorf("snapshot: reading value: %w", err)
			}
		}

		records = append(records, Record{Key: key, Value: value})
	}

	return seq, records, nil
}
