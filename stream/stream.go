// Package stream implements the batched, restartable key-stream cursor
// (spec §4.8): a caller-driven iterator that pulls one bounded batch of
// keys/values at a time out of a collection, rather than handing back a
// single long-lived cursor object tied to one transaction.
//
// Grounded on the teacher's rawrange_cursor (batched raw-range iteration
// over a bucket) generalized from one always-forward full-table walk to
// a resumable cursor that can be seeded at an arbitrary key and
// re-entered across separate calls/transactions.
package stream

import (
	"math"

	"github.com/example/multikv/arena"
	"github.com/example/multikv/blob"
	"github.com/example/multikv/txn"
)

// Stream is a resumable position within one collection's key space. It
// holds no transaction or storage handle: each batch pull takes its own
// Txn, so a Stream can be parked between transactions.
type Stream struct {
	coll    int64
	next    *int64
	end     bool
}

// New returns a stream over coll positioned before the first key.
func New(coll int64) *Stream {
	return &Stream{coll: coll}
}

// SeekToFirst resets the stream to the start of the collection.
func (s *Stream) SeekToFirst() {
	s.next = nil
	s.end = false
}

// Seek repositions the stream so the next batch starts at the first key
// >= key.
func (s *Stream) Seek(key int64) {
	k := key
	s.next = &k
	s.end = false
}

// IsEnd reports whether the stream has been exhausted: the last
// NextBatch call returned fewer entries than requested.
func (s *Stream) IsEnd() bool { return s.end }

// NextBatch pulls up to batchSize (key, value) pairs starting at the
// stream's current position and advances it past the last key returned.
// Fewer than batchSize results means the stream is now at its end.
func (s *Stream) NextBatch(t *txn.Txn, a *arena.Arena, batchSize int) (keys []int64, values [][]byte, err error) {
	if s.end {
		return nil, nil, nil
	}
	keys, values, err = blob.Scan(t, a, s.coll, blob.ScanOptions{
		Start: s.next,
		Limit: batchSize,
	})
	if err != nil {
		return nil, nil, err
	}
	if len(keys) < batchSize {
		s.end = true
		return keys, values, nil
	}
	last := keys[len(keys)-1]
	if last == math.MaxInt64 {
		s.end = true
		return keys, values, nil
	}
	advanced := last + 1
	s.next = &advanced
	return keys, values, nil
}
