// Package blob implements the batched blob engine (spec §4.2): reads and
// writes of opaque byte strings addressed by (collection, int64 key)
// pairs, with delete-on-empty write semantics and watch-tracked reads
// fed into the enclosing transaction's conflict detection.
//
// Grounded on the teacher's opget.go/opput.go/opdelete.go (Get/Put/Delete
// over a single bucket), generalized from reflection-driven typed rows to
// raw key/value pairs addressed across many collections, and batched the
// way the teacher's opkv.go batches raw key iteration.
package blob

import (
	"fmt"

	"github.com/example/multikv/arena"
	"github.com/example/multikv/catalog"
	"github.com/example/multikv/engine"
	"github.com/example/multikv/keycodec"
	"github.com/example/multikv/txn"
)

// Place addresses a single blob: a collection id plus a numerically
// ordered key within it.
type Place struct {
	Collection int64
	Key        int64
}

// ReadResult carries the arena-backed outputs of Read. Fields the caller
// didn't request are left nil, per the arena's alloc_or_dummy convention.
type ReadResult struct {
	Values    [][]byte // nil entry = key absent
	Lengths   []uint32 // multikv.LengthMissing where absent
	Presences []bool
}

// Read fetches places in order, writing values into a into a single
// tape so the batch costs one growing allocation instead of one per key.
func Read(t *txn.Txn, a *arena.Arena, places []Place, wantValues, wantLengths, wantPresences bool) (ReadResult, error) {
	etx := t.Engine()

	var tape *arena.Tape
	if wantValues {
		tape = a.NewTape()
	}
	type span struct {
		off, length int
		present     bool
	}
	spans := make([]span, len(places))

	for i, p := range places {
		bucket := catalog.DataBucketName(p.Collection)
		key := keycodec.Encode(p.Key)

		var raw []byte
		if staged, found := t.StagedGet(bucket, key[:]); found {
			raw = staged
		} else {
			b := etx.Bucket(bucket, "")
			if b == nil {
				return ReadResult{}, fmt.Errorf("blob: unknown collection %d", p.Collection)
			}
			raw = b.Get(key[:])
		}
		t.Track(p.Collection, p.Key)

		if raw == nil {
			spans[i] = span{present: false}
			continue
		}
		spans[i].present = true
		if wantValues {
			off, n := tape.Append(raw)
			spans[i].off, spans[i].length = off, n
		} else {
			spans[i].length = len(raw)
		}
	}

	var res ReadResult
	if wantValues {
		final := tape.Bytes()
		res.Values = make([][]byte, len(places))
		for i, s := range spans {
			if s.present {
				res.Values[i] = final[s.off : s.off+s.length]
			}
		}
	}
	if wantLengths {
		res.Lengths = a.Uint32s(len(places), true)
		for i, s := range spans {
			if s.present {
				res.Lengths[i] = uint32(s.length)
			} else {
				res.Lengths[i] = lengthMissing
			}
		}
	}
	if wantPresences {
		res.Presences = a.Bools(len(places), true)
		for i, s := range spans {
			res.Presences[i] = s.present
		}
	}
	return res, nil
}

// lengthMissing mirrors multikv.LengthMissing; duplicated here (rather
// than imported) to keep blob free of a dependency on the top package,
// which itself depends on blob.
const lengthMissing = 0xFFFFFFFF

// WriteOp is a single staged mutation. A nil Value deletes the key,
// matching the delete-on-empty convention ported from opdelete.go/
// opput.go's combined put path.
type WriteOp struct {
	Place Place
	Value []byte
}

// Write stages ops against t, which must be writable. Staged writes are
// only applied to the engine when t.Commit succeeds; until then they're
// visible only to Read calls against the same transaction. Every written
// key is marked in t's write set for conflict detection.
func Write(t *txn.Txn, ops []WriteOp) error {
	if !t.Writable() {
		return fmt.Errorf("blob: write on a read-only transaction")
	}
	etx := t.Engine()
	for _, op := range ops {
		bucket := catalog.DataBucketName(op.Place.Collection)
		if etx.Bucket(bucket, "") == nil {
			return fmt.Errorf("blob: unknown collection %d", op.Place.Collection)
		}
		key := keycodec.Encode(op.Place.Key)
		t.Stage(bucket, key[:], op.Value)
		t.MarkWritten(op.Place.Collection, op.Place.Key)
		t.RecordMutation(encodeMutation(op))
	}
	return nil
}

// encodeMutation packs a write op into the journal's raw record format:
// collection (8 bytes), key (8 bytes), then the value verbatim (empty
// for a delete).
func encodeMutation(op WriteOp) []byte {
	buf := make([]byte, 16+len(op.Value))
	ck := keycodec.Encode(op.Place.Collection)
	k := keycodec.Encode(op.Place.Key)
	copy(buf[0:8], ck[:])
	copy(buf[8:16], k[:])
	copy(buf[16:], op.Value)
	return buf
}

// collectionBucket resolves a collection's data bucket or reports it
// missing, shared by scan.go/sample.go/measure.go.
func collectionBucket(etx engine.Tx, coll int64) (engine.Bucket, error) {
	b := etx.Bucket(catalog.DataBucketName(coll), "")
	if b == nil {
		return nil, fmt.Errorf("blob: unknown collection %d", coll)
	}
	return b, nil
}
