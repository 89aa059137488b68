package blob

import (
	"github.com/example/multikv/arena"
	"github.com/example/multikv/keycodec"
	"github.com/example/multikv/txn"
)

// ScanOptions bounds a Scan. Start/End are inclusive when non-nil; a nil
// bound means "to the edge of the collection". Reverse walks from End
// down to Start. Limit caps the number of pairs returned (0 = unbounded),
// generalizing the teacher's opscan.go RawRange/RawTableCursor machinery
// from a single always-forward table scan to a bounded, optionally
// reversed range over any collection.
type ScanOptions struct {
	Start   *int64
	End     *int64
	Reverse bool
	Limit   int
}

// Scan walks a collection's keys in numeric order, writing matched values
// into one tape the way Read does. Scan reads directly against t's
// engine snapshot and does not see writes staged earlier in the same
// transaction via Write; only point reads through Read get
// read-your-own-writes.
func Scan(t *txn.Txn, a *arena.Arena, coll int64, opts ScanOptions) (keys []int64, values [][]byte, err error) {
	b, err := collectionBucket(t.Engine(), coll)
	if err != nil {
		return nil, nil, err
	}
	cur := b.Cursor()

	type pair struct {
		key         int64
		off, length int
	}
	var pairs []pair
	tape := a.NewTape()

	within := func(k int64) bool {
		if opts.Start != nil && k < *opts.Start {
			return false
		}
		if opts.End != nil && k > *opts.End {
			return false
		}
		return true
	}

	var rk, rv []byte
	if opts.Reverse {
		if opts.End != nil {
			enc := keycodec.Encode(*opts.End)
			rk, rv = cur.Seek(enc[:])
			if rk == nil {
				rk, rv = cur.Last()
			} else if keycodec.Decode(rk) > *opts.End {
				rk, rv = cur.Prev()
			}
		} else {
			rk, rv = cur.Last()
		}
		for rk != nil {
			k := keycodec.Decode(rk)
			if opts.Start != nil && k < *opts.Start {
				break
			}
			if within(k) {
				off, n := tape.Append(rv)
				pairs = append(pairs, pair{k, off, n})
				if opts.Limit > 0 && len(pairs) >= opts.Limit {
					break
				}
			}
			rk, rv = cur.Prev()
		}
	} else {
		if opts.Start != nil {
			enc := keycodec.Encode(*opts.Start)
			rk, rv = cur.Seek(enc[:])
		} else {
			rk, rv = cur.First()
		}
		for rk != nil {
			k := keycodec.Decode(rk)
			if opts.End != nil && k > *opts.End {
				break
			}
			if within(k) {
				off, n := tape.Append(rv)
				pairs = append(pairs, pair{k, off, n})
				if opts.Limit > 0 && len(pairs) >= opts.Limit {
					break
				}
			}
			rk, rv = cur.Next()
		}
	}

	final := tape.Bytes()
	keys = make([]int64, len(pairs))
	values = make([][]byte, len(pairs))
	for i, p := range pairs {
		keys[i] = p.key
		values[i] = final[p.off : p.off+p.length]
		t.Track(coll, p.key)
	}
	return keys, values, nil
}
