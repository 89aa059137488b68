package blob

import (
	"math/rand"

	"github.com/example/multikv/arena"
	"github.com/example/multikv/keycodec"
	"github.com/example/multikv/txn"
)

// Sample draws up to n keys from coll using reservoir sampling over a
// single forward cursor pass, so the cost is one scan regardless of the
// sample size. seed makes the draw reproducible for tests.
func Sample(t *txn.Txn, a *arena.Arena, coll int64, n int, seed int64) (keys []int64, values [][]byte, err error) {
	if n <= 0 {
		return nil, nil, nil
	}
	b, err := collectionBucket(t.Engine(), coll)
	if err != nil {
		return nil, nil, err
	}
	cur := b.Cursor()
	rng := rand.New(rand.NewSource(seed))

	type pair struct {
		key   int64
		value []byte
	}
	reservoir := make([]pair, 0, n)

	seen := 0
	for k, v := cur.First(); k != nil; k, v = cur.Next() {
		seen++
		key := keycodec.Decode(k)
		val := append([]byte(nil), v...)
		if len(reservoir) < n {
			reservoir = append(reservoir, pair{key, val})
			continue
		}
		j := rng.Intn(seen)
		if j < n {
			reservoir[j] = pair{key, val}
		}
	}

	tape := a.NewTape()
	offs := make([]int, len(reservoir))
	lens := make([]int, len(reservoir))
	for i, p := range reservoir {
		offs[i], lens[i] = tape.Append(p.value)
	}

	final := tape.Bytes()
	keys = make([]int64, len(reservoir))
	values = make([][]byte, len(reservoir))
	for i, p := range reservoir {
		keys[i] = p.key
		values[i] = final[offs[i] : offs[i]+lens[i]]
		t.Track(coll, p.key)
	}
	return keys, values, nil
}
