// Package arena implements the scoped bump allocator described in spec
// §4.1: every batched call writes its outputs into a caller-owned Arena
// instead of allocating per-call garbage, and the Arena is cleared and
// reused across calls.
//
// Grounded on the teacher's pools.go (sync.Pool-backed byte buffers reused
// across calls: keyBytesPool, valueBytesPool, indexRowsPool) and
// byteutil.go's ensureCapacity/grow growth discipline, generalized from a
// handful of purpose-specific pools into one caller-owned arena that can
// mint any number of Tapes and typed slices, and release them all at once.
package arena

import "sync"

// Arena is a single-threaded, reusable bump allocator. It is not safe for
// concurrent use: at most one outstanding call per Arena at a time (§5).
type Arena struct {
	tapes []*Tape
}

// New returns a fresh, empty Arena.
func New() *Arena {
	return &Arena{}
}

// NewTape mints a pooled byte Tape owned by this arena. The Tape's
// backing array is returned to the shared pool on Reset.
func (a *Arena) NewTape() *Tape {
	buf := tapePool.Get().([]byte)
	t := &Tape{buf: buf[:0]}
	a.tapes = append(a.tapes, t)
	return t
}

// Int64s allocates a plain slice of n int64s owned by this arena's call.
// want=false implements alloc_or_dummy: when the caller doesn't need this
// output, Int64s returns nil immediately instead of doing the allocation.
func (a *Arena) Int64s(n int, want bool) []int64 {
	if !want || n == 0 {
		return nil
	}
	return make([]int64, n)
}

// Uint32s allocates a plain slice of n uint32s, or nil when want is false.
func (a *Arena) Uint32s(n int, want bool) []uint32 {
	if !want || n == 0 {
		return nil
	}
	return make([]uint32, n)
}

// Bools allocates a plain slice of n bools (presence/validity bits), or
// nil when want is false.
func (a *Arena) Bools(n int, want bool) []bool {
	if !want || n == 0 {
		return nil
	}
	return make([]bool, n)
}

// Reset releases every Tape minted by this arena back to the shared pool
// and forgets them. The arena itself remains usable for the next call.
func (a *Arena) Reset() {
	for _, t := range a.tapes {
		if cap(t.buf) > 0 {
			tapePool.Put(t.buf[:0])
		}
		t.buf = nil
	}
	a.tapes = a.tapes[:0]
}

var tapePool = &sync.Pool{
	New: func() any {
		return make([]byte, 0, 65536)
	},
}

// Tape is a packed byte buffer indexed by parallel offsets/lengths arrays
// (spec glossary: "Tape"). Append grows the backing array geometrically,
// mirroring byteutil.go's ensureCapacity/grow.
type Tape struct {
	buf []byte
}

// Append writes b to the tape and returns its (offset, length) within the
// tape's final byte slice.
func (t *Tape) Append(b []byte) (offset, length int) {
	offset = len(t.buf)
	t.buf = ensureCapacity(t.buf, len(t.buf)+len(b))
	t.buf = append(t.buf, b...)
	return offset, len(b)
}

// Bytes returns the tape's contents so far. The returned slice is only
// valid until the owning arena is Reset.
func (t *Tape) Bytes() []byte { return t.buf }

// Len reports the number of bytes written to the tape so far.
func (t *Tape) Len() int { return len(t.buf) }

// ensureCapacity grows buf's capacity to at least minCap, doubling each
// time, ported from the teacher's byteutil.go.
func ensureCapacity(buf []byte, minCap int) []byte {
	if cap(buf) >= minCap {
		return buf
	}
	newCap := cap(buf)
	if newCap == 0 {
		newCap = 64
	}
	for newCap < minCap {
		newCap *= 2
	}
	grown := make([]byte, len(buf), newCap)
	copy(grown, buf)
	return grown
}
