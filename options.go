package multikv

import "log/slog"

// Sentinels, bit-exact per §6.
const (
	// CollectionMain is the id of the always-present anonymous collection.
	CollectionMain int64 = 0

	// LengthMissing is the length sentinel for an absent value (2^32-1).
	LengthMissing uint32 = 0xFFFFFFFF

	// KeyUnknown is the reserved "no such key" sentinel (2^63-1).
	KeyUnknown int64 = 0x7FFFFFFFFFFFFFFF

	// DefaultEdgeID marks an unlabeled graph edge.
	DefaultEdgeID int64 = 0

	// MissingDegree is the reserved degree sentinel for a vertex that
	// doesn't exist. The graph package does not return it: Degree reports
	// 0 and FindEdges an empty list for an absent vertex.
	MissingDegree int64 = -1
)

// Flags is the small options bitset threaded through batched calls (§6).
// Unknown bits must be rejected by validateFlags.
type Flags uint32

const (
	// WriteFlush forces fsync and bypasses the journal fast path.
	WriteFlush Flags = 1 << iota
	// TransactionDontWatch, passed to DB.Begin, makes every read of that
	// transaction untracked (no OCC enrollment). It applies to the whole
	// transaction; individual reads cannot opt out.
	TransactionDontWatch
	// ReadSharedMemory requests a zero-copy view into the engine's own
	// memory-mapped pages instead of a copy into the arena, where the
	// engine can provide one.
	ReadSharedMemory
	// ScanBulk hints that the scan is expected to touch many keys, so the
	// engine may prefetch/read-ahead more aggressively.
	ScanBulk

	knownFlags = WriteFlush | TransactionDontWatch | ReadSharedMemory | ScanBulk
)

func (f Flags) Has(v Flags) bool { return f&v != 0 }

func validateFlags(f Flags) error {
	if f&^knownFlags != 0 {
		return wrapErr(KindInvalidArgument, ErrUnknownOption, "flags=%#x", uint32(f))
	}
	return nil
}

// DropMode selects how the collection catalog disposes of a collection;
// defined in package catalog and re-exported from the top package (see
// multikv.go) so it only needs documenting once.

// Capability flags, published as compile-time booleans per §6. This build
// always backs onto bbolt, whose transactions are already consistent
// point-in-time snapshots and which natively supports named buckets and
// optimistic commit retries, so all three are true.
const (
	SupportsTransactions    = true
	SupportsNamedCollections = true
	SupportsSnapshots       = true
)

// Options configures Open. Mirrors the teacher's edb.Options shape:
// a logf hook, a verbosity flag, and a testing-only durability relaxation.
type Options struct {
	// Logf receives one-line operation traces when Verbose is true.
	Logf func(format string, args ...any)
	// Verbose turns on the operation-boundary trace log.
	Verbose bool
	// IsTesting is stored with the options but not read by Open or the
	// storage engine: setting it changes neither fsync behavior nor the
	// initial mmap size.
	IsTesting bool
	// MmapSize overrides bbolt's initial mmap size.
	MmapSize int
	// JournalDir, if non-empty, turns on the write-ahead journal for
	// flush=false commits, writing segment files into that directory. The
	// journal appends and checksums records but does not fsync them. Leave empty to route every commit straight through
	// the storage engine (simpler, but flush=false then behaves exactly
	// like flush=true apart from the NoSync toggle).
	JournalDir string
	// JournalSegmentBytes is passed to the journal as its MaxFileSize and
	// recorded in the CONFIG file. Zero picks journal.DefaultMaxFileSize.
	// The journal does not split segments at this size: it keeps appending
	// to the current segment whatever its length.
	JournalSegmentBytes int64
	// Logger is stored with the options; no package in this module logs
	// through it.
	Logger *slog.Logger
}

func (o Options) logf(format string, args ...any) {
	if o.Verbose && o.Logf != nil {
		o.Logf(format, args...)
	}
}
