// Package txn implements the optimistic transaction manager described in
// spec §4.3: a transaction does its reads against a read-only snapshot
// (so concurrent transactions never block each other) and stages its
// writes in memory; at Commit time it briefly takes the engine's single
// writable transaction, re-checks that nothing it read has changed since,
// applies its staged writes, and commits. A watched key written by
// another transaction that committed first aborts the commit.
//
// Grounded on the teacher's tx.go (explicit transaction struct wrapping a
// single bbolt.Tx, Commit/Rollback lifecycle) generalized from
// read-or-write-everything transactions to the spec's watched-read-set,
// staged-write model, and on db.go's serialized-writer discipline (the
// storage engine only ever has one writable transaction open at a time;
// Commit is the only moment this transaction needs that slot).
package txn

import (
	"sync"
	"sync/atomic"

	"github.com/example/multikv/engine"
	"github.com/example/multikv/journal"
)

// CollKey identifies a single blob key within a collection, the unit the
// watch set and the write set both track.
type CollKey struct {
	Collection int64
	Key        int64
}

// Manager owns the storage engine and the bookkeeping needed for
// optimistic conflict detection: a monotonically increasing commit
// sequence number, and the sequence number each key was last written at.
type Manager struct {
	storage engine.Storage
	journal *journal.Journal // optional; nil disables the WAL fast path

	seq uint64 // atomic, last committed sequence number

	mu        sync.Mutex
	lastWrite map[CollKey]uint64
}

// NewManager wraps a storage engine with transaction and conflict
// tracking. The manager owns no collection metadata of its own; callers
// address blobs by the same (collection, key) pairs the catalog hands
// out.
func NewManager(storage engine.Storage) *Manager {
	return &Manager{
		storage:   storage,
		lastWrite: make(map[CollKey]uint64),
	}
}

// NewManagerWithJournal is NewManager plus a write-ahead journal for
// flush=false commits (spec §4.2/§4.3): an unflushed writable
// transaction's mutations are appended to j and committed there with a
// checksum but no fsync, and the main store commit itself goes through
// with NoSync set, so unflushed writes may be lost on a crash. j must
// already have had StartWriting called.
func NewManagerWithJournal(storage engine.Storage, j *journal.Journal) *Manager {
	return &Manager{
		storage:   storage,
		journal:   j,
		lastWrite: make(map[CollKey]uint64),
	}
}

// Storage exposes the underlying engine, for components (catalog
// bootstrap, in-process maintenance) that need a raw transaction outside
// the watched-read-set/staged-write model.
func (m *Manager) Storage() engine.Storage { return m.storage }

// Journal returns the manager's write-ahead journal, or nil if none was
// configured. Callers use this to call FinishWriting on shutdown.
func (m *Manager) Journal() *journal.Journal { return m.journal }

// Begin opens a new transaction against a read-only snapshot, so it
// never blocks a concurrent transaction (reader or writer) until it
// actually commits. Writable transactions participate in conflict
// detection unless dontWatch is set, in which case they overwrite
// whatever is there at commit time unconditionally (spec's
// transaction-dont-watch flag), trading isolation for throughput.
func (m *Manager) Begin(writable, dontWatch bool) (*Txn, error) {
	snap, err := m.storage.BeginTx(false)
	if err != nil {
		return nil, err
	}
	t := &Txn{
		mgr:       m,
		snapshot:  snap,
		writable:  writable,
		dontWatch: dontWatch,
		beginSeq:  atomic.LoadUint64(&m.seq),
	}
	if writable && !dontWatch {
		t.watch = make(map[CollKey]struct{})
		t.writes = make(map[CollKey]struct{})
	}
	return t, nil
}

type stagedValue struct {
	value   []byte // nil means deleted
	present bool
}

// Txn is a single in-flight transaction. Not safe for concurrent use by
// more than one goroutine.
type Txn struct {
	mgr       *Manager
	snapshot  engine.Tx // read-only, held for the transaction's whole life
	writable  bool
	dontWatch bool
	beginSeq  uint64

	watch  map[CollKey]struct{}
	writes map[CollKey]struct{}

	// staged holds writes not yet applied to the engine, keyed by bucket
	// name then by the encoded key, so later calls override earlier ones
	// to the same key and Engine reads of our own writes can be answered
	// without touching the engine at all.
	staged map[string]map[string]stagedValue

	journalBuf [][]byte

	done bool
}

// RecordMutation appends a raw encoded mutation to the transaction's
// journal buffer. Writable layers (blob.Write) call this once per write
// op; it's a no-op when the manager has no journal configured, so the
// buffer never grows on a journal-less setup.
func (t *Txn) RecordMutation(data []byte) {
	if t.mgr.journal == nil || !t.writable {
		return
	}
	t.journalBuf = append(t.journalBuf, append([]byte(nil), data...))
}

// RefreshSnapshot drops the transaction's current read-only engine
// snapshot and opens a fresh one, leaving staged writes, the watch set,
// and the write set untouched. Catalog mutations (collection create/
// drop) commit outside the optimistic model in their own engine
// transaction; a caller that does that mid-transaction calls this
// afterward so later Read/Write calls on the same Txn see the new
// collection instead of the stale point-in-time view from Begin.
func (t *Txn) RefreshSnapshot() error {
	if err := t.snapshot.Rollback(); err != nil {
		return err
	}
	snap, err := t.mgr.storage.BeginTx(false)
	if err != nil {
		return err
	}
	t.snapshot = snap
	return nil
}

// Engine returns the transaction's read-only storage snapshot, for
// components that only read (blob.Read, blob.Scan, blob.Sample,
// blob.Measure). Writes must go through Stage/StagedGet instead, since
// the snapshot is never writable.
func (t *Txn) Engine() engine.Tx { return t.snapshot }

// Writable reports whether this transaction was opened for writing.
func (t *Txn) Writable() bool { return t.writable }

// Stage records a pending write against bucket/key, to be applied when
// the transaction commits. A nil value stages a delete. Overwrites any
// previous staged value for the same bucket/key.
func (t *Txn) Stage(bucket string, key, value []byte) {
	if t.staged == nil {
		t.staged = make(map[string]map[string]stagedValue)
	}
	b := t.staged[bucket]
	if b == nil {
		b = make(map[string]stagedValue)
		t.staged[bucket] = b
	}
	sv := stagedValue{present: true}
	if value != nil {
		sv.value = append([]byte(nil), value...)
	}
	b[string(key)] = sv
}

// StagedGet looks up a pending write for bucket/key staged earlier in
// this same transaction, implementing read-your-own-writes. found is
// false if nothing has been staged for this key yet (the caller should
// fall back to the engine snapshot); when found is true and value is nil,
// the key is staged for deletion.
func (t *Txn) StagedGet(bucket string, key []byte) (value []byte, found bool) {
	b := t.staged[bucket]
	if b == nil {
		return nil, false
	}
	sv, ok := b[string(key)]
	if !ok {
		return nil, false
	}
	return sv.value, true
}

// Track records that key was read during this transaction, so a
// conflicting write by another transaction aborts this one at commit.
// A no-op on read-only or dont-watch transactions.
func (t *Txn) Track(coll, key int64) {
	if t.watch == nil {
		return
	}
	t.watch[CollKey{coll, key}] = struct{}{}
}

// MarkWritten records that key was written during this transaction. Only
// meaningful on writable, watched transactions; ignored otherwise.
func (t *Txn) MarkWritten(coll, key int64) {
	if t.writes == nil {
		return
	}
	t.writes[CollKey{coll, key}] = struct{}{}
}

// ErrConflict is returned by Commit when a watched key was modified by a
// transaction that committed after this one began.
var ErrConflict = txnConflictError{}

type txnConflictError struct{}

func (txnConflictError) Error() string { return "txn: conflicting write to a watched key" }

// Commit finalizes the transaction. For writable transactions, flush
// controls durability the same way engine.Tx.Commit does. Read-only
// transactions ignore flush and simply release the underlying snapshot.
func (t *Txn) Commit(flush bool) error {
	if t.done {
		return nil
	}
	defer func() { t.done = true }()
	defer t.snapshot.Rollback()

	if !t.writable {
		return nil
	}

	wtx, err := t.mgr.storage.BeginTx(true)
	if err != nil {
		return err
	}

	if t.watch != nil {
		t.mgr.mu.Lock()
		conflict := false
		for k := range t.watch {
			if last, ok := t.mgr.lastWrite[k]; ok && last > t.beginSeq {
				conflict = true
				break
			}
		}
		if conflict {
			t.mgr.mu.Unlock()
			_ = wtx.Rollback()
			return ErrConflict
		}
	}

	for bucket, entries := range t.staged {
		b := wtx.Bucket(bucket, "")
		if b == nil {
			if t.watch != nil {
				t.mgr.mu.Unlock()
			}
			_ = wtx.Rollback()
			return newBucketGoneError(bucket)
		}
		for key, sv := range entries {
			var err error
			if sv.value == nil {
				err = b.Delete([]byte(key))
			} else {
				err = b.Put([]byte(key), sv.value)
			}
			if err != nil {
				if t.watch != nil {
					t.mgr.mu.Unlock()
				}
				_ = wtx.Rollback()
				return err
			}
		}
	}

	if !flush && t.mgr.journal != nil && len(t.journalBuf) > 0 {
		ts := t.mgr.journal.Now()
		for _, rec := range t.journalBuf {
			if err := t.mgr.journal.WriteRecord(ts, rec); err != nil {
				if t.watch != nil {
					t.mgr.mu.Unlock()
				}
				_ = wtx.Rollback()
				return err
			}
		}
		if err := t.mgr.journal.Commit(); err != nil {
			if t.watch != nil {
				t.mgr.mu.Unlock()
			}
			_ = wtx.Rollback()
			return err
		}
	}

	if err := wtx.Commit(flush); err != nil {
		if t.watch != nil {
			t.mgr.mu.Unlock()
		}
		return err
	}

	if t.watch != nil {
		newSeq := atomic.AddUint64(&t.mgr.seq, 1)
		for k := range t.writes {
			t.mgr.lastWrite[k] = newSeq
		}
		t.mgr.mu.Unlock()
	}

	return nil
}

type bucketGoneError struct{ bucket string }

func newBucketGoneError(bucket string) error { return bucketGoneError{bucket} }

func (e bucketGoneError) Error() string {
	return "txn: bucket " + e.bucket + " no longer exists at commit time"
}

// Discard rolls back the transaction, dropping any staged writes. Safe to
// call after Commit (no-op) and safe to call multiple times.
func (t *Txn) Discard() error {
	if t.done {
		return nil
	}
	t.done = true
	return t.snapshot.Rollback()
}

// Free releases the transaction if it was neither committed nor
// discarded, matching the spec's explicit free-on-every-path lifecycle
// for callers that may bail out early on error.
func (t *Txn) Free() {
	if !t.done {
		_ = t.Discard()
	}
}
