// Package multikv implements a unified, multi-modal, transactional
// key-value substrate on top of a single embedded storage engine. It
// exposes three logical data models over the same sorted key space:
// opaque blobs addressed by (collection, int64 key), JSON documents
// layered on top of blobs with merge/patch semantics, and a directed
// multigraph whose adjacency lists are themselves stored as blobs.
//
// Collections are numbered, named partitions of the key space managed by
// the catalog; collection 0 (CollectionMain) always exists. Keys within a
// collection are ordered numerically, not lexicographically. Every
// mutation happens inside an explicit transaction opened with Begin and
// finished with Commit, Discard, or Free; transactions are optimistic,
// tracking the keys they read and failing at commit time if a concurrent
// writer touched one of them first.
//
// Arenas (see package arena) let batched operations write their outputs
// into caller-owned, reusable buffers instead of one-off per-call
// allocations; most Read/Scan/Gather-shaped calls across the blob,
// document, table, and graph layers take one.
package multikv

import (
	"path/filepath"

	"go.etcd.io/bbolt"

	"github.com/example/multikv/arena"
	"github.com/example/multikv/catalog"
	"github.com/example/multikv/config"
	"github.com/example/multikv/engine"
	"github.com/example/multikv/journal"
	"github.com/example/multikv/txn"
)

// configVersion is written into every CONFIG file this build produces;
// bump it if the record layout ever changes.
const configVersion = 1

// DropMode re-exports catalog.DropMode so callers never need to import
// the catalog package directly.
type DropMode = catalog.DropMode

const (
	DropKeysValuesHandle = catalog.DropKeysValuesHandle
	DropKeysValues       = catalog.DropKeysValues
	DropValues           = catalog.DropValues
)

// DB is an open database handle: one storage engine, one transaction
// manager, and one collection catalog.
type DB struct {
	storage engine.Storage
	mgr     *txn.Manager
	cat     *catalog.Catalog
	opts    Options
}

// Open opens (creating if necessary) a file-backed database at path. The
// core also writes its own well-known CONFIG file into path's directory
// (via the config package, which maps it with mmap) recording the
// options that affect on-disk behavior; every other file in that
// directory stays opaque to the core.
func Open(path string, opts Options) (*DB, error) {
	bdb, err := bbolt.Open(path, 0600, &bbolt.Options{InitialMmapSize: opts.MmapSize})
	if err != nil {
		return nil, wrapErr(KindIO, err, "opening storage file")
	}
	rec := config.Record{
		Version:             configVersion,
		MmapSize:            int64(opts.MmapSize),
		JournalSegmentBytes: opts.JournalSegmentBytes,
	}
	if err := config.Write(filepath.Dir(path), rec); err != nil {
		return nil, wrapErr(KindIO, err, "writing CONFIG file")
	}
	return openWith(engine.NewBoltStorage(bdb), opts)
}

// OpenMem opens a transient in-memory database, useful for tests and
// short-lived scratch work that shouldn't touch disk.
func OpenMem(opts Options) (*DB, error) {
	return openWith(engine.NewMemStorage(), opts)
}

func openWith(storage engine.Storage, opts Options) (*DB, error) {
	mgr := txn.NewManager(storage)
	if opts.JournalDir != "" {
		maxSize := opts.JournalSegmentBytes
		if maxSize == 0 {
			maxSize = journal.DefaultMaxFileSize
		}
		j := journal.New(opts.JournalDir, journal.Options{
			FileName:    "wal-*.log",
			MaxFileSize: maxSize,
			DebugName:   "multikv-wal",
		})
		j.StartWriting()
		mgr = txn.NewManagerWithJournal(storage, j)
	}

	db := &DB{
		storage: storage,
		mgr:     mgr,
		cat:     catalog.New(),
		opts:    opts,
	}

	etx, err := storage.BeginTx(true)
	if err != nil {
		return nil, wrapErr(KindIO, err, "beginning bootstrap transaction")
	}
	if err := db.cat.Bootstrap(etx); err != nil {
		_ = etx.Rollback()
		return nil, wrapErr(KindCorruption, err, "bootstrapping catalog")
	}
	if err := etx.Commit(true); err != nil {
		return nil, wrapErr(KindIO, err, "committing bootstrap transaction")
	}

	opts.logf("multikv: opened database")
	return db, nil
}

// Close releases the underlying storage engine. The DB must not be used
// afterward.
func (db *DB) Close() error {
	if j := db.mgr.Journal(); j != nil {
		j.FinishWriting()
	}
	return db.storage.Close()
}

// Tx is a single transaction plus the arena its caller should use for
// every batched call made against it.
type Tx struct {
	*txn.Txn
	db    *DB
	Arena *arena.Arena
}

// Begin opens a new transaction. writable must be true to create/drop
// collections or write blobs; flags may set TransactionDontWatch to skip
// conflict tracking on a writable transaction.
func (db *DB) Begin(writable bool, flags Flags) (*Tx, error) {
	if err := validateFlags(flags); err != nil {
		return nil, err
	}
	t, err := db.mgr.Begin(writable, flags.Has(TransactionDontWatch))
	if err != nil {
		return nil, wrapErr(KindIO, err, "beginning transaction")
	}
	return &Tx{Txn: t, db: db, Arena: arena.New()}, nil
}

// Commit finalizes the transaction; flush requests a durable (fsync'd)
// commit at the cost of latency. The transaction's arena is reset
// regardless of outcome.
func (t *Tx) Commit(flush bool) error {
	defer t.Arena.Reset()
	if err := t.Txn.Commit(flush); err != nil {
		if err == txn.ErrConflict {
			return ErrTxnConflict
		}
		return wrapErr(KindIO, err, "committing transaction")
	}
	return nil
}

// Discard rolls the transaction back and resets its arena.
func (t *Tx) Discard() error {
	defer t.Arena.Reset()
	return t.Txn.Discard()
}

// Free releases the transaction if it wasn't already committed or
// discarded, and always resets its arena.
func (t *Tx) Free() {
	defer t.Arena.Reset()
	t.Txn.Free()
}

// CreateCollection registers a new named collection within t, which must
// be writable. Catalog changes take their own short-lived writable
// engine transaction rather than riding on t's optimistic, staged-write
// transaction: collection creation must be visible to Read/Write calls
// made later in the same logical transaction, and the catalog isn't
// itself subject to watch-set conflict detection.
func (t *Tx) CreateCollection(name string) (int64, error) {
	if !t.Writable() {
		return 0, ErrTxnNotActive
	}
	id, err := withCatalogTx(t.db, func(etx engine.Tx) (int64, error) {
		return t.db.cat.Create(etx, name)
	})
	if err != nil {
		return 0, wrapErr(KindArgsWrong, err, "creating collection %q", name)
	}
	if err := t.Txn.RefreshSnapshot(); err != nil {
		return 0, wrapErr(KindIO, err, "refreshing transaction snapshot")
	}
	return id, nil
}

// DropCollection disposes of collection id per mode.
func (t *Tx) DropCollection(id int64, mode DropMode) error {
	if !t.Writable() {
		return ErrTxnNotActive
	}
	if id == CollectionMain && mode == DropKeysValuesHandle {
		return ErrDropMainHandle
	}
	_, err := withCatalogTx(t.db, func(etx engine.Tx) (struct{}, error) {
		return struct{}{}, t.db.cat.Drop(etx, id, mode)
	})
	if err != nil {
		return wrapErr(KindArgsWrong, err, "dropping collection %d", id)
	}
	if err := t.Txn.RefreshSnapshot(); err != nil {
		return wrapErr(KindIO, err, "refreshing transaction snapshot")
	}
	return nil
}

// withCatalogTx runs fn inside its own writable engine transaction,
// committing (flushed) on success and rolling back on error.
func withCatalogTx[T any](db *DB, fn func(engine.Tx) (T, error)) (T, error) {
	var zero T
	etx, err := db.mgr.Storage().BeginTx(true)
	if err != nil {
		return zero, err
	}
	v, err := fn(etx)
	if err != nil {
		_ = etx.Rollback()
		return zero, err
	}
	if err := etx.Commit(true); err != nil {
		return zero, err
	}
	return v, nil
}

// ListCollections returns every registered collection id and name, main
// included (with an empty name).
func (db *DB) ListCollections() (ids []int64, names []string) {
	return db.cat.List()
}

// CollectionID resolves a collection name to its id.
func (db *DB) CollectionID(name string) (int64, bool) {
	return db.cat.IDOf(name)
}

// CollectionName resolves a collection id to its name ("" for main).
func (db *DB) CollectionName(id int64) (string, bool) {
	return db.cat.NameOf(id)
}

// ContainsCollection reports whether name is registered.
func (db *DB) ContainsCollection(name string) bool {
	return db.cat.Contains(name)
}
