// Package engine abstracts over the sorted key-value backend used by the
// blob layer. It is the generalization of the teacher's storage.go: the
// same Storage/Tx/Bucket/Cursor shape, with typed rows and Bolt specifics
// stripped out so the blob layer can drive either a real Bolt-backed
// engine or the in-memory test double through one interface.
package engine

import "errors"

// ErrBucketNotFound is returned by Tx.DeleteBucket when the bucket doesn't exist.
var ErrBucketNotFound = errors.New("engine: bucket not found")

// Storage represents a key-value storage backend (Bolt, in-memory, ...).
type Storage interface {
	// BeginTx starts a new transaction.
	BeginTx(writable bool) (Tx, error)
	// Close closes the storage.
	Close() error
}

// Tx represents a storage transaction.
type Tx interface {
	// Writable returns true if this is a writable transaction.
	Writable() bool

	// Bucket returns a bucket. Use sub="" for a root bucket, non-empty for
	// a nested bucket. Returns nil if the bucket doesn't exist.
	Bucket(name, sub string) Bucket

	// CreateBucket creates a bucket if it doesn't exist. For sub != "", it
	// also ensures the root bucket exists.
	CreateBucket(name, sub string) (Bucket, error)

	// DeleteBucket deletes a bucket. Use sub="" to delete a root bucket
	// (and everything nested under it), non-empty sub to delete just the
	// named nested bucket.
	DeleteBucket(name, sub string) error

	// Commit commits the transaction. When flush is true the backend
	// guarantees the write is durable (fsync) before returning; when
	// false the backend may acknowledge before the data has reached
	// disk, trading durability for speed.
	Commit(flush bool) error

	// Rollback aborts the transaction. Safe to call multiple times.
	Rollback() error

	// Size returns the database size in bytes (0 if unknown).
	Size() int64
}

// Bucket represents a sorted key-value collection.
type Bucket interface {
	// Get retrieves a value by key. Returns nil if not found.
	Get(key []byte) []byte

	// Put stores a key-value pair.
	Put(key, value []byte) error

	// Delete removes a key.
	Delete(key []byte) error

	// Cursor returns a cursor for iteration.
	Cursor() Cursor

	// Stats returns storage-specific bucket statistics. Backends that
	// don't track allocation sizes may return zero values except KeyN.
	Stats() BucketStats

	// KeyCount returns the number of keys in the bucket (best effort).
	KeyCount() int
}

// BucketStats carries a bucket's key count and page-allocation figures.
// blob.Measure does not read them; it walks the requested key range.
type BucketStats struct {
	KeyN        int
	LeafInuse   int64
	LeafAlloc   int64
	BranchAlloc int64
}

// TotalAlloc is the upper bound on space used by the bucket.
func (s BucketStats) TotalAlloc() int64 { return s.BranchAlloc + s.LeafAlloc }

// Cursor iterates over a sorted bucket.
type Cursor interface {
	// First moves to the first key-value pair.
	First() (key, value []byte)
	// Last moves to the last key-value pair.
	Last() (key, value []byte)
	// Seek moves to the first key >= seek.
	Seek(seek []byte) (key, value []byte)
	// Next moves to the next key-value pair.
	Next() (key, value []byte)
	// Prev moves to the previous key-value pair.
	Prev() (key, value []byte)
	// Delete deletes the current key-value pair.
	Delete() error
}
