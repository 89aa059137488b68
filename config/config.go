// Package config reads and writes the core's own well-known CONFIG file
// inside a database's root directory, using the mmap package for
// zero-copy access rather than a buffered read/write — the only file in
// the root directory the core itself ever parses (spec's Configuration
// section: every other path in the root is opaque to it).
//
// Grounded on the teacher's bootFile-style fixed-layout metadata file and
// on mmap.go's Mmap/Munmap pair, generalized from mapping the main data
// file to mapping a tiny sidecar record.
package config

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/example/multikv/mmap"
)

const fileName = "CONFIG"

// magic identifies a valid CONFIG file; a mismatch means either a
// foreign file or a version this build doesn't understand.
const magic = 0x4d4b5631 // "MKV1"

const recordSize = 24 // magic:4 version:4 mmapSize:8 journalSegmentBytes:8

// Record is the fixed-layout content of the CONFIG file.
type Record struct {
	Version             uint32
	MmapSize            int64
	JournalSegmentBytes int64
}

// Write creates or truncates dir's CONFIG file in place with rec, mapping it
// with mmap.Mmap for the actual byte writes and syncing through
// mmap.Fdatasync before returning.
func Write(dir string, rec Record) error {
	path := filepath.Join(dir, fileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("config: opening %s: %w", path, err)
	}
	defer f.Close()

	if err := f.Truncate(recordSize); err != nil {
		return fmt.Errorf("config: truncating %s: %w", path, err)
	}

	mapped, err := mmap.Mmap(f, 0, recordSize, mmap.Writable)
	if err != nil {
		return fmt.Errorf("config: mapping %s: %w", path, err)
	}
	defer mmap.Munmap(mapped)

	binary.LittleEndian.PutUint32(mapped[0:4], magic)
	binary.LittleEndian.PutUint32(mapped[4:8], rec.Version)
	binary.LittleEndian.PutUint64(mapped[8:16], uint64(rec.MmapSize))
	binary.LittleEndian.PutUint64(mapped[16:24], uint64(rec.JournalSegmentBytes))

	if err := mmap.Fdatasync(f, mapped); err != nil {
		return fmt.Errorf("config: syncing %s: %w", path, err)
	}
	return nil
}

// Read maps dir's CONFIG file read-only and decodes it. ok is false (with
// a nil error) when dir has no CONFIG file yet, the normal case for a
// freshly created root directory.
func Read(dir string) (rec Record, ok bool, err error) {
	path := filepath.Join(dir, fileName)
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("config: opening %s: %w", path, err)
	}
	defer f.Close()

	mapped, err := mmap.Mmap(f, 0, recordSize, 0)
	if err != nil {
		return Record{}, false, fmt.Errorf("config: mapping %s: %w", path, err)
	}
	defer mmap.Munmap(mapped)

	if binary.LittleEndian.Uint32(mapped[0:4]) != magic {
		return Record{}, false, fmt.Errorf("config: %s has an unrecognized header", path)
	}
	rec.Version = binary.LittleEndian.Uint32(mapped[4:8])
	rec.MmapSize = int64(binary.LittleEndian.Uint64(mapped[8:16]))
	rec.JournalSegmentBytes = int64(binary.LittleEndian.Uint64(mapped[16:24]))
	return rec, true, nil
}
