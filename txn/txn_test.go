package txn

import (
	"bytes"
	"testing"

	"github.com/example/multikv/engine"
	"github.com/example/multikv/journal"
	"github.com/example/multikv/journal/journaltest"
)

func setup(t *testing.T) *Manager {
	t.Helper()
	s := engine.NewMemStorage()
	etx, err := s.BeginTx(true)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := etx.CreateBucket("coll", ""); err != nil {
		t.Fatal(err)
	}
	if err := etx.Commit(true); err != nil {
		t.Fatal(err)
	}
	return NewManager(s)
}

func putDirect(t *testing.T, m *Manager, key, value string) {
	t.Helper()
	tx, err := m.Begin(true, true)
	if err != nil {
		t.Fatal(err)
	}
	tx.Stage("coll", []byte(key), []byte(value))
	if err := tx.Commit(true); err != nil {
		t.Fatal(err)
	}
}

func TestCommitWithNoConflictSucceeds(t *testing.T) {
	m := setup(t)
	putDirect(t, m, "seed", "0")

	tx, err := m.Begin(true, false)
	if err != nil {
		t.Fatal(err)
	}
	tx.Engine().Bucket("coll", "").Get([]byte("seed"))
	tx.Track(0, 1)
	tx.Stage("coll", []byte("k"), []byte("v"))
	tx.MarkWritten(0, 1)
	if err := tx.Commit(true); err != nil {
		t.Fatalf("unexpected conflict: %v", err)
	}

	rtx, _ := m.Storage().BeginTx(false)
	defer rtx.Rollback()
	if got := rtx.Bucket("coll", "").Get([]byte("k")); string(got) != "v" {
		t.Fatalf("got %q, want v", got)
	}
}

// TestConflictingWriteAbortsCommit exercises the core optimistic scenario:
// two transactions begin concurrently (neither blocks the other, since
// Begin only opens a read snapshot), the second commits first, and the
// first's commit is rejected because it watched the key the second wrote.
func TestConflictingWriteAbortsCommit(t *testing.T) {
	m := setup(t)
	putDirect(t, m, "k", "0")

	reader, err := m.Begin(true, false)
	if err != nil {
		t.Fatal(err)
	}
	reader.Engine().Bucket("coll", "").Get([]byte("k"))
	reader.Track(0, 1)

	writer, err := m.Begin(true, false)
	if err != nil {
		t.Fatal(err)
	}
	writer.Stage("coll", []byte("k"), []byte("1"))
	writer.MarkWritten(0, 1)
	if err := writer.Commit(true); err != nil {
		t.Fatalf("writer should commit cleanly: %v", err)
	}

	reader.Stage("coll", []byte("other"), []byte("x"))
	if err := reader.Commit(true); err != ErrConflict {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	// The reader's staged write must not have been applied.
	rtx, _ := m.Storage().BeginTx(false)
	defer rtx.Rollback()
	if got := rtx.Bucket("coll", "").Get([]byte("other")); got != nil {
		t.Fatalf("conflicting commit should not have applied its writes, got %q", got)
	}
}

func TestDontWatchSkipsConflictDetection(t *testing.T) {
	m := setup(t)
	putDirect(t, m, "k", "0")

	reader, err := m.Begin(true, true) // dontWatch
	if err != nil {
		t.Fatal(err)
	}
	reader.Engine().Bucket("coll", "").Get([]byte("k"))
	reader.Track(0, 1) // no-op: dontWatch transactions don't track

	writer, _ := m.Begin(true, false)
	writer.Stage("coll", []byte("k"), []byte("1"))
	writer.MarkWritten(0, 1)
	if err := writer.Commit(true); err != nil {
		t.Fatal(err)
	}

	reader.Stage("coll", []byte("k"), []byte("2"))
	if err := reader.Commit(true); err != nil {
		t.Fatalf("dont-watch transaction should commit unconditionally: %v", err)
	}
}

func TestReadYourOwnWritesWithinTransaction(t *testing.T) {
	m := setup(t)
	tx, err := m.Begin(true, false)
	if err != nil {
		t.Fatal(err)
	}
	tx.Stage("coll", []byte("k"), []byte("v1"))
	val, found := tx.StagedGet("coll", []byte("k"))
	if !found || string(val) != "v1" {
		t.Fatalf("StagedGet = %q, %v, want v1, true", val, found)
	}
	if err := tx.Commit(true); err != nil {
		t.Fatal(err)
	}
}

func TestReadOnlyCommitIsRollback(t *testing.T) {
	m := setup(t)
	tx, err := m.Begin(false, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(true); err != nil {
		t.Fatalf("read-only commit should just release: %v", err)
	}
}

func TestFreeIsIdempotentAfterCommit(t *testing.T) {
	m := setup(t)
	tx, _ := m.Begin(true, true)
	if err := tx.Commit(true); err != nil {
		t.Fatal(err)
	}
	tx.Free() // must not panic or double-rollback
}

func TestFlushFalseCommitWritesStagedMutationsToJournal(t *testing.T) {
	s := engine.NewMemStorage()
	etx, err := s.BeginTx(true)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := etx.CreateBucket("coll", ""); err != nil {
		t.Fatal(err)
	}
	if err := etx.Commit(true); err != nil {
		t.Fatal(err)
	}

	j := journaltest.Writable(t, journal.Options{})
	m := NewManagerWithJournal(s, j.Journal)

	tx, err := m.Begin(true, true)
	if err != nil {
		t.Fatal(err)
	}
	tx.Stage("coll", []byte("k"), []byte("payload"))
	tx.RecordMutation([]byte("payload"))
	if err := tx.Commit(false); err != nil {
		t.Fatal(err)
	}

	files := j.FileNames()
	if len(files) != 1 {
		t.Fatalf("got %d journal segment files, want 1: %v", len(files), files)
	}
	data := j.Data(files[0])
	if !bytes.Contains(data, []byte("payload")) {
		t.Fatalf("journal segment does not contain the committed record:\n%s", journaltest.HexDump(data, -1))
	}

	// The engine's own bucket must also have the value: flush=false only
	// changes the durability path, not whether the write lands.
	rtx, err := m.Begin(false, true)
	if err != nil {
		t.Fatal(err)
	}
	defer rtx.Free()
	b := rtx.Engine().Bucket("coll", "")
	if got := b.Get([]byte("k")); string(got) != "payload" {
		t.Fatalf("got %q, want %q", got, "payload")
	}
}
