package stream

import (
	"testing"

	"github.com/example/multikv/arena"
	"github.com/example/multikv/blob"
	"github.com/example/multikv/catalog"
	"github.com/example/multikv/engine"
	"github.com/example/multikv/txn"
)

func fixture(t *testing.T) (*txn.Manager, int64) {
	t.Helper()
	s := engine.NewMemStorage()
	cat := catalog.New()

	etx, err := s.BeginTx(true)
	if err != nil {
		t.Fatal(err)
	}
	if err := cat.Bootstrap(etx); err != nil {
		t.Fatal(err)
	}
	id, err := cat.Create(etx, "stream")
	if err != nil {
		t.Fatal(err)
	}
	if err := etx.Commit(true); err != nil {
		t.Fatal(err)
	}
	return txn.NewManager(s), id
}

func seed(t *testing.T, mgr *txn.Manager, coll int64, n int) {
	t.Helper()
	tx, err := mgr.Begin(true, false)
	if err != nil {
		t.Fatal(err)
	}
	for k := int64(0); k < int64(n); k++ {
		if err := blob.Write(tx, []blob.WriteOp{{Place: blob.Place{Collection: coll, Key: k}, Value: []byte{byte(k)}}}); err != nil {
			t.Fatal(err)
		}
	}
	if err := tx.Commit(true); err != nil {
		t.Fatal(err)
	}
}

func TestNextBatchWalksAllKeysAcrossSeparateTransactions(t *testing.T) {
	mgr, coll := fixture(t)
	seed(t, mgr, coll, 25)

	s := New(coll)
	a := arena.New()

	var all []int64
	for !s.IsEnd() {
		tx, err := mgr.Begin(false, false)
		if err != nil {
			t.Fatal(err)
		}
		keys, _, err := s.NextBatch(tx, a, 10)
		if err != nil {
			t.Fatal(err)
		}
		tx.Free()
		all = append(all, keys...)
		if len(keys) == 0 {
			break
		}
	}

	if len(all) != 25 {
		t.Fatalf("got %d keys, want 25", len(all))
	}
	for i, k := range all {
		if k != int64(i) {
			t.Fatalf("key at position %d = %d, want %d", i, k, i)
		}
	}
}

func TestSeekRepositionsStream(t *testing.T) {
	mgr, coll := fixture(t)
	seed(t, mgr, coll, 10)

	s := New(coll)
	s.Seek(5)
	a := arena.New()
	tx, _ := mgr.Begin(false, false)
	defer tx.Free()
	keys, _, err := s.NextBatch(tx, a, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 5 || keys[0] != 5 {
		t.Fatalf("got %v, want keys starting at 5", keys)
	}
	if !s.IsEnd() {
		t.Fatal("expected stream to report end after a short final batch")
	}
}

func TestSeekToFirstResetsStream(t *testing.T) {
	mgr, coll := fixture(t)
	seed(t, mgr, coll, 5)

	s := New(coll)
	s.Seek(3)
	s.SeekToFirst()
	a := arena.New()
	tx, _ := mgr.Begin(false, false)
	defer tx.Free()
	keys, _, err := s.NextBatch(tx, a, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 5 || keys[0] != 0 {
		t.Fatalf("got %v, want all keys from 0", keys)
	}
}
