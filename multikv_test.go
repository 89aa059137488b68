package multikv

import (
	"testing"

	"github.com/example/multikv/blob"
	"github.com/example/multikv/docs"
)

func TestOpenMemBootstrapsMainCollection(t *testing.T) {
	db, err := OpenMem(Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	ids, names := db.ListCollections()
	if len(ids) != 1 || ids[0] != CollectionMain || names[0] != "" {
		t.Fatalf("got %v %v", ids, names)
	}
}

func TestCreateCollectionVisibleWithinSameTransaction(t *testing.T) {
	db, err := OpenMem(Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	tx, err := db.Begin(true, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer tx.Free()

	id, err := tx.CreateCollection("widgets")
	if err != nil {
		t.Fatal(err)
	}

	if err := blob.Write(tx.Txn, []blob.WriteOp{{Place: blob.Place{Collection: id, Key: 1}, Value: []byte("x")}}); err != nil {
		t.Fatalf("write into collection created earlier in the same transaction: %v", err)
	}
	if err := tx.Commit(true); err != nil {
		t.Fatal(err)
	}

	if !db.ContainsCollection("widgets") {
		t.Fatal("expected widgets to be registered after commit")
	}
}

func TestDropMainHandleIsRejected(t *testing.T) {
	db, err := OpenMem(Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	tx, err := db.Begin(true, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer tx.Free()
	if err := tx.DropCollection(CollectionMain, DropKeysValuesHandle); err != ErrDropMainHandle {
		t.Fatalf("got %v, want ErrDropMainHandle", err)
	}
}

func TestConcurrentWritersOneAborts(t *testing.T) {
	db, err := OpenMem(Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	seedTx, err := db.Begin(true, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := docs.Put(seedTx.Txn, CollectionMain, 1, docs.Doc{"count": float64(0)}); err != nil {
		t.Fatal(err)
	}
	if err := seedTx.Commit(true); err != nil {
		t.Fatal(err)
	}

	readerA, err := db.Begin(true, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := docs.Get(readerA.Txn, readerA.Arena, CollectionMain, 1); err != nil {
		t.Fatal(err)
	}

	readerB, err := db.Begin(true, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := docs.Get(readerB.Txn, readerB.Arena, CollectionMain, 1); err != nil {
		t.Fatal(err)
	}

	if err := docs.Put(readerB.Txn, CollectionMain, 1, docs.Doc{"count": float64(1)}); err != nil {
		t.Fatal(err)
	}
	if err := readerB.Commit(true); err != nil {
		t.Fatalf("first committer should succeed: %v", err)
	}

	if err := docs.Put(readerA.Txn, CollectionMain, 1, docs.Doc{"count": float64(2)}); err != nil {
		t.Fatal(err)
	}
	if err := readerA.Commit(true); err != ErrTxnConflict {
		t.Fatalf("got %v, want ErrTxnConflict", err)
	}
}

func TestFlagsRejectsUnknownBits(t *testing.T) {
	db, err := OpenMem(Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if _, err := db.Begin(true, Flags(1<<30)); err == nil {
		t.Fatal("expected unknown flag bit to be rejected")
	}
}
