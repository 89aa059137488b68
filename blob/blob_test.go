package blob

import (
	"testing"

	"github.com/example/multikv/arena"
	"github.com/example/multikv/catalog"
	"github.com/example/multikv/engine"
	"github.com/example/multikv/txn"
)

// fixture opens an in-memory engine, bootstraps the catalog, and creates
// one extra collection named "widgets" for tests to write into.
func fixture(t *testing.T) (*txn.Manager, *catalog.Catalog, int64) {
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
	id, err := cat.Create(etx, "widgets")
	if err != nil {
		t.Fatal(err)
	}
	if err := etx.Commit(true); err != nil {
		t.Fatal(err)
	}
	return txn.NewManager(s), cat, id
}

func TestReadAbsentKeyReportsNotPresent(t *testing.T) {
	mgr, _, coll := fixture(t)
	a := arena.New()

	tx, err := mgr.Begin(false, false)
	if err != nil {
		t.Fatal(err)
	}
	defer tx.Free()

	res, err := Read(tx, a, []Place{{Collection: coll, Key: 1}}, true, true, true)
	if err != nil {
		t.Fatal(err)
	}
	if res.Presences[0] {
		t.Fatal("expected key 1 to be absent")
	}
	if res.Values[0] != nil {
		t.Fatalf("expected nil value, got %q", res.Values[0])
	}
	if res.Lengths[0] != lengthMissing {
		t.Fatalf("expected lengthMissing, got %d", res.Lengths[0])
	}
}

func TestWriteThenReadRoundTripsWithinTransaction(t *testing.T) {
	mgr, _, coll := fixture(t)
	a := arena.New()

	tx, err := mgr.Begin(true, false)
	if err != nil {
		t.Fatal(err)
	}
	defer tx.Free()

	if err := Write(tx, []WriteOp{{Place: Place{Collection: coll, Key: 1}, Value: []byte("hello")}}); err != nil {
		t.Fatal(err)
	}

	res, err := Read(tx, a, []Place{{Collection: coll, Key: 1}}, true, true, true)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Presences[0] {
		t.Fatal("expected key to be present via read-your-own-writes")
	}
	if string(res.Values[0]) != "hello" {
		t.Fatalf("got %q, want hello", res.Values[0])
	}

	if err := tx.Commit(true); err != nil {
		t.Fatal(err)
	}

	tx2, err := mgr.Begin(false, false)
	if err != nil {
		t.Fatal(err)
	}
	defer tx2.Free()
	res2, err := Read(tx2, a, []Place{{Collection: coll, Key: 1}}, true, false, false)
	if err != nil {
		t.Fatal(err)
	}
	if string(res2.Values[0]) != "hello" {
		t.Fatalf("committed value = %q, want hello", res2.Values[0])
	}
}

func TestWriteNilValueDeletes(t *testing.T) {
	mgr, _, coll := fixture(t)

	tx, _ := mgr.Begin(true, false)
	if err := Write(tx, []WriteOp{{Place: Place{Collection: coll, Key: 1}, Value: []byte("v")}}); err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(true); err != nil {
		t.Fatal(err)
	}

	tx2, _ := mgr.Begin(true, false)
	if err := Write(tx2, []WriteOp{{Place: Place{Collection: coll, Key: 1}, Value: nil}}); err != nil {
		t.Fatal(err)
	}
	if err := tx2.Commit(true); err != nil {
		t.Fatal(err)
	}

	tx3, _ := mgr.Begin(false, false)
	defer tx3.Free()
	a := arena.New()
	res, err := Read(tx3, a, []Place{{Collection: coll, Key: 1}}, false, false, true)
	if err != nil {
		t.Fatal(err)
	}
	if res.Presences[0] {
		t.Fatal("expected key to be deleted")
	}
}

func TestReadUnknownCollectionErrors(t *testing.T) {
	mgr, _, _ := fixture(t)
	a := arena.New()
	tx, _ := mgr.Begin(false, false)
	defer tx.Free()
	if _, err := Read(tx, a, []Place{{Collection: 999, Key: 1}}, true, false, false); err == nil {
		t.Fatal("expected error reading an unknown collection")
	}
}

func TestScanOrdersNumericallyNotLexicographically(t *testing.T) {
	mgr, _, coll := fixture(t)

	tx, _ := mgr.Begin(true, false)
	for _, k := range []int64{10, 2, -5, 100} {
		if err := Write(tx, []WriteOp{{Place: Place{Collection: coll, Key: k}, Value: []byte("v")}}); err != nil {
			t.Fatal(err)
		}
	}
	if err := tx.Commit(true); err != nil {
		t.Fatal(err)
	}

	tx2, _ := mgr.Begin(false, false)
	defer tx2.Free()
	a := arena.New()
	keys, _, err := Scan(tx2, a, coll, ScanOptions{})
	if err != nil {
		t.Fatal(err)
	}
	want := []int64{-5, 2, 10, 100}
	if len(keys) != len(want) {
		t.Fatalf("got %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("got %v, want %v", keys, want)
		}
	}
}

func TestScanRespectsBoundsAndLimit(t *testing.T) {
	mgr, _, coll := fixture(t)

	tx, _ := mgr.Begin(true, false)
	for k := int64(0); k < 10; k++ {
		if err := Write(tx, []WriteOp{{Place: Place{Collection: coll, Key: k}, Value: []byte{byte(k)}}}); err != nil {
			t.Fatal(err)
		}
	}
	if err := tx.Commit(true); err != nil {
		t.Fatal(err)
	}

	tx2, _ := mgr.Begin(false, false)
	defer tx2.Free()
	a := arena.New()
	start, end := int64(3), int64(7)
	keys, _, err := Scan(tx2, a, coll, ScanOptions{Start: &start, End: &end, Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 || keys[0] != 3 || keys[1] != 4 {
		t.Fatalf("got %v, want [3 4]", keys)
	}

	revKeys, _, err := Scan(tx2, a, coll, ScanOptions{Start: &start, End: &end, Reverse: true})
	if err != nil {
		t.Fatal(err)
	}
	want := []int64{7, 6, 5, 4, 3}
	if len(revKeys) != len(want) {
		t.Fatalf("got %v, want %v", revKeys, want)
	}
	for i := range want {
		if revKeys[i] != want[i] {
			t.Fatalf("got %v, want %v", revKeys, want)
		}
	}
}

func TestSampleDrawsRequestedCountAndIsReproducible(t *testing.T) {
	mgr, _, coll := fixture(t)

	tx, _ := mgr.Begin(true, false)
	for k := int64(0); k < 50; k++ {
		if err := Write(tx, []WriteOp{{Place: Place{Collection: coll, Key: k}, Value: []byte{byte(k)}}}); err != nil {
			t.Fatal(err)
		}
	}
	if err := tx.Commit(true); err != nil {
		t.Fatal(err)
	}

	tx2, _ := mgr.Begin(false, false)
	defer tx2.Free()
	a := arena.New()
	keys1, _, err := Sample(tx2, a, coll, 5, 42)
	if err != nil {
		t.Fatal(err)
	}
	if len(keys1) != 5 {
		t.Fatalf("got %d keys, want 5", len(keys1))
	}

	tx3, _ := mgr.Begin(false, false)
	defer tx3.Free()
	keys2, _, err := Sample(tx3, a, coll, 5, 42)
	if err != nil {
		t.Fatal(err)
	}
	for i := range keys1 {
		if keys1[i] != keys2[i] {
			t.Fatalf("same seed produced different samples: %v vs %v", keys1, keys2)
		}
	}
}

func TestMeasureReportsBoundsOverARange(t *testing.T) {
	mgr, _, coll := fixture(t)
	a := arena.New()

	tx, _ := mgr.Begin(true, false)
	for k := int64(0); k < 5; k++ {
		if err := Write(tx, []WriteOp{{Place: Place{Collection: coll, Key: k}, Value: []byte("xyz")}}); err != nil {
			t.Fatal(err)
		}
	}
	if err := tx.Commit(true); err != nil {
		t.Fatal(err)
	}

	tx2, _ := mgr.Begin(false, false)
	defer tx2.Free()

	whole, err := Measure(tx2, a, coll, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if whole.CardinalityLower != 5 || whole.CardinalityUpper != 5 {
		t.Fatalf("cardinality = %d/%d, want 5/5", whole.CardinalityLower, whole.CardinalityUpper)
	}
	if whole.ValueSizeLower != 15 || whole.ValueSizeUpper != 15 {
		t.Fatalf("value size = %d/%d, want 15/15", whole.ValueSizeLower, whole.ValueSizeUpper)
	}
	if whole.SpaceUpper < whole.SpaceLower {
		t.Fatalf("space upper %d below lower %d", whole.SpaceUpper, whole.SpaceLower)
	}

	start, end := int64(1), int64(2)
	ranged, err := Measure(tx2, a, coll, &start, &end)
	if err != nil {
		t.Fatal(err)
	}
	if ranged.CardinalityLower != 2 || ranged.CardinalityUpper != 2 {
		t.Fatalf("ranged cardinality = %d/%d, want 2/2", ranged.CardinalityLower, ranged.CardinalityUpper)
	}
}
