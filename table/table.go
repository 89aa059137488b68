// Package table implements the table/columnar gather (spec §4.7): rows
// are JSON objects keyed by an int64 row id within a collection, and
// Gather projects a typed column header (name plus wire type) out of a
// batch of rows into per-type columnar tapes, using the same tape-
// packing, same-invariant machinery as the document layer.
//
// Grounded on the teacher's schematable.go (a table is a named, keyed set
// of rows) and encflat.go's columnar packing, reusing docs.Gather rather
// than re-deriving the compaction invariant a second time.
package table

import (
	"encoding/json"

	"github.com/example/multikv/arena"
	"github.com/example/multikv/blob"
	"github.com/example/multikv/docs"
	"github.com/example/multikv/txn"
)

// Row is a single table row: a flat map from column name to value.
type Row = docs.Doc

// PutRow stores row at (coll, rowID), replacing whatever was there.
func PutRow(t *txn.Txn, coll, rowID int64, row Row) error {
	return docs.Put(t, coll, rowID, row)
}

// GetRow reads the row at (coll, rowID).
func GetRow(t *txn.Txn, a *arena.Arena, coll, rowID int64) (Row, bool, error) {
	return docs.Get(t, a, coll, rowID)
}

// DeleteRow removes the row at (coll, rowID).
func DeleteRow(t *txn.Txn, coll, rowID int64) error {
	return docs.Delete(t, coll, rowID)
}

// Gather reads rowIDs from coll and projects header's (name, type) pairs
// out of them into one docs.Column per entry, in rowIDs order. Rows that
// don't exist contribute an all-missing entry to every column.
func Gather(t *txn.Txn, a *arena.Arena, coll int64, rowIDs []int64, header []docs.FieldSpec) (map[string]docs.Column, error) {
	places := make([]blob.Place, len(rowIDs))
	for i, id := range rowIDs {
		places[i] = blob.Place{Collection: coll, Key: id}
	}
	res, err := blob.Read(t, a, places, true, false, false)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, len(rowIDs))
	for i, raw := range res.Values {
		if raw == nil {
			rows[i] = nil
			continue
		}
		row, ok, err := decodeRow(raw)
		if err != nil {
			return nil, err
		}
		if ok {
			rows[i] = row
		}
	}
	return docs.Gather(a, rows, header)
}

func decodeRow(raw []byte) (Row, bool, error) {
	var row Row
	if err := json.Unmarshal(raw, &row); err != nil {
		return nil, false, err
	}
	return row, true, nil
}
