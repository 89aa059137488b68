// Package docs implements the JSON document layer (spec §4.5): documents
// are ordinary JSON objects stored as blob values, addressed by the same
// (collection, key) pairs as the blob engine, with insert/update/upsert/
// merge/patch modification semantics, JSON-Pointer field addressing, and
// a field-name Gist layered on top of plain get/put.
//
// Grounded on the teacher's encoding.go (pluggable per-value encoding
// method) generalized from the teacher's two built-in encodings (msgpack
// rows, raw bytes) to JSON objects, and on opput.go's merge-before-write
// pattern, adapted from typed-row field merging to untyped map merging.
package docs

import (
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"

	"github.com/example/multikv/arena"
	"github.com/example/multikv/blob"
	"github.com/example/multikv/txn"
)

// Doc is the in-memory shape of a stored document: a JSON object decoded
// onto Go's generic map/slice/scalar representation.
type Doc = map[string]any

// ErrDocumentExists is returned by Insert when a document is already
// stored at the target key, mirroring opdelete.go's existence check used
// the other way around.
var ErrDocumentExists = fmt.Errorf("docs: document already exists")

// ErrDocumentNotFound is returned by Update when no document is stored
// at the target key.
var ErrDocumentNotFound = fmt.Errorf("docs: document not found")

// Get reads and decodes the document at (coll, key). ok is false if no
// document is stored there.
func Get(t *txn.Txn, a *arena.Arena, coll, key int64) (doc Doc, ok bool, err error) {
	res, err := blob.Read(t, a, []blob.Place{{Collection: coll, Key: key}}, true, false, false)
	if err != nil {
		return nil, false, err
	}
	if res.Values[0] == nil {
		return nil, false, nil
	}
	var d Doc
	if err := json.Unmarshal(res.Values[0], &d); err != nil {
		return nil, false, fmt.Errorf("docs: decoding %d/%d: %w", coll, key, err)
	}
	return d, true, nil
}

// Put stores doc at (coll, key) verbatim, replacing whatever was there.
func Put(t *txn.Txn, coll, key int64, doc Doc) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("docs: encoding %d/%d: %w", coll, key, err)
	}
	return blob.Write(t, []blob.WriteOp{{Place: blob.Place{Collection: coll, Key: key}, Value: raw}})
}

// Delete removes the document at (coll, key), if any.
func Delete(t *txn.Txn, coll, key int64) error {
	return blob.Write(t, []blob.WriteOp{{Place: blob.Place{Collection: coll, Key: key}, Value: nil}})
}

// Upsert writes doc at (coll, key), creating it if absent and fully
// replacing whatever was there otherwise (unlike Merge, fields not
// mentioned in doc do not survive).
func Upsert(t *txn.Txn, coll, key int64, doc Doc) error {
	return Put(t, coll, key, doc)
}

// Insert writes doc at (coll, key), failing with ErrDocumentExists if a
// document is already stored there.
func Insert(t *txn.Txn, a *arena.Arena, coll, key int64, doc Doc) error {
	_, ok, err := Get(t, a, coll, key)
	if err != nil {
		return err
	}
	if ok {
		return ErrDocumentExists
	}
	return Put(t, coll, key, doc)
}

// Update replaces the document at (coll, key), failing with
// ErrDocumentNotFound if nothing is stored there yet.
func Update(t *txn.Txn, a *arena.Arena, coll, key int64, doc Doc) error {
	_, ok, err := Get(t, a, coll, key)
	if err != nil {
		return err
	}
	if !ok {
		return ErrDocumentNotFound
	}
	return Put(t, coll, key, doc)
}

// Merge recursively merges fields into the document at (coll, key),
// creating it if absent. A nil value for a field deletes that field from
// the document.
func Merge(t *txn.Txn, a *arena.Arena, coll, key int64, fields Doc) error {
	existing, ok, err := Get(t, a, coll, key)
	if err != nil {
		return err
	}
	if !ok {
		existing = Doc{}
	}
	merged := deepMerge(existing, fields)
	return Put(t, coll, key, merged.(Doc))
}

func deepMerge(dst, src any) any {
	srcMap, srcIsMap := src.(Doc)
	dstMap, dstIsMap := dst.(Doc)
	if !srcIsMap {
		return src
	}
	if !dstIsMap {
		dstMap = Doc{}
	}
	out := make(Doc, len(dstMap))
	for k, v := range dstMap {
		out[k] = v
	}
	for k, v := range srcMap {
		if v == nil {
			delete(out, k)
			continue
		}
		if existing, ok := out[k]; ok {
			out[k] = deepMerge(existing, v)
		} else {
			out[k] = v
		}
	}
	return out
}

// Patch applies an RFC 6902 JSON Patch document to the stored document at
// (coll, key).
func Patch(t *txn.Txn, a *arena.Arena, coll, key int64, patchOps []byte) error {
	res, err := blob.Read(t, a, []blob.Place{{Collection: coll, Key: key}}, true, false, false)
	if err != nil {
		return err
	}
	current := res.Values[0]
	if current == nil {
		current = []byte("{}")
	}
	p, err := jsonpatch.DecodePatch(patchOps)
	if err != nil {
		return fmt.Errorf("docs: decoding patch: %w", err)
	}
	patched, err := p.Apply(current)
	if err != nil {
		return fmt.Errorf("docs: applying patch to %d/%d: %w", coll, key, err)
	}
	return blob.Write(t, []blob.WriteOp{{Place: blob.Place{Collection: coll, Key: key}, Value: patched}})
}
