// Gist implements spec §4.5's Gist operation: the union of field names
// across a batch of documents, packed into an arena string tape.
package docs

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/example/multikv/arena"
	"github.com/example/multikv/blob"
	"github.com/example/multikv/txn"
)

// Gist reads the documents at places and returns the sorted union of
// their top-level field names, both as a plain slice and packed into a
// null-terminated tape (offsets can be recovered by splitting on 0x00).
// Places with no document contribute no names; a value that doesn't
// decode as a JSON object makes Gist return an error.
func Gist(t *txn.Txn, a *arena.Arena, places []blob.Place) (names []string, tape []byte, err error) {
	res, err := blob.Read(t, a, places, true, false, false)
	if err != nil {
		return nil, nil, err
	}

	seen := make(map[string]struct{})
	for _, raw := range res.Values {
		if raw == nil {
			continue
		}
		var d Doc
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, nil, fmt.Errorf("docs: gist decoding document: %w", err)
		}
		for field := range d {
			seen[field] = struct{}{}
		}
	}

	names = make([]string, 0, len(seen))
	for field := range seen {
		names = append(names, field)
	}
	sort.Strings(names)

	tp := a.NewTape()
	for _, name := range names {
		tp.Append([]byte(name))
		tp.Append([]byte{0})
	}
	return names, tp.Bytes(), nil
}
