package graph

import "github.com/vmihailenco/msgpack/v5"

// Direction distinguishes an edge's two endpoints from a given vertex's
// point of view: Out means the vertex is the edge's source, In means
// it's the edge's destination. Any is a query-only role (spec §4.6's
// find_edges role enum: source, target, any) that matches both; it is
// never stored on an adjacency entry itself.
type Direction uint8

const (
	Out Direction = iota
	In
	Any
)

// matches reports whether a stored entry's direction satisfies a query
// role: Any matches everything, otherwise the directions must be equal.
func (d Direction) matches(entryDir Direction) bool {
	return d == Any || d == entryDir
}

// adjEntry is one edge as seen from one of its endpoints: which vertex is
// on the other end, which edge id this is (multigraphs allow more than
// one edge between the same pair of vertices), and which direction.
type adjEntry struct {
	Neighbor int64     `msgpack:"n"`
	Edge     int64     `msgpack:"e"`
	Dir      Direction `msgpack:"d"`
}

// decodeAdjacency unpacks a vertex's adjacency blob. A nil/empty blob
// decodes to an empty list, matching blob's delete-on-empty convention:
// a vertex with no remaining edges has no stored blob at all.
func decodeAdjacency(raw []byte) ([]adjEntry, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var entries []adjEntry
	if err := msgpack.Unmarshal(raw, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func encodeAdjacency(entries []adjEntry) ([]byte, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	return msgpack.Marshal(entries)
}
