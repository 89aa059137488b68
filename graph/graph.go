// Package graph implements the directed-multigraph layer (spec §4.6) on
// top of the blob engine: each vertex's adjacency list (every edge
// touching it, tagged with direction and edge id) is stored as one packed
// blob under a dedicated system collection, rather than a separate
// storage structure.
//
// Grounded conceptually on the adjacency-list design of krotik-eliasdb's
// graph manager (every vertex keeps both its outgoing and incoming edges
// so traversal in either direction never needs a reverse scan), expressed
// here directly over the blob engine instead of eliasdb's own storage
// layer, and packed with msgpack the way the catalog packs its own
// metadata.
package graph

import (
	"fmt"

	"github.com/example/multikv/arena"
	"github.com/example/multikv/blob"
	"github.com/example/multikv/txn"
)

// Graph is a handle onto one graph's dedicated collection. It holds no
// state of its own beyond that id, so it's safe to share across
// goroutines as long as each call brings its own Txn.
type Graph struct {
	coll int64
}

// Open returns a handle onto the graph stored in coll (normally a system
// collection created via catalog.Create specifically for this graph).
func Open(coll int64) *Graph {
	return &Graph{coll: coll}
}

func (g *Graph) readVertex(t *txn.Txn, a *arena.Arena, vertex int64) ([]adjEntry, error) {
	res, err := blob.Read(t, a, []blob.Place{{Collection: g.coll, Key: vertex}}, true, false, false)
	if err != nil {
		return nil, fmt.Errorf("graph: reading vertex %d: %w", vertex, err)
	}
	return decodeAdjacency(res.Values[0])
}

func (g *Graph) writeVertex(t *txn.Txn, vertex int64, entries []adjEntry) error {
	raw, err := encodeAdjacency(entries)
	if err != nil {
		return fmt.Errorf("graph: encoding vertex %d: %w", vertex, err)
	}
	return blob.Write(t, []blob.WriteOp{{Place: blob.Place{Collection: g.coll, Key: vertex}, Value: raw}})
}

// UpsertEdge records a directed edge from -> to with id edgeID. Upserting
// an edge id that already exists between the same pair is a no-op; a
// multigraph distinguishes edges by id, so the same (from, to) pair can
// carry several edges with different ids.
func (g *Graph) UpsertEdge(t *txn.Txn, a *arena.Arena, from, to, edgeID int64) error {
	fromEntries, err := g.readVertex(t, a, from)
	if err != nil {
		return err
	}
	if !hasEdge(fromEntries, to, edgeID, Out) {
		fromEntries = append(fromEntries, adjEntry{Neighbor: to, Edge: edgeID, Dir: Out})
		if err := g.writeVertex(t, from, fromEntries); err != nil {
			return err
		}
	}

	if to == from {
		return nil
	}
	toEntries, err := g.readVertex(t, a, to)
	if err != nil {
		return err
	}
	if !hasEdge(toEntries, from, edgeID, In) {
		toEntries = append(toEntries, adjEntry{Neighbor: from, Edge: edgeID, Dir: In})
		if err := g.writeVertex(t, to, toEntries); err != nil {
			return err
		}
	}
	return nil
}

// RemoveEdge deletes the edge from -> to with id edgeID, if present, from
// both endpoints' adjacency lists.
func (g *Graph) RemoveEdge(t *txn.Txn, a *arena.Arena, from, to, edgeID int64) error {
	fromEntries, err := g.readVertex(t, a, from)
	if err != nil {
		return err
	}
	if err := g.writeVertex(t, from, removeEdge(fromEntries, to, edgeID, Out)); err != nil {
		return err
	}
	if to == from {
		return nil
	}
	toEntries, err := g.readVertex(t, a, to)
	if err != nil {
		return err
	}
	return g.writeVertex(t, to, removeEdge(toEntries, from, edgeID, In))
}

// FindEdges returns every edge touching vertex in the given role
// (Out/In/Any), as parallel (neighbor, edgeID) slices.
func (g *Graph) FindEdges(t *txn.Txn, a *arena.Arena, vertex int64, dir Direction) (neighbors, edgeIDs []int64, err error) {
	entries, err := g.readVertex(t, a, vertex)
	if err != nil {
		return nil, nil, err
	}
	for _, e := range entries {
		if dir.matches(e.Dir) {
			neighbors = append(neighbors, e.Neighbor)
			edgeIDs = append(edgeIDs, e.Edge)
		}
	}
	return neighbors, edgeIDs, nil
}

// Degree reports how many edges touch vertex in the given role
// (Out/In/Any), without allocating the full neighbor/edge id slices.
func (g *Graph) Degree(t *txn.Txn, a *arena.Arena, vertex int64, dir Direction) (int64, error) {
	entries, err := g.readVertex(t, a, vertex)
	if err != nil {
		return 0, err
	}
	var n int64
	for _, e := range entries {
		if dir.matches(e.Dir) {
			n++
		}
	}
	return n, nil
}

// RemoveVertex deletes vertex and every edge touching it, cleaning up the
// reciprocal entry in each neighbor's own adjacency list.
func (g *Graph) RemoveVertex(t *txn.Txn, a *arena.Arena, vertex int64) error {
	entries, err := g.readVertex(t, a, vertex)
	if err != nil {
		return err
	}
	for _, e := range entries {
		neighborEntries, err := g.readVertex(t, a, e.Neighbor)
		if err != nil {
			return err
		}
		reciprocal := opposite(e.Dir)
		neighborEntries = removeEdge(neighborEntries, vertex, e.Edge, reciprocal)
		if err := g.writeVertex(t, e.Neighbor, neighborEntries); err != nil {
			return err
		}
	}
	return g.writeVertex(t, vertex, nil)
}

func hasEdge(entries []adjEntry, neighbor, edge int64, dir Direction) bool {
	for _, e := range entries {
		if e.Neighbor == neighbor && e.Edge == edge && e.Dir == dir {
			return true
		}
	}
	return false
}

func removeEdge(entries []adjEntry, neighbor, edge int64, dir Direction) []adjEntry {
	out := entries[:0]
	for _, e := range entries {
		if e.Neighbor == neighbor && e.Edge == edge && e.Dir == dir {
			continue
		}
		out = append(out, e)
	}
	return out
}

func opposite(d Direction) Direction {
	if d == Out {
		return In
	}
	return Out
}
