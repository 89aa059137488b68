// Package catalog implements the Collection Catalog (spec §4.4): named
// partitions of the key space, with lifecycle operations create,
// drop-handle, drop-keys-values, drop-values-only, and list.
//
// Grounded on the teacher's schema.go/schematable.go/schemastate.go, which
// keep a msgpack-encoded meta-document per table in a bucket prepared at
// Open; here the meta-document is generalized from a typed table
// definition to a bare (id, name) pair, since the blob layer's
// collections carry no row schema.
package catalog

import (
	"fmt"
	"sort"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/example/multikv/engine"
	"github.com/example/multikv/keycodec"
)

// bucket names, fixed, never user-visible.
const (
	metaBucket    = "__catalog__"
	counterKey    = "__next_id__"
	dataBucketFmt = "coll:%d"
)

// MainID is the id of the always-present anonymous main collection.
const MainID int64 = 0

type entry struct {
	Name string `msgpack:"n"`
}

// Catalog caches the collection listing in memory, refreshed under mu
// whenever create/drop mutate it. Reads of the cache (List, NameOf, IDOf)
// don't need a storage transaction at all; Create/Drop do, and take the
// database-wide mutex described in spec §5 for the duration of the
// mutation plus cache refresh.
type Catalog struct {
	mu      sync.Mutex
	byID    map[int64]string
	byName  map[string]int64
	nextID  int64
	loaded  bool
}

// New returns an empty, not-yet-loaded Catalog.
func New() *Catalog {
	return &Catalog{byID: map[int64]string{}, byName: map[string]int64{}}
}

// Bootstrap ensures the main collection and the catalog metadata bucket
// exist, and loads the in-memory cache. Called once from Open inside a
// writable engine transaction, mirroring the teacher's db.Write(...) call
// in db.go's Open that prepares every schema table before the database is
// handed to the caller.
func (c *Catalog) Bootstrap(tx engine.Tx) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	meta, err := tx.CreateBucket(metaBucket, "")
	if err != nil {
		return fmt.Errorf("catalog: bootstrap: %w", err)
	}
	if _, err := tx.CreateBucket(dataBucketName(MainID), ""); err != nil {
		return fmt.Errorf("catalog: bootstrap main data bucket: %w", err)
	}

	c.byID = map[int64]string{}
	c.byName = map[string]int64{}
	c.nextID = MainID + 1

	cur := meta.Cursor()
	for k, v := cur.First(); k != nil; k, v = cur.Next() {
		if string(k) == counterKey {
			continue
		}
		id := keycodec.Decode(k)
		var e entry
		if err := msgpack.Unmarshal(v, &e); err != nil {
			return fmt.Errorf("catalog: decoding entry %d: %w", id, err)
		}
		c.byID[id] = e.Name
		if e.Name != "" {
			c.byName[e.Name] = id
		}
		if id >= c.nextID {
			c.nextID = id + 1
		}
	}
	c.byID[MainID] = ""
	c.loaded = true
	return nil
}

// DataBucketName returns the engine bucket name backing collection id's
// key space. Exported so the blob/graph/docs layers can address it
// without round-tripping through Catalog for every single read/write.
func DataBucketName(id int64) string { return dataBucketName(id) }

func dataBucketName(id int64) string { return fmt.Sprintf(dataBucketFmt, id) }

// Create registers a new named collection and creates its backing bucket.
// The empty name is reserved for main and cannot be (re-)created.
func (c *Catalog) Create(tx engine.Tx, name string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if name == "" {
		return 0, fmt.Errorf("catalog: cannot create a collection with the empty (main) name")
	}
	if _, exists := c.byName[name]; exists {
		return 0, fmt.Errorf("catalog: collection %q already exists", name)
	}

	id := c.nextID
	c.nextID++

	if _, err := tx.CreateBucket(dataBucketName(id), ""); err != nil {
		return 0, fmt.Errorf("catalog: creating data bucket: %w", err)
	}
	if err := c.putEntry(tx, id, name); err != nil {
		return 0, err
	}

	c.byID[id] = name
	c.byName[name] = id
	return id, nil
}

func (c *Catalog) putEntry(tx engine.Tx, id int64, name string) error {
	meta := tx.Bucket(metaBucket, "")
	if meta == nil {
		return fmt.Errorf("catalog: meta bucket missing")
	}
	raw, err := msgpack.Marshal(&entry{Name: name})
	if err != nil {
		return fmt.Errorf("catalog: encoding entry: %w", err)
	}
	key := keycodec.Encode(id)
	return meta.Put(key[:], raw)
}

// Drop disposes of a collection per mode. DropKeysValuesHandle is
// forbidden on MainID.
func (c *Catalog) Drop(tx engine.Tx, id int64, mode DropMode) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	name, ok := c.byID[id]
	if !ok {
		return fmt.Errorf("catalog: no such collection %d", id)
	}

	switch mode {
	case DropKeysValuesHandle:
		if id == MainID {
			return fmt.Errorf("catalog: cannot drop the main collection's handle")
		}
		if err := tx.DeleteBucket(dataBucketName(id), ""); err != nil && err != engine.ErrBucketNotFound {
			return fmt.Errorf("catalog: dropping data bucket: %w", err)
		}
		meta := tx.Bucket(metaBucket, "")
		if meta != nil {
			key := keycodec.Encode(id)
			if err := meta.Delete(key[:]); err != nil {
				return fmt.Errorf("catalog: dropping meta entry: %w", err)
			}
		}
		delete(c.byID, id)
		if name != "" {
			delete(c.byName, name)
		}

	case DropKeysValues:
		if err := clearBucket(tx, dataBucketName(id)); err != nil {
			return err
		}

	case DropValues:
		if err := tombstoneBucket(tx, dataBucketName(id)); err != nil {
			return err
		}

	default:
		return fmt.Errorf("catalog: unknown drop mode %d", mode)
	}
	return nil
}

func clearBucket(tx engine.Tx, name string) error {
	if err := tx.DeleteBucket(name, ""); err != nil && err != engine.ErrBucketNotFound {
		return fmt.Errorf("catalog: clearing bucket: %w", err)
	}
	if _, err := tx.CreateBucket(name, ""); err != nil {
		return fmt.Errorf("catalog: recreating bucket: %w", err)
	}
	return nil
}

func tombstoneBucket(tx engine.Tx, name string) error {
	b := tx.Bucket(name, "")
	if b == nil {
		return fmt.Errorf("catalog: no such bucket %q", name)
	}
	cur := b.Cursor()
	for k, _ := cur.First(); k != nil; k, _ = cur.Next() {
		if err := b.Put(k, nil); err != nil {
			return fmt.Errorf("catalog: tombstoning key: %w", err)
		}
	}
	return nil
}

// List returns every registered collection id in ascending id order
// together with a parallel slice of names; main is included, with the
// empty name.
func (c *Catalog) List() (ids []int64, names []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids = make([]int64, 0, len(c.byID))
	for id := range c.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	names = make([]string, len(ids))
	for i, id := range ids {
		names[i] = c.byID[id]
	}
	return ids, names
}

// Contains reports whether a collection with the given name exists,
// implemented as a linear search over List per spec §4.4.
func (c *Catalog) Contains(name string) bool {
	ids, names := c.List()
	for i := range ids {
		if names[i] == name {
			return true
		}
	}
	return false
}

// NameOf returns the name of id, or "" for main / unregistered ids.
func (c *Catalog) NameOf(id int64) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	name, ok := c.byID[id]
	return name, ok
}

// IDOf resolves a name to a collection id. The empty name always resolves
// to MainID.
func (c *Catalog) IDOf(name string) (int64, bool) {
	if name == "" {
		return MainID, true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.byName[name]
	return id, ok
}

// DropMode selects how Drop disposes of a collection. Re-exported as
// multikv.DropMode so callers never need to import this package
// directly.
type DropMode int

const (
	// DropKeysValuesHandle removes every entry and the collection handle
	// itself. Forbidden on the main collection.
	DropKeysValuesHandle DropMode = iota
	// DropKeysValues removes every entry but keeps the handle registered.
	DropKeysValues
	// DropValues tombstones every value (sets it empty) while keeping keys.
	DropValues
)
