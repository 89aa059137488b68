package blob

import (
	"github.com/example/multikv/arena"
	"github.com/example/multikv/txn"
)

// keyWidth is the encoded width of an int64 key (see keycodec), counted
// per entry in both Bounds.SpaceLower and Bounds.SpaceUpper.
const keyWidth = 8

// perEntryOverheadUpper is an implementation-defined upper bound on the
// underlying store's per-entry bookkeeping (page headers, free-list
// slack); the true figure depends on page fill factor and is never
// exposed by the engine, so Measure only ever reports it on the upper
// side of the space bound.
const perEntryOverheadUpper = 64

// Bounds carries the lower/upper pair for each of Measure's three
// quantities (spec §4.2): cardinality, value size, and space usage.
type Bounds struct {
	CardinalityLower, CardinalityUpper int64
	ValueSizeLower, ValueSizeUpper     int64
	SpaceLower, SpaceUpper             int64
}

// Measure returns bounds on the cardinality, total value size, and space
// usage of coll restricted to the key range [start, end] (either bound
// nil means unbounded on that side), walking the range the same way Scan
// does rather than reporting whole-bucket stats unconditionally.
//
// Cardinality and value size are counted exactly from the walked range,
// so their lower and upper bounds coincide; space usage additionally
// accounts for the store's own per-entry overhead, which isn't knowable
// exactly from outside the engine, so only its upper bound reflects it.
func Measure(t *txn.Txn, a *arena.Arena, coll int64, start, end *int64) (Bounds, error) {
	keys, values, err := Scan(t, a, coll, ScanOptions{Start: start, End: end})
	if err != nil {
		return Bounds{}, err
	}

	var valueBytes int64
	for _, v := range values {
		valueBytes += int64(len(v))
	}
	card := int64(len(keys))
	rawSpace := card*keyWidth + valueBytes

	return Bounds{
		CardinalityLower: card,
		CardinalityUpper: card,
		ValueSizeLower:   valueBytes,
		ValueSizeUpper:   valueBytes,
		SpaceLower:       rawSpace,
		SpaceUpper:       rawSpace + card*perEntryOverheadUpper,
	}, nil
}
