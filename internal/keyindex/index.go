// Package keyindex implements the in-memory ordered keyword index shared
// by MDX headword lookup and MDD resource lookup. It wraps
// github.com/chronohq/radixdb, a Patricia/radix-tree ordered store well
// suited to exact-match and prefix work over a large, mostly static
// keyword set.
package keyindex

import (
	"sort"

	"github.com/chronohq/radixdb"
)

// Entry is one keyword's resolved location: the record-block number and
// intra-block byte range of its payload.
type Entry struct {
	Block  uint32
	Offset uint32
	Len    uint32
}

// Index is an ordered, read-only-after-construction map from keyword
// bytes to Entry. Construction is bulk, from an already key-ordered
// sequence; there is no incremental Put in the public surface because
// the core never mutates a built dictionary.
type Index struct {
	tree *radixdb.RadixDB
	// keys preserves insertion (file) order for keyword iteration: the
	// on-disk order is treated as authoritative and is never re-sorted,
	// since collation rules vary by dictionary and guessing one would be
	// wrong for some of them.
	keys [][]byte
}

// Builder accumulates keyword/Entry pairs in file order and produces an
// Index. Keys must arrive already in the dictionary's on-disk order;
// Builder does not sort them.
type Builder struct {
	tree *radixdb.RadixDB
	keys [][]byte
}

func NewBuilder() *Builder {
	return &Builder{tree: radixdb.New()}
}

// Add inserts one keyword. The caller owns key and may reuse its backing
// array after the call returns.
func (b *Builder) Add(key []byte, e Entry) error {
	own := append([]byte(nil), key...)
	if err := b.tree.Insert(own, encodeEntry(e)); err != nil {
		return err
	}
	b.keys = append(b.keys, own)
	return nil
}

// Len reports how many keywords have been added so far.
func (b *Builder) Len() int { return len(b.keys) }

func (b *Builder) Build() *Index {
	return &Index{tree: b.tree, keys: b.keys}
}

// Lookup performs an exact-match lookup in O(len(key)) via the radix
// tree, independent of index size.
func (idx *Index) Lookup(key []byte) (Entry, bool) {
	raw, err := idx.tree.Find(key)
	if err != nil {
		// radixdb.ErrKeyNotFound, or an empty/invalid key: either way the
		// keyword is not in the index.
		return Entry{}, false
	}
	return decodeEntry(raw), true
}

// Len returns the total number of keywords, used to validate the
// header's declared key count against what was actually parsed.
func (idx *Index) Len() int { return len(idx.keys) }

// Keys returns keywords in on-disk (file) order, the order keyword
// iteration enumerates in.
func (idx *Index) Keys() [][]byte { return idx.keys }

// FoldedOrdered reports whether the on-disk order already satisfies a
// case-folded monotonic invariant: for any two adjacent keys,
// fold(k_i) <= fold(k_{i+1}). Used by tests; not required for lookups.
func (idx *Index) FoldedOrdered(fold func([]byte) []byte) bool {
	return sort.SliceIsSorted(idx.keys, func(i, j int) bool {
		return string(fold(idx.keys[i])) < string(fold(idx.keys[j]))
	})
}

// encodeEntry/decodeEntry give radixdb's []byte-valued store a fixed
// 12-byte little-endian encoding of the three Entry fields.
func encodeEntry(e Entry) []byte {
	buf := make([]byte, 12)
	putU32(buf[0:4], e.Block)
	putU32(buf[4:8], e.Offset)
	putU32(buf[8:12], e.Len)
	return buf
}

func decodeEntry(buf []byte) Entry {
	return Entry{
		Block:  getU32(buf[0:4]),
		Offset: getU32(buf[4:8]),
		Len:    getU32(buf[8:12]),
	}
}

func putU32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func getU32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
