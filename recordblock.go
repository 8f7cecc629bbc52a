package mdict

import (
	"github.com/pkg/errors"
)

// recordBlock is one record-block directory entry: the file offset,
// compressed size, and decompressed size needed to fetch and inflate a
// block on demand.
type recordBlock struct {
	FileOffset       int64
	CompressedSize   uint64
	DecompressedSize uint64
}

// parseRecordBlockDirectory reads the record-block directory that
// immediately follows the key-block payloads. Callers must call
// assignFileOffsets afterward with the cursor's position (the first
// record-block payload byte) once parsing returns.
func parseRecordBlockDirectory(c *cursor, v version, keyCountTotal uint64) ([]recordBlock, error) {
	numBlocks := c.sized(v)
	numEntriesTotal := c.sized(v)
	_ = c.sized(v) // directory_size, not needed once parsed sequentially
	_ = c.sized(v) // records_total_compressed_size, advisory only
	if c.err != nil {
		return nil, errors.Wrap(ErrCorruptHeader, "read record-block prelude: "+c.err.Error())
	}
	if numEntriesTotal != keyCountTotal {
		return nil, errors.Wrapf(ErrCorruptIndex,
			"record-block entry total %d != key count %d", numEntriesTotal, keyCountTotal)
	}

	blocks := make([]recordBlock, numBlocks)
	for i := range blocks {
		blocks[i].CompressedSize = c.sized(v)
		blocks[i].DecompressedSize = c.sized(v)
	}
	if c.err != nil {
		return nil, errors.Wrap(ErrCorruptHeader, "read record-block directory: "+c.err.Error())
	}
	return blocks, nil
}

// assignFileOffsets fills in each block's FileOffset given the file
// position of the first record-block payload byte: each subsequent
// block starts where the prior one's compressed bytes end.
func assignFileOffsets(blocks []recordBlock, startOfRecords int64) {
	offset := startOfRecords
	for i := range blocks {
		blocks[i].FileOffset = offset
		offset += int64(blocks[i].CompressedSize)
	}
}

// locate resolves a global decompressed offset (as stored in a key's
// key-block entry) into the owning block index and intra-block residue
// within it: the block whose decompressed range contains the offset,
// with the residue being the position within that block.
func locate(blocks []recordBlock, globalOffset uint64) (blockIndex int, residue uint64, ok bool) {
	var base uint64
	for i, b := range blocks {
		if globalOffset < base+b.DecompressedSize {
			return i, globalOffset - base, true
		}
		base += b.DecompressedSize
	}
	return 0, 0, false
}
