package mdict

import (
	"bytes"
	"hash/adler32"

	"github.com/gomdict/mdict/internal/codec"
	"github.com/pkg/errors"
)

// keyBlockDirEntry is one key-block directory entry: the bounding
// keywords, entry count and sizes of one key-block.
type keyBlockDirEntry struct {
	FirstKeyword     []byte
	LastKeyword      []byte
	NumEntries       uint64
	CompressedSize   uint64
	DecompressedSize uint64
}

// rawKeyEntry is a keyword paired with its raw, not-yet-split
// offset_in_records: a byte offset into the logical concatenation of
// every record-block's decompressed payload.
type rawKeyEntry struct {
	Key          []byte
	GlobalOffset uint64
}

// parseKeyBlockDirectory reads the key-block directory prelude, its
// (optionally encrypted, optionally compressed) buffer, and the
// directory entries it contains.
func parseKeyBlockDirectory(c *cursor, h Header) ([]keyBlockDirEntry, uint64, error) {
	v := h.version

	fieldWidth := 4
	numFields := 4
	if v == versionV2 {
		fieldWidth = 8
		numFields = 5
	}
	preludeBytes := c.bytes(uint64(fieldWidth * numFields))
	if c.err != nil {
		return nil, 0, errors.Wrap(ErrCorruptHeader, "read key-block prelude: "+c.err.Error())
	}

	if v == versionV2 {
		checksum := c.u32le()
		if c.err != nil {
			return nil, 0, errors.Wrap(ErrCorruptHeader, "read key-block prelude checksum: "+c.err.Error())
		}
		if err := verifyPreludeChecksum(preludeBytes, checksum); err != nil {
			return nil, 0, err
		}
	}

	pc := newCursor(bytes.NewReader(preludeBytes))
	numKeyBlocks := pc.sized(v)
	numEntriesTotal := pc.sized(v)
	var directoryNominalSize uint64
	if v == versionV2 {
		directoryNominalSize = pc.sized(v)
	}
	directoryCompressedSize := pc.sized(v)
	_ = pc.sized(v) // records_total_nominal_size: advisory, not needed to build the index

	buf := c.bytes(directoryCompressedSize)
	if c.err != nil {
		return nil, 0, errors.Wrap(ErrCorruptHeader, "read key-block directory buffer: "+c.err.Error())
	}

	if h.KeyHeaderEncrypted {
		key := codec.FastDecryptKey(uint32(directoryCompressedSize))
		buf = codec.FastDecrypt(buf, key)
	}

	if v == versionV2 {
		decoded, err := codec.Decompress(buf, int(directoryNominalSize))
		if err != nil {
			return nil, 0, wrapBlockErr(err, "decompress key-block directory")
		}
		buf = decoded
	}

	entries := make([]keyBlockDirEntry, 0, numKeyBlocks)
	dc := newCursor(bytes.NewReader(buf))
	var entriesSeen uint64
	for i := uint64(0); i < numKeyBlocks; i++ {
		entriesInBlock := dc.sized(v)
		firstLen := dc.keywordLen(v)
		first := dc.bytes(firstLen + uint64(keywordTerminatorWidth(h.Encoding)))
		lastLen := dc.keywordLen(v)
		last := dc.bytes(lastLen + uint64(keywordTerminatorWidth(h.Encoding)))
		compSize := dc.sized(v)
		decompSize := dc.sized(v)
		if dc.err != nil {
			return nil, 0, errors.Wrap(ErrCorruptIndex, "read key-block directory entry: "+dc.err.Error())
		}

		entries = append(entries, keyBlockDirEntry{
			FirstKeyword:     stripKeywordTerminator(first, h.Encoding),
			LastKeyword:      stripKeywordTerminator(last, h.Encoding),
			NumEntries:       entriesInBlock,
			CompressedSize:   compSize,
			DecompressedSize: decompSize,
		})
		entriesSeen += entriesInBlock
	}

	if entriesSeen != numEntriesTotal {
		return nil, 0, errors.Wrapf(ErrCorruptIndex,
			"key-block entry total %d != declared %d", entriesSeen, numEntriesTotal)
	}

	return entries, numEntriesTotal, nil
}

// parseKeyBlockPayloads reads the concatenated key-block payloads that
// follow the directory, decoding each block's entries into rawKeyEntry
// values in file order.
func parseKeyBlockPayloads(c *cursor, h Header, dirEntries []keyBlockDirEntry) ([]rawKeyEntry, error) {
	v := h.version
	var keys []rawKeyEntry

	for blockIdx, dirEntry := range dirEntries {
		raw := c.bytes(dirEntry.CompressedSize)
		if c.err != nil {
			return nil, errors.Wrap(ErrCorruptBlock, "read key-block payload: "+c.err.Error())
		}

		payload, err := codec.Decompress(raw, int(dirEntry.DecompressedSize))
		if err != nil {
			return nil, wrapBlockErr(err, "decompress key-block %d", blockIdx)
		}

		pc := newCursor(bytes.NewReader(payload))
		var prevGlobalOffset uint64
		var prevFolded []byte
		var entriesInBlock uint64
		first := true
		for pc.err == nil && uint64(pc.Pos()) < dirEntry.DecompressedSize {
			globalOffset := pc.sizedBE(v)
			keyword := readNULTerminated(pc, h.Encoding)
			if pc.err != nil {
				break
			}
			if !first && globalOffset < prevGlobalOffset {
				return nil, errors.Wrapf(ErrCorruptIndex,
					"non-monotonic offsets within key-block %d", blockIdx)
			}
			// Keys within a block follow the dictionary's collation,
			// practically byte order after a case-insensitive fold.
			folded := bytes.ToLower(keyword)
			if !first && bytes.Compare(prevFolded, folded) > 0 {
				return nil, errors.Wrapf(ErrCorruptIndex,
					"keywords out of order within key-block %d", blockIdx)
			}
			prevGlobalOffset, prevFolded, first = globalOffset, folded, false
			entriesInBlock++
			keys = append(keys, rawKeyEntry{Key: keyword, GlobalOffset: globalOffset})
		}
		if entriesInBlock != dirEntry.NumEntries {
			return nil, errors.Wrapf(ErrCorruptIndex,
				"key-block %d holds %d entries, directory declared %d",
				blockIdx, entriesInBlock, dirEntry.NumEntries)
		}
	}

	return keys, nil
}

// readNULTerminated reads one NUL-terminated (or doubly-NUL-terminated,
// for utf-16) keyword from a key-block payload cursor.
func readNULTerminated(c *cursor, encodingName string) []byte {
	width := keywordTerminatorWidth(encodingName)
	var buf bytes.Buffer
	for {
		// Read one code unit at a time so a utf-16 terminator is only
		// matched on a code-unit boundary.
		unit := c.bytes(uint64(width))
		if c.err != nil {
			return buf.Bytes()
		}
		if bytes.Count(unit, []byte{0}) == width {
			return buf.Bytes()
		}
		buf.Write(unit)
	}
}

func stripKeywordTerminator(b []byte, encodingName string) []byte {
	width := keywordTerminatorWidth(encodingName)
	if len(b) >= width {
		trailerAllZero := true
		for _, x := range b[len(b)-width:] {
			if x != 0 {
				trailerAllZero = false
				break
			}
		}
		if trailerAllZero {
			return b[:len(b)-width]
		}
	}
	return b
}

// verifyPreludeChecksum recomputes the Adler-32 of a v2.0 key-block
// directory prelude's serialized bytes. The record-block directory
// prelude carries no such checksum.
func verifyPreludeChecksum(serialized []byte, want uint32) error {
	if adler32.Checksum(serialized) != want {
		return errors.Wrap(ErrCorruptHeader, "prelude adler32 mismatch")
	}
	return nil
}
