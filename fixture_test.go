package mdict

import (
	"bytes"
	"encoding/binary"
	"hash/adler32"
	"os"
	"path/filepath"
	"testing"
	"unicode/utf16"
)

// fixtureEntry is one headword/resource-path and its payload, used to
// synthesize an MDX or MDD file byte-for-byte the way a real MDict
// engine would write one. Entries must already be in the order the
// fixture's key-block should store them (the builder never sorts).
type fixtureEntry struct {
	key     string
	payload []byte // text bytes (MDX) or raw bytes (MDD), NUL-terminator excluded
}

// buildFixture writes a minimal, spec-conformant v2.0 single-key-block
// MDX or MDD file: XML header, key-block directory (one block spanning
// all entries), key-block payload, record-block directory, record-block
// payloads. recordBlockSizes partitions entries (in order) across one or
// more record-blocks; it must sum to len(entries). All codec-dispatch
// blocks use the uncompressed tag so the fixture needs no compressor.
func buildFixture(t *testing.T, mode Mode, title string, entries []fixtureEntry, recordBlockSizes []int) []byte {
	t.Helper()

	encodingAttr := "UTF-8"
	// MDD record payloads are opaque bytes with no terminator of their
	// own; only MDX text entries carry a trailing NUL, and even that is
	// optional (decodeText strips it if present).
	recordTermWidth := 1
	if mode == ModeMdd {
		encodingAttr = "UTF-16"
		recordTermWidth = 0
	}

	var buf bytes.Buffer

	writeXMLHeader(t, &buf, "2.0", title, encodingAttr)

	// Record-block payloads: entries partitioned per recordBlockSizes,
	// each followed by a text terminator for MDX only. Global offsets
	// are relative to the logical concatenation of every block's
	// decompressed bytes.
	globalOffsets := make([]uint64, len(entries))
	recordBlockEnvelopes := make([][]byte, len(recordBlockSizes))
	recordBlockDecompSizes := make([]uint64, len(recordBlockSizes))
	entryIdx := 0
	var globalBase uint64
	for bi, size := range recordBlockSizes {
		var blockPayload bytes.Buffer
		for j := 0; j < size; j++ {
			globalOffsets[entryIdx] = globalBase + uint64(blockPayload.Len())
			blockPayload.Write(entries[entryIdx].payload)
			blockPayload.Write(make([]byte, recordTermWidth))
			entryIdx++
		}
		recordBlockDecompSizes[bi] = uint64(blockPayload.Len())
		recordBlockEnvelopes[bi] = wrapUncompressed(blockPayload.Bytes())
		globalBase += uint64(blockPayload.Len())
	}

	// Key-block payload: per entry, an 8-byte BE global offset followed
	// by the NUL-terminated keyword (encoded per mode's key encoding,
	// which matches the content encoding here since both are ASCII-safe
	// in this fixture).
	var keyPayload bytes.Buffer
	for i, e := range entries {
		var off [8]byte
		binary.BigEndian.PutUint64(off[:], globalOffsets[i])
		keyPayload.Write(off[:])
		writeFixtureKey(&keyPayload, e.key, mode)
	}
	keyBlockEnvelope := wrapUncompressed(keyPayload.Bytes())

	// Key-block directory buffer: one entry, wrapped uncompressed.
	// Computed before the prelude since the prelude's
	// directory_compressed_size field needs this envelope's length.
	var dirEntry bytes.Buffer
	writeU64LE(&dirEntry, uint64(len(entries))) // entries_in_block
	writeFixtureDirKeyword(&dirEntry, entries[0].key, mode)
	writeFixtureDirKeyword(&dirEntry, entries[len(entries)-1].key, mode)
	writeU64LE(&dirEntry, uint64(len(keyBlockEnvelope))) // compressed_size
	writeU64LE(&dirEntry, uint64(keyPayload.Len()))      // decompressed_size
	dirEnvelope := wrapUncompressed(dirEntry.Bytes())

	// Key-block directory prelude (v2.0: five u64 LE fields + adler32).
	var prelude bytes.Buffer
	writeU64LE(&prelude, 1)                        // num_key_blocks
	writeU64LE(&prelude, uint64(len(entries)))     // num_entries_total
	writeU64LE(&prelude, uint64(dirEntry.Len()))   // directory_nominal_size
	writeU64LE(&prelude, uint64(len(dirEnvelope))) // directory_compressed_size
	writeU64LE(&prelude, globalBase)               // records_total_nominal_size (advisory)
	buf.Write(prelude.Bytes())
	writeU32LE(&buf, adler32.Checksum(prelude.Bytes()))

	buf.Write(dirEnvelope)
	buf.Write(keyBlockEnvelope)

	// Record-block directory: one row per block, no checksum.
	var totalCompressed int
	for _, env := range recordBlockEnvelopes {
		totalCompressed += len(env)
	}
	writeU64LE(&buf, uint64(len(recordBlockSizes))) // num_record_blocks
	writeU64LE(&buf, uint64(len(entries)))          // num_entries_total
	writeU64LE(&buf, uint64(16*len(recordBlockSizes)))  // directory_size (advisory, unused)
	writeU64LE(&buf, uint64(totalCompressed))       // records_total_compressed_size (advisory)
	for bi := range recordBlockSizes {
		writeU64LE(&buf, uint64(len(recordBlockEnvelopes[bi]))) // compressed_size
		writeU64LE(&buf, recordBlockDecompSizes[bi])            // decompressed_size
	}

	for _, env := range recordBlockEnvelopes {
		buf.Write(env)
	}

	return buf.Bytes()
}

func writeXMLHeader(t *testing.T, buf *bytes.Buffer, engineVersion, title, encodingAttr string) {
	t.Helper()
	writeRawXMLHeader(buf, `<Dictionary GeneratedByEngineVersion="`+engineVersion+
		`" Encoding="`+encodingAttr+
		`" Encrypted="0" Title="`+title+`" Description="fixture" RegisterBy="" RegCode="" />`)
}

// writeRawXMLHeader frames an arbitrary XML element the way the file
// format does: u32 BE byte length, UTF-16LE text, u32 LE Adler-32.
func writeRawXMLHeader(buf *bytes.Buffer, xml string) {
	u16 := utf16.Encode([]rune(xml))
	xmlBytes := make([]byte, len(u16)*2)
	for i, u := range u16 {
		binary.LittleEndian.PutUint16(xmlBytes[i*2:], u)
	}

	writeU32BE(buf, uint32(len(xmlBytes)))
	buf.Write(xmlBytes)
	writeU32LE(buf, adler32.Checksum(xmlBytes))
}

// writeFixtureKey writes one key-block-payload keyword: the bytes
// (UTF-16LE for MDD, raw ASCII for MDX in this fixture) followed by its
// NUL terminator.
func writeFixtureKey(buf *bytes.Buffer, key string, mode Mode) {
	if mode == ModeMdd {
		for _, r := range key {
			var b [2]byte
			binary.LittleEndian.PutUint16(b[:], uint16(r))
			buf.Write(b[:])
		}
		buf.Write([]byte{0, 0})
		return
	}
	buf.WriteString(key)
	buf.WriteByte(0)
}

// writeFixtureDirKeyword writes one key-block-directory bounding
// keyword: a u16 BE length prefix (byte length of the encoded key,
// terminator excluded) followed by the encoded key and its terminator.
func writeFixtureDirKeyword(buf *bytes.Buffer, key string, mode Mode) {
	var encoded bytes.Buffer
	if mode == ModeMdd {
		for _, r := range key {
			var b [2]byte
			binary.LittleEndian.PutUint16(b[:], uint16(r))
			encoded.Write(b[:])
		}
	} else {
		encoded.WriteString(key)
	}

	writeU16BE(buf, uint16(encoded.Len()))
	buf.Write(encoded.Bytes())
	if mode == ModeMdd {
		buf.Write([]byte{0, 0})
	} else {
		buf.WriteByte(0)
	}
}

func wrapUncompressed(payload []byte) []byte {
	out := make([]byte, 8+len(payload))
	binary.LittleEndian.PutUint32(out[0:4], 0) // TagUncompressed
	binary.LittleEndian.PutUint32(out[4:8], adler32.Checksum(payload))
	copy(out[8:], payload)
	return out
}

func writeU32BE(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeU32LE(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeU16BE(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeU64LE(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

// buildFixtureV1 writes a minimal v1.2 MDX file: 32-bit directory
// counters, u8 directory keyword length prefixes, no prelude checksum,
// and a raw (neither compressed nor enveloped) key-block directory
// buffer. Entries all land in one key-block and one record-block.
func buildFixtureV1(t *testing.T, title string, entries []fixtureEntry) []byte {
	t.Helper()

	var buf bytes.Buffer
	writeXMLHeader(t, &buf, "1.2", title, "UTF-8")

	var blockPayload bytes.Buffer
	globalOffsets := make([]uint32, len(entries))
	for i, e := range entries {
		globalOffsets[i] = uint32(blockPayload.Len())
		blockPayload.Write(e.payload)
		blockPayload.WriteByte(0)
	}
	recordEnvelope := wrapUncompressed(blockPayload.Bytes())

	var keyPayload bytes.Buffer
	for i, e := range entries {
		writeU32BE(&keyPayload, globalOffsets[i])
		keyPayload.WriteString(e.key)
		keyPayload.WriteByte(0)
	}
	keyBlockEnvelope := wrapUncompressed(keyPayload.Bytes())

	// Raw v1.2 directory: entries_in_block, u8-length-prefixed bounding
	// keywords (terminator included in the written bytes), sizes.
	var dir bytes.Buffer
	writeU32LE(&dir, uint32(len(entries)))
	for _, k := range []string{entries[0].key, entries[len(entries)-1].key} {
		dir.WriteByte(byte(len(k)))
		dir.WriteString(k)
		dir.WriteByte(0)
	}
	writeU32LE(&dir, uint32(len(keyBlockEnvelope))) // compressed_size
	writeU32LE(&dir, uint32(keyPayload.Len()))      // decompressed_size

	// v1.2 prelude: four u32 fields, no directory_nominal_size, no
	// checksum.
	writeU32LE(&buf, 1)                    // num_key_blocks
	writeU32LE(&buf, uint32(len(entries))) // num_entries_total
	writeU32LE(&buf, uint32(dir.Len()))    // directory_compressed_size
	writeU32LE(&buf, uint32(blockPayload.Len()))

	buf.Write(dir.Bytes())
	buf.Write(keyBlockEnvelope)

	writeU32LE(&buf, 1)                             // num_record_blocks
	writeU32LE(&buf, uint32(len(entries)))          // num_entries_total
	writeU32LE(&buf, 8)                             // directory_size (advisory)
	writeU32LE(&buf, uint32(len(recordEnvelope)))   // records_total_compressed_size
	writeU32LE(&buf, uint32(len(recordEnvelope)))   // compressed_size
	writeU32LE(&buf, uint32(blockPayload.Len()))    // decompressed_size
	buf.Write(recordEnvelope)

	return buf.Bytes()
}

// writeFixtureFile writes data to dir/name, creating dir if needed, and
// returns the full path.
func writeFixtureFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write fixture %s: %v", path, err)
	}
	return path
}
