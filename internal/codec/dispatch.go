// Package codec implements the MDX/MDD block codec: the codec-dispatch
// envelope (tag + Adler-32), zlib and LZO payload decompression, and the
// RIPEMD128-keyed scramble used for key-header and record encryption.
package codec

import (
	"encoding/binary"
	"hash/adler32"

	"github.com/pkg/errors"
)

// Tag identifies the compression scheme of a codec-dispatch block. It
// is the first 4 bytes of every compressed block.
type Tag uint32

const (
	TagUncompressed Tag = 0x00000000
	TagLZO          Tag = 0x00000001
	TagZlib         Tag = 0x00000002
)

// ErrCorruptBlock is returned when a block's Adler-32 checksum does not
// match its decompressed payload, or its tag is unrecognised.
var ErrCorruptBlock = errors.New("codec: corrupt block")

// Decompress dispatches on a block's leading 4-byte tag and 4-byte
// Adler-32 checksum (little-endian, of the decompressed payload) and
// returns the decompressed bytes. decompressedSize is the size recorded
// out-of-band in the owning directory entry; it drives LZO decompression,
// which carries no size of its own, and is ignored by the other schemes.
func Decompress(block []byte, decompressedSize int) ([]byte, error) {
	if len(block) < 8 {
		return nil, errors.Wrap(ErrCorruptBlock, "block shorter than envelope")
	}

	tag := Tag(binary.LittleEndian.Uint32(block[:4]))
	wantChecksum := binary.LittleEndian.Uint32(block[4:8])
	payload := block[8:]

	var out []byte
	var err error

	switch tag {
	case TagUncompressed:
		out = payload
	case TagLZO:
		out, err = lzoDecompress(payload, decompressedSize)
	case TagZlib:
		out, err = zlibInflate(payload)
	default:
		return nil, errors.Wrapf(ErrCorruptBlock, "unknown codec tag 0x%08x", uint32(tag))
	}
	if err != nil {
		return nil, errors.Wrapf(ErrCorruptBlock, "decompress block: %s", err)
	}

	if adler32.Checksum(out) != wantChecksum {
		return nil, errors.Wrap(ErrCorruptBlock, "adler32 mismatch")
	}
	return out, nil
}
