package mdict

import (
	"encoding/binary"
	"io"
)

// version distinguishes the two observed on-disk framings.
type version int

const (
	versionV1 version = iota // 1.2 and earlier: 32-bit directory counters, u8 keyword length prefixes
	versionV2                // 2.0 and later: 64-bit directory counters, u16 BE keyword length prefixes
)

func versionFromEngine(engineVersion float64) version {
	if engineVersion >= 2.0 {
		return versionV2
	}
	return versionV1
}

// cursor is a minimal sequential reader over an io.Reader that tracks how
// many bytes it has consumed, used only while parsing the header and
// directories — strictly single-threaded at Open time. It is distinct
// from the concurrent, ReadAt-based access lookups use once the
// Dictionary is built (see lookup.go).
type cursor struct {
	r   io.Reader
	pos int64
	err error
}

func newCursor(r io.Reader) *cursor { return &cursor{r: r} }

// Pos reports the number of bytes consumed so far, i.e. this cursor's
// current file offset relative to where it started reading.
func (c *cursor) Pos() int64 { return c.pos }

func (c *cursor) readFull(buf []byte) {
	if c.err != nil {
		return
	}
	n, err := io.ReadFull(c.r, buf)
	c.pos += int64(n)
	c.err = err
}

func (c *cursor) u32() uint32 {
	var buf [4]byte
	c.readFull(buf[:])
	return binary.BigEndian.Uint32(buf[:])
}

func (c *cursor) u32le() uint32 {
	var buf [4]byte
	c.readFull(buf[:])
	return binary.LittleEndian.Uint32(buf[:])
}

func (c *cursor) u64() uint64 {
	var buf [8]byte
	c.readFull(buf[:])
	return binary.BigEndian.Uint64(buf[:])
}

func (c *cursor) u64le() uint64 {
	var buf [8]byte
	c.readFull(buf[:])
	return binary.LittleEndian.Uint64(buf[:])
}

// sized reads a directory counter or size field whose width depends on
// the format version: 32 bits for v1.2, 64 bits for v2.0, little-endian
// in both cases — unlike the handful of fields noted below that are
// explicitly big-endian.
func (c *cursor) sized(v version) uint64 {
	if v == versionV1 {
		return uint64(c.u32le())
	}
	return c.u64le()
}

// sizedBE reads a version-sized field that is big-endian on disk: the
// record-offset stored in each key-block payload entry.
func (c *cursor) sizedBE(v version) uint64 {
	if v == versionV1 {
		return uint64(c.u32())
	}
	return c.u64()
}

func (c *cursor) bytes(n uint64) []byte {
	buf := make([]byte, n)
	c.readFull(buf)
	return buf
}

// keywordLen reads the length prefix of a directory keyword: a single
// byte for v1.2, a big-endian u16 for v2.0.
func (c *cursor) keywordLen(v version) uint64 {
	if v == versionV1 {
		var b [1]byte
		c.readFull(b[:])
		return uint64(b[0])
	}
	var b [2]byte
	c.readFull(b[:])
	return uint64(binary.BigEndian.Uint16(b[:]))
}
