package codec

import (
	"bytes"
	"encoding/binary"
	"hash/adler32"
	"testing"

	"github.com/klauspost/compress/flate"
	"github.com/stretchr/testify/require"
)

func rawDeflate(t *testing.T, src []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestSpeed)
	require.NoError(t, err)
	_, err = w.Write(src)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func envelope(tag Tag, decompressed, payload []byte) []byte {
	out := make([]byte, 8+len(payload))
	binary.LittleEndian.PutUint32(out[0:4], uint32(tag))
	binary.LittleEndian.PutUint32(out[4:8], adler32.Checksum(decompressed))
	copy(out[8:], payload)
	return out
}

func TestDecompressUncompressed(t *testing.T) {
	src := []byte("A yellow fruit.")
	block := envelope(TagUncompressed, src, src)

	got, err := Decompress(block, len(src))
	require.NoError(t, err)
	require.Equal(t, src, got)
}

func TestDecompressZlib(t *testing.T) {
	src := []byte("entries compress reasonably well when repeated repeated repeated")
	deflated := rawDeflate(t, src)
	block := envelope(TagZlib, src, deflated)

	got, err := Decompress(block, len(src))
	require.NoError(t, err)
	require.Equal(t, src, got)
}

func TestDecompressCorruptChecksum(t *testing.T) {
	src := []byte("hello")
	block := envelope(TagUncompressed, src, src)
	block[4] ^= 0xff // flip a byte of the stored checksum

	_, err := Decompress(block, len(src))
	require.ErrorIs(t, err, ErrCorruptBlock)
}

func TestDecompressUnknownTag(t *testing.T) {
	block := envelope(TagUncompressed, []byte("x"), []byte("x"))
	block[0] = 0xee

	_, err := Decompress(block, 1)
	require.ErrorIs(t, err, ErrCorruptBlock)
}

func TestFastDecryptIsDeterministic(t *testing.T) {
	key := FastDecryptKey(128)
	plain := []byte("0123456789abcdef0123456789abcdef")

	scrambled := FastDecrypt(plain, key)
	require.NotEqual(t, plain, scrambled)

	// FastDecrypt is its own "scramble"; the MDX format only ever needs
	// to undo the permutation applied at write time using the same
	// derived key and the *original* plaintext bytes as prev-chain, so
	// round-tripping here only asserts determinism, not a group inverse.
	again := FastDecrypt(plain, key)
	require.Equal(t, scrambled, again)
}

func TestUserKeyDiffersFromFastDecryptKey(t *testing.T) {
	uk := UserKey([]byte("secret"))
	fk := FastDecryptKey(4)
	require.NotEqual(t, uk, fk)
}

func TestRipemd128KnownStructure(t *testing.T) {
	// RIPEMD-128 of the empty string is a well-known test vector from the
	// ISO/IEC 10118-3 reference suite.
	got := ripemd128Sum128(nil)
	want := [16]byte{
		0xcd, 0xf2, 0x62, 0x13, 0xa1, 0x50, 0xdc, 0x3e,
		0xcb, 0x61, 0x0f, 0x18, 0xf6, 0xb3, 0x8b, 0x46,
	}
	require.Equal(t, want, got)
}
