package mdict

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeTextStripsTrailingNUL(t *testing.T) {
	got, err := decodeText([]byte("A yellow fruit.\x00"), "utf-8")
	require.NoError(t, err)
	require.Equal(t, "A yellow fruit.", got)

	// No terminator is equally valid.
	got, err = decodeText([]byte("A yellow fruit."), "utf-8")
	require.NoError(t, err)
	require.Equal(t, "A yellow fruit.", got)
}

func TestDecodeTextUTF16(t *testing.T) {
	// "héllo" in UTF-16LE plus a doubled NUL terminator.
	raw := []byte{0x68, 0x00, 0xe9, 0x00, 0x6c, 0x00, 0x6c, 0x00, 0x6f, 0x00, 0x00, 0x00}
	got, err := decodeText(raw, "utf-16")
	require.NoError(t, err)
	require.Equal(t, "héllo", got)
}

func TestDecodeTextLatin1(t *testing.T) {
	got, err := decodeText([]byte{0x63, 0x61, 0x66, 0xe9, 0x00}, "latin1")
	require.NoError(t, err)
	require.Equal(t, "café", got)
}

func TestDecodeTextGBK(t *testing.T) {
	// "中" (U+4E2D) is 0xD6 0xD0 in GBK.
	got, err := decodeText([]byte{0xd6, 0xd0, 0x00}, "gbk")
	require.NoError(t, err)
	require.Equal(t, "中", got)
}

func TestDecodeTextUnsupported(t *testing.T) {
	_, err := decodeText([]byte("x"), "shift-jis")
	require.ErrorIs(t, err, ErrUnsupportedEncoding)
}

func TestKeywordTerminatorWidth(t *testing.T) {
	require.Equal(t, 2, keywordTerminatorWidth("utf-16"))
	require.Equal(t, 1, keywordTerminatorWidth("utf-8"))
	require.Equal(t, 1, keywordTerminatorWidth("gbk"))
}
